package audiounlock

// DecodeOption configures a Decoder built by NewDecoder.
//
// Options use the functional options pattern:
//
//	dec := audiounlock.NewDecoder(
//	    audiounlock.WithStrictMetadata(),
//	    audiounlock.WithMaxArtworkSize(5<<20),
//	)
type DecodeOption func(*decodeOptions)

// decodeOptions holds configuration for decoding.
type decodeOptions struct {
	tagging        bool // Embed metadata and artwork into the audio
	strict         bool // Validate container metadata against its schema
	validate       bool // Re-read written tags and compare
	maxArtworkSize int  // Maximum artwork size in bytes (0 = no limit)
}

// defaultDecodeOptions returns the default configuration.
func defaultDecodeOptions() *decodeOptions {
	return &decodeOptions{
		tagging: true,
	}
}

// WithoutTagging leaves decoded audio untagged.
//
// By default, containers that carry metadata (NCM) have their title,
// artists, album and cover written into the output audio.
func WithoutTagging() DecodeOption {
	return func(o *decodeOptions) {
		o.tagging = false
	}
}

// WithTagging sets whether metadata is embedded. It exists so that flag
// values can be passed straight through.
func WithTagging(enabled bool) DecodeOption {
	return func(o *decodeOptions) {
		o.tagging = enabled
	}
}

// WithStrictMetadata validates container metadata against its JSON schema
// and fails with a KindMetadata error on mismatch.
func WithStrictMetadata() DecodeOption {
	return func(o *decodeOptions) {
		o.strict = true
	}
}

// WithMaxArtworkSize sets a maximum size for embedded artwork.
//
// Larger artwork is dropped with a Warning instead of failing the decode.
// Default is 0 (no limit).
func WithMaxArtworkSize(bytes int) DecodeOption {
	return func(o *decodeOptions) {
		o.maxArtworkSize = bytes
	}
}

// WithValidation re-reads the tag written into the output and fails with
// a KindTagWrite error when the title does not match.
func WithValidation() DecodeOption {
	return func(o *decodeOptions) {
		o.validate = true
	}
}
