// Package types holds the data model shared by the container codecs, the
// tag writers and the public orchestration API.
package types

// Decoded is the raw output of a container decoder, before tagging.
type Decoded struct {
	// Metadata is nil for containers that carry none (QMC).
	Metadata *Metadata
	Audio    []byte
	// Image is the embedded cover as stored; empty means none.
	Image  []byte
	Format MediaFormat
}

// DecodeOptions tune container decoders.
type DecodeOptions struct {
	// Hint is the media format implied by the input name, used by
	// containers that do not record it themselves.
	Hint MediaFormat
	// Strict validates embedded metadata against its schema.
	Strict bool
}
