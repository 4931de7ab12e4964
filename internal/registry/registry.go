// Package registry maps encrypted containers to their decoders and plain
// media formats to their tag writers.
package registry

import "github.com/simonhull/audiounlock/internal/types"

// ContainerDecoder is the interface all container codecs implement.
type ContainerDecoder interface {
	// Decode decrypts raw container bytes. path is used only in errors.
	// Every failure must be a *types.DecodeError.
	Decode(raw []byte, path string, opts types.DecodeOptions) (*types.Decoded, error)
}

// Tagger embeds tags into plain audio of one media format.
type Tagger interface {
	// Tag returns a copy of audio with tags embedded, replacing any
	// existing tag of the same scheme.
	Tag(audio []byte, tags types.Tags) ([]byte, error)
}

// TagReader is an optional interface for taggers that can read back what
// they wrote.
type TagReader interface {
	ReadTags(audio []byte) (types.Tags, error)
}

// decoders maps containers to their decoders.
var decoders = make(map[types.Container]ContainerDecoder)

// taggers maps media formats to their tag writers.
var taggers = make(map[types.MediaFormat]Tagger)

// Register registers a decoder for a container.
// This is called by codec packages during initialization (init functions).
func Register(c types.Container, d ContainerDecoder) {
	decoders[c] = d
}

// Get returns the decoder for a container, or nil if none is registered.
func Get(c types.Container) ContainerDecoder {
	return decoders[c]
}

// RegisterTagger registers a tag writer for a media format.
// This is called by tag packages during initialization (init functions).
func RegisterTagger(f types.MediaFormat, t Tagger) {
	taggers[f] = t
}

// GetTagger returns the tag writer for a media format, or nil.
func GetTagger(f types.MediaFormat) Tagger {
	return taggers[f]
}
