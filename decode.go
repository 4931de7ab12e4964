package audiounlock

import (
	"fmt"
	"path"
	"strings"

	"github.com/simonhull/audiounlock/internal/registry"
	"github.com/simonhull/audiounlock/internal/types"

	// Register container decoders and taggers.
	_ "github.com/simonhull/audiounlock/internal/flac"
	_ "github.com/simonhull/audiounlock/internal/mp3"
	_ "github.com/simonhull/audiounlock/internal/ncm"
	_ "github.com/simonhull/audiounlock/internal/qmc"
)

// Payload is the successful output of a decode pipeline.
type Payload struct {
	// Metadata is nil for containers that carry none.
	Metadata *Metadata
	// Artwork is nil when the container has no cover or it was dropped.
	Artwork  *Artwork
	Audio    []byte
	Warnings []Warning
	Format   MediaFormat
}

// Title returns the embedded title, or "" when there is none.
func (p *Payload) Title() string {
	if p == nil || p.Metadata == nil {
		return ""
	}
	return p.Metadata.Name
}

// Decoder runs the decrypt, extract and tag sequence for one input.
//
// Implementations must be safe for concurrent use and must report every
// failure as a *DecodeError rather than panicking.
type Decoder interface {
	Decode(name string, v Variant, raw []byte) (*Payload, error)
}

// DecoderFunc adapts a function to the Decoder interface.
type DecoderFunc func(name string, v Variant, raw []byte) (*Payload, error)

// Decode calls f.
func (f DecoderFunc) Decode(name string, v Variant, raw []byte) (*Payload, error) {
	return f(name, v, raw)
}

// pipeline is the registry-backed Decoder.
type pipeline struct {
	opts *decodeOptions
}

// NewDecoder returns the standard Decoder backed by the registered
// container codecs and taggers.
func NewDecoder(opts ...DecodeOption) Decoder {
	o := defaultDecodeOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &pipeline{opts: o}
}

// Decode decrypts raw, sniffs the artwork and, for containers that carry
// metadata, embeds it into the audio.
func (p *pipeline) Decode(name string, v Variant, raw []byte) (*Payload, error) {
	dec := registry.Get(v.Container)
	if dec == nil {
		return nil, types.Errorf(KindFormat, name, "no decoder for %s", v)
	}

	out, err := dec.Decode(raw, name, types.DecodeOptions{Hint: v.Format, Strict: p.opts.strict})
	if err != nil {
		return nil, asDecodeError(err, KindFormat, name)
	}

	payload := &Payload{
		Audio:    out.Audio,
		Format:   out.Format,
		Metadata: out.Metadata,
	}

	art, err := types.NewArtwork(out.Image)
	if err != nil {
		return nil, types.Wrap(KindImageFormat, name, "unsupported image format", err)
	}
	if art != nil && p.opts.maxArtworkSize > 0 && len(art.Data) > p.opts.maxArtworkSize {
		payload.Warnings = append(payload.Warnings, Warning{
			Stage:   "artwork",
			Message: fmt.Sprintf("dropped %s cover larger than %d bytes", art, p.opts.maxArtworkSize),
		})
		art = nil
	}
	payload.Artwork = art

	if out.Metadata == nil || !p.opts.tagging {
		return payload, nil
	}

	tagged, err := p.tag(name, payload)
	if err != nil {
		return nil, err
	}
	payload.Audio = tagged
	return payload, nil
}

func (p *pipeline) tag(name string, payload *Payload) ([]byte, error) {
	tagger := registry.GetTagger(payload.Format)
	if tagger == nil {
		return nil, types.Errorf(KindTagBuild, name, "no tagger for %s", payload.Format)
	}

	tags := payload.Metadata.Tags(payload.Artwork)
	tagged, err := tagger.Tag(payload.Audio, tags)
	if err != nil {
		return nil, asDecodeError(err, KindTagWrite, name)
	}

	if !p.opts.validate {
		return tagged, nil
	}
	reader, ok := tagger.(registry.TagReader)
	if !ok {
		return tagged, nil
	}
	got, err := reader.ReadTags(tagged)
	if err != nil {
		return nil, asDecodeError(err, KindTagWrite, name)
	}
	if got.Title != tags.Title {
		return nil, types.Errorf(KindTagWrite, name, "validation failed: title %q, want %q", got.Title, tags.Title)
	}
	return tagged, nil
}

// Decode classifies name and decodes raw with the standard pipeline.
func Decode(name string, raw []byte, opts ...DecodeOption) (*Payload, error) {
	v, err := Classify(name)
	if err != nil {
		return nil, err
	}
	return NewDecoder(opts...).Decode(name, v, raw)
}

// OutputName derives the output file name for a decoded input: the
// embedded title when the payload carries one, otherwise the input's base
// name, followed by the extension of the decoded media format.
//
// Characters that are unsafe in file names are replaced with "_".
func OutputName(input string, p *Payload) (string, error) {
	if p == nil || p.Format.Ext() == "" {
		return "", types.Errorf(KindName, input, "unknown output format")
	}

	base := sanitizeName(p.Title())
	if base == "" {
		b := path.Base(strings.ReplaceAll(input, `\`, "/"))
		base = sanitizeName(strings.TrimSuffix(b, path.Ext(b)))
	}
	if base == "" {
		return "", types.Errorf(KindName, input, "no usable base name")
	}
	return base + "." + p.Format.Ext(), nil
}

func sanitizeName(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r < 0x20 || r == 0x7F:
			return '_'
		case strings.ContainsRune(`/\<>:"|?*`, r):
			return '_'
		}
		return r
	}, s)
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, ".")
	return strings.TrimSpace(s)
}
