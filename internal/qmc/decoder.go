// Package qmc decodes QQ Music static-mask containers (.qmc3, .qmcflac).
//
// The container is the plain audio XORed with a fixed key stream, so it
// carries no metadata and no artwork. The audio format is implied by the
// file extension.
package qmc

import (
	"bytes"
	"io"

	"github.com/simonhull/audiounlock/internal/registry"
	"github.com/simonhull/audiounlock/internal/types"
)

func init() {
	registry.Register(types.ContainerQMC, &Decoder{})
}

// Decoder implements registry.ContainerDecoder for QMC.
type Decoder struct{}

// Decode unmasks a QMC container. opts.Hint supplies the media format; when
// it is unknown the format is sniffed from the unmasked audio.
func (d *Decoder) Decode(raw []byte, path string, opts types.DecodeOptions) (*types.Decoded, error) {
	audio := Decrypt(raw)

	format := opts.Hint
	if format == types.MediaUnknown {
		format = types.SniffMediaFormat(audio)
	}
	if format == types.MediaUnknown {
		return nil, types.Errorf(types.KindFormat, path, "cannot infer audio format")
	}

	return &types.Decoded{Audio: audio, Format: format}, nil
}

// Decrypt returns an unmasked copy of data. The mask is symmetric, so
// Decrypt also encrypts.
func Decrypt(data []byte) []byte {
	out := bytes.Clone(data)
	NewMask().Apply(out)
	return out
}

// Reader unmasks a QMC stream as it is read.
type Reader struct {
	r    io.Reader
	mask *Mask
}

// NewReader wraps r, which must be positioned at the start of the container.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r, mask: NewMask()}
}

func (r *Reader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	r.mask.Apply(p[:n])
	return n, err
}
