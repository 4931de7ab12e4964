// Package flac rewrites the metadata blocks of decoded FLAC streams.
package flac

import (
	"errors"
	"fmt"

	binutil "github.com/simonhull/audiounlock/internal/binary"
	"github.com/simonhull/audiounlock/internal/types"
)

// Metadata block types
const (
	blockTypeStreamInfo    = 0
	blockTypePadding       = 1
	blockTypeVorbisComment = 4
	blockTypePicture       = 6
)

// maxBlockLength is the largest length a 24-bit block header can carry.
const maxBlockLength = 1<<24 - 1

var errNotFLAC = errors.New("invalid FLAC magic bytes")

// block is one metadata block. The last-block flag is not stored; it is
// recomputed when the stream is written.
type block struct {
	Data []byte
	Type uint8
}

// splitStream parses the metadata blocks of a FLAC stream and returns them
// with the offset of the first audio frame.
func splitStream(audio []byte) ([]block, int, error) {
	c := binutil.NewCursor(audio, "flac")

	magic, err := c.Bytes(4, "FLAC magic bytes")
	if err != nil || string(magic) != "fLaC" {
		return nil, 0, errNotFLAC
	}

	var blocks []block
	for {
		header, err := binutil.ReadBE[uint32](c, "metadata block header")
		if err != nil {
			return nil, 0, err
		}

		isLast := (header >> 31) == 1
		blockType := uint8((header >> 24) & 0x7F)
		blockLength := int(header & 0x00FFFFFF)

		data, err := c.Bytes(blockLength, fmt.Sprintf("metadata block type %d", blockType))
		if err != nil {
			return nil, 0, err
		}
		blocks = append(blocks, block{Type: blockType, Data: data})

		if isLast {
			return blocks, c.Offset(), nil
		}
	}
}

// joinStream writes blocks followed by the audio frames, setting the
// last-block flag on the final block only.
func joinStream(blocks []block, frames []byte) ([]byte, error) {
	out := binutil.NewBuilder().String("fLaC")
	for i, b := range blocks {
		if len(b.Data) > maxBlockLength {
			return nil, types.Errorf(types.KindTagBuild, "", "metadata block type %d too large: %d bytes", b.Type, len(b.Data))
		}
		typ := b.Type
		if i == len(blocks)-1 {
			typ |= 0x80
		}
		out.Byte(typ)
		binutil.PutUint24BE(out, uint32(len(b.Data)))
		out.Raw(b.Data)
	}
	return out.Raw(frames).Bytes(), nil
}

// encodePicture builds a PICTURE block body for a front cover:
//
//	[4] picture type   [4] MIME length  [n] MIME
//	[4] desc length    [n] description
//	[4] width [4] height [4] depth [4] colors
//	[4] data length    [n] data
func encodePicture(art *types.Artwork) []byte {
	mime := art.MIMEType()
	b := binutil.NewBuilder()
	binutil.PutBE[uint32](b, 3)
	binutil.PutBE(b, uint32(len(mime))).String(mime)
	binutil.PutBE[uint32](b, 0) // empty description
	binutil.PutBE(b, uint32(art.Width))
	binutil.PutBE(b, uint32(art.Height))
	binutil.PutBE[uint32](b, 0) // depth unknown
	binutil.PutBE[uint32](b, 0) // not indexed
	binutil.PutBE(b, uint32(len(art.Data))).Raw(art.Data)
	return b.Bytes()
}

// parsePicture decodes a PICTURE block body.
func parsePicture(data []byte) (*types.Artwork, error) {
	ch := binutil.NewChain(binutil.NewCursor(data, "picture"))

	binutil.ChainBE[uint32](ch, "picture type")
	mimeLen := binutil.ChainBE[uint32](ch, "MIME length")
	ch.Take(int(mimeLen), "MIME type")
	descLen := binutil.ChainBE[uint32](ch, "description length")
	ch.Take(int(descLen), "description")
	ch.Take(16, "dimensions")
	dataLen := binutil.ChainBE[uint32](ch, "picture data length")
	img := ch.Take(int(dataLen), "picture data")
	if err := ch.Err(); err != nil {
		return nil, err
	}

	art, err := types.NewArtwork(img)
	if err != nil {
		return nil, err
	}
	if art != nil {
		art.Data = append([]byte(nil), art.Data...)
	}
	return art, nil
}
