// Package vorbis encodes and parses Vorbis comment blocks.
//
// FLAC stores tags as a VORBIS_COMMENT metadata block: a little-endian
// length-prefixed vendor string followed by a count of length-prefixed
// UTF-8 "KEY=VALUE" comments.
package vorbis

import (
	"fmt"
	"strings"

	binutil "github.com/simonhull/audiounlock/internal/binary"
	"github.com/simonhull/audiounlock/internal/types"
)

// Vendor is written into every comment block this package produces.
const Vendor = "audiounlock"

// Block is a decoded comment block.
type Block struct {
	Vendor   string
	Comments []string
}

// FromTags builds the comment list for tags. Artists become repeated
// ARTIST comments; raw tags are appended in key order.
func FromTags(tags types.Tags) Block {
	b := Block{Vendor: Vendor}
	if tags.Title != "" {
		b.Comments = append(b.Comments, "TITLE="+tags.Title)
	}
	for _, a := range tags.Artists {
		b.Comments = append(b.Comments, "ARTIST="+a)
	}
	if tags.Album != "" {
		b.Comments = append(b.Comments, "ALBUM="+tags.Album)
	}
	for key, values := range tags.All() {
		for _, v := range values {
			b.Comments = append(b.Comments, key+"="+v)
		}
	}
	return b
}

// Encode serializes the block body (without the FLAC block header).
func (b Block) Encode() []byte {
	out := binutil.NewBuilder()
	binutil.PutLE(out, uint32(len(b.Vendor))).String(b.Vendor)
	binutil.PutLE(out, uint32(len(b.Comments)))
	for _, c := range b.Comments {
		binutil.PutLE(out, uint32(len(c))).String(c)
	}
	return out.Bytes()
}

// Parse decodes a block body.
func Parse(data []byte) (Block, error) {
	c := binutil.NewCursor(data, "vorbis comment")

	vendorLen, err := binutil.ReadLE[uint32](c, "vendor length")
	if err != nil {
		return Block{}, err
	}
	vendor, err := c.Bytes(int(vendorLen), "vendor string")
	if err != nil {
		return Block{}, err
	}
	count, err := binutil.ReadLE[uint32](c, "comment count")
	if err != nil {
		return Block{}, err
	}

	b := Block{Vendor: string(vendor)}
	for i := range count {
		n, err := binutil.ReadLE[uint32](c, fmt.Sprintf("comment %d length", i))
		if err != nil {
			return b, err
		}
		comment, err := c.Bytes(int(n), fmt.Sprintf("comment %d", i))
		if err != nil {
			return b, err
		}
		b.Comments = append(b.Comments, string(comment))
	}
	return b, nil
}

// ApplyTo maps the comments onto tags. Field names are case-insensitive.
// Malformed comments are skipped and reported in the returned error.
func (b Block) ApplyTo(tags *types.Tags) error {
	var bad []string
	for _, comment := range b.Comments {
		key, value, ok := strings.Cut(comment, "=")
		if !ok {
			bad = append(bad, comment)
			continue
		}
		switch strings.ToUpper(key) {
		case "TITLE":
			tags.Title = value
		case "ARTIST":
			tags.Artists = append(tags.Artists, value)
		case "ALBUM":
			tags.Album = value
		default:
			tags.Set(key, append(tags.Get(key), value)...)
		}
	}
	if len(bad) > 0 {
		return fmt.Errorf("missing '=' in %d comment(s): %q", len(bad), bad)
	}
	return nil
}
