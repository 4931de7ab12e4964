package ncm

import (
	"encoding/json"
	"hash/crc32"

	binutil "github.com/simonhull/audiounlock/internal/binary"
	"github.com/simonhull/audiounlock/internal/types"
)

// Section is one region of an NCM container.
type Section struct {
	Name   string
	Offset int
	Length int
}

// Layout describes an NCM container without decrypting its audio.
type Layout struct {
	// Metadata is the decrypted metadata document, nil when absent or
	// undecodable.
	Metadata json.RawMessage
	Sections []Section
	CRC      uint32
	// CRCMatch reports whether CRC is the CRC-32 of the image.
	CRCMatch bool
}

// Inspect walks the sections of raw. It fails only when the section
// lengths do not fit; undecodable metadata is reported as nil.
func Inspect(raw []byte) (*Layout, error) {
	c := binutil.NewCursor(raw, "")
	l := &Layout{}

	section := func(name string, n int) []byte {
		off := c.Offset()
		b, err := c.Bytes(n, name)
		if err != nil {
			return nil
		}
		l.Sections = append(l.Sections, Section{Name: name, Offset: off, Length: n})
		return b
	}
	length := func(name string) (int, error) {
		off := c.Offset()
		n, err := binutil.ReadLE[uint32](c, name)
		if err != nil {
			return 0, types.Wrap(types.KindFormat, "", "truncated container", err)
		}
		l.Sections = append(l.Sections, Section{Name: name, Offset: off, Length: 4})
		return int(n), nil
	}

	if head := section("magic", len(magic)); string(head) != magic {
		return nil, types.Errorf(types.KindFormat, "", "invalid file type")
	}
	section("gap", 2)

	n, err := length("key length")
	if err != nil {
		return nil, err
	}
	if section("key", n) == nil && n > 0 {
		return nil, types.Errorf(types.KindKey, "", "cannot read key")
	}

	if n, err = length("metadata length"); err != nil {
		return nil, err
	}
	enc := section("metadata", n)
	if enc == nil && n > 0 {
		return nil, types.Errorf(types.KindMetadata, "", "cannot read info")
	}
	if n > 0 {
		if doc, err := decryptMetadata(enc); err == nil && json.Valid(doc) {
			l.Metadata = doc
		}
	}

	crc, err := binutil.ReadLE[uint32](c, "crc")
	if err != nil {
		return nil, types.Wrap(types.KindFormat, "", "truncated container", err)
	}
	l.CRC = crc
	l.Sections = append(l.Sections, Section{Name: "crc", Offset: c.Offset() - 4, Length: 4})
	section("gap", 5)

	if n, err = length("image length"); err != nil {
		return nil, err
	}
	img := section("image", n)
	if img == nil && n > 0 {
		return nil, types.Errorf(types.KindImageFormat, "", "cannot read image")
	}
	l.CRCMatch = crc32.ChecksumIEEE(img) == crc

	l.Sections = append(l.Sections, Section{Name: "audio", Offset: c.Offset(), Length: c.Remaining()})
	return l, nil
}
