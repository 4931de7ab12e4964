// Package mp3 reads and writes ID3v2 tags on decoded MPEG audio.
package mp3

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"unicode/utf16"

	binutil "github.com/simonhull/audiounlock/internal/binary"
	"github.com/simonhull/audiounlock/internal/types"
)

var errNoTag = errors.New("no ID3v2 tag")

// header is an ID3v2 tag header.
type header struct {
	Version byte // Major version (3 or 4)
	Flags   byte
	Size    uint32 // Tag size excluding header and footer
}

// frame is a single ID3v2 frame.
type frame struct {
	ID   string
	Data []byte
}

// parseHeader reads the 10-byte tag header at the start of audio.
func parseHeader(audio []byte) (header, error) {
	if len(audio) < 10 || string(audio[0:3]) != "ID3" {
		return header{}, errNoTag
	}
	return header{
		Version: audio[3],
		Flags:   audio[5],
		Size:    binutil.DecodeSynchsafe(audio[6:10]),
	}, nil
}

// tagLength returns the total size of a leading ID3v2 tag, including the
// header and the optional footer, or 0 when there is none.
func tagLength(audio []byte) int {
	h, err := parseHeader(audio)
	if err != nil {
		return 0
	}
	n := 10 + int(h.Size)
	if h.Flags&0x10 != 0 {
		n += 10
	}
	return min(n, len(audio))
}

// parseFrames returns the frames of the leading tag.
func parseFrames(audio []byte) ([]frame, error) {
	h, err := parseHeader(audio)
	if err != nil {
		return nil, err
	}
	if h.Version != 3 && h.Version != 4 {
		return nil, fmt.Errorf("unsupported ID3v2 version: 2.%d", h.Version)
	}

	end := min(10+int(h.Size), len(audio))
	offset := 10

	// Extended header
	if h.Flags&0x40 != 0 && offset+4 <= end {
		if h.Version == 4 {
			offset += int(binutil.DecodeSynchsafe(audio[offset : offset+4]))
		} else {
			offset += int(binary.BigEndian.Uint32(audio[offset:offset+4])) + 4
		}
	}

	var frames []frame
	for offset+10 <= end {
		hdr := audio[offset : offset+10]
		// Padding (null bytes indicate end of frames)
		if hdr[0] == 0 {
			break
		}

		id := string(hdr[0:4])
		var size int
		if h.Version == 4 {
			size = int(binutil.DecodeSynchsafe(hdr[4:8]))
		} else {
			size = int(binary.BigEndian.Uint32(hdr[4:8]))
		}
		if offset+10+size > end {
			return frames, fmt.Errorf("frame %s overruns tag", id)
		}

		frames = append(frames, frame{ID: id, Data: audio[offset+10 : offset+10+size]})
		offset += 10 + size
	}
	return frames, nil
}

// readTags maps TIT2, TPE1, TALB and APIC frames back to Tags.
func readTags(audio []byte) (types.Tags, error) {
	frames, err := parseFrames(audio)
	if err != nil {
		return types.Tags{}, err
	}

	var tags types.Tags
	for _, f := range frames {
		switch f.ID {
		case "TIT2":
			tags.Title = firstValue(f.Data)
		case "TPE1":
			tags.Artists = textValues(f.Data)
		case "TALB":
			tags.Album = firstValue(f.Data)
		case "APIC":
			if tags.Artwork == nil {
				if art, err := parseAPIC(f.Data); err == nil {
					tags.Artwork = art
				}
			}
		default:
			if strings.HasPrefix(f.ID, "T") && f.ID != "TXXX" {
				tags.Set(f.ID, textValues(f.Data)...)
			}
		}
	}
	return tags, nil
}

// textValues decodes a text frame. ID3v2.4 separates multiple values with
// a NUL terminator.
func textValues(data []byte) []string {
	if len(data) < 1 {
		return nil
	}
	text := strings.TrimRight(decodeText(data[1:], data[0]), "\x00")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\x00")
}

func firstValue(data []byte) string {
	if v := textValues(data); len(v) > 0 {
		return v[0]
	}
	return ""
}

// parseAPIC parses an APIC (Attached Picture) frame:
//
//	[1 byte]              Text encoding
//	[null-terminated]     MIME type
//	[1 byte]              Picture type
//	[null-terminated]     Description
//	[remaining]           Picture data
func parseAPIC(data []byte) (*types.Artwork, error) {
	if len(data) < 4 {
		return nil, errors.New("APIC frame too short")
	}
	encoding := data[0]
	pos := 1

	mimeEnd := bytes.IndexByte(data[pos:], 0)
	if mimeEnd < 0 {
		return nil, errors.New("APIC MIME type not null-terminated")
	}
	pos += mimeEnd + 1

	// Picture type
	pos++
	if pos > len(data) {
		return nil, errors.New("APIC frame truncated after MIME type")
	}

	if descEnd := findNullTerminator(data[pos:], encoding); descEnd >= 0 {
		pos += descEnd + terminatorSize(encoding)
	}
	if pos >= len(data) {
		return nil, errors.New("APIC frame has no image data")
	}

	return types.NewArtwork(bytes.Clone(data[pos:]))
}

func decodeText(data []byte, encoding byte) string {
	switch encoding {
	case 1: // UTF-16 with BOM
		if len(data) >= 2 && data[0] == 0xFF && data[1] == 0xFE {
			return decodeUTF16(data[2:], binary.LittleEndian)
		}
		if len(data) >= 2 && data[0] == 0xFE && data[1] == 0xFF {
			return decodeUTF16(data[2:], binary.BigEndian)
		}
		return decodeUTF16(data, binary.BigEndian)
	case 2: // UTF-16BE
		return decodeUTF16(data, binary.BigEndian)
	default: // ISO-8859-1, UTF-8
		return string(data)
	}
}

func decodeUTF16(data []byte, order binary.ByteOrder) string {
	u16 := make([]uint16, len(data)/2)
	for i := range u16 {
		u16[i] = order.Uint16(data[i*2:])
	}
	return string(utf16.Decode(u16))
}

func findNullTerminator(data []byte, encoding byte) int {
	if encoding == 1 || encoding == 2 {
		for i := 0; i+1 < len(data); i += 2 {
			if data[i] == 0 && data[i+1] == 0 {
				return i
			}
		}
		return -1
	}
	return bytes.IndexByte(data, 0)
}

func terminatorSize(encoding byte) int {
	if encoding == 1 || encoding == 2 {
		return 2
	}
	return 1
}
