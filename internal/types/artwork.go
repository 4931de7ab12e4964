package types

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// ImageFormat identifies an embedded artwork encoding.
type ImageFormat int

const (
	ImageUnknown ImageFormat = iota
	ImageJPEG
	ImagePNG
	ImageGIF
	ImageBMP
	ImageWebP
	ImageTIFF
)

// String returns the short format name.
func (f ImageFormat) String() string {
	switch f {
	case ImageJPEG:
		return "JPEG"
	case ImagePNG:
		return "PNG"
	case ImageGIF:
		return "GIF"
	case ImageBMP:
		return "BMP"
	case ImageWebP:
		return "WebP"
	case ImageTIFF:
		return "TIFF"
	default:
		return "Unknown"
	}
}

// MIMEType returns the image MIME type, or "" for ImageUnknown.
func (f ImageFormat) MIMEType() string {
	switch f {
	case ImageJPEG:
		return "image/jpeg"
	case ImagePNG:
		return "image/png"
	case ImageGIF:
		return "image/gif"
	case ImageBMP:
		return "image/bmp"
	case ImageWebP:
		return "image/webp"
	case ImageTIFF:
		return "image/tiff"
	default:
		return ""
	}
}

// Ext returns the usual file extension without the leading dot.
func (f ImageFormat) Ext() string {
	switch f {
	case ImageJPEG:
		return "jpg"
	case ImagePNG:
		return "png"
	case ImageGIF:
		return "gif"
	case ImageBMP:
		return "bmp"
	case ImageWebP:
		return "webp"
	case ImageTIFF:
		return "tiff"
	default:
		return "bin"
	}
}

// ErrUnknownImage is returned by DetectImageFormat for unrecognised data.
var ErrUnknownImage = errors.New("cannot guess image format")

// Artwork is the cover image extracted from a container.
type Artwork struct {
	Data   []byte
	Format ImageFormat
	// Width and Height are 0 when the format does not expose them cheaply.
	Width  int
	Height int
}

// MIMEType returns the MIME type of the artwork data.
func (a *Artwork) MIMEType() string {
	return a.Format.MIMEType()
}

// String returns a human-readable description, e.g. "PNG 500x500, 12KB".
func (a *Artwork) String() string {
	dims := ""
	if a.Width > 0 && a.Height > 0 {
		dims = fmt.Sprintf(" %dx%d", a.Width, a.Height)
	}
	return fmt.Sprintf("%s%s, %s", a.Format, dims, formatSize(len(a.Data)))
}

func formatSize(n int) string {
	const (
		KB = 1024
		MB = 1024 * KB
	)

	switch {
	case n >= MB:
		return fmt.Sprintf("%.1fMB", float64(n)/float64(MB))
	case n >= KB:
		return fmt.Sprintf("%dKB", n/KB)
	default:
		return fmt.Sprintf("%dB", n)
	}
}

// DetectImageFormat identifies image data by its magic bytes.
func DetectImageFormat(data []byte) (ImageFormat, error) {
	if len(data) < 4 {
		return ImageUnknown, ErrUnknownImage
	}

	switch {
	case data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return ImageJPEG, nil
	case bytes.HasPrefix(data, []byte{0x89, 'P', 'N', 'G'}):
		return ImagePNG, nil
	case bytes.HasPrefix(data, []byte("GIF8")):
		return ImageGIF, nil
	case data[0] == 'B' && data[1] == 'M':
		return ImageBMP, nil
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		return ImageWebP, nil
	case bytes.HasPrefix(data, []byte("II*\x00")), bytes.HasPrefix(data, []byte("MM\x00*")):
		return ImageTIFF, nil
	}
	return ImageUnknown, ErrUnknownImage
}

// NewArtwork sniffs data and returns the artwork it describes. Empty data
// means "no artwork" and yields nil without error.
func NewArtwork(data []byte) (*Artwork, error) {
	if len(data) == 0 {
		return nil, nil
	}

	format, err := DetectImageFormat(data)
	if err != nil {
		return nil, err
	}

	art := &Artwork{Data: data, Format: format}
	switch format {
	case ImageJPEG:
		art.Width, art.Height = jpegDimensions(data)
	case ImagePNG:
		art.Width, art.Height = pngDimensions(data)
	}
	return art, nil
}

// jpegDimensions scans for a SOF0-2 marker:
// FF Cn [2 length] [1 precision] [2 height] [2 width].
func jpegDimensions(data []byte) (int, int) {
	for i := 0; i+9 <= len(data); i++ {
		if data[i] != 0xFF {
			continue
		}
		switch data[i+1] {
		case 0xC0, 0xC1, 0xC2:
			height := int(binary.BigEndian.Uint16(data[i+5:]))
			width := int(binary.BigEndian.Uint16(data[i+7:]))
			return width, height
		}
	}
	return 0, 0
}

// pngDimensions reads the IHDR chunk that follows the 8-byte signature.
func pngDimensions(data []byte) (int, int) {
	if len(data) < 24 || string(data[12:16]) != "IHDR" {
		return 0, 0
	}
	width := int(binary.BigEndian.Uint32(data[16:20]))
	height := int(binary.BigEndian.Uint32(data[20:24]))
	return width, height
}
