package audiounlock

import "github.com/simonhull/audiounlock/internal/types"

// Artwork is an alias to types.Artwork.
type Artwork = types.Artwork

// ImageFormat is an alias to types.ImageFormat.
type ImageFormat = types.ImageFormat

// Image formats recognised by DetectImageFormat.
const (
	ImageUnknown = types.ImageUnknown
	ImageJPEG    = types.ImageJPEG
	ImagePNG     = types.ImagePNG
	ImageGIF     = types.ImageGIF
	ImageBMP     = types.ImageBMP
	ImageWebP    = types.ImageWebP
	ImageTIFF    = types.ImageTIFF
)

// DetectImageFormat identifies image data by its magic bytes.
func DetectImageFormat(data []byte) (ImageFormat, error) {
	return types.DetectImageFormat(data)
}
