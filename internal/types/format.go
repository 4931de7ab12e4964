package types

import (
	"bytes"
	"strings"
)

// Container identifies an encrypted input container.
type Container int

const (
	// ContainerUnknown is the zero value for unrecognised inputs.
	ContainerUnknown Container = iota
	// ContainerNCM is the NetEase Cloud Music container.
	ContainerNCM
	// ContainerQMC is the QQ Music static-mask container (qmc3, qmcflac).
	ContainerQMC
)

// String returns the container name.
func (c Container) String() string {
	switch c {
	case ContainerNCM:
		return "NCM"
	case ContainerQMC:
		return "QMC"
	default:
		return "Unknown"
	}
}

// MediaFormat identifies the plain audio format produced by decoding, which
// also decides the tag scheme written into it.
type MediaFormat int

const (
	// MediaUnknown means the format could not be inferred.
	MediaUnknown MediaFormat = iota
	// MediaMP3 is MPEG audio tagged with ID3v2.
	MediaMP3
	// MediaFLAC is FLAC tagged with Vorbis comments and PICTURE blocks.
	MediaFLAC
)

// String returns the tag scheme name.
func (f MediaFormat) String() string {
	switch f {
	case MediaMP3:
		return "ID3v2"
	case MediaFLAC:
		return "FLAC"
	default:
		return "Unknown"
	}
}

// Ext returns the output file extension without the leading dot.
func (f MediaFormat) Ext() string {
	switch f {
	case MediaMP3:
		return "mp3"
	case MediaFLAC:
		return "flac"
	default:
		return ""
	}
}

// MIMEType returns the audio MIME type for HTTP responses.
func (f MediaFormat) MIMEType() string {
	switch f {
	case MediaMP3:
		return "audio/mpeg"
	case MediaFLAC:
		return "audio/flac"
	default:
		return "application/octet-stream"
	}
}

// MediaFormatFromName maps a format name such as the NCM metadata "format"
// field ("mp3", "flac") to a MediaFormat.
func MediaFormatFromName(name string) MediaFormat {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "mp3", "id3", "id3v2":
		return MediaMP3
	case "flac":
		return MediaFLAC
	default:
		return MediaUnknown
	}
}

// SniffMediaFormat infers the media format from the first bytes of audio.
func SniffMediaFormat(audio []byte) MediaFormat {
	switch {
	case bytes.HasPrefix(audio, []byte("fLaC")):
		return MediaFLAC
	case bytes.HasPrefix(audio, []byte("ID3")):
		return MediaMP3
	case len(audio) >= 2 && audio[0] == 0xFF && audio[1]&0xE0 == 0xE0:
		// MPEG frame sync without a tag.
		return MediaMP3
	default:
		return MediaUnknown
	}
}
