package mp3

import (
	"strings"

	binutil "github.com/simonhull/audiounlock/internal/binary"
	"github.com/simonhull/audiounlock/internal/registry"
	"github.com/simonhull/audiounlock/internal/types"
)

const (
	encodingUTF8      = 0x03
	pictureFrontCover = 0x03
)

// maxFrameSize is the largest size a synchsafe header can carry.
const maxFrameSize = 0x0FFFFFFF

func init() {
	registry.RegisterTagger(types.MediaMP3, Tagger{})
}

// Tagger writes ID3v2.4 tags. It implements registry.Tagger and
// registry.TagReader.
type Tagger struct{}

// Tag strips any leading ID3v2 tag from audio and prepends a fresh
// ID3v2.4 tag built from tags.
func (Tagger) Tag(audio []byte, tags types.Tags) ([]byte, error) {
	body := audio[tagLength(audio):]

	frames := binutil.NewBuilder()
	if tags.Title != "" {
		if err := putFrame(frames, "TIT2", textFrame(tags.Title)); err != nil {
			return nil, err
		}
	}
	if len(tags.Artists) > 0 {
		if err := putFrame(frames, "TPE1", textFrame(strings.Join(tags.Artists, "\x00"))); err != nil {
			return nil, err
		}
	}
	if tags.Album != "" {
		if err := putFrame(frames, "TALB", textFrame(tags.Album)); err != nil {
			return nil, err
		}
	}
	for key, values := range tags.All() {
		if len(key) != 4 || !strings.HasPrefix(key, "T") {
			continue
		}
		if err := putFrame(frames, key, textFrame(strings.Join(values, "\x00"))); err != nil {
			return nil, err
		}
	}
	if art := tags.Artwork; art != nil {
		if art.MIMEType() == "" {
			return nil, types.Errorf(types.KindTagBuild, "", "artwork has unknown image format")
		}
		apic := binutil.NewBuilder().
			Byte(encodingUTF8).
			String(art.MIMEType()).Byte(0).
			Byte(pictureFrontCover).
			Byte(0). // empty description
			Raw(art.Data)
		if err := putFrame(frames, "APIC", apic.Bytes()); err != nil {
			return nil, err
		}
	}

	if frames.Len() > maxFrameSize {
		return nil, types.Errorf(types.KindTagBuild, "", "tag too large: %d bytes", frames.Len())
	}

	out := binutil.NewBuilder().
		String("ID3").
		Byte(4).Byte(0). // version 2.4.0
		Byte(0).         // flags
		Raw(binutil.Synchsafe(uint32(frames.Len()))).
		Raw(frames.Bytes()).
		Raw(body)
	return out.Bytes(), nil
}

// ReadTags reads the leading ID3v2 tag back.
func (Tagger) ReadTags(audio []byte) (types.Tags, error) {
	tags, err := readTags(audio)
	if err != nil {
		return types.Tags{}, types.Wrap(types.KindTagWrite, "", "read ID3v2 tag", err)
	}
	return tags, nil
}

func textFrame(text string) []byte {
	return append([]byte{encodingUTF8}, text...)
}

func putFrame(b *binutil.Builder, id string, data []byte) error {
	if len(data) > maxFrameSize {
		return types.Errorf(types.KindTagBuild, "", "frame %s too large: %d bytes", id, len(data))
	}
	b.String(id).
		Raw(binutil.Synchsafe(uint32(len(data)))).
		Raw([]byte{0, 0}) // flags
	b.Raw(data)
	return nil
}
