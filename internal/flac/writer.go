package flac

import (
	"github.com/simonhull/audiounlock/internal/registry"
	"github.com/simonhull/audiounlock/internal/types"
	"github.com/simonhull/audiounlock/internal/vorbis"
)

func init() {
	registry.RegisterTagger(types.MediaFLAC, Tagger{})
}

// Tagger writes Vorbis comments and a front-cover PICTURE block. It
// implements registry.Tagger and registry.TagReader.
type Tagger struct{}

// Tag drops existing VORBIS_COMMENT, PICTURE and PADDING blocks, appends
// fresh ones built from tags and keeps every other block in order.
func (Tagger) Tag(audio []byte, tags types.Tags) ([]byte, error) {
	blocks, framesAt, err := splitStream(audio)
	if err != nil {
		return nil, types.Wrap(types.KindTagWrite, "", "parse FLAC metadata", err)
	}

	kept := make([]block, 0, len(blocks)+2)
	for _, b := range blocks {
		switch b.Type {
		case blockTypeVorbisComment, blockTypePicture, blockTypePadding:
			continue
		}
		kept = append(kept, b)
	}
	if len(kept) == 0 || kept[0].Type != blockTypeStreamInfo {
		return nil, types.Errorf(types.KindTagWrite, "", "FLAC stream has no STREAMINFO block")
	}

	kept = append(kept, block{Type: blockTypeVorbisComment, Data: vorbis.FromTags(tags).Encode()})
	if art := tags.Artwork; art != nil {
		if art.MIMEType() == "" {
			return nil, types.Errorf(types.KindTagBuild, "", "artwork has unknown image format")
		}
		kept = append(kept, block{Type: blockTypePicture, Data: encodePicture(art)})
	}

	return joinStream(kept, audio[framesAt:])
}

// ReadTags reads the Vorbis comments and first PICTURE block back.
func (Tagger) ReadTags(audio []byte) (types.Tags, error) {
	blocks, _, err := splitStream(audio)
	if err != nil {
		return types.Tags{}, types.Wrap(types.KindTagWrite, "", "parse FLAC metadata", err)
	}

	var tags types.Tags
	for _, b := range blocks {
		switch b.Type {
		case blockTypeVorbisComment:
			vc, err := vorbis.Parse(b.Data)
			if err != nil {
				return tags, types.Wrap(types.KindTagWrite, "", "parse Vorbis comments", err)
			}
			if err := vc.ApplyTo(&tags); err != nil {
				return tags, types.Wrap(types.KindTagWrite, "", "parse Vorbis comments", err)
			}
		case blockTypePicture:
			if tags.Artwork != nil {
				continue
			}
			art, err := parsePicture(b.Data)
			if err != nil {
				return tags, types.Wrap(types.KindImageFormat, "", "parse PICTURE block", err)
			}
			tags.Artwork = art
		}
	}
	return tags, nil
}
