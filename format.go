package audiounlock

import (
	"maps"
	"path/filepath"
	"slices"
	"strings"

	"github.com/simonhull/audiounlock/internal/types"
)

// Container is an alias to types.Container.
type Container = types.Container

// MediaFormat is an alias to types.MediaFormat.
type MediaFormat = types.MediaFormat

// Containers and media formats.
const (
	ContainerUnknown = types.ContainerUnknown
	ContainerNCM     = types.ContainerNCM
	ContainerQMC     = types.ContainerQMC

	MediaUnknown = types.MediaUnknown
	MediaMP3     = types.MediaMP3
	MediaFLAC    = types.MediaFLAC
)

// Variant selects a decode pipeline: the container to decrypt and, when
// the container does not record it, the media format it holds.
type Variant struct {
	Container Container
	Format    MediaFormat
}

// String returns e.g. "NCM" or "QMC/FLAC".
func (v Variant) String() string {
	if v.Format == MediaUnknown {
		return v.Container.String()
	}
	return v.Container.String() + "/" + v.Format.String()
}

// Pipeline variants.
var (
	// VariantNCM reads the media format from the container metadata.
	VariantNCM = Variant{Container: ContainerNCM}
	// VariantQMC3 holds MP3 audio tagged with ID3v2.
	VariantQMC3 = Variant{Container: ContainerQMC, Format: MediaMP3}
	// VariantQMCFLAC holds FLAC audio.
	VariantQMCFLAC = Variant{Container: ContainerQMC, Format: MediaFLAC}
)

var variants = map[string]Variant{
	"ncm":     VariantNCM,
	"qmc3":    VariantQMC3,
	"qmcflac": VariantQMCFLAC,
}

// Classify maps an input name to its pipeline variant by lowercase
// extension. Unsupported extensions fail with a KindFormat error. Classify
// does no I/O.
func Classify(name string) (Variant, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if v, ok := variants[ext]; ok {
		return v, nil
	}
	if ext == "" {
		return Variant{}, types.Errorf(KindFormat, name, "invalid file type: no extension")
	}
	return Variant{}, types.Errorf(KindFormat, name, "invalid file type: unsupported extension %q", ext)
}

// SupportedExtensions returns the recognised extensions, sorted, without
// leading dots.
func SupportedExtensions() []string {
	return slices.Sorted(maps.Keys(variants))
}
