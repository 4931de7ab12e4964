package types

import (
	"iter"
	"maps"
	"slices"
	"strings"
)

// Tags is the format-agnostic set of fields written into decoded audio.
//
// Title, Artists and Album map to TIT2/TPE1/TALB in ID3v2 and to
// TITLE/ARTIST/ALBUM Vorbis comments in FLAC. Fields without a standard
// mapping can be carried through Set and read back with Get or All.
type Tags struct {
	raw     map[string][]string
	Artwork *Artwork
	Title   string
	Album   string
	Artists []string
}

// Empty reports whether there is nothing to write.
func (t *Tags) Empty() bool {
	return t.Title == "" && t.Album == "" && len(t.Artists) == 0 &&
		t.Artwork == nil && len(t.raw) == 0
}

// Set stores raw values for key, replacing any previous values. Keys are
// case-insensitive and stored upper-case.
func (t *Tags) Set(key string, values ...string) {
	if t.raw == nil {
		t.raw = make(map[string][]string)
	}
	t.raw[strings.ToUpper(key)] = values
}

// Get returns the raw values stored for key.
func (t *Tags) Get(key string) []string {
	if t.raw == nil {
		return nil
	}
	return t.raw[strings.ToUpper(key)]
}

// All iterates the raw tags in key order.
//
// The returned slices must not be modified.
func (t *Tags) All() iter.Seq2[string, []string] {
	return func(yield func(string, []string) bool) {
		for _, key := range slices.Sorted(maps.Keys(t.raw)) {
			if !yield(key, t.raw[key]) {
				return
			}
		}
	}
}
