package types

import (
	"encoding/json"
	"slices"
	"testing"
)

func TestMetadata_Unmarshal(t *testing.T) {
	doc := `{
		"musicId": 1234,
		"musicName": "Track",
		"artist": [["Alice", 11], ["Bob", "b-22"]],
		"album": "Album",
		"albumId": 99,
		"bitrate": 320000,
		"duration": 215000,
		"format": "mp3",
		"alias": ["Alt"]
	}`

	var m Metadata
	if err := json.Unmarshal([]byte(doc), &m); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if m.Name != "Track" || m.Album != "Album" || m.Format != "mp3" {
		t.Errorf("unexpected fields: %+v", m)
	}
	if m.MusicID != 1234 || m.Bitrate != 320000 {
		t.Errorf("unexpected numbers: %+v", m)
	}
	if len(m.Artists) != 2 || m.Artists[0].ID != "11" || m.Artists[1].ID != "b-22" {
		t.Errorf("unexpected artists: %+v", m.Artists)
	}
	if !slices.Equal(m.ArtistNames(), []string{"Alice", "Bob"}) {
		t.Errorf("ArtistNames() = %v", m.ArtistNames())
	}
}

func TestArtist_RoundTrip(t *testing.T) {
	in := []Artist{{Name: "Alice", ID: "11"}, {Name: "Bob", ID: "x"}}

	b, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `[["Alice",11],["Bob","x"]]` {
		t.Errorf("marshal = %s", b)
	}

	var out []Artist
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !slices.Equal(in, out) {
		t.Errorf("round trip = %+v", out)
	}
}

func TestArtist_RejectsObject(t *testing.T) {
	var a Artist
	if err := json.Unmarshal([]byte(`{"name":"x"}`), &a); err == nil {
		t.Error("expected error for object form")
	}
}

func TestMetadata_Tags(t *testing.T) {
	m := &Metadata{Name: "Track", Album: "Album", Artists: []Artist{{Name: "Alice"}}}
	art := &Artwork{Format: ImagePNG}

	tags := m.Tags(art)
	if tags.Title != "Track" || tags.Album != "Album" || tags.Artwork != art {
		t.Errorf("unexpected tags: %+v", tags)
	}

	var nilMeta *Metadata
	if got := nilMeta.Tags(nil); !got.Empty() {
		t.Errorf("nil metadata should give empty tags, got %+v", got)
	}
}

func TestTags_Raw(t *testing.T) {
	var tags Tags
	tags.Set("comment", "a")
	tags.Set("BPM", "120")

	if got := tags.Get("COMMENT"); !slices.Equal(got, []string{"a"}) {
		t.Errorf("Get(COMMENT) = %v", got)
	}

	var keys []string
	for k := range tags.All() {
		keys = append(keys, k)
	}
	if !slices.Equal(keys, []string{"BPM", "COMMENT"}) {
		t.Errorf("All() keys = %v", keys)
	}
	if tags.Empty() {
		t.Error("tags with raw values should not be empty")
	}
}
