package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Metadata is the structured song information embedded in an NCM container.
type Metadata struct {
	Name       string   `json:"musicName"`
	Album      string   `json:"album"`
	AlbumPic   string   `json:"albumPic,omitempty"`
	Format     string   `json:"format"`
	Artists    []Artist `json:"artist"`
	Alias      []string `json:"alias,omitempty"`
	TransNames []string `json:"transNames,omitempty"`
	MusicID    int64    `json:"musicId"`
	AlbumID    int64    `json:"albumId,omitempty"`
	Bitrate    int64    `json:"bitrate,omitempty"`
	Duration   int64    `json:"duration,omitempty"`
}

// Artist is one performer entry. On the wire it is a [name, id] pair.
type Artist struct {
	Name string
	ID   string
}

// UnmarshalJSON decodes the [name, id] pair form. The id may be a number or
// a string depending on the client that produced the container.
func (a *Artist) UnmarshalJSON(b []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(b, &pair); err != nil {
		return fmt.Errorf("artist entry: %w", err)
	}
	if len(pair) == 0 {
		return fmt.Errorf("artist entry: empty pair")
	}
	if err := json.Unmarshal(pair[0], &a.Name); err != nil {
		return fmt.Errorf("artist name: %w", err)
	}
	if len(pair) < 2 {
		return nil
	}

	raw := strings.TrimSpace(string(pair[1]))
	if strings.HasPrefix(raw, `"`) {
		return json.Unmarshal(pair[1], &a.ID)
	}
	if _, err := strconv.ParseFloat(raw, 64); err != nil {
		return fmt.Errorf("artist id: %q is not a number", raw)
	}
	a.ID = raw
	return nil
}

// MarshalJSON encodes the artist as a [name, id] pair, keeping numeric ids
// numeric.
func (a Artist) MarshalJSON() ([]byte, error) {
	name, err := json.Marshal(a.Name)
	if err != nil {
		return nil, err
	}
	id := []byte(a.ID)
	if _, perr := strconv.ParseInt(a.ID, 10, 64); perr != nil {
		if id, err = json.Marshal(a.ID); err != nil {
			return nil, err
		}
	}
	return []byte("[" + string(name) + "," + string(id) + "]"), nil
}

// ArtistNames returns the performer names in order.
func (m *Metadata) ArtistNames() []string {
	if m == nil {
		return nil
	}
	names := make([]string, 0, len(m.Artists))
	for _, a := range m.Artists {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}
	return names
}

// Tags returns the taggable subset of the metadata with the given artwork.
func (m *Metadata) Tags(art *Artwork) Tags {
	if m == nil {
		return Tags{Artwork: art}
	}
	return Tags{
		Title:   m.Name,
		Artists: m.ArtistNames(),
		Album:   m.Album,
		Artwork: art,
	}
}
