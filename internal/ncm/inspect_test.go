package ncm

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/simonhull/audiounlock/internal/types"
)

func TestInspect(t *testing.T) {
	image := []byte("image-bytes")
	audio := []byte("audio-bytes-audio")
	raw := mustEncode(t, testMetadata(), image, audio)

	l, err := Inspect(raw)
	if err != nil {
		t.Fatalf("Inspect() error = %v", err)
	}

	if !l.CRCMatch {
		t.Error("CRCMatch = false, want true")
	}

	var doc map[string]any
	if err := json.Unmarshal(l.Metadata, &doc); err != nil {
		t.Fatalf("Metadata is not JSON: %v", err)
	}
	if doc["musicName"] != "Track" {
		t.Errorf("musicName = %v, want Track", doc["musicName"])
	}

	names := make([]string, len(l.Sections))
	end := 0
	for i, s := range l.Sections {
		names[i] = s.Name
		if s.Offset != end {
			t.Errorf("section %s at %d, want %d", s.Name, s.Offset, end)
		}
		end = s.Offset + s.Length
	}
	if end != len(raw) {
		t.Errorf("sections end at %d, want %d", end, len(raw))
	}

	last := l.Sections[len(l.Sections)-1]
	if last.Name != "audio" || last.Length != len(audio) {
		t.Errorf("last section = %+v, want audio of %d bytes", last, len(audio))
	}
	want := []string{"magic", "gap", "key length", "key", "metadata length", "metadata", "crc", "gap", "image length", "image", "audio"}
	if len(names) != len(want) {
		t.Fatalf("sections = %v, want %v", names, want)
	}
}

func TestInspect_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
		want error
	}{
		{name: "bad magic", raw: []byte("NOTANNCM"), want: types.ErrFormat},
		{name: "truncated key length", raw: []byte("CTENFDAM\x00\x00\x01"), want: types.ErrFormat},
		{name: "truncated key", raw: []byte("CTENFDAM\x00\x00\x10\x00\x00\x00abc"), want: types.ErrKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Inspect(tt.raw)
			if !errors.Is(err, tt.want) {
				t.Errorf("Inspect() error = %v, want %v", err, tt.want)
			}
		})
	}
}
