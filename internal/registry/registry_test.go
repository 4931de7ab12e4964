package registry

import (
	"testing"

	"github.com/simonhull/audiounlock/internal/types"
)

// mockDecoder implements ContainerDecoder for testing.
type mockDecoder struct {
	name string
}

func (m *mockDecoder) Decode(raw []byte, path string, opts types.DecodeOptions) (*types.Decoded, error) {
	return &types.Decoded{Audio: []byte(m.name)}, nil
}

// mockTagger implements Tagger and TagReader for testing.
type mockTagger struct{}

func (mockTagger) Tag(audio []byte, tags types.Tags) ([]byte, error) {
	return append([]byte(tags.Title), audio...), nil
}

func (mockTagger) ReadTags(audio []byte) (types.Tags, error) {
	return types.Tags{Title: string(audio)}, nil
}

func TestRegisterAndGet(t *testing.T) {
	// Use a container that's unlikely to conflict with real registrations
	c := types.Container(999)
	Register(c, &mockDecoder{name: "test"})

	got := Get(c)
	if got == nil {
		t.Fatal("Get() returned nil for registered container")
	}

	md, ok := got.(*mockDecoder)
	if !ok {
		t.Fatal("Get() returned wrong decoder type")
	}
	if md.name != "test" {
		t.Errorf("decoder name = %q, want %q", md.name, "test")
	}
}

func TestGet_Unregistered(t *testing.T) {
	if got := Get(types.Container(998)); got != nil {
		t.Errorf("Get() = %v for unregistered container, want nil", got)
	}
}

func TestRegister_Overwrites(t *testing.T) {
	c := types.Container(997)
	Register(c, &mockDecoder{name: "first"})
	Register(c, &mockDecoder{name: "second"})

	md, ok := Get(c).(*mockDecoder)
	if !ok {
		t.Fatal("Get() returned wrong decoder type")
	}
	if md.name != "second" {
		t.Errorf("decoder name = %q, want %q (should overwrite)", md.name, "second")
	}
}

func TestRegisterTagger(t *testing.T) {
	f := types.MediaFormat(999)
	RegisterTagger(f, mockTagger{})

	tagger := GetTagger(f)
	if tagger == nil {
		t.Fatal("GetTagger() returned nil for registered format")
	}

	out, err := tagger.Tag([]byte("audio"), types.Tags{Title: "T"})
	if err != nil {
		t.Fatalf("Tag() error = %v", err)
	}
	if string(out) != "Taudio" {
		t.Errorf("Tag() = %q", out)
	}

	if _, ok := tagger.(TagReader); !ok {
		t.Error("expected tagger to implement TagReader")
	}
}

func TestGetTagger_Unregistered(t *testing.T) {
	if got := GetTagger(types.MediaFormat(998)); got != nil {
		t.Errorf("GetTagger() = %v for unregistered format, want nil", got)
	}
}
