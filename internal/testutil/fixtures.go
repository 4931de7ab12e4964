// Package testutil builds encrypted containers and plain media payloads
// for tests.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	binutil "github.com/simonhull/audiounlock/internal/binary"
	"github.com/simonhull/audiounlock/internal/ncm"
	"github.com/simonhull/audiounlock/internal/qmc"
	"github.com/simonhull/audiounlock/internal/types"
)

// NCMKey is the per-file RC4 key used by NCM fixtures.
var NCMKey = []byte("31415926535897932384626433832795028841971693993751")

// MP3 returns a minimal untagged MPEG-1 Layer III payload.
func MP3() []byte {
	frame := []byte{0xFF, 0xFB, 0x90, 0x00}
	return append(frame, bytes.Repeat([]byte{0x55}, 413)...)
}

// FLAC returns a minimal FLAC stream: STREAMINFO (last) and one frame.
func FLAC() []byte {
	b := binutil.NewBuilder().String("fLaC").Byte(0x80)
	binutil.PutUint24BE(b, 34)
	b.Raw(make([]byte, 34))
	return b.Raw([]byte{0xFF, 0xF8, 0x69, 0x08, 0x00, 0x00}).Bytes()
}

// PNG returns the header of a width x height PNG image.
func PNG(width, height uint32) []byte {
	b := binutil.NewBuilder().Raw([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A})
	binutil.PutBE[uint32](b, 13).String("IHDR")
	binutil.PutBE(b, width)
	binutil.PutBE(b, height)
	return b.Raw([]byte{0x08, 0x06, 0x00, 0x00, 0x00}).Bytes()
}

// Metadata returns NCM metadata with the given title and format.
func Metadata(title, format string) *types.Metadata {
	return &types.Metadata{
		MusicID: 42,
		Name:    title,
		Artists: []types.Artist{{Name: "Artist", ID: "1"}},
		Album:   "Album",
		Format:  format,
	}
}

// NCM encodes an NCM container. It fails the test on error.
func NCM(tb testing.TB, meta *types.Metadata, image, audio []byte) []byte {
	tb.Helper()
	raw, err := ncm.Encode(NCMKey, meta, image, audio)
	if err != nil {
		tb.Fatalf("encode NCM fixture: %v", err)
	}
	return raw
}

// QMC masks plain audio as a QMC container.
func QMC(audio []byte) []byte {
	return qmc.Decrypt(audio)
}

// WriteFile writes data under dir and returns the full path.
func WriteFile(tb testing.TB, dir, name string, data []byte) string {
	tb.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		tb.Fatalf("write fixture %s: %v", name, err)
	}
	return path
}
