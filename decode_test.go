package audiounlock_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simonhull/audiounlock"
	"github.com/simonhull/audiounlock/internal/flac"
	"github.com/simonhull/audiounlock/internal/mp3"
	"github.com/simonhull/audiounlock/internal/testutil"
)

func TestDecode_NCMTagged(t *testing.T) {
	cover := testutil.PNG(300, 300)
	raw := testutil.NCM(t, testutil.Metadata("Track", "mp3"), cover, testutil.MP3())

	payload, err := audiounlock.Decode("song.ncm", raw)
	require.NoError(t, err)

	assert.Equal(t, audiounlock.MediaMP3, payload.Format)
	assert.Equal(t, "Track", payload.Title())
	require.NotNil(t, payload.Artwork)
	assert.Equal(t, audiounlock.ImagePNG, payload.Artwork.Format)
	assert.Equal(t, 300, payload.Artwork.Width)

	name, err := audiounlock.OutputName("song.ncm", payload)
	require.NoError(t, err)
	assert.Equal(t, "Track.mp3", name)

	tags, err := mp3.Tagger{}.ReadTags(payload.Audio)
	require.NoError(t, err)
	assert.Equal(t, "Track", tags.Title)
	assert.Equal(t, []string{"Artist"}, tags.Artists)
	assert.Equal(t, "Album", tags.Album)
	require.NotNil(t, tags.Artwork)
	assert.Equal(t, cover, tags.Artwork.Data)
	assert.True(t, bytes.HasSuffix(payload.Audio, testutil.MP3()))
}

func TestDecode_NCMFLAC(t *testing.T) {
	raw := testutil.NCM(t, testutil.Metadata("Lossless", "flac"), nil, testutil.FLAC())

	payload, err := audiounlock.Decode("a.ncm", raw, audiounlock.WithValidation())
	require.NoError(t, err)
	assert.Equal(t, audiounlock.MediaFLAC, payload.Format)
	assert.Nil(t, payload.Artwork)

	tags, err := flac.Tagger{}.ReadTags(payload.Audio)
	require.NoError(t, err)
	assert.Equal(t, "Lossless", tags.Title)
}

func TestDecode_WithoutTagging(t *testing.T) {
	raw := testutil.NCM(t, testutil.Metadata("Track", "mp3"), nil, testutil.MP3())

	payload, err := audiounlock.Decode("song.ncm", raw, audiounlock.WithoutTagging())
	require.NoError(t, err)
	assert.Equal(t, testutil.MP3(), payload.Audio)
	assert.Equal(t, "Track", payload.Title(), "metadata is still extracted")
}

func TestDecode_QMCKeepsInputName(t *testing.T) {
	raw := testutil.QMC(testutil.FLAC())

	payload, err := audiounlock.Decode("music/track.qmcflac", raw)
	require.NoError(t, err)
	assert.Equal(t, testutil.FLAC(), payload.Audio, "QMC output is not tagged")
	assert.Nil(t, payload.Metadata)

	name, err := audiounlock.OutputName("music/track.qmcflac", payload)
	require.NoError(t, err)
	assert.Equal(t, "track.flac", name)
}

func TestDecode_Deterministic(t *testing.T) {
	raw := testutil.NCM(t, testutil.Metadata("Same", "mp3"), testutil.PNG(1, 1), testutil.MP3())

	a, err := audiounlock.Decode("x.ncm", raw)
	require.NoError(t, err)
	b, err := audiounlock.Decode("x.ncm", raw)
	require.NoError(t, err)
	assert.Equal(t, a.Audio, b.Audio)
}

func TestDecode_MaxArtworkSize(t *testing.T) {
	cover := append(testutil.PNG(10, 10), make([]byte, 4096)...)
	raw := testutil.NCM(t, testutil.Metadata("Track", "mp3"), cover, testutil.MP3())

	payload, err := audiounlock.Decode("song.ncm", raw, audiounlock.WithMaxArtworkSize(1024))
	require.NoError(t, err)
	assert.Nil(t, payload.Artwork)
	require.Len(t, payload.Warnings, 1)
	assert.Equal(t, "artwork", payload.Warnings[0].Stage)

	tags, err := mp3.Tagger{}.ReadTags(payload.Audio)
	require.NoError(t, err)
	assert.Nil(t, tags.Artwork)
}

func TestDecode_Errors(t *testing.T) {
	strictBad := testutil.Metadata("Track", "wav")

	tests := []struct {
		name  string
		input string
		raw   []byte
		opts  []audiounlock.DecodeOption
		want  error
	}{
		{name: "unsupported extension", input: "clip.xyz", raw: []byte("x"), want: audiounlock.ErrFormat},
		{name: "bad magic", input: "song.ncm", raw: []byte("not an ncm container"), want: audiounlock.ErrFormat},
		{
			name:  "unknown image",
			input: "song.ncm",
			raw:   testutil.NCM(t, testutil.Metadata("T", "mp3"), []byte("garbage image"), testutil.MP3()),
			want:  audiounlock.ErrImageFormat,
		},
		{
			name:  "strict metadata",
			input: "song.ncm",
			raw:   testutil.NCM(t, strictBad, nil, testutil.MP3()),
			opts:  []audiounlock.DecodeOption{audiounlock.WithStrictMetadata()},
			want:  audiounlock.ErrMetadata,
		},
		{
			name:  "tag write on non-flac",
			input: "song.ncm",
			raw:   testutil.NCM(t, testutil.Metadata("T", "flac"), nil, testutil.MP3()),
			want:  audiounlock.ErrTagWrite,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := audiounlock.Decode(tt.input, tt.raw, tt.opts...)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var de *audiounlock.DecodeError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, tt.input, de.Path)
		})
	}
}

func TestOutputName(t *testing.T) {
	mp3Payload := func(title string) *audiounlock.Payload {
		p := &audiounlock.Payload{Format: audiounlock.MediaMP3}
		if title != "" {
			p.Metadata = &audiounlock.Metadata{Name: title}
		}
		return p
	}

	tests := []struct {
		name    string
		input   string
		payload *audiounlock.Payload
		want    string
	}{
		{name: "title", input: "song.ncm", payload: mp3Payload("Track"), want: "Track.mp3"},
		{name: "unsafe title", input: "song.ncm", payload: mp3Payload(`AC/DC: "Live"?`), want: "AC_DC_ _Live__.mp3"},
		{name: "no title", input: "/music/song.ncm", payload: mp3Payload(""), want: "song.mp3"},
		{name: "windows path", input: `C:\music\song.qmc3`, payload: mp3Payload(""), want: "song.mp3"},
		{name: "blank title", input: "song.ncm", payload: mp3Payload("   "), want: "song.mp3"},
		{
			name:    "flac",
			input:   "track.qmcflac",
			payload: &audiounlock.Payload{Format: audiounlock.MediaFLAC},
			want:    "track.flac",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := audiounlock.OutputName(tt.input, tt.payload)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOutputName_Errors(t *testing.T) {
	_, err := audiounlock.OutputName(".ncm", &audiounlock.Payload{Format: audiounlock.MediaMP3})
	assert.ErrorIs(t, err, audiounlock.ErrName)

	_, err = audiounlock.OutputName("song.ncm", &audiounlock.Payload{})
	assert.ErrorIs(t, err, audiounlock.ErrName)

	_, err = audiounlock.OutputName("song.ncm", nil)
	assert.ErrorIs(t, err, audiounlock.ErrName)
}

func TestDecoderFunc(t *testing.T) {
	called := false
	dec := audiounlock.DecoderFunc(func(name string, v audiounlock.Variant, raw []byte) (*audiounlock.Payload, error) {
		called = true
		return &audiounlock.Payload{Audio: raw}, nil
	})

	p, err := dec.Decode("x.ncm", audiounlock.VariantNCM, []byte("abc"))
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, []byte("abc"), p.Audio)
}
