// Package ncm decodes NetEase Cloud Music (.ncm) containers.
//
// Layout:
//
//	[8]  magic "CTENFDAM"
//	[2]  gap
//	[4]  key length (LE) + key, XOR 0x64, AES-128-ECB(core key)
//	[4]  metadata length (LE) + metadata, XOR 0x63, base64, AES-128-ECB(meta key)
//	[4]  CRC
//	[5]  gap
//	[4]  image length (LE) + image
//	[..] audio masked with an RC4-derived key box
package ncm

import (
	"bytes"
	"encoding/base64"
	"encoding/json"

	binutil "github.com/simonhull/audiounlock/internal/binary"
	"github.com/simonhull/audiounlock/internal/registry"
	"github.com/simonhull/audiounlock/internal/types"
)

const (
	magic      = "CTENFDAM"
	keyPrefix  = "neteasecloudmusic"
	metaPrefix = "163 key(Don't modify):"
	jsonPrefix = "music:"
)

func init() {
	registry.Register(types.ContainerNCM, &Decoder{})
}

// Decoder implements registry.ContainerDecoder for NCM.
type Decoder struct{}

// Decode decrypts an NCM container.
func (d *Decoder) Decode(raw []byte, path string, opts types.DecodeOptions) (*types.Decoded, error) {
	c := binutil.NewCursor(raw, path)

	head, err := c.Bytes(len(magic), "magic")
	if err != nil || string(head) != magic {
		return nil, types.Errorf(types.KindFormat, path, "invalid file type")
	}
	if err := c.Skip(2, "header gap"); err != nil {
		return nil, types.Wrap(types.KindFormat, path, "invalid file type", err)
	}

	key, err := readKey(c)
	if err != nil {
		return nil, err
	}

	meta, err := readMetadata(c, opts.Strict)
	if err != nil {
		return nil, err
	}

	image, err := readImage(c)
	if err != nil {
		return nil, err
	}

	audio := bytes.Clone(c.Rest())
	newKeyBox(key).apply(audio, 0)

	format := types.MediaUnknown
	if meta != nil {
		format = types.MediaFormatFromName(meta.Format)
	}
	if format == types.MediaUnknown {
		format = types.SniffMediaFormat(audio)
	}
	if format == types.MediaUnknown {
		return nil, types.Errorf(types.KindFormat, path, "cannot infer audio format")
	}

	return &types.Decoded{
		Audio:    audio,
		Format:   format,
		Metadata: meta,
		Image:    image,
	}, nil
}

func readKey(c *binutil.Cursor) ([]byte, error) {
	n, err := binutil.ReadLE[uint32](c, "key length")
	if err != nil {
		return nil, types.Wrap(types.KindKey, c.Name(), "cannot read key length", err)
	}
	enc, err := c.Bytes(int(n), "key")
	if err != nil {
		return nil, types.Wrap(types.KindKey, c.Name(), "cannot read key", err)
	}

	plain, err := decryptECB(coreKey, xorBytes(enc, 0x64))
	if err != nil || !bytes.HasPrefix(plain, []byte(keyPrefix)) {
		return nil, types.Wrap(types.KindKey, c.Name(), "cannot decrypt the key", err)
	}
	return plain[len(keyPrefix):], nil
}

func readMetadata(c *binutil.Cursor, strict bool) (*types.Metadata, error) {
	n, err := binutil.ReadLE[uint32](c, "metadata length")
	if err != nil {
		return nil, types.Wrap(types.KindMetadata, c.Name(), "cannot read info length", err)
	}
	enc, err := c.Bytes(int(n), "metadata")
	if err != nil {
		return nil, types.Wrap(types.KindMetadata, c.Name(), "cannot read info", err)
	}
	if n == 0 {
		return nil, nil
	}

	doc, err := decryptMetadata(enc)
	if err != nil {
		return nil, types.Wrap(types.KindMetadata, c.Name(), "cannot decode info", err)
	}
	if strict {
		if err := validateMetadata(doc); err != nil {
			return nil, types.Wrap(types.KindMetadata, c.Name(), "cannot decode info", err)
		}
	}

	var meta types.Metadata
	if err := json.Unmarshal(doc, &meta); err != nil {
		return nil, types.Wrap(types.KindMetadata, c.Name(), "cannot decode info", err)
	}
	return &meta, nil
}

func decryptMetadata(enc []byte) ([]byte, error) {
	text := bytes.TrimPrefix(xorBytes(enc, 0x63), []byte(metaPrefix))
	ciphertext, err := base64.StdEncoding.DecodeString(string(text))
	if err != nil {
		return nil, err
	}
	plain, err := decryptECB(metaKey, ciphertext)
	if err != nil {
		return nil, err
	}
	return bytes.TrimPrefix(plain, []byte(jsonPrefix)), nil
}

func readImage(c *binutil.Cursor) ([]byte, error) {
	if err := c.Skip(4+5, "crc and gap"); err != nil {
		return nil, types.Wrap(types.KindImageFormat, c.Name(), "cannot read image length", err)
	}
	n, err := binutil.ReadLE[uint32](c, "image length")
	if err != nil {
		return nil, types.Wrap(types.KindImageFormat, c.Name(), "cannot read image length", err)
	}
	img, err := c.Bytes(int(n), "image")
	if err != nil {
		return nil, types.Wrap(types.KindImageFormat, c.Name(), "cannot read image", err)
	}
	return bytes.Clone(img), nil
}
