package ncm

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"hash/crc32"

	binutil "github.com/simonhull/audiounlock/internal/binary"
	"github.com/simonhull/audiounlock/internal/types"
)

// Encode builds an NCM container around plain audio. It is the inverse of
// Decode and exists to produce test fixtures. meta may be nil, in which case
// the metadata section is empty. key is the per-file RC4 key.
func Encode(key []byte, meta *types.Metadata, image, audio []byte) ([]byte, error) {
	encKey, err := encryptECB(coreKey, append([]byte(keyPrefix), key...))
	if err != nil {
		return nil, fmt.Errorf("encrypt key: %w", err)
	}

	var encMeta []byte
	if meta != nil {
		doc, err := json.Marshal(meta)
		if err != nil {
			return nil, fmt.Errorf("marshal metadata: %w", err)
		}
		ciphertext, err := encryptECB(metaKey, append([]byte(jsonPrefix), doc...))
		if err != nil {
			return nil, fmt.Errorf("encrypt metadata: %w", err)
		}
		text := metaPrefix + base64.StdEncoding.EncodeToString(ciphertext)
		encMeta = xorBytes([]byte(text), 0x63)
	}

	masked := bytes.Clone(audio)
	newKeyBox(key).apply(masked, 0)

	b := binutil.NewBuilder().String(magic).Raw([]byte{0, 0})
	binutil.PutLE(b, uint32(len(encKey))).Raw(xorBytes(encKey, 0x64))
	binutil.PutLE(b, uint32(len(encMeta))).Raw(encMeta)
	binutil.PutLE(b, crc32.ChecksumIEEE(image))
	b.Raw(make([]byte, 5))
	binutil.PutLE(b, uint32(len(image))).Raw(image)
	b.Raw(masked)
	return b.Bytes(), nil
}
