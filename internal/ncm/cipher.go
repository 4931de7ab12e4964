package ncm

import (
	"bytes"
	"crypto/aes"
	"errors"
)

var (
	// coreKey decrypts the per-file RC4 key.
	coreKey = []byte{
		0x68, 0x7A, 0x48, 0x52, 0x41, 0x6D, 0x73, 0x6F,
		0x35, 0x6B, 0x49, 0x6E, 0x62, 0x61, 0x78, 0x57,
	}
	// metaKey decrypts the metadata document.
	metaKey = []byte{
		0x23, 0x31, 0x34, 0x6C, 0x6A, 0x6B, 0x5F, 0x21,
		0x5C, 0x5D, 0x26, 0x30, 0x55, 0x3C, 0x27, 0x28,
	}
)

var errBadPadding = errors.New("invalid PKCS#7 padding")

// decryptECB decrypts AES-128 in ECB mode and strips PKCS#7 padding.
func decryptECB(key, data []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	size := block.BlockSize()
	if len(data) == 0 || len(data)%size != 0 {
		return nil, errors.New("ciphertext is not a whole number of blocks")
	}

	out := make([]byte, len(data))
	for off := 0; off < len(data); off += size {
		block.Decrypt(out[off:off+size], data[off:off+size])
	}
	return unpad(out, size)
}

// encryptECB pads with PKCS#7 and encrypts AES-128 in ECB mode.
func encryptECB(key, data []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	size := block.BlockSize()
	n := size - len(data)%size
	in := append(bytes.Clone(data), bytes.Repeat([]byte{byte(n)}, n)...)

	out := make([]byte, len(in))
	for off := 0; off < len(in); off += size {
		block.Encrypt(out[off:off+size], in[off:off+size])
	}
	return out, nil
}

func unpad(b []byte, size int) ([]byte, error) {
	if len(b) == 0 {
		return nil, errBadPadding
	}
	n := int(b[len(b)-1])
	if n == 0 || n > size || n > len(b) {
		return nil, errBadPadding
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, errBadPadding
		}
	}
	return b[:len(b)-n], nil
}

func xorBytes(b []byte, k byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[i] = v ^ k
	}
	return out
}

// keyBox is the RC4-derived substitution table used to mask audio bytes.
type keyBox [256]byte

func newKeyBox(key []byte) *keyBox {
	var box keyBox
	for i := range box {
		box[i] = byte(i)
	}
	if len(key) == 0 {
		return &box
	}

	var last byte
	off := 0
	for i := range box {
		swap := box[i]
		c := swap + last + key[off]
		off++
		if off >= len(key) {
			off = 0
		}
		box[i] = box[c]
		box[c] = swap
		last = c
	}
	return &box
}

// apply XORs the mask into b in place. pos is the stream offset of b[0].
// The mask is symmetric, so apply both encrypts and decrypts.
func (k *keyBox) apply(b []byte, pos int) {
	for i := range b {
		j := byte(pos + i + 1)
		b[i] ^= k[k[j]+k[k[j]+j]]
	}
}
