package binary

import "bytes"

// Builder accumulates binary output in memory with offset tracking.
type Builder struct {
	buf bytes.Buffer
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Len returns the number of bytes written so far.
func (b *Builder) Len() int {
	return b.buf.Len()
}

// Bytes returns the accumulated output.
func (b *Builder) Bytes() []byte {
	return b.buf.Bytes()
}

// Raw appends bytes verbatim.
func (b *Builder) Raw(p []byte) *Builder {
	b.buf.Write(p)
	return b
}

// String appends s verbatim, without a terminator.
func (b *Builder) String(s string) *Builder {
	b.buf.WriteString(s)
	return b
}

// Byte appends a single byte.
func (b *Builder) Byte(v byte) *Builder {
	b.buf.WriteByte(v)
	return b
}

// PutBE appends a big-endian integer.
func PutBE[T Uint](b *Builder, val T) *Builder {
	return b.Raw(encode(val, BigEndian))
}

// PutLE appends a little-endian integer.
func PutLE[T Uint](b *Builder, val T) *Builder {
	return b.Raw(encode(val, LittleEndian))
}

// PutUint24BE appends the low 24 bits of v in big-endian order, as used by
// FLAC metadata block headers.
func PutUint24BE(b *Builder, v uint32) *Builder {
	return b.Raw([]byte{byte(v >> 16), byte(v >> 8), byte(v)})
}
