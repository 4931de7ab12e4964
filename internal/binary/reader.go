// Package binary provides bounds-checked cursors and builders over in-memory
// byte slices. Containers are decoded entirely in memory, so every read is
// a slice operation with a descriptive error when the input is truncated.
package binary

import (
	"errors"
	"fmt"
)

// ErrShortBuffer is wrapped by every cursor error caused by truncated input.
var ErrShortBuffer = errors.New("unexpected end of data")

// Cursor reads sequentially from a byte slice, tracking its offset.
type Cursor struct {
	data   []byte
	name   string
	offset int
}

// NewCursor creates a Cursor over data. name is used in error messages.
func NewCursor(data []byte, name string) *Cursor {
	return &Cursor{data: data, name: name}
}

// Name returns the label used in error messages.
func (c *Cursor) Name() string {
	return c.name
}

// Offset returns the current read position.
func (c *Cursor) Offset() int {
	return c.offset
}

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int {
	return len(c.data) - c.offset
}

// Bytes returns the next n bytes and advances past them. The returned slice
// aliases the underlying buffer.
func (c *Cursor) Bytes(n int, what string) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%s: negative length %d while reading %s", c.name, n, what)
	}
	if n > c.Remaining() {
		return nil, fmt.Errorf("%s: %w: need %d bytes at offset %d for %s, have %d",
			c.name, ErrShortBuffer, n, c.offset, what, c.Remaining())
	}
	b := c.data[c.offset : c.offset+n]
	c.offset += n
	return b, nil
}

// Skip advances the cursor by n bytes.
func (c *Cursor) Skip(n int, what string) error {
	_, err := c.Bytes(n, what)
	return err
}

// Rest returns every unread byte and moves the cursor to the end.
func (c *Cursor) Rest() []byte {
	b := c.data[c.offset:]
	c.offset = len(c.data)
	return b
}

// ReadLE reads a little-endian integer and advances the cursor.
func ReadLE[T Uint](c *Cursor, what string) (T, error) {
	return ReadEndian[T](c, what, LittleEndian)
}

// ReadBE reads a big-endian integer and advances the cursor.
func ReadBE[T Uint](c *Cursor, what string) (T, error) {
	return ReadEndian[T](c, what, BigEndian)
}

// ReadEndian reads an integer of type T in the given byte order.
func ReadEndian[T Uint](c *Cursor, what string, endian Endianness) (T, error) {
	buf, err := c.Bytes(sizeOf[T](), what)
	if err != nil {
		var zero T
		return zero, err
	}
	return decode[T](buf, endian), nil
}

// Chain wraps a Cursor and defers error checking to the end of a run of
// reads. After the first failure every read returns a zero value.
type Chain struct {
	*Cursor
	err error
}

// NewChain creates a Chain over c.
func NewChain(c *Cursor) *Chain {
	return &Chain{Cursor: c}
}

// ChainBE reads a big-endian integer, recording the first error.
func ChainBE[T Uint](ch *Chain, what string) T {
	return chained[T](ch, what, BigEndian)
}

// ChainLE reads a little-endian integer, recording the first error.
func ChainLE[T Uint](ch *Chain, what string) T {
	return chained[T](ch, what, LittleEndian)
}

func chained[T Uint](ch *Chain, what string, endian Endianness) T {
	var zero T
	if ch.err != nil {
		return zero
	}
	val, err := ReadEndian[T](ch.Cursor, what, endian)
	if err != nil {
		ch.err = err
		return zero
	}
	return val
}

// Take reads n bytes, recording the first error.
func (ch *Chain) Take(n int, what string) []byte {
	if ch.err != nil {
		return nil
	}
	b, err := ch.Cursor.Bytes(n, what)
	if err != nil {
		ch.err = err
		return nil
	}
	return b
}

// Err returns the first error encountered, if any.
func (ch *Chain) Err() error {
	return ch.err
}
