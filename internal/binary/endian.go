package binary

import "encoding/binary"

// Endianness selects the byte order for multi-byte integers.
type Endianness int

const (
	// BigEndian is used by ID3v2 frame headers and FLAC block headers.
	BigEndian Endianness = iota

	// LittleEndian is used by NCM length prefixes and Vorbis comments.
	LittleEndian
)

// Uint is the set of integer widths the cursor and builder understand.
type Uint interface {
	uint8 | uint16 | uint32 | uint64
}

func sizeOf[T Uint]() int {
	var zero T
	switch any(zero).(type) {
	case uint8:
		return 1
	case uint16:
		return 2
	case uint32:
		return 4
	default:
		return 8
	}
}

func decode[T Uint](buf []byte, endian Endianness) T {
	order := byteOrder(endian)
	switch len(buf) {
	case 1:
		return T(buf[0])
	case 2:
		return T(order.Uint16(buf))
	case 4:
		return T(order.Uint32(buf))
	default:
		return T(order.Uint64(buf))
	}
}

func encode[T Uint](val T, endian Endianness) []byte {
	order := byteOrder(endian)
	buf := make([]byte, sizeOf[T]())
	switch len(buf) {
	case 1:
		buf[0] = byte(val)
	case 2:
		order.PutUint16(buf, uint16(val))
	case 4:
		order.PutUint32(buf, uint32(val))
	default:
		order.PutUint64(buf, uint64(val))
	}
	return buf
}

func byteOrder(endian Endianness) binary.ByteOrder {
	if endian == LittleEndian {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// Synchsafe encodes n as a 28-bit ID3v2 synchsafe integer (7 bits per byte).
func Synchsafe(n uint32) []byte {
	return []byte{
		byte(n>>21) & 0x7F,
		byte(n>>14) & 0x7F,
		byte(n>>7) & 0x7F,
		byte(n) & 0x7F,
	}
}

// DecodeSynchsafe reverses Synchsafe. Only the first four bytes are used.
func DecodeSynchsafe(b []byte) uint32 {
	if len(b) < 4 {
		return 0
	}
	return uint32(b[0]&0x7F)<<21 |
		uint32(b[1]&0x7F)<<14 |
		uint32(b[2]&0x7F)<<7 |
		uint32(b[3]&0x7F)
}
