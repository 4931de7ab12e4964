package qmc

var seedMap = [8][7]byte{
	{0x4a, 0xd6, 0xca, 0x90, 0x67, 0xf7, 0x52},
	{0x5e, 0x95, 0x23, 0x9f, 0x13, 0x11, 0x7e},
	{0x47, 0x74, 0x3d, 0x90, 0xaa, 0x3f, 0x51},
	{0xc6, 0x09, 0xd5, 0x9f, 0xfa, 0x66, 0xf9},
	{0xf3, 0xd6, 0xa1, 0x90, 0xa0, 0xf7, 0xf0},
	{0x1d, 0x95, 0xde, 0x9f, 0x84, 0x11, 0xf4},
	{0x0e, 0x74, 0xbb, 0x90, 0xbc, 0x3f, 0x92},
	{0x00, 0x09, 0x5b, 0x9f, 0x62, 0x66, 0xa1},
}

// Mask walks the seed map in a zig-zag and yields one key byte per audio
// byte. The walk skips a step at every 0x8000-byte boundary.
type Mask struct {
	x, y, dx, index int
}

// NewMask returns a mask positioned at the start of the stream.
func NewMask() *Mask {
	return &Mask{x: -1, y: 8, dx: 1, index: -1}
}

// Next returns the next mask byte.
func (m *Mask) Next() byte {
	var ret byte
	m.index++
	switch {
	case m.x < 0:
		m.dx = 1
		m.y = (8 - m.y) % 8
		ret = 0xc3
	case m.x > 6:
		m.dx = -1
		m.y = 7 - m.y
		ret = 0xd8
	default:
		ret = seedMap[m.y][m.x]
	}
	m.x += m.dx

	if m.index == 0x8000 || (m.index > 0x8000 && (m.index+1)%0x8000 == 0) {
		return m.Next()
	}
	return ret
}

// Apply XORs the mask into b in place, advancing the mask.
func (m *Mask) Apply(b []byte) {
	for i := range b {
		b[i] ^= m.Next()
	}
}
