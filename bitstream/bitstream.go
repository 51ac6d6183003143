// Package bitstream packs individual bits into bytes and unpacks them again.
//
// Bits are values 0 or 1 held one per byte. Within a packed byte, bit index 0
// is the least significant bit and is the first bit appended:
//
//	bits  1 1 0 1 1 1 0 0   ->   0b00111011 (59)
//
// Encoders and decoders must agree on this order or every codeword after the
// first misaligned one is lost.
package bitstream

import (
	"io"
	"strings"
)

// Container accumulates bits into a buffer of completed bytes plus one
// pending partial byte.
type Container struct {
	buf     []byte
	current byte
	nbits   uint8 // bits already written into current, 0 <= nbits <= 7
}

// New returns an empty Container.
func New() *Container {
	return &Container{}
}

// FromBits returns a Container holding bits.
func FromBits(bits []byte) *Container {
	c := &Container{buf: make([]byte, 0, len(bits)/8+1)}
	c.AppendBits(bits)
	return c
}

// AppendBit appends one bit. Any non-zero value is a 1 bit.
func (c *Container) AppendBit(b byte) {
	if b != 0 {
		c.current |= 1 << c.nbits
	}
	c.nbits++
	if c.nbits == 8 {
		c.buf = append(c.buf, c.current)
		c.current = 0
		c.nbits = 0
	}
}

// AppendBits appends bits in order.
func (c *Container) AppendBits(bits []byte) {
	for _, b := range bits {
		c.AppendBit(b)
	}
}

// AppendBytes appends raw bytes to the completed buffer without bit packing.
// The pending partial byte is left where it is.
func (c *Container) AppendBytes(p []byte) {
	c.buf = append(c.buf, p...)
}

// Finish pads the pending partial byte with zero bits and moves it to the
// completed buffer. It does nothing when no bits are pending.
func (c *Container) Finish() {
	if c.nbits != 0 {
		c.buf = append(c.buf, c.current)
	}
	c.current = 0
	c.nbits = 0
}

// Flush pads and completes the pending byte, writes every completed byte
// to w and resets the Container.
func (c *Container) Flush(w io.Writer) (int, error) {
	c.Finish()
	n, err := writeAll(w, c.buf)
	c.Reset()
	return n, err
}

// FlushCompleted writes and clears the completed bytes only. The pending
// partial byte and its bit count survive, so the stream can continue
// across calls without losing alignment.
func (c *Container) FlushCompleted(w io.Writer) (int, error) {
	n, err := writeAll(w, c.buf)
	c.buf = c.buf[:0]
	return n, err
}

// Reset discards all state.
func (c *Container) Reset() {
	c.buf = c.buf[:0]
	c.current = 0
	c.nbits = 0
}

// Bytes returns the completed bytes. The slice aliases the Container's buffer.
func (c *Container) Bytes() []byte {
	return c.buf
}

// Head returns the first n completed bytes, or all of them when fewer
// than n are available.
func (c *Container) Head(n int) []byte {
	if n > len(c.buf) {
		return c.buf
	}
	return c.buf[:n]
}

// Len returns the number of completed bytes.
func (c *Container) Len() int { return len(c.buf) }

// Pending returns the number of bits held in the pending partial byte.
func (c *Container) Pending() int { return int(c.nbits) }

// Bits returns the bits of every completed byte.
func (c *Container) Bits() []byte {
	return Unpack(make([]byte, 0, len(c.buf)*8), c.buf)
}

// BitsN returns the first n bits of the completed bytes, or all of them
// when fewer than n are available.
func (c *Container) BitsN(n int) []byte {
	if n > len(c.buf)*8 {
		n = len(c.buf) * 8
	}
	out := make([]byte, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, (c.buf[i/8]>>(i%8))&1)
	}
	return out
}

// String renders the completed bytes as groups of bits, one byte per group
// with a quote between nibbles.
func (c *Container) String() string {
	if len(c.buf) == 0 {
		return "0"
	}
	var sb strings.Builder
	for i, b := range c.buf {
		if i > 0 {
			sb.WriteByte(' ')
		}
		for j := 0; j < 8; j++ {
			if j == 4 {
				sb.WriteByte('\'')
			}
			sb.WriteByte('0' + (b>>j)&1)
		}
	}
	return sb.String()
}

// Unpack appends the bits of p to dst, bit 0 of each byte first.
func Unpack(dst, p []byte) []byte {
	for _, b := range p {
		dst = append(dst,
			b&1, (b>>1)&1, (b>>2)&1, (b>>3)&1,
			(b>>4)&1, (b>>5)&1, (b>>6)&1, (b>>7)&1)
	}
	return dst
}

// Pack packs bits into bytes, zero padding the final byte.
func Pack(bits []byte) []byte {
	out := make([]byte, (len(bits)+7)/8)
	for i, b := range bits {
		if b != 0 {
			out[i/8] |= 1 << (i % 8)
		}
	}
	return out
}

func writeAll(w io.Writer, p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	n, err := w.Write(p)
	if err != nil {
		return n, err
	}
	if n != len(p) {
		return n, io.ErrShortWrite
	}
	return n, nil
}
