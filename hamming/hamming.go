// Package hamming implements a generalized Hamming single-error-correcting
// block code over bit slices (one 0 or 1 per byte).
//
// A k-bit payload is stored in an n = k + r bit block, where r is the
// smallest count with 2^r >= k + r + 1. Positions are described by their
// 1-based distance from the end of the block, d = n - index. Parity bit i
// sits at distance 2^i (index n - 2^i) and covers every position whose
// distance has bit i set. Payload bits fill the remaining positions in
// index order.
//
// Exactly one flipped bit per block is corrected. Two or more flipped bits
// in the same block produce a wrong correction, or none, and are not
// detected.
package hamming

import (
	"errors"
	"fmt"

	"github.com/seiflotfy/entropack/internal/ints"
)

// MaxPayload is the largest payload length that fits the one-byte header
// field of an archive.
const MaxPayload = 255

var (
	// ErrPayloadLength indicates a payload length outside [1, MaxPayload].
	ErrPayloadLength = errors.New("hamming: payload length out of range")
	// ErrBlockAlignment indicates input whose length is not a whole number
	// of blocks.
	ErrBlockAlignment = errors.New("hamming: input is not block aligned")
)

// ParityBits returns r, the number of parity bits protecting k payload bits.
func ParityBits(k int) int {
	r := 0
	for 1<<r < k+r+1 {
		r++
	}
	return r
}

// BlockLen returns n = k + ParityBits(k).
func BlockLen(k int) int { return k + ParityBits(k) }

// parityBitsIn returns r for a block of length n.
func parityBitsIn(n int) int {
	r := 0
	for 1<<r < n+1 {
		r++
	}
	return r
}

// IsParity reports whether index i of an n-bit block holds a parity bit.
func IsParity(n, i int) bool { return ints.IsPow2(n - i) }

// Encode returns the block protecting payload. The payload length determines
// the block length.
func Encode(payload []byte) []byte {
	return encodeInto(make([]byte, BlockLen(len(payload))), payload)
}

func encodeInto(block, payload []byte) []byte {
	n := len(block)
	p := 0
	for i := 0; i < n; i++ {
		if IsParity(n, i) {
			block[i] = 0
			continue
		}
		block[i] = payload[p] & 1
		p++
	}
	for i := 0; 1<<i <= n; i++ {
		block[n-1<<i] = coverParity(block, i)
	}
	return block
}

// coverParity returns the parity of the positions covered by parity bit i,
// excluding the parity bit itself. Covered distances are all greater than
// 2^i, so only indices below n - 2^i are scanned.
func coverParity(block []byte, i int) byte {
	n := len(block)
	var ones byte
	for j := n - 1<<i - 1; j >= 0; j-- {
		if (n-j)&(1<<i) != 0 {
			ones ^= block[j]
		}
	}
	return ones & 1
}

// Syndrome returns the distance from the end of the block of the bit that
// fails the parity checks, or 0 when all checks pass.
func Syndrome(block []byte) int {
	n := len(block)
	s := 0
	for i := 0; 1<<i <= n; i++ {
		if coverParity(block, i) != block[n-1<<i]&1 {
			s |= 1 << i
		}
	}
	return s
}

// Correct flips the bit named by the syndrome of block, in place. It returns
// the flipped index, or -1 when the block passes every check or the
// syndrome points outside the block.
func Correct(block []byte) int {
	s := Syndrome(block)
	if s == 0 || s > len(block) {
		return -1
	}
	i := len(block) - s
	block[i] ^= 1
	return i
}

// Extract appends the payload bits of block to dst without checking them.
func Extract(dst, block []byte) []byte {
	n := len(block)
	for i := 0; i < n; i++ {
		if !IsParity(n, i) {
			dst = append(dst, block[i]&1)
		}
	}
	return dst
}

// Decode corrects at most one error in block and returns its payload along
// with the corrected index (-1 if none). block is not modified.
func Decode(block []byte) ([]byte, int) {
	fixed := append([]byte(nil), block...)
	flipped := Correct(fixed)
	return Extract(make([]byte, 0, len(block)-parityBitsIn(len(block))), fixed), flipped
}

// Codec applies the block code to bit streams of any length using a fixed
// payload length.
type Codec struct {
	k, n    int
	scratch []byte
}

// NewCodec returns a Codec for k-bit payloads.
func NewCodec(k int) (*Codec, error) {
	if k < 1 || k > MaxPayload {
		return nil, fmt.Errorf("%w: %d", ErrPayloadLength, k)
	}
	n := BlockLen(k)
	return &Codec{k: k, n: n, scratch: make([]byte, n)}, nil
}

// PayloadLen returns k.
func (c *Codec) PayloadLen() int { return c.k }

// BlockLen returns n.
func (c *Codec) BlockLen() int { return c.n }

// EncodeBlocks splits bits into k-bit payloads, zero padding the last one,
// and appends the encoded n-bit blocks to dst.
func (c *Codec) EncodeBlocks(dst, bits []byte) []byte {
	payload := make([]byte, c.k)
	for off := 0; off < len(bits); off += c.k {
		end := min(off+c.k, len(bits))
		m := copy(payload, bits[off:end])
		clear(payload[m:])
		dst = append(dst, encodeInto(c.scratch, payload)...)
	}
	return dst
}

// DecodeBlocks corrects each n-bit block of bits and appends the payloads to
// dst. It returns the number of corrected blocks. len(bits) must be a
// multiple of n.
func (c *Codec) DecodeBlocks(dst, bits []byte) ([]byte, int, error) {
	if len(bits)%c.n != 0 {
		return dst, 0, fmt.Errorf("%w: %d bits for %d-bit blocks", ErrBlockAlignment, len(bits), c.n)
	}
	corrected := 0
	for off := 0; off < len(bits); off += c.n {
		block := c.scratch[:c.n]
		copy(block, bits[off:off+c.n])
		if Correct(block) >= 0 {
			corrected++
		}
		dst = Extract(dst, block)
	}
	return dst, corrected, nil
}

// Aligned returns the length of the longest prefix of an l-bit stream made
// of whole k-bit payloads.
func (c *Codec) Aligned(l int) int { return ints.AlignDown(l, c.k) }

// AlignedBlocks returns the length of the longest prefix of an l-bit stream
// made of whole n-bit blocks.
func (c *Codec) AlignedBlocks(l int) int { return ints.AlignDown(l, c.n) }
