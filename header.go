package entropack

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/seiflotfy/entropack/bitstream"
	"github.com/seiflotfy/entropack/code"
	"github.com/seiflotfy/entropack/freq"
	"github.com/seiflotfy/entropack/hamming"
	"github.com/seiflotfy/entropack/internal/ints"
)

// Header is the self-describing prefix of an archive.
//
// Wire format:
//
//	marker  = "hmmcl" (optional, Hamming protection only)
//	k       = uint8   (present with the marker, 1..255)
//	repeat:
//	  symbol  = uint8
//	  L       = uint8 codeword length in bits, > 0
//	  code    = ceil(L/8) bytes, LSB-first
//	end     = 0x00 0x00
//
// A triple with symbol 0x01 and L = 64 carries the number of encoded
// symbols as a little-endian uint64 instead of a codeword. Other symbols
// below 32 are reserved.
type Header struct {
	Hamming  int         // payload length k, 0 when unprotected
	Codes    *code.Table // codewords per symbol
	Symbols  uint64      // number of encoded symbols, valid if HasCount
	HasCount bool
}

func writeBytes(w io.Writer, b []byte) (int64, error) {
	n, err := w.Write(b)
	if err != nil {
		return int64(n), err
	}
	if n != len(b) {
		return int64(n), io.ErrShortWrite
	}
	return int64(n), nil
}

// AppendBinary appends the wire encoding of h to dst.
func (h *Header) AppendBinary(dst []byte) ([]byte, error) {
	if h.Hamming != 0 {
		if h.Hamming < 1 || h.Hamming > hamming.MaxPayload {
			return dst, fmt.Errorf("%w: %d", hamming.ErrPayloadLength, h.Hamming)
		}
		dst = append(dst, hammingMarker...)
		dst = append(dst, uint8(h.Hamming))
	}
	if h.HasCount {
		dst = append(dst, countSymbol, countBits)
		dst = binary.LittleEndian.AppendUint64(dst, h.Symbols)
	}
	if h.Codes != nil {
		for _, sym := range h.Codes.Symbols() {
			if !freq.Encodable(sym) {
				return dst, fmt.Errorf("reserved symbol %d in code table", sym)
			}
			c, _ := h.Codes.Lookup(sym)
			dst = append(dst, sym, uint8(len(c)))
			dst = append(dst, bitstream.Pack(c)...)
		}
	}
	return append(dst, 0, 0), nil
}

// WriteTo serializes the Header to an io.Writer.
func (h *Header) WriteTo(w io.Writer) (int64, error) {
	b, err := h.AppendBinary(nil)
	if err != nil {
		return 0, err
	}
	return writeBytes(w, b)
}

// headerReader reads header fields while counting bytes and keeping the
// bytes that identify the code table.
type headerReader struct {
	r     *bufio.Reader
	total int64
	key   []byte
}

func (hr *headerReader) read(n int, keep bool) ([]byte, error) {
	off := hr.total
	b := make([]byte, n)
	m, err := io.ReadFull(hr.r, b)
	hr.total += int64(m)
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("%w: truncated at offset %d: %w", ErrMalformedHeader, off, err)
	}
	if keep {
		hr.key = append(hr.key, b...)
	}
	return b, nil
}

func (hr *headerReader) readByte() (byte, error) {
	b, err := hr.read(1, true)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// readHeader parses an archive header from r, leaving r positioned at the
// first body byte. It returns the header, the bytes describing the code
// table and Hamming settings (the count record excluded) and the header
// size.
func readHeader(r *bufio.Reader) (*Header, []byte, int64, error) {
	hr := &headerReader{r: r}
	h := &Header{Codes: &code.Table{}}

	if m, err := r.Peek(len(hammingMarker)); err == nil && string(m) == hammingMarker {
		if _, err := hr.read(len(hammingMarker), true); err != nil {
			return nil, nil, hr.total, err
		}
		k, err := hr.readByte()
		if err != nil {
			return nil, nil, hr.total, err
		}
		if k == 0 {
			return nil, nil, hr.total, fmt.Errorf("%w: hamming payload length 0 at offset %d", ErrMalformedHeader, hr.total-1)
		}
		h.Hamming = int(k)
	}

	for {
		off := hr.total
		sym, err := hr.readByte()
		if err != nil {
			return nil, nil, hr.total, err
		}
		if sym == 0 {
			next, err := hr.readByte()
			if err != nil {
				return nil, nil, hr.total, err
			}
			if next != 0 {
				return nil, nil, hr.total, fmt.Errorf("%w: bad end marker at offset %d", ErrMalformedHeader, off)
			}
			break
		}

		switch {
		case sym == countSymbol:
			rec, err := hr.read(1+countBits/8, false)
			if err != nil {
				return nil, nil, hr.total, err
			}
			if rec[0] != countBits || h.HasCount {
				return nil, nil, hr.total, fmt.Errorf("%w: bad symbol count record at offset %d", ErrMalformedHeader, off)
			}
			h.Symbols = binary.LittleEndian.Uint64(rec[1:])
			h.HasCount = true
		case !freq.Encodable(sym):
			return nil, nil, hr.total, fmt.Errorf("%w: reserved symbol %d at offset %d", ErrMalformedHeader, sym, off)
		default:
			l, err := hr.readByte()
			if err != nil {
				return nil, nil, hr.total, err
			}
			if l == 0 {
				return nil, nil, hr.total, fmt.Errorf("%w: empty codeword for %q at offset %d", ErrMalformedHeader, sym, off)
			}
			if _, dup := h.Codes.Lookup(sym); dup {
				return nil, nil, hr.total, fmt.Errorf("%w: duplicate symbol %q at offset %d", ErrMalformedHeader, sym, off)
			}
			packed, err := hr.read(ints.CeilDiv(int(l), 8), true)
			if err != nil {
				return nil, nil, hr.total, err
			}
			bits := bitstream.Unpack(make([]byte, 0, len(packed)*8), packed)
			if err := h.Codes.Set(sym, bits[:l]); err != nil {
				return nil, nil, hr.total, fmt.Errorf("%w: %w", ErrMalformedHeader, err)
			}
		}
	}
	return h, hr.key, hr.total, nil
}
