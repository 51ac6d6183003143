// Package freq counts byte occurrences in a single pass over a source.
//
// Only bytes with an ordinal of MinSymbol or more are counted. Control bytes
// below MinSymbol are dropped: they never receive a codeword and are absent
// from both the encoded body and the decoded output.
package freq

import (
	"errors"
	"io"
	"math"
)

// MinSymbol is the smallest byte value that is counted and encodable.
const MinSymbol = 32

// Encodable reports whether b is counted by a Table.
func Encodable(b byte) bool { return b >= MinSymbol }

// Table maps byte values to occurrence counts.
type Table struct {
	counts [256]uint64
	total  uint64
}

// Add counts every encodable byte of p.
func (t *Table) Add(p []byte) {
	for _, b := range p {
		if b < MinSymbol {
			continue
		}
		t.counts[b]++
		t.total++
	}
}

// Count returns the occurrences of b.
func (t *Table) Count(b byte) uint64 { return t.counts[b] }

// Total returns the number of counted bytes.
func (t *Table) Total() uint64 { return t.total }

// Distinct returns the number of byte values with a non-zero count.
func (t *Table) Distinct() int {
	n := 0
	for _, c := range t.counts {
		if c != 0 {
			n++
		}
	}
	return n
}

// Symbols returns the present byte values in ascending order.
func (t *Table) Symbols() []byte {
	out := make([]byte, 0, 256-MinSymbol)
	for b := MinSymbol; b < 256; b++ {
		if t.counts[b] != 0 {
			out = append(out, byte(b))
		}
	}
	return out
}

// Probability returns Count(b) / Total(), or 0 for an empty table.
func (t *Table) Probability(b byte) float64 {
	if t.total == 0 {
		return 0
	}
	return float64(t.counts[b]) / float64(t.total)
}

// Information returns the total information content of the counted bytes
// in bits.
func (t *Table) Information() float64 {
	if t.total == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range t.counts {
		if c == 0 {
			continue
		}
		p := float64(c) / float64(t.total)
		sum += p * math.Log2(p)
	}
	return -float64(t.total) * sum
}

// Entropy returns the average information per symbol in bits.
func (t *Table) Entropy() float64 {
	if t.total == 0 {
		return 0
	}
	return t.Information() / float64(t.total)
}

// MaxEntropy returns log2 of the number of distinct symbols.
func (t *Table) MaxEntropy() float64 {
	d := t.Distinct()
	if d == 0 {
		return 0
	}
	return math.Log2(float64(d))
}

// ReadFrom builds a Table from r, reading at most len(buf) bytes at a
// time into buf. It returns the table and the number of bytes read,
// including uncounted ones.
func ReadFrom(r io.Reader, buf []byte) (*Table, int64, error) {
	if len(buf) == 0 {
		return nil, 0, io.ErrShortBuffer
	}
	t := &Table{}
	var read int64
	for {
		n, err := r.Read(buf)
		if n > 0 {
			t.Add(buf[:n])
			read += int64(n)
		}
		if errors.Is(err, io.EOF) {
			return t, read, nil
		}
		if err != nil {
			return nil, read, err
		}
	}
}
