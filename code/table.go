// Package code builds prefix-free codeword tables from byte frequencies.
//
// Two generators are provided, Huffman and Shannon-Fano. Both map every
// symbol present in a freq.Table to a sequence of bits (values 0 or 1)
// such that no codeword is a prefix of another.
package code

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
)

// MaxLen is the longest codeword a Table can hold. Lengths are stored in
// one header byte.
const MaxLen = 255

var (
	// ErrNotPrefixFree indicates one codeword is a prefix of another.
	ErrNotPrefixFree = errors.New("code table is not prefix-free")
	// ErrCodewordLength indicates an empty or overlong codeword.
	ErrCodewordLength = errors.New("invalid codeword length")
)

// Table maps byte values to codewords.
type Table struct {
	codes [256][]byte
	n     int
}

// Set assigns code to sym, replacing any previous codeword.
// The table keeps its own copy of code.
func (t *Table) Set(sym byte, code []byte) error {
	if len(code) == 0 || len(code) > MaxLen {
		return fmt.Errorf("%w: symbol %d has %d bits", ErrCodewordLength, sym, len(code))
	}
	if t.codes[sym] == nil {
		t.n++
	}
	t.codes[sym] = slices.Clone(code)
	return nil
}

// Lookup returns the codeword of sym.
func (t *Table) Lookup(sym byte) ([]byte, bool) {
	c := t.codes[sym]
	return c, c != nil
}

// Len returns the number of symbols with a codeword.
func (t *Table) Len() int { return t.n }

// Symbols returns the coded symbols in ascending order.
func (t *Table) Symbols() []byte {
	out := make([]byte, 0, t.n)
	for i := range t.codes {
		if t.codes[i] != nil {
			out = append(out, byte(i))
		}
	}
	return out
}

// MaxCodeLen returns the length of the longest codeword.
func (t *Table) MaxCodeLen() int {
	m := 0
	for _, c := range t.codes {
		m = max(m, len(c))
	}
	return m
}

// Equal reports whether t and o hold the same codewords.
func (t *Table) Equal(o *Table) bool {
	if t.n != o.n {
		return false
	}
	for i := range t.codes {
		if !bytes.Equal(t.codes[i], o.codes[i]) || (t.codes[i] == nil) != (o.codes[i] == nil) {
			return false
		}
	}
	return true
}

// CheckPrefixFree returns ErrNotPrefixFree if any codeword is a prefix of
// another one.
func (t *Table) CheckPrefixFree() error {
	type entry struct {
		sym  byte
		code []byte
	}
	entries := make([]entry, 0, t.n)
	for i, c := range t.codes {
		if c != nil {
			entries = append(entries, entry{byte(i), c})
		}
	}
	// in lexicographic order a prefix sorts immediately before some
	// codeword it prefixes, so adjacent pairs are enough
	slices.SortFunc(entries, func(a, b entry) int { return bytes.Compare(a.code, b.code) })
	for i := 1; i < len(entries); i++ {
		prev, cur := entries[i-1], entries[i]
		if bytes.HasPrefix(cur.code, prev.code) {
			return fmt.Errorf("%w: %q (%s) prefixes %q (%s)", ErrNotPrefixFree,
				prev.sym, render(prev.code), cur.sym, render(cur.code))
		}
	}
	return nil
}

// String lists the codewords one per line as "symbol: bits".
func (t *Table) String() string {
	var sb strings.Builder
	for _, sym := range t.Symbols() {
		fmt.Fprintf(&sb, "%q: %s\n", sym, render(t.codes[sym]))
	}
	return sb.String()
}

func render(code []byte) string {
	b := make([]byte, len(code))
	for i, bit := range code {
		b[i] = '0' + bit
	}
	return string(b)
}
