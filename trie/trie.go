// Package trie provides a binary prefix tree over codewords, used to map
// a stream of bits back to the symbols of a prefix-free code.
package trie

import (
	"errors"
	"fmt"
)

var (
	// ErrConflict indicates a codeword that is a prefix of, or prefixed by,
	// a codeword already in the trie.
	ErrConflict = errors.New("trie: codeword conflicts with an existing entry")
	// ErrIncomplete is returned by Match when the bits end before a
	// codeword is complete.
	ErrIncomplete = errors.New("trie: bits end inside a codeword")
	// ErrNoCodeword is returned by Match when the bits leave the trie.
	ErrNoCodeword = errors.New("trie: bits match no codeword")
)

const none = -1

type node struct {
	next [2]int32 // child per bit, none if absent
	sym  int16    // symbol at a leaf, none for inner nodes
}

// Trie maps bit sequences to symbols. Nodes live in one slice and refer
// to each other by index.
type Trie struct {
	nodes []node
	size  int
}

// New returns an empty Trie.
func New() *Trie {
	return &Trie{nodes: []node{{next: [2]int32{none, none}, sym: none}}}
}

// Len returns the number of codewords.
func (t *Trie) Len() int { return t.size }

// Insert adds code for sym. The trie stays prefix-free: a code that would
// share a leaf path with an existing codeword is rejected.
func (t *Trie) Insert(code []byte, sym byte) error {
	if len(code) == 0 {
		return fmt.Errorf("%w: empty codeword for %d", ErrConflict, sym)
	}
	cur := int32(0)
	for _, b := range code {
		if t.nodes[cur].sym != none {
			return fmt.Errorf("%w: codeword of %d extends a shorter one", ErrConflict, sym)
		}
		b &= 1
		nx := t.nodes[cur].next[b]
		if nx == none {
			nx = int32(len(t.nodes))
			t.nodes = append(t.nodes, node{next: [2]int32{none, none}, sym: none})
			t.nodes[cur].next[b] = nx
		}
		cur = nx
	}
	n := &t.nodes[cur]
	if n.sym != none || n.next[0] != none || n.next[1] != none {
		return fmt.Errorf("%w: codeword of %d is already taken or prefixes another", ErrConflict, sym)
	}
	n.sym = int16(sym)
	t.size++
	return nil
}

// Lookup returns the symbol whose codeword is exactly code.
func (t *Trie) Lookup(code []byte) (byte, bool) {
	cur := int32(0)
	for _, b := range code {
		cur = t.nodes[cur].next[b&1]
		if cur == none {
			return 0, false
		}
	}
	if s := t.nodes[cur].sym; s != none {
		return byte(s), true
	}
	return 0, false
}

// Match finds the codeword that starts bits, walking one bit at a time
// from the root. It returns the symbol and the codeword length.
// ErrIncomplete means bits is a proper prefix of some codeword;
// ErrNoCodeword means no codeword starts bits.
func (t *Trie) Match(bits []byte) (byte, int, error) {
	cur := int32(0)
	for i, b := range bits {
		cur = t.nodes[cur].next[b&1]
		if cur == none {
			return 0, i + 1, ErrNoCodeword
		}
		if s := t.nodes[cur].sym; s != none {
			return byte(s), i + 1, nil
		}
	}
	return 0, len(bits), ErrIncomplete
}
