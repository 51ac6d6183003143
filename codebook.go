package entropack

import (
	"bytes"
	"fmt"

	"github.com/dchest/siphash"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/seiflotfy/entropack/hamming"
	"github.com/seiflotfy/entropack/trie"
)

// fixed keys; the hash only indexes the cache, it does not authenticate
const (
	cacheKey0 = 0x6e6b5f636f646573
	cacheKey1 = 0x626f6f6b5f763031
)

// codebook is everything the decoder derives from a header before it can
// read the body.
type codebook struct {
	trie  *trie.Trie
	codec *hamming.Codec // nil when the body is unprotected
	codes int
	key   []byte
}

func newCodebook(h *Header) (*codebook, error) {
	cb := &codebook{trie: trie.New(), codes: h.Codes.Len()}
	for _, sym := range h.Codes.Symbols() {
		c, _ := h.Codes.Lookup(sym)
		if err := cb.trie.Insert(c, sym); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedHeader, err)
		}
	}
	if h.Hamming != 0 {
		codec, err := hamming.NewCodec(h.Hamming)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedHeader, err)
		}
		cb.codec = codec
	}
	return cb, nil
}

// codebookCache maps header fingerprints to built codebooks.
type codebookCache struct {
	lru *lru.Cache[uint64, *codebook]
}

func newCodebookCache(size int) (*codebookCache, error) {
	if size <= 0 {
		return nil, nil
	}
	c, err := lru.New[uint64, *codebook](size)
	if err != nil {
		return nil, err
	}
	return &codebookCache{lru: c}, nil
}

// get returns the codebook for h, building and caching it on a miss. key
// holds the header bytes that determine the codebook.
func (c *codebookCache) get(h *Header, key []byte) (*codebook, bool, error) {
	if c == nil {
		cb, err := newCodebook(h)
		return cb, false, err
	}
	sum := siphash.Hash(cacheKey0, cacheKey1, key)
	if cb, ok := c.lru.Get(sum); ok && bytes.Equal(cb.key, key) {
		return cb, true, nil
	}
	cb, err := newCodebook(h)
	if err != nil {
		return nil, false, err
	}
	cb.key = key
	c.lru.Add(sum, cb)
	return cb, false, nil
}

func (c *codebookCache) len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}
