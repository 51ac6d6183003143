package code

import (
	"fmt"
	"strings"

	"github.com/seiflotfy/entropack/freq"
)

// Kind selects a code generator.
type Kind uint8

const (
	// Huffman builds an optimal prefix code by merging the two lightest
	// subtrees until one tree remains.
	Huffman Kind = iota + 1
	// ShannonFano splits the probability-sorted alphabet into halves of
	// roughly equal mass, recursively.
	ShannonFano
)

func (k Kind) String() string {
	switch k {
	case Huffman:
		return "huffman"
	case ShannonFano:
		return "shannon-fano"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// ParseKind accepts the names returned by Kind.String, case-insensitively,
// plus a few short aliases.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "huffman", "huff", "h":
		return Huffman, nil
	case "shannon-fano", "shannonfano", "shannon_fano", "sf", "s":
		return ShannonFano, nil
	}
	return 0, fmt.Errorf("unknown coder %q", s)
}

// Build runs the generator selected by k over ft.
func (k Kind) Build(ft *freq.Table) (*Table, error) {
	switch k {
	case Huffman:
		return BuildHuffman(ft), nil
	case ShannonFano:
		return BuildShannonFano(ft), nil
	default:
		return nil, fmt.Errorf("unknown coder %v", k)
	}
}
