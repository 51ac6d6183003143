// Package ints holds small generic integer helpers shared by the codec packages.
package ints

import "golang.org/x/exp/constraints"

// AlignDown returns v rounded down to a multiple of alignment.
func AlignDown[T constraints.Integer](v, alignment T) T {
	return (v / alignment) * alignment
}

// AlignUp returns v rounded up to a multiple of alignment.
func AlignUp[T constraints.Integer](v, alignment T) T {
	return ((v + alignment - 1) / alignment) * alignment
}

// CeilDiv returns ceil(v / d) for non-negative v and positive d.
func CeilDiv[T constraints.Integer](v, d T) T {
	return (v + d - 1) / d
}

// IsPow2 reports whether v is a positive power of two.
func IsPow2[T constraints.Integer](v T) bool {
	return v > 0 && v&(v-1) == 0
}
