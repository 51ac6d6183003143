package code

import (
	"golang.org/x/exp/slices"

	"github.com/seiflotfy/entropack/freq"
)

type weighted struct {
	sym    byte
	weight uint64
}

// BuildShannonFano returns the Shannon-Fano code for ft.
//
// Symbols are stable-sorted by descending count. Each range is split where
// the mass accumulated from the front first exceeds the mass accumulated
// from the back; the front part gets bit 0 and the back part bit 1, and
// both parts are split again until they hold one symbol. The outermost
// split contributes the first bit of every codeword. A table with a single
// symbol gets the one-bit codeword 0.
func BuildShannonFano(ft *freq.Table) *Table {
	t := &Table{}
	syms := ft.Symbols()
	switch len(syms) {
	case 0:
		return t
	case 1:
		_ = t.Set(syms[0], []byte{0})
		return t
	}

	alphabet := make([]weighted, len(syms))
	for i, s := range syms {
		alphabet[i] = weighted{sym: s, weight: ft.Count(s)}
	}
	slices.SortStableFunc(alphabet, func(a, b weighted) int {
		switch {
		case a.weight > b.weight:
			return -1
		case a.weight < b.weight:
			return 1
		}
		return 0
	})

	codes := make([][]byte, len(alphabet))
	var split func(low, high int)
	split = func(low, high int) {
		if low >= high {
			return
		}
		mid := partition(alphabet, low, high)
		for i := low; i <= high; i++ {
			if i <= mid {
				codes[i] = append(codes[i], 0)
			} else {
				codes[i] = append(codes[i], 1)
			}
		}
		split(low, mid)
		split(mid+1, high)
	}
	split(0, len(alphabet)-1)

	for i, w := range alphabet {
		_ = t.Set(w.sym, codes[i])
	}
	return t
}

// partition returns the index of the last element of the upper part of
// alphabet[low:high+1]. The result is always in [low, high).
func partition(alphabet []weighted, low, high int) int {
	var front, back uint64
	for low <= high {
		front += alphabet[low].weight
		low++
		for front > back {
			back += alphabet[high].weight
			high--
			if low > high {
				break
			}
		}
	}
	return low - 1
}
