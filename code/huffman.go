package code

import (
	"github.com/seiflotfy/entropack/freq"
	"github.com/seiflotfy/entropack/internal/heap"
)

// huffNode lives in an arena; children are arena indices, -1 for leaves.
type huffNode struct {
	weight      uint64
	sym         byte // 0 for internal nodes
	seq         int  // creation order, the final tie-break
	left, right int
}

// BuildHuffman returns the Huffman code for ft.
//
// Nodes are ordered by (weight, byte value, creation order). The first
// node popped becomes the left child (bit 0) of the merged node. A table
// with a single symbol gets the one-bit codeword 0.
func BuildHuffman(ft *freq.Table) *Table {
	t := &Table{}
	syms := ft.Symbols()
	switch len(syms) {
	case 0:
		return t
	case 1:
		_ = t.Set(syms[0], []byte{0})
		return t
	}

	arena := make([]huffNode, 0, 2*len(syms)-1)
	for _, s := range syms {
		arena = append(arena, huffNode{
			weight: ft.Count(s),
			sym:    s,
			seq:    len(arena),
			left:   -1,
			right:  -1,
		})
	}

	less := func(a, b int) bool {
		x, y := &arena[a], &arena[b]
		if x.weight != y.weight {
			return x.weight < y.weight
		}
		if x.sym != y.sym {
			return x.sym < y.sym
		}
		return x.seq < y.seq
	}

	queue := make([]int, len(arena))
	for i := range queue {
		queue[i] = i
	}
	heap.Init(queue, less)

	for len(queue) > 1 {
		l := heap.Pop(&queue, less)
		r := heap.Pop(&queue, less)
		arena = append(arena, huffNode{
			weight: arena[l].weight + arena[r].weight,
			seq:    len(arena),
			left:   l,
			right:  r,
		})
		heap.Push(&queue, len(arena)-1, less)
	}

	path := make([]byte, 0, 32)
	var walk func(i int)
	walk = func(i int) {
		n := &arena[i]
		if n.left < 0 {
			_ = t.Set(n.sym, path)
			return
		}
		path = append(path, 0)
		walk(n.left)
		path[len(path)-1] = 1
		walk(n.right)
		path = path[:len(path)-1]
	}
	walk(len(arena) - 1)
	return t
}
