// Package merkle stands in for the binary/sparse Merkle-tree primitives
// spec.md §1 assumes are available as a library and explicitly places out
// of this core's scope. It defines the narrow Tree contract the genesis
// importer and executor need (accumulate leaves, read the current root)
// behind an interface, with a minimal same-shape implementation: callers
// never depend on a specific hashing/accumulation scheme, so swapping in a
// real binary-Merkle library is a one-file change.
package merkle

import "github.com/fuelnet/fuelnode/common"

// Tree accumulates leaves in insertion order and exposes the running root,
// the shape both the genesis importer's per-category roots (§4.6) and the
// executor's per-block transaction and output-message roots need.
type Tree interface {
	Push(leaf []byte)
	Root() common.Hash
	NumLeaves() uint64
}

// binaryTree is a minimal same-shape stand-in: it keeps every leaf hash and
// folds them pairwise, duplicating a dangling last leaf, the conventional
// binary Merkle accumulation shape. It is not tuned for incremental,
// sparse, or memory-bounded operation the way a production library would
// be.
type binaryTree struct {
	leaves [][]byte
}

func NewTree() Tree { return &binaryTree{} }

func (t *binaryTree) Push(leaf []byte) {
	t.leaves = append(t.leaves, common.Hash256(leaf).Bytes())
}

func (t *binaryTree) NumLeaves() uint64 { return uint64(len(t.leaves)) }

func (t *binaryTree) Root() common.Hash {
	if len(t.leaves) == 0 {
		return common.Hash{}
	}
	level := make([][]byte, len(t.leaves))
	copy(level, t.leaves)
	for len(level) > 1 {
		var next [][]byte
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next = append(next, common.Hash256(append(append([]byte{}, level[i]...), level[i]...)).Bytes())
				continue
			}
			next = append(next, common.Hash256(append(append([]byte{}, level[i]...), level[i+1]...)).Bytes())
		}
		level = next
	}
	return common.BytesToHash(level[0])
}
