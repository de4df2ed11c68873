package merkle

import (
	"crypto/sha256"
	"fmt"
	"hash"
)

// Tree is a fully materialized sorted pair tree. It is intended for the
// publisher of a distribution, which needs every proof, verifiers only need
// the root.
//
// levels[0] holds the leaves in the order provided, levels[len-1] holds the
// root.
type Tree struct {
	levels [][]Digest
}

// NewTree builds the tree over leaves using sha256
func NewTree(leaves []Digest) (*Tree, error) {
	return NewTreeWith(sha256.New(), leaves)
}

// NewTreeWith builds the tree over leaves using the provided hasher.
//
// Adjacent pairs are combined with HashSortedPair. When a level has an odd
// number of nodes the last node is promoted to the next level unchanged.
func NewTreeWith(hasher hash.Hash, leaves []Digest) (*Tree, error) {
	if len(leaves) == 0 {
		return nil, ErrEmptyTree
	}

	level := make([]Digest, len(leaves))
	copy(level, leaves)

	t := &Tree{levels: [][]Digest{level}}
	for len(level) > 1 {
		next := make([]Digest, 0, (len(level)+1)/2)
		for i := 0; i+1 < len(level); i += 2 {
			next = append(next, HashSortedPair(hasher, level[i], level[i+1]))
		}
		if len(level)%2 == 1 {
			next = append(next, level[len(level)-1])
		}
		t.levels = append(t.levels, next)
		level = next
	}
	return t, nil
}

// Root returns the root of the tree
func (t *Tree) Root() Digest {
	top := t.levels[len(t.levels)-1]
	return top[0]
}

// LeafCount returns the number of leaves the tree was built from
func (t *Tree) LeafCount() int {
	return len(t.levels[0])
}

// Height returns the number of levels above the leaves
func (t *Tree) Height() int {
	return len(t.levels) - 1
}

// Leaf returns the leaf at position i
func (t *Tree) Leaf(i int) (Digest, error) {
	if i < 0 || i >= len(t.levels[0]) {
		return Digest{}, fmt.Errorf("%w: %d", ErrLeafRange, i)
	}
	return t.levels[0][i], nil
}

// Proof returns the sibling path for the leaf at position i. Levels where the
// node was promoted without a sibling contribute nothing to the path, so proofs
// in the same tree can differ in length.
func (t *Tree) Proof(i int) ([]Digest, error) {
	if i < 0 || i >= len(t.levels[0]) {
		return nil, fmt.Errorf("%w: %d", ErrLeafRange, i)
	}

	var proof []Digest
	pos := i
	for _, level := range t.levels[:len(t.levels)-1] {
		sibling := pos ^ 1
		if sibling < len(level) {
			proof = append(proof, level[sibling])
		}
		pos >>= 1
	}
	return proof, nil
}
