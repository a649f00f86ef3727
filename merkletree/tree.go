// Package merkletree builds the dataset-wide integrity summary described by
// the manifest's merkle_root field. Unlike a streaming incremental tree, this
// construction needs the full leaf count before it can hash the first
// internal node, because the "last leaf is duplicated when a level is odd"
// rule depends on knowing whether the current level is complete. The leaf
// set is therefore buffered (one 32-byte hash per chunk) and the tree is
// built level by level once Root is called.
//
// Every node, leaf or internal, is hashed with a one-byte domain separator
// prepended: 0x00 for leaves, 0x01 for internal nodes. This prevents a leaf
// hash from ever being mistaken for (or substituted by) an internal node
// hash, which is what makes the root a binding commitment to both the
// chunk hashes and the tree's shape.
package merkletree

import "hash"

const (
	leafDomain     = 0x00
	internalDomain = 0x01
)

// A Tree accumulates leaves and, once building is complete, computes a
// balanced Merkle root over them with the domain-separation and
// last-leaf-duplication rules described above.
type Tree struct {
	newHash func() hash.Hash
	leaves  [][]byte
}

// New initializes a Tree. newHash is called once per Root or Prove call, and
// the returned hasher is Reset between nodes, so it must be safe to call
// repeatedly (e.g. crypto.NewHash).
func New(newHash func() hash.Hash) *Tree {
	return &Tree{newHash: newHash}
}

// Push adds a leaf (already the hash of its chunk) to the tree.
func (t *Tree) Push(leaf []byte) {
	cp := make([]byte, len(leaf))
	copy(cp, leaf)
	t.leaves = append(t.leaves, cp)
}

// NumLeaves returns the number of leaves pushed so far.
func (t *Tree) NumLeaves() int {
	return len(t.leaves)
}

// Root computes the Merkle root of every leaf pushed so far. It does not
// alter or clear the Tree's leaf set; calling it more than once, or after
// further Pushes, is well defined.
func (t *Tree) Root() []byte {
	return Root(t.newHash, t.leaves)
}

// Prove returns the root and the sibling set ("proof") needed to show that
// leaves[index] is part of the tree rooted at Root(). The proof is ordered
// from the leaf's sibling upward to the top of the tree.
func (t *Tree) Prove(index int) (root []byte, proof [][]byte, numLeaves int, err error) {
	return Prove(t.newHash, t.leaves, index)
}

func sum(h hash.Hash, domain byte, parts ...[]byte) []byte {
	h.Reset()
	h.Write([]byte{domain})
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

// Root computes the domain-separated, last-leaf-duplicating Merkle root of
// leaves. It returns nil if leaves is empty.
func Root(newHash func() hash.Hash, leaves [][]byte) []byte {
	if len(leaves) == 0 {
		return nil
	}
	h := newHash()

	level := make([][]byte, len(leaves))
	for i, leaf := range leaves {
		level[i] = sum(h, leafDomain, leaf)
	}

	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		next := make([][]byte, len(level)/2)
		for i := range next {
			next[i] = sum(h, internalDomain, level[2*i], level[2*i+1])
		}
		level = next
	}
	return level[0]
}
