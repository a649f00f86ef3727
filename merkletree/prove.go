package merkletree

import (
	"bytes"
	"fmt"
	"hash"
)

// Prove builds a Merkle inclusion proof for leaves[index], using the same
// padding and domain-separation rules as Root. The proof is the list of
// sibling hashes encountered walking from the leaf up to the root, in that
// order; VerifyProof replays exactly that walk.
func Prove(newHash func() hash.Hash, leaves [][]byte, index int) (root []byte, proof [][]byte, numLeaves int, err error) {
	numLeaves = len(leaves)
	if index < 0 || index >= numLeaves {
		return nil, nil, numLeaves, fmt.Errorf("merkletree: index %d out of range for %d leaves", index, numLeaves)
	}

	h := newHash()
	level := make([][]byte, numLeaves)
	for i, leaf := range leaves {
		level[i] = sum(h, leafDomain, leaf)
	}

	idx := index
	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		proof = append(proof, level[idx^1])

		next := make([][]byte, len(level)/2)
		for i := range next {
			next[i] = sum(h, internalDomain, level[2*i], level[2*i+1])
		}
		level = next
		idx /= 2
	}
	root = level[0]
	return
}

// VerifyProof reports whether leaf is present at index in a tree of
// numLeaves leaves whose root is root, given the sibling set produced by
// Prove.
func VerifyProof(newHash func() hash.Hash, leaf []byte, proof [][]byte, index, numLeaves int, root []byte) bool {
	if index < 0 || index >= numLeaves {
		return false
	}
	h := newHash()
	cur := sum(h, leafDomain, leaf)

	idx := index
	for _, sibling := range proof {
		if idx%2 == 0 {
			cur = sum(h, internalDomain, cur, sibling)
		} else {
			cur = sum(h, internalDomain, sibling, cur)
		}
		idx /= 2
	}
	return bytes.Equal(cur, root)
}
