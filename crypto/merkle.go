package crypto

// merkle.go computes the dataset-wide Merkle root from the set of per-chunk
// BLAKE3 hashes, and proves/verifies that a given chunk hash was part of
// that root. The construction is a balanced binary tree over the leaves in
// chunk order: if a level has an odd number of nodes, the last node is
// duplicated rather than carried up unhashed, and every node (leaf or
// internal) is hashed behind a one-byte domain tag so a leaf digest can
// never collide with an internal digest. See merkletree.Root for the exact
// algorithm.

import (
	"github.com/rTiGd2/ParXive/merkletree"
)

// MerkleRoot calculates the dataset Merkle root from an ordered list of
// per-chunk hashes. Altering any single chunk hash changes the root. The
// leaf count is not bound into the root: appending a copy of the last hash
// to an odd-length list yields the same root.
func MerkleRoot(leaves []Hash) Hash {
	byteLeaves := make([][]byte, len(leaves))
	for i := range leaves {
		byteLeaves[i] = leaves[i][:]
	}
	var root Hash
	copy(root[:], merkletree.Root(NewHash, byteLeaves))
	return root
}

// MerkleProve returns a proof that leaves[index] is part of the tree
// produced by MerkleRoot(leaves).
func MerkleProve(leaves []Hash, index int) (root Hash, proof []Hash, err error) {
	byteLeaves := make([][]byte, len(leaves))
	for i := range leaves {
		byteLeaves[i] = leaves[i][:]
	}
	rootBytes, proofBytes, _, err := merkletree.Prove(NewHash, byteLeaves, index)
	if err != nil {
		return Hash{}, nil, err
	}
	copy(root[:], rootBytes)
	proof = make([]Hash, len(proofBytes))
	for i, p := range proofBytes {
		copy(proof[i][:], p)
	}
	return root, proof, nil
}

// VerifyMerkleProof reports whether leaf is present at index out of
// numLeaves total leaves, given a proof produced by MerkleProve.
func VerifyMerkleProof(leaf Hash, proof []Hash, index, numLeaves int, root Hash) bool {
	proofBytes := make([][]byte, len(proof))
	for i := range proof {
		proofBytes[i] = proof[i][:]
	}
	return merkletree.VerifyProof(NewHash, leaf[:], proofBytes, index, numLeaves, root[:])
}
