package merkle

import (
	"crypto/sha256"
	"hash"
)

// LeafHash returns the leaf committing a single claim
//
//	SHA-256( le32(index) || recipient || le64(amount) )
func LeafHash(index uint32, recipient [32]byte, amount uint64) Digest {
	return LeafHashWith(sha256.New(), index, recipient, amount)
}

// LeafHashWith computes the leaf using the provided hasher.
// ** the hasher is reset **
func LeafHashWith(hasher hash.Hash, index uint32, recipient [32]byte, amount uint64) Digest {
	hasher.Reset()
	HashWriteUint32(hasher, index)
	hasher.Write(recipient[:])
	HashWriteUint64(hasher, amount)
	return sum(hasher)
}

// HashSortedPair returns H(min(a, b) || max(a, b))
// ** the hasher is reset **
func HashSortedPair(hasher hash.Hash, a, b Digest) Digest {
	hasher.Reset()
	if b.Less(a) {
		a, b = b, a
	}
	hasher.Write(a[:])
	hasher.Write(b[:])
	return sum(hasher)
}

func sum(hasher hash.Hash) Digest {
	var d Digest
	// Sum appends to the provided slice, using the array backing store avoids
	// an allocation per node.
	hasher.Sum(d[:0])
	return d
}
