package merkle

import (
	"crypto/sha256"
	"fmt"
	"hash"
)

// CheckProofLen returns ErrProofTooLarge if the proof exceeds MaxProofLen
func CheckProofLen(proof []Digest) error {
	if len(proof) > MaxProofLen {
		return fmt.Errorf("%w: %d > %d", ErrProofTooLarge, len(proof), MaxProofLen)
	}
	return nil
}

// Verify returns true if folding proof over leaf with the sorted pair rule
// reproduces root. It never errors, a proof longer than MaxProofLen is simply
// false.
func Verify(leaf Digest, proof []Digest, root Digest) bool {
	if len(proof) > MaxProofLen {
		return false
	}
	return VerifyWith(sha256.New(), leaf, proof, root)
}

// VerifyWith is Verify using the provided hasher. The length bound is checked
// before the hasher is touched.
func VerifyWith(hasher hash.Hash, leaf Digest, proof []Digest, root Digest) bool {
	if len(proof) > MaxProofLen {
		return false
	}
	return IncludedRoot(hasher, leaf, proof) == root
}

// IncludedRoot folds the proof left to right over leaf and returns the
// resulting root. No length checks are made, callers wanting the bound should
// use VerifyWith or CheckProofLen.
//
// Arguments:
//   - leaf is the value whose inclusion is to be shown
//   - proof is the path of sibling values from the leaf level upwards
func IncludedRoot(hasher hash.Hash, leaf Digest, proof []Digest) Digest {
	current := leaf
	for _, sibling := range proof {
		current = HashSortedPair(hasher, current, sibling)
	}
	return current
}

// VerifyInclusion is the error returning form of Verify, for callers that
// prefer to propagate a reason.
func VerifyInclusion(hasher hash.Hash, leaf Digest, proof []Digest, root Digest) error {
	if err := CheckProofLen(proof); err != nil {
		return err
	}
	got := IncludedRoot(hasher, leaf, proof)
	if got != root {
		return fmt.Errorf("%w: proven %s, expected %s", ErrVerifyFailed, got, root)
	}
	return nil
}
