package merkle

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
)

const (
	// DigestBytes is the width of every leaf, node and root.
	DigestBytes = 32
	// MaxProofLen bounds the number of siblings accepted in a proof.
	MaxProofLen = 64
)

var (
	ErrProofTooLarge = errors.New("merkle proof too large")
	ErrDigestBadSize = errors.New("digest must be 32 bytes")
	ErrEmptyTree     = errors.New("a tree requires at least one leaf")
	ErrLeafRange     = errors.New("leaf index is not in the tree")
	ErrVerifyFailed  = errors.New("merkle proof did not reproduce the root")
	ErrDigestBadHex  = errors.New("digest is not valid hex")
)

// Digest is a sha256 sized leaf, node or root value
type Digest [DigestBytes]byte

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Less reports whether d sorts strictly before o, comparing byte wise
func (d Digest) Less(o Digest) bool {
	return bytes.Compare(d[:], o[:]) < 0
}

// DigestFromBytes copies b into a Digest. b must be exactly DigestBytes long
func DigestFromBytes(b []byte) (Digest, error) {
	var d Digest
	if len(b) != DigestBytes {
		return d, fmt.Errorf("%w: got %d", ErrDigestBadSize, len(b))
	}
	copy(d[:], b)
	return d, nil
}

// ParseDigest decodes a hex encoded digest, an optional 0x prefix is accepted
func ParseDigest(s string) (Digest, error) {
	s = trimHexPrefix(s)
	b, err := hex.DecodeString(s)
	if err != nil {
		return Digest{}, fmt.Errorf("%w: %v", ErrDigestBadHex, err)
	}
	return DigestFromBytes(b)
}

// DigestsFromBytes converts a proof in [][]byte form, as it appears in
// serialized proof files, to Digests.
func DigestsFromBytes(proof [][]byte) ([]Digest, error) {
	out := make([]Digest, len(proof))
	for i, p := range proof {
		d, err := DigestFromBytes(p)
		if err != nil {
			return nil, fmt.Errorf("proof element %d: %w", i, err)
		}
		out[i] = d
	}
	return out, nil
}

// DigestsToBytes is the inverse of DigestsFromBytes
func DigestsToBytes(proof []Digest) [][]byte {
	out := make([][]byte, len(proof))
	for i := range proof {
		out[i] = append([]byte(nil), proof[i][:]...)
	}
	return out
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
