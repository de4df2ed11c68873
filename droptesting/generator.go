package droptesting

import (
	"crypto/sha256"
	"encoding/binary"
	"math/rand"
	"testing"

	"github.com/forestrie/go-merkledrop/merkle"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

// Key returns a deterministic identity for label. It is not a valid ed25519
// point, which is irrelevant for recipients and mints.
func Key(label string) solana.PublicKey {
	h := sha256.Sum256([]byte(label))
	return solana.PublicKeyFromBytes(h[:])
}

// NumberedKey is Key for the label "key" || le64(i)
func NumberedKey(i uint64) solana.PublicKey {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], i)
	h := sha256.Sum256(append([]byte("key"), b[:]...))
	return solana.PublicKeyFromBytes(h[:])
}

type Allocation struct {
	Index     uint32
	Recipient solana.PublicKey
	Amount    uint64
}

// Distribution is a published tree with every proof available
type Distribution struct {
	Allocations []Allocation
	Tree        *merkle.Tree
	Total       uint64
}

func (d *Distribution) Root() merkle.Digest {
	return d.Tree.Root()
}

// Proof returns the proof for the allocation at position i
func (d *Distribution) Proof(t *testing.T, i int) []merkle.Digest {
	proof, err := d.Tree.Proof(i)
	require.NoError(t, err)
	return proof
}

// NewDistribution builds a distribution over allocs, in the order given. The
// allocation index is what is hashed, the position in allocs is the leaf
// position in the tree.
func NewDistribution(t *testing.T, allocs []Allocation) *Distribution {
	leaves := make([]merkle.Digest, len(allocs))
	var total uint64
	for i, a := range allocs {
		leaves[i] = merkle.LeafHash(a.Index, a.Recipient, a.Amount)
		total += a.Amount
	}
	tree, err := merkle.NewTree(leaves)
	require.NoError(t, err)
	return &Distribution{Allocations: allocs, Tree: tree, Total: total}
}

type GeneratorConfig struct {
	// Seed makes generated distributions repeatable
	Seed      int64
	Count     int
	MinAmount uint64
	MaxAmount uint64
	// IndexStride spaces the allocation indices, a stride of 32768 puts every
	// allocation on its own claim page.
	IndexStride uint32
}

// GenerateDistribution builds a random but repeatable distribution
func GenerateDistribution(t *testing.T, cfg GeneratorConfig) *Distribution {
	if cfg.IndexStride == 0 {
		cfg.IndexStride = 1
	}
	if cfg.MinAmount == 0 {
		cfg.MinAmount = 1
	}
	if cfg.MaxAmount < cfg.MinAmount {
		cfg.MaxAmount = cfg.MinAmount
	}
	r := rand.New(rand.NewSource(cfg.Seed))
	allocs := make([]Allocation, cfg.Count)
	for i := range allocs {
		allocs[i] = Allocation{
			Index:     uint32(i) * cfg.IndexStride,
			Recipient: NumberedKey(r.Uint64()),
			Amount:    cfg.MinAmount + uint64(r.Int63n(int64(cfg.MaxAmount-cfg.MinAmount+1))),
		}
	}
	return NewDistribution(t, allocs)
}
