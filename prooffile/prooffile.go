// Package prooffile is the distribution file handed to claimants. It holds,
// for every allocation, the leaf values and the Merkle proof needed to claim.
package prooffile

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"math/bits"
	"sort"

	dtcbor "github.com/datatrails/go-datatrails-common/cbor"
	"github.com/forestrie/go-merkledrop/airdrop"
	"github.com/forestrie/go-merkledrop/merkle"
	"github.com/gagliardetto/solana-go"
)

const FormatVersion = 1

var (
	ErrNoAllocations      = errors.New("a distribution needs at least one allocation")
	ErrDuplicateIndex     = errors.New("allocation index is repeated")
	ErrZeroAmount         = errors.New("allocation amount is zero")
	ErrTotalOverflow      = errors.New("allocation total overflows u64")
	ErrIndexNotFound      = errors.New("no allocation for index")
	ErrUnsupportedVersion = errors.New("unsupported proof file version")
	ErrCorruptFile        = errors.New("proof file is inconsistent")
)

type Allocation struct {
	Index     uint32
	Recipient solana.PublicKey
	Amount    uint64
}

// Entry is one claimable allocation and its proof
type Entry struct {
	Index     uint32   `cbor:"1,keyasint"`
	Recipient []byte   `cbor:"2,keyasint"`
	Amount    uint64   `cbor:"3,keyasint"`
	Proof     [][]byte `cbor:"4,keyasint"`
}

// File is a complete distribution. Entries are in index order, which is also
// the leaf order of the tree.
type File struct {
	Version     uint32  `cbor:"1,keyasint"`
	Mint        []byte  `cbor:"2,keyasint"`
	EpochID     uint64  `cbor:"3,keyasint"`
	Root        []byte  `cbor:"4,keyasint"`
	TotalAmount uint64  `cbor:"5,keyasint"`
	Entries     []Entry `cbor:"6,keyasint"`
}

func (e Entry) Digests() ([]merkle.Digest, error) {
	return merkle.DigestsFromBytes(e.Proof)
}

func (e Entry) RecipientKey() (solana.PublicKey, error) {
	if len(e.Recipient) != solana.PublicKeyLength {
		return solana.PublicKey{}, fmt.Errorf("%w: recipient is %d bytes", ErrCorruptFile, len(e.Recipient))
	}
	return solana.PublicKeyFromBytes(e.Recipient), nil
}

// ClaimRequest returns the request that claims this entry in the epoch key
func (e Entry) ClaimRequest(key airdrop.EpochKey) (airdrop.ClaimRequest, error) {
	recipient, err := e.RecipientKey()
	if err != nil {
		return airdrop.ClaimRequest{}, err
	}
	proof, err := e.Digests()
	if err != nil {
		return airdrop.ClaimRequest{}, err
	}
	return airdrop.ClaimRequest{
		Key:       key,
		Index:     e.Index,
		Recipient: recipient,
		Amount:    e.Amount,
		Proof:     proof,
	}, nil
}

// Build sorts allocs by index and commits to them. The input is not modified.
func Build(mint solana.PublicKey, epochID uint64, allocs []Allocation) (*File, error) {
	if len(allocs) == 0 {
		return nil, ErrNoAllocations
	}
	sorted := append([]Allocation(nil), allocs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	var total uint64
	leaves := make([]merkle.Digest, len(sorted))
	for i, a := range sorted {
		if i > 0 && sorted[i-1].Index == a.Index {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateIndex, a.Index)
		}
		if a.Amount == 0 {
			return nil, fmt.Errorf("%w: index %d", ErrZeroAmount, a.Index)
		}
		var carry uint64
		total, carry = bits.Add64(total, a.Amount, 0)
		if carry != 0 {
			return nil, fmt.Errorf("%w: at index %d", ErrTotalOverflow, a.Index)
		}
		leaves[i] = merkle.LeafHash(a.Index, a.Recipient, a.Amount)
	}

	tree, err := merkle.NewTree(leaves)
	if err != nil {
		return nil, err
	}
	root := tree.Root()

	f := &File{
		Version:     FormatVersion,
		Mint:        mint.Bytes(),
		EpochID:     epochID,
		Root:        root[:],
		TotalAmount: total,
		Entries:     make([]Entry, len(sorted)),
	}
	for i, a := range sorted {
		proof, err := tree.Proof(i)
		if err != nil {
			return nil, err
		}
		f.Entries[i] = Entry{
			Index:     a.Index,
			Recipient: a.Recipient.Bytes(),
			Amount:    a.Amount,
			Proof:     merkle.DigestsToBytes(proof),
		}
	}
	return f, nil
}

func (f *File) RootDigest() (merkle.Digest, error) {
	return merkle.DigestFromBytes(f.Root)
}

func (f *File) EpochKey() (airdrop.EpochKey, error) {
	if len(f.Mint) != solana.PublicKeyLength {
		return airdrop.EpochKey{}, fmt.Errorf("%w: mint is %d bytes", ErrCorruptFile, len(f.Mint))
	}
	return airdrop.EpochKey{Mint: solana.PublicKeyFromBytes(f.Mint), ID: f.EpochID}, nil
}

// Lookup finds the entry for a leaf index
func (f *File) Lookup(index uint32) (Entry, error) {
	i := sort.Search(len(f.Entries), func(i int) bool { return f.Entries[i].Index >= index })
	if i == len(f.Entries) || f.Entries[i].Index != index {
		return Entry{}, fmt.Errorf("%w: %d", ErrIndexNotFound, index)
	}
	return f.Entries[i], nil
}

// Verify checks that the entry is included under the file root
func (f *File) Verify(e Entry) error {
	root, err := f.RootDigest()
	if err != nil {
		return err
	}
	recipient, err := e.RecipientKey()
	if err != nil {
		return err
	}
	proof, err := e.Digests()
	if err != nil {
		return err
	}
	leaf := merkle.LeafHash(e.Index, recipient, e.Amount)
	return merkle.VerifyInclusion(sha256.New(), leaf, proof, root)
}

// Manifest returns the manifest the publisher signs for this distribution.
// authority is the only identity allowed to initialize the epoch from it.
// timestamp is unix milliseconds.
func (f *File) Manifest(programID, authority solana.PublicKey, timestamp int64) airdrop.Manifest {
	return airdrop.Manifest{
		ProgramID:   programID.Bytes(),
		Authority:   authority.Bytes(),
		Mint:        append([]byte(nil), f.Mint...),
		EpochID:     f.EpochID,
		Root:        append([]byte(nil), f.Root...),
		TotalAmount: f.TotalAmount,
		LeafCount:   uint64(len(f.Entries)),
		Timestamp:   timestamp,
	}
}

func NewCodec() (dtcbor.CBORCodec, error) {
	return dtcbor.NewCBORCodec(
		dtcbor.NewDeterministicEncOpts(),
		dtcbor.NewDeterministicDecOpts(),
	)
}

func Encode(codec dtcbor.CBORCodec, f *File) ([]byte, error) {
	return codec.MarshalCBOR(f)
}

// Decode decodes a proof file and checks that it is internally consistent.
// Proofs are not verified, use Verify for the entries of interest.
func Decode(codec dtcbor.CBORCodec, data []byte) (*File, error) {
	f := &File{}
	if err := codec.UnmarshalInto(data, f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptFile, err)
	}
	if f.Version != FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, f.Version)
	}
	if _, err := f.EpochKey(); err != nil {
		return nil, err
	}
	if _, err := f.RootDigest(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptFile, err)
	}
	for i := 1; i < len(f.Entries); i++ {
		if f.Entries[i-1].Index >= f.Entries[i].Index {
			return nil, fmt.Errorf("%w: entries are not in index order at %d", ErrCorruptFile, i)
		}
	}
	return f, nil
}
