package airdrop

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/forestrie/go-merkledrop/bitmap"
	"github.com/forestrie/go-merkledrop/merkle"
	"github.com/gagliardetto/solana-go"
)

const (
	// EpochRecordBytes is the size of a marshaled epoch
	EpochRecordBytes = 32 + 32 + 32 + 8 + 8 + 1 + 1

	// DiscriminatorBytes is the size of the account type tag that prefixes
	// account data when AccountFraming is enabled.
	DiscriminatorBytes = 8
)

const (
	offAuthority    = 0
	offMint         = offAuthority + 32
	offRoot         = offMint + 32
	offTotalAmount  = offRoot + merkle.DigestBytes
	offTotalClaimed = offTotalAmount + 8
	offPaused       = offTotalClaimed + 8
	offBump         = offPaused + 1
)

var (
	epochDiscriminator = accountDiscriminator("Epoch")
	pageDiscriminator  = accountDiscriminator("ClaimedBitmapPage")
)

func accountDiscriminator(name string) [DiscriminatorBytes]byte {
	var d [DiscriminatorBytes]byte
	sum := sha256.Sum256([]byte("account:" + name))
	copy(d[:], sum[:DiscriminatorBytes])
	return d
}

// Epoch is one distribution campaign
type Epoch struct {
	Authority    solana.PublicKey
	Mint         solana.PublicKey
	MerkleRoot   merkle.Digest
	TotalAmount  uint64
	TotalClaimed uint64
	Paused       bool
	// Bump binds the record to the address derived from (mint, epoch id)
	Bump uint8
}

// Remaining returns the amount not yet claimed. It is zero, not negative,
// if the epoch has been over claimed.
func (e *Epoch) Remaining() uint64 {
	if e.TotalClaimed >= e.TotalAmount {
		return 0
	}
	return e.TotalAmount - e.TotalClaimed
}

func (e *Epoch) MarshalBinary() ([]byte, error) {
	b := make([]byte, EpochRecordBytes)
	copy(b[offAuthority:offMint], e.Authority[:])
	copy(b[offMint:offRoot], e.Mint[:])
	copy(b[offRoot:offTotalAmount], e.MerkleRoot[:])
	binary.LittleEndian.PutUint64(b[offTotalAmount:offTotalClaimed], e.TotalAmount)
	binary.LittleEndian.PutUint64(b[offTotalClaimed:offPaused], e.TotalClaimed)
	if e.Paused {
		b[offPaused] = 1
	}
	b[offBump] = e.Bump
	return b, nil
}

func (e *Epoch) UnmarshalBinary(b []byte) error {
	if len(b) != EpochRecordBytes {
		return fmt.Errorf("%w: epoch record is %d bytes, want %d", ErrCorruptRecord, len(b), EpochRecordBytes)
	}
	if b[offPaused] > 1 {
		return fmt.Errorf("%w: paused flag %d", ErrCorruptRecord, b[offPaused])
	}
	copy(e.Authority[:], b[offAuthority:offMint])
	copy(e.Mint[:], b[offMint:offRoot])
	copy(e.MerkleRoot[:], b[offRoot:offTotalAmount])
	e.TotalAmount = binary.LittleEndian.Uint64(b[offTotalAmount:offTotalClaimed])
	e.TotalClaimed = binary.LittleEndian.Uint64(b[offTotalClaimed:offPaused])
	e.Paused = b[offPaused] == 1
	e.Bump = b[offBump]
	return nil
}

func frameAccount(disc [DiscriminatorBytes]byte, record []byte) []byte {
	return append(disc[:], record...)
}

func unframeAccount(disc [DiscriminatorBytes]byte, data []byte) ([]byte, error) {
	if len(data) < DiscriminatorBytes || !bytes.Equal(data[:DiscriminatorBytes], disc[:]) {
		return nil, fmt.Errorf("%w: account discriminator mismatch", ErrCorruptRecord)
	}
	return data[DiscriminatorBytes:], nil
}

// EncodeEpochAccount returns the epoch in account data form: the 8 byte
// account discriminator followed by the record.
func EncodeEpochAccount(e *Epoch) ([]byte, error) {
	record, err := e.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return frameAccount(epochDiscriminator, record), nil
}

// DecodeEpochAccount decodes account data produced by EncodeEpochAccount.
// Trailing bytes after the record are allowed, deployed accounts reserve
// space beyond it.
func DecodeEpochAccount(data []byte) (*Epoch, error) {
	record, err := unframeAccount(epochDiscriminator, data)
	if err != nil {
		return nil, err
	}
	if len(record) < EpochRecordBytes {
		return nil, fmt.Errorf("%w: epoch account is too short", ErrCorruptRecord)
	}
	e := &Epoch{}
	if err := e.UnmarshalBinary(record[:EpochRecordBytes]); err != nil {
		return nil, err
	}
	return e, nil
}

// EncodePageAccount returns the page in account data form
func EncodePageAccount(p *bitmap.Page) ([]byte, error) {
	record, err := p.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return frameAccount(pageDiscriminator, record), nil
}

// DecodePageAccount decodes account data produced by EncodePageAccount
func DecodePageAccount(data []byte) (*bitmap.Page, error) {
	record, err := unframeAccount(pageDiscriminator, data)
	if err != nil {
		return nil, err
	}
	if len(record) < bitmap.PageRecordBytes {
		return nil, fmt.Errorf("%w: page account is too short", ErrCorruptRecord)
	}
	return bitmap.DecodePage(record[:bitmap.PageRecordBytes])
}

// recordCodec selects between the bare record layouts and account framing for
// everything the engine persists.
type recordCodec struct {
	framed bool
}

func (c recordCodec) encodeEpoch(e *Epoch) ([]byte, error) {
	if c.framed {
		return EncodeEpochAccount(e)
	}
	return e.MarshalBinary()
}

func (c recordCodec) decodeEpoch(data []byte) (*Epoch, error) {
	if c.framed {
		return DecodeEpochAccount(data)
	}
	e := &Epoch{}
	if err := e.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return e, nil
}

func (c recordCodec) encodePage(p *bitmap.Page) ([]byte, error) {
	if c.framed {
		return EncodePageAccount(p)
	}
	return p.MarshalBinary()
}

func (c recordCodec) decodePage(data []byte) (*bitmap.Page, error) {
	if c.framed {
		return DecodePageAccount(data)
	}
	p, err := bitmap.DecodePage(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	return p, nil
}
