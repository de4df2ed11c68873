package airdrop

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	dtcbor "github.com/datatrails/go-datatrails-common/cbor"
	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/forestrie/go-merkledrop/merkle"
	"github.com/gagliardetto/solana-go"
)

const (
	KindEpochInitialized      = "EpochInitialized"
	KindAirdropClaimed        = "AirdropClaimed"
	KindEpochSwept            = "EpochSwept"
	KindEpochPaused           = "EpochPaused"
	KindEpochAuthorityChanged = "EpochAuthorityChanged"
)

// maxJournalRecord bounds a single decoded journal record
const maxJournalRecord = 1 << 16

type Event interface {
	Kind() string
	journal() JournalRecord
}

type EpochInitialized struct {
	Epoch       solana.PublicKey
	Authority   solana.PublicKey
	Mint        solana.PublicKey
	TotalAmount uint64
	MerkleRoot  merkle.Digest
	EpochID     uint64
}

type AirdropClaimed struct {
	Epoch     solana.PublicKey
	Recipient solana.PublicKey
	Index     uint32
	Amount    uint64
	PageIndex uint32
	ByteIndex uint32
	BitIndex  uint8
}

type EpochSwept struct {
	Epoch  solana.PublicKey
	To     solana.PublicKey
	Amount uint64
}

type EpochPaused struct {
	Epoch  solana.PublicKey
	Paused bool
}

type EpochAuthorityChanged struct {
	Epoch        solana.PublicKey
	NewAuthority solana.PublicKey
}

func (EpochInitialized) Kind() string      { return KindEpochInitialized }
func (AirdropClaimed) Kind() string        { return KindAirdropClaimed }
func (EpochSwept) Kind() string            { return KindEpochSwept }
func (EpochPaused) Kind() string           { return KindEpochPaused }
func (EpochAuthorityChanged) Kind() string { return KindEpochAuthorityChanged }

// JournalRecord is the flattened, serializable form of every event. Account
// holds the second identity of the event: the authority, recipient, sweep
// destination or new authority.
type JournalRecord struct {
	Kind      string `cbor:"1,keyasint"`
	Epoch     []byte `cbor:"2,keyasint"`
	Account   []byte `cbor:"3,keyasint,omitempty"`
	Mint      []byte `cbor:"4,keyasint,omitempty"`
	Amount    uint64 `cbor:"5,keyasint,omitempty"`
	Root      []byte `cbor:"6,keyasint,omitempty"`
	EpochID   uint64 `cbor:"7,keyasint,omitempty"`
	Index     uint32 `cbor:"8,keyasint,omitempty"`
	PageIndex uint32 `cbor:"9,keyasint,omitempty"`
	ByteIndex uint32 `cbor:"10,keyasint,omitempty"`
	BitIndex  uint8  `cbor:"11,keyasint,omitempty"`
	Paused    bool   `cbor:"12,keyasint,omitempty"`
}

func (e EpochInitialized) journal() JournalRecord {
	return JournalRecord{
		Kind: e.Kind(), Epoch: e.Epoch.Bytes(), Account: e.Authority.Bytes(), Mint: e.Mint.Bytes(),
		Amount: e.TotalAmount, Root: append([]byte(nil), e.MerkleRoot[:]...), EpochID: e.EpochID,
	}
}

func (e AirdropClaimed) journal() JournalRecord {
	return JournalRecord{
		Kind: e.Kind(), Epoch: e.Epoch.Bytes(), Account: e.Recipient.Bytes(), Amount: e.Amount,
		Index: e.Index, PageIndex: e.PageIndex, ByteIndex: e.ByteIndex, BitIndex: e.BitIndex,
	}
}

func (e EpochSwept) journal() JournalRecord {
	return JournalRecord{Kind: e.Kind(), Epoch: e.Epoch.Bytes(), Account: e.To.Bytes(), Amount: e.Amount}
}

func (e EpochPaused) journal() JournalRecord {
	return JournalRecord{Kind: e.Kind(), Epoch: e.Epoch.Bytes(), Paused: e.Paused}
}

func (e EpochAuthorityChanged) journal() JournalRecord {
	return JournalRecord{Kind: e.Kind(), Epoch: e.Epoch.Bytes(), Account: e.NewAuthority.Bytes()}
}

// EventSink receives events after the state change they describe has been
// committed. Emit errors are logged by the caller, they never undo the state
// change.
type EventSink interface {
	Emit(ctx context.Context, ev Event) error
}

type NopSink struct{}

func (NopSink) Emit(context.Context, Event) error { return nil }

// LogSink writes events to the log
type LogSink struct {
	Log logger.Logger
}

func (s LogSink) Emit(ctx context.Context, ev Event) error {
	s.Log.Infof("%s: %+v", ev.Kind(), ev)
	return nil
}

// CBORSink appends events to w as a journal of length prefixed deterministic
// CBOR records. It is safe for concurrent use.
type CBORSink struct {
	mu    sync.Mutex
	w     io.Writer
	codec dtcbor.CBORCodec
}

func NewCBORSink(w io.Writer, codec dtcbor.CBORCodec) *CBORSink {
	return &CBORSink{w: w, codec: codec}
}

func (s *CBORSink) Emit(ctx context.Context, ev Event) error {
	data, err := s.codec.MarshalCBOR(ev.journal())
	if err != nil {
		return err
	}
	var prefix [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(prefix[:], uint64(len(data)))

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(prefix[:n]); err != nil {
		return err
	}
	_, err = s.w.Write(data)
	return err
}

// ReadJournal decodes every record written by a CBORSink
func ReadJournal(r io.Reader, codec dtcbor.CBORCodec) ([]JournalRecord, error) {
	br := bufio.NewReader(r)
	var records []JournalRecord
	for {
		n, err := binary.ReadUvarint(br)
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
		if n > maxJournalRecord {
			return nil, fmt.Errorf("journal record %d is %d bytes", len(records), n)
		}
		data := make([]byte, n)
		if _, err := io.ReadFull(br, data); err != nil {
			return nil, err
		}
		var rec JournalRecord
		if err := codec.UnmarshalInto(data, &rec); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
}

// MultiSink delivers to every sink, stopping at the first error
type MultiSink []EventSink

func (m MultiSink) Emit(ctx context.Context, ev Event) error {
	for _, s := range m {
		if err := s.Emit(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}
