package airdrop

import (
	"context"
	"sync"
	"testing"

	"github.com/forestrie/go-merkledrop/droptesting"
	"github.com/forestrie/go-merkledrop/storage"
	"github.com/forestrie/go-merkledrop/vault"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

var testProgramID = droptesting.Key("merkledrop program")

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) Emit(ctx context.Context, ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *recordingSink) Kinds() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kinds []string
	for _, ev := range s.events {
		kinds = append(kinds, ev.Kind())
	}
	return kinds
}

func (s *recordingSink) Last() Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == 0 {
		return nil
	}
	return s.events[len(s.events)-1]
}

type fixtureConfig struct {
	Config
	Store droptesting.StoreKind
	// TotalAmount overrides the distribution total when non zero
	TotalAmount uint64
	// Deposit overrides the vault funding when non zero
	Deposit uint64
	Options []Option
}

type fixture struct {
	tc        droptesting.TestContext
	store     storage.ObjectStore
	d         *Distributor
	ledger    *vault.Ledger
	events    *recordingSink
	authority solana.PublicKey
	key       EpochKey
	addr      solana.PublicKey
	dist      *droptesting.Distribution
}

func newFixture(t *testing.T, dist *droptesting.Distribution, cfg fixtureConfig) *fixture {
	tc := droptesting.NewTestContext(t, droptesting.TestConfig{TestLabelPrefix: "airdrop"})
	if cfg.ProgramID == (solana.PublicKey{}) {
		cfg.ProgramID = testProgramID
	}
	f := &fixture{
		tc:        tc,
		store:     tc.NewStore(cfg.Store),
		ledger:    vault.NewLedger(),
		events:    &recordingSink{},
		authority: droptesting.Key("authority"),
		key:       EpochKey{Mint: droptesting.Key("mint"), ID: 7},
		dist:      dist,
	}
	opts := append([]Option{WithEventSink(f.events)}, cfg.Options...)
	f.d = NewDistributor(tc.Log, f.store, f.ledger, cfg.Config, opts...)

	total := cfg.TotalAmount
	if total == 0 {
		total = dist.Total
	}
	addr, err := f.d.InitializeEpoch(context.Background(), f.authority, EpochParams{
		Key: f.key, MerkleRoot: dist.Root(), TotalAmount: total,
	})
	require.NoError(t, err)
	f.addr = addr

	deposit := cfg.Deposit
	if deposit == 0 {
		deposit = dist.Total
	}
	require.NoError(t, f.ledger.Deposit(addr, f.key.Mint, deposit))
	return f
}

// request returns the correct claim for the allocation at position i
func (f *fixture) request(t *testing.T, i int) ClaimRequest {
	a := f.dist.Allocations[i]
	return ClaimRequest{
		Key:       f.key,
		Index:     a.Index,
		Recipient: a.Recipient,
		Amount:    a.Amount,
		Proof:     f.dist.Proof(t, i),
	}
}

func (f *fixture) epoch(t *testing.T) *Epoch {
	_, e, err := f.d.GetEpoch(context.Background(), f.key)
	require.NoError(t, err)
	return e
}

var (
	recipientA = droptesting.Key("A")
	recipientB = droptesting.Key("B")
	recipientC = droptesting.Key("C")
)

func threeLeafDistribution(t *testing.T) *droptesting.Distribution {
	return droptesting.NewDistribution(t, []droptesting.Allocation{
		{Index: 0, Recipient: recipientA, Amount: 100},
		{Index: 1, Recipient: recipientB, Amount: 200},
		{Index: 2, Recipient: recipientC, Amount: 300},
	})
}
