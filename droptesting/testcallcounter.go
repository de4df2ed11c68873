package droptesting

import (
	"context"
	"crypto/sha256"
	"hash"
	"sync"

	"github.com/forestrie/go-merkledrop/vault"
	"github.com/gagliardetto/solana-go"
)

type TestCallCounter struct {
	mu          sync.Mutex
	MethodCalls map[string]int
}

func (r *TestCallCounter) IncMethodCall(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.MethodCalls == nil {
		r.MethodCalls = make(map[string]int)
	}
	r.MethodCalls[name]++
	return r.MethodCalls[name]
}

func (r *TestCallCounter) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.MethodCalls = make(map[string]int)
}

func (r *TestCallCounter) MethodCallCount(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.MethodCalls[name]
}

// CountingHasher counts the Write and Sum calls made on a sha256 hash.
type CountingHasher struct {
	hash.Hash
	Counter *TestCallCounter
}

// NewCountingHasherFactory returns a hasher factory whose hashers all record
// their calls on counter.
func NewCountingHasherFactory(counter *TestCallCounter) func() hash.Hash {
	return func() hash.Hash {
		return &CountingHasher{Hash: sha256.New(), Counter: counter}
	}
}

func (h *CountingHasher) Write(p []byte) (int, error) {
	h.Counter.IncMethodCall("Write")
	return h.Hash.Write(p)
}

func (h *CountingHasher) Sum(b []byte) []byte {
	h.Counter.IncMethodCall("Sum")
	return h.Hash.Sum(b)
}

// CountingTransferer records the calls made on a vault.Transferer
type CountingTransferer struct {
	TestCallCounter
	Transferer vault.Transferer
}

func (c *CountingTransferer) Balance(ctx context.Context, grant vault.Grant) (uint64, error) {
	c.IncMethodCall("Balance")
	return c.Transferer.Balance(ctx, grant)
}

func (c *CountingTransferer) Transfer(ctx context.Context, grant vault.Grant, to solana.PublicKey, amount uint64) error {
	c.IncMethodCall("Transfer")
	return c.Transferer.Transfer(ctx, grant, to, amount)
}
