package vault

import (
	"context"
	"fmt"
	"math/bits"
	"sync"

	"github.com/gagliardetto/solana-go"
)

type account struct {
	owner solana.PublicKey
	mint  solana.PublicKey
}

// Ledger is an in memory Transferer. Balances are keyed by (owner, mint).
type Ledger struct {
	mu       sync.Mutex
	balances map[account]uint64
	failNext []error
}

var _ Transferer = (*Ledger)(nil)

func NewLedger() *Ledger {
	return &Ledger{balances: map[account]uint64{}}
}

// Deposit credits owner with amount of mint
func (l *Ledger) Deposit(owner, mint solana.PublicKey, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.credit(account{owner, mint}, amount)
}

func (l *Ledger) credit(a account, amount uint64) error {
	sum, carry := bits.Add64(l.balances[a], amount, 0)
	if carry != 0 {
		return fmt.Errorf("%w: %s", ErrBalanceOverflow, a.owner)
	}
	l.balances[a] = sum
	return nil
}

func (l *Ledger) BalanceOf(owner, mint solana.PublicKey) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account{owner, mint}]
}

// FailNext makes the next Transfer fail with err without moving anything.
// Calls queue, each failure is consumed by one Transfer.
func (l *Ledger) FailNext(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failNext = append(l.failNext, err)
}

func (l *Ledger) Balance(ctx context.Context, grant Grant) (uint64, error) {
	if !grant.Valid() {
		return 0, ErrInvalidGrant
	}
	return l.BalanceOf(grant.Epoch, grant.Mint), nil
}

func (l *Ledger) Transfer(ctx context.Context, grant Grant, to solana.PublicKey, amount uint64) error {
	if !grant.Valid() {
		return ErrInvalidGrant
	}
	if amount == 0 {
		return ErrZeroAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.failNext) > 0 {
		err := l.failNext[0]
		l.failNext = l.failNext[1:]
		return err
	}

	from := account{grant.Epoch, grant.Mint}
	if l.balances[from] < amount {
		return fmt.Errorf("%w: vault %s holds %d, need %d",
			ErrInsufficientBalance, grant.Epoch, l.balances[from], amount)
	}
	dst := account{to, grant.Mint}
	// check the credit first so a failure leaves both balances untouched
	if _, carry := bits.Add64(l.balances[dst], amount, 0); carry != 0 {
		return fmt.Errorf("%w: %s", ErrBalanceOverflow, to)
	}
	l.balances[from] -= amount
	return l.credit(dst, amount)
}
