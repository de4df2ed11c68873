package vault

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func key(b byte) solana.PublicKey {
	var k solana.PublicKey
	k[0] = b
	k[31] = b
	return k
}

func TestLedgerTransfer(t *testing.T) {
	ctx := context.Background()
	l := NewLedger()
	epoch, mint, alice := key(1), key(2), key(3)
	grant := Grant{Epoch: epoch, Mint: mint}

	require.NoError(t, l.Deposit(epoch, mint, 600))

	bal, err := l.Balance(ctx, grant)
	require.NoError(t, err)
	assert.Equal(t, uint64(600), bal)

	require.NoError(t, l.Transfer(ctx, grant, alice, 200))
	assert.Equal(t, uint64(400), l.BalanceOf(epoch, mint))
	assert.Equal(t, uint64(200), l.BalanceOf(alice, mint))

	err = l.Transfer(ctx, grant, alice, 401)
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, uint64(400), l.BalanceOf(epoch, mint))
}

func TestLedgerRejects(t *testing.T) {
	ctx := context.Background()
	l := NewLedger()
	grant := Grant{Epoch: key(1), Mint: key(2)}

	assert.ErrorIs(t, l.Transfer(ctx, Grant{Mint: key(2)}, key(3), 1), ErrInvalidGrant)
	_, err := l.Balance(ctx, Grant{Epoch: key(1)})
	assert.ErrorIs(t, err, ErrInvalidGrant)
	assert.ErrorIs(t, l.Transfer(ctx, grant, key(3), 0), ErrZeroAmount)

	require.NoError(t, l.Deposit(key(1), key(2), math.MaxUint64))
	assert.ErrorIs(t, l.Deposit(key(1), key(2), 1), ErrBalanceOverflow)

	require.NoError(t, l.Deposit(key(3), key(2), 1))
	assert.ErrorIs(t, l.Transfer(ctx, grant, key(3), math.MaxUint64), ErrBalanceOverflow)
	assert.Equal(t, uint64(math.MaxUint64), l.BalanceOf(key(1), key(2)))
}

func TestLedgerFailNext(t *testing.T) {
	ctx := context.Background()
	l := NewLedger()
	grant := Grant{Epoch: key(1), Mint: key(2)}
	require.NoError(t, l.Deposit(key(1), key(2), 10))

	boom := errors.New("boom")
	l.FailNext(boom)
	assert.ErrorIs(t, l.Transfer(ctx, grant, key(3), 5), boom)
	assert.Equal(t, uint64(10), l.BalanceOf(key(1), key(2)))

	require.NoError(t, l.Transfer(ctx, grant, key(3), 5))
	assert.Equal(t, uint64(5), l.BalanceOf(key(3), key(2)))
}

func TestLedgerConcurrentTransfersConserveSupply(t *testing.T) {
	ctx := context.Background()
	l := NewLedger()
	grant := Grant{Epoch: key(1), Mint: key(2)}
	require.NoError(t, l.Deposit(key(1), key(2), 100))

	var wg sync.WaitGroup
	for i := 0; i < 150; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = l.Transfer(ctx, grant, key(byte(10+i%5)), 1)
		}(i)
	}
	wg.Wait()

	var total uint64
	for i := 0; i < 5; i++ {
		total += l.BalanceOf(key(byte(10+i)), key(2))
	}
	assert.Equal(t, uint64(100), total)
	assert.Equal(t, uint64(0), l.BalanceOf(key(1), key(2)))
}
