// Package vault models the token custody an epoch pays claims from.
//
// Each epoch owns a single vault: the token account held by the epoch address
// for the distribution mint. The claim engine never holds a general transfer
// capability. It is handed a Grant, which scopes transfers to exactly one
// vault, and a Transferer which honours grants.
package vault

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"
)

var (
	ErrInsufficientBalance = errors.New("vault: insufficient balance")
	ErrInvalidGrant        = errors.New("vault: grant does not identify a vault")
	ErrZeroAmount          = errors.New("vault: transfer amount must be positive")
	ErrBalanceOverflow     = errors.New("vault: balance would overflow")
)

// Grant is the delegated authority to move tokens out of one epoch vault.
type Grant struct {
	Epoch solana.PublicKey
	Mint  solana.PublicKey
}

func (g Grant) Valid() bool {
	return g.Epoch != solana.PublicKey{} && g.Mint != solana.PublicKey{}
}

// Transferer moves tokens out of a granted vault.
type Transferer interface {
	Balance(ctx context.Context, grant Grant) (uint64, error)
	// Transfer moves amount from the vault identified by grant to the token
	// account owned by to. It either completes or has no effect.
	Transfer(ctx context.Context, grant Grant, to solana.PublicKey, amount uint64) error
}
