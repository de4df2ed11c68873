package airdrop

import (
	"errors"
	"fmt"
	"testing"

	"github.com/forestrie/go-merkledrop/storage"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		class    ErrorClass
		terminal bool
	}{
		{"nil", nil, ClassNone, false},
		{"amount", ErrInvalidAmount, ClassValidation, true},
		{"proof size", fmt.Errorf("%w: 65", ErrProofTooLarge), ClassValidation, true},
		{"binding", ErrBindingMismatch, ClassValidation, true},
		{"unauthorized", ErrUnauthorized, ClassValidation, true},
		{"already claimed", fmt.Errorf("%w: index 3", ErrAlreadyClaimed), ClassStateConflict, true},
		{"exists", ErrEpochExists, ClassStateConflict, true},
		{"paused", ErrEpochPaused, ClassStateConflict, false},
		{"cap", ErrClaimExceedsTotal, ClassStateConflict, false},
		{"contention", fmt.Errorf("%w: %v", ErrContention, storage.ErrRetries), ClassStateConflict, false},
		{"proof", ErrInvalidProof, ClassProofInvalid, true},
		{"overflow", ErrMathOverflow, ClassArithmeticOverflow, true},
		{"payout", fmt.Errorf("%w: %w", ErrPayoutFailed, errors.New("rpc")), ClassPayout, false},
		{"insufficient payout", fmt.Errorf("%w: %w", ErrPayoutFailed, ErrInsufficientVaultBalance), ClassPayout, false},
		{"storage", fmt.Errorf("read failed: %w", storage.ErrNotFound), ClassStorage, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.class, Classify(tt.err))
			assert.Equal(t, tt.terminal, IsTerminal(tt.err))
		})
	}
}

func TestErrorClassString(t *testing.T) {
	assert.Equal(t, "state-conflict", ClassStateConflict.String())
	assert.Equal(t, "storage", ClassStorage.String())
}
