package airdrop

import (
	"errors"
)

// validation
var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrProofTooLarge      = errors.New("merkle proof too large")
	ErrIndexOutOfRange    = errors.New("index out of bitmap page range")
	ErrWrongMint          = errors.New("wrong mint for this epoch")
	ErrWrongBitmapEpoch   = errors.New("bitmap page doesn't belong to this epoch")
	ErrWrongBitmapPage    = errors.New("wrong bitmap page index")
	ErrBindingMismatch    = errors.New("record is not bound to the requested address")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidAuthority   = errors.New("authority must be a non zero identity")
	ErrManifestInvalid    = errors.New("signed manifest is invalid")
	ErrManifestKeyMissing = errors.New("no manifest verification key is configured")
)

// state conflict
var (
	ErrAlreadyClaimed           = errors.New("claim already executed for this index")
	ErrClaimPending             = errors.New("a claim for this index is in progress")
	ErrEpochPaused              = errors.New("epoch is paused")
	ErrEpochExists              = errors.New("epoch already initialized")
	ErrEpochNotFound            = errors.New("epoch not found")
	ErrClaimExceedsTotal        = errors.New("claim would exceed the epoch total amount")
	ErrInsufficientVaultBalance = errors.New("insufficient vault token balance")
	ErrContention               = errors.New("record is too contended, try again")
)

var (
	ErrInvalidProof  = errors.New("merkle proof is invalid")
	ErrMathOverflow  = errors.New("math overflow")
	ErrPayoutFailed  = errors.New("payout failed, claim rolled back")
	ErrCorruptRecord = errors.New("stored record is corrupt")
)

type ErrorClass int

const (
	ClassNone ErrorClass = iota
	ClassValidation
	ClassStateConflict
	ClassProofInvalid
	ClassArithmeticOverflow
	ClassPayout
	ClassStorage
)

func (c ErrorClass) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassValidation:
		return "validation"
	case ClassStateConflict:
		return "state-conflict"
	case ClassProofInvalid:
		return "proof-invalid"
	case ClassArithmeticOverflow:
		return "arithmetic-overflow"
	case ClassPayout:
		return "payout"
	default:
		return "storage"
	}
}

var classes = []struct {
	class ErrorClass
	errs  []error
}{
	{ClassProofInvalid, []error{ErrInvalidProof}},
	{ClassArithmeticOverflow, []error{ErrMathOverflow}},
	// payout is checked before state conflict, a failed payout may also carry
	// ErrInsufficientVaultBalance
	{ClassPayout, []error{ErrPayoutFailed}},
	{ClassStateConflict, []error{
		ErrAlreadyClaimed, ErrClaimPending, ErrEpochPaused, ErrEpochExists, ErrEpochNotFound,
		ErrClaimExceedsTotal, ErrInsufficientVaultBalance, ErrContention,
	}},
	{ClassValidation, []error{
		ErrInvalidAmount, ErrProofTooLarge, ErrIndexOutOfRange, ErrWrongMint,
		ErrWrongBitmapEpoch, ErrWrongBitmapPage, ErrBindingMismatch,
		ErrUnauthorized, ErrInvalidAuthority, ErrManifestInvalid, ErrManifestKeyMissing,
	}},
}

// Classify maps err onto the error taxonomy. Errors that are not produced by
// this package, storage failures for example, are ClassStorage. None of the
// classes are retried automatically, retry is a caller policy.
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassNone
	}
	for _, c := range classes {
		for _, target := range c.errs {
			if errors.Is(err, target) {
				return c.class
			}
		}
	}
	return ClassStorage
}

// IsTerminal reports whether repeating the same request can never succeed.
func IsTerminal(err error) bool {
	switch Classify(err) {
	case ClassValidation, ClassProofInvalid, ClassArithmeticOverflow:
		return true
	case ClassStateConflict:
		return errors.Is(err, ErrAlreadyClaimed) || errors.Is(err, ErrEpochExists)
	}
	return false
}
