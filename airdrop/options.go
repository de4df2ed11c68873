package airdrop

import (
	"crypto/sha256"
	"hash"

	"github.com/gagliardetto/solana-go"
)

const DefaultMaxCASRetries = 1024

// Config is shared by the Distributor and the ClaimIndex
type Config struct {
	// ProgramID is the namespace every epoch and page address is derived in.
	ProgramID solana.PublicKey

	// MaxCASRetries bounds each optimistic read-modify-write of a record.
	// Zero means DefaultMaxCASRetries.
	MaxCASRetries int

	// AllowOverClaim disables the total_claimed <= total_amount check, making
	// total_amount informational only.
	AllowOverClaim bool

	// AccountFraming persists records with the 8 byte account discriminator
	// prefix used by deployed account data.
	AccountFraming bool
}

func (cfg Config) maxRetries() int {
	if cfg.MaxCASRetries <= 0 {
		return DefaultMaxCASRetries
	}
	return cfg.MaxCASRetries
}

type Options struct {
	Events      EventSink
	ManifestKey PublicKeyProvider
	NewHasher   func() hash.Hash
}

// Option is a generic option type. Implementations type assert to their own
// options record and if that fails they ignore the option.
type Option func(any)

// WithEventSink sets where lifecycle and claim events are delivered
func WithEventSink(sink EventSink) Option {
	return func(a any) {
		if opts, ok := a.(*Options); ok {
			opts.Events = sink
		}
	}
}

// WithManifestKey sets the key trusted to sign distribution manifests. It is
// required by InitializeEpochFromManifest.
func WithManifestKey(key PublicKeyProvider) Option {
	return func(a any) {
		if opts, ok := a.(*Options); ok {
			opts.ManifestKey = key
		}
	}
}

// WithHasher overrides the hash used for leaves and proof folding. It must
// produce sha256 compatible digests, it exists so callers can observe or pool
// hashers.
func WithHasher(newHasher func() hash.Hash) Option {
	return func(a any) {
		if opts, ok := a.(*Options); ok {
			opts.NewHasher = newHasher
		}
	}
}

func defaultOptions() Options {
	return Options{
		Events:    NopSink{},
		NewHasher: sha256.New,
	}
}
