package storage

import (
	"github.com/datatrails/go-datatrails-common/logger"
)

type Options struct {
	Log logger.Logger
	// MaxAttempts bounds the read-modify-write loop of Update, zero means
	// DefaultMaxAttempts.
	MaxAttempts int
}

// Option is a generic option type used for storage implementations.
// Implementations type assert to their own options record and if that fails
// they ignore the option.
type Option func(any)

func WithLogger(log logger.Logger) Option {
	return func(a any) {
		if opts, ok := a.(*Options); ok {
			opts.Log = log
		}
	}
}

func WithMaxAttempts(n int) Option {
	return func(a any) {
		if opts, ok := a.(*Options); ok {
			opts.MaxAttempts = n
		}
	}
}
