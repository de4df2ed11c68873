package storage

import (
	"context"
	"errors"
	"fmt"
)

const DefaultMaxAttempts = 1024

// UpdateFunc computes the replacement for an object from its current data.
// Returning an error ends the update without writing, and that error is
// returned from Update unchanged.
type UpdateFunc func(current []byte) ([]byte, error)

// Update performs an optimistic read-modify-write of the object at path. The
// object is re-read and fn re-applied each time the replace is pre-empted by a
// concurrent writer. fn may be called more than once and must not have side
// effects outside of its return values.
//
// ErrNotFound is returned if the object does not exist. ErrRetries is returned
// if the object could not be replaced within the attempt limit.
func Update(ctx context.Context, store ObjectStore, path string, fn UpdateFunc, opts ...Option) (Version, error) {
	o := Options{MaxAttempts: DefaultMaxAttempts}
	for _, opt := range opts {
		opt(&o)
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}

	for attempt := 0; attempt < o.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return NoVersion, err
		}

		current, version, err := store.Get(ctx, path)
		if err != nil {
			return NoVersion, err
		}
		next, err := fn(current)
		if err != nil {
			return NoVersion, err
		}
		newVersion, err := store.Replace(ctx, path, next, version)
		if err == nil {
			return newVersion, nil
		}
		if !errors.Is(err, ErrContentOC) {
			return NoVersion, err
		}
		if o.Log != nil {
			o.Log.Debugf("update %s pre-empted, attempt %d", path, attempt+1)
		}
	}
	return NoVersion, fmt.Errorf("%w: %s after %d attempts", ErrRetries, path, o.MaxAttempts)
}
