// Package storage provides the path based object store contract used to
// persist epochs and claim bitmap pages.
//
// Every implementation offers optimistic concurrency control: objects are
// created only if absent and replaced only if unchanged since they were read.
// There is no unconditional write.
package storage

import (
	"context"
)

// Version identifies the content of an object at the time it was read. It is
// opaque to callers and only meaningful to the store that issued it (an etag
// for blob stores).
type Version string

// NoVersion is returned alongside errors
const NoVersion Version = ""

type ObjectReader interface {
	// Get returns the object data and the version it was read at.
	// ErrNotFound is returned if the object does not exist.
	Get(ctx context.Context, path string) ([]byte, Version, error)
}

type ObjectWriter interface {
	// Create writes the object only if it does not exist. ErrExistsOC is
	// returned otherwise.
	Create(ctx context.Context, path string, data []byte) (Version, error)

	// Replace overwrites the object only if its current version is expect.
	// ErrContentOC is returned if the object has changed, and ErrNotFound if
	// it does not exist.
	Replace(ctx context.Context, path string, data []byte, expect Version) (Version, error)
}

type ObjectStore interface {
	ObjectReader
	ObjectWriter
}

// ObjectLister is implemented by stores that can enumerate paths under a
// prefix. The returned paths are sorted.
type ObjectLister interface {
	List(ctx context.Context, prefix string) ([]string, error)
}
