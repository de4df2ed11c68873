package storage

import "errors"

var (
	ErrNotFound  = errors.New("object not found")
	ErrExistsOC  = errors.New("optimistic concurrency failure, subject already exists")
	ErrContentOC = errors.New("optimistic concurrency failure, content to replace does not match expected content")
	ErrRetries   = errors.New("optimistic concurrency failure, retry limit reached")
	ErrBadPath   = errors.New("path is not a recognized object path")
)
