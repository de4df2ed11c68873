package azblobstore

import (
	"fmt"

	azStorageBlob "github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/forestrie/go-merkledrop/storage"
)

const (
	azblobBlobNotFound      = "BlobNotFound"
	azblobBlobAlreadyExists = "BlobAlreadyExists"
	azblobConditionNotMet   = "ConditionNotMet"
)

func AsStorageError(err error) (azStorageBlob.StorageError, bool) {
	serr := &azStorageBlob.StorageError{}
	//nolint
	ierr, ok := err.(*azStorageBlob.InternalError)
	if ierr == nil || !ok {
		return azStorageBlob.StorageError{}, false
	}
	if !ierr.As(&serr) {
		return azStorageBlob.StorageError{}, false
	}
	return *serr, true
}

// ErrorCode returns the azure storage error code for err, or "" if err is not
// an azure storage error.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	serr, ok := AsStorageError(err)
	if !ok {
		return ""
	}
	return string(serr.ErrorCode)
}

// wrapCode translates err to the storage sentinel for code. The original error
// is returned as is when the code has no sentinel, including the case where
// err is nil.
//
// creating distinguishes the two meanings of a failed precondition. On create
// the only precondition is "no blob exists", on replace it is "the etag
// matches".
func wrapCode(err error, code string, creating bool) error {
	if err == nil {
		return nil
	}
	var sentinel error
	switch code {
	case azblobBlobNotFound:
		sentinel = storage.ErrNotFound
	case azblobBlobAlreadyExists:
		sentinel = storage.ErrExistsOC
	case azblobConditionNotMet:
		if creating {
			sentinel = storage.ErrExistsOC
		} else {
			sentinel = storage.ErrContentOC
		}
	default:
		return err
	}
	return fmt.Errorf("%s: %w", err.Error(), sentinel)
}
