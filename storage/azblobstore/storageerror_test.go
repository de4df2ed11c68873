package azblobstore

import (
	"errors"
	"testing"

	"github.com/forestrie/go-merkledrop/storage"
	"github.com/stretchr/testify/assert"
)

func TestWrapCode(t *testing.T) {
	base := errors.New("azure said no")
	tests := []struct {
		name     string
		code     string
		creating bool
		want     error
	}{
		{"not found", azblobBlobNotFound, false, storage.ErrNotFound},
		{"already exists", azblobBlobAlreadyExists, true, storage.ErrExistsOC},
		{"condition on create", azblobConditionNotMet, true, storage.ErrExistsOC},
		{"condition on replace", azblobConditionNotMet, false, storage.ErrContentOC},
		{"unrelated", "ServerBusy", false, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := wrapCode(base, tt.code, tt.creating)
			assert.ErrorContains(t, err, base.Error())
			if tt.want == nil {
				assert.Equal(t, base, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.NoError(t, wrapCode(nil, azblobBlobNotFound, false))
}

func TestErrorCodeOfPlainError(t *testing.T) {
	assert.Equal(t, "", ErrorCode(errors.New("x")))
	assert.Equal(t, "", ErrorCode(nil))
}
