package storage_test

import (
	"errors"
	"fmt"
	"testing"

	"objstore/core/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	t.Run("Nil", func(t *testing.T) {
		assert.NoError(t, storage.Wrap("upload", "k", nil))
	})

	t.Run("Backend Failure", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := storage.Wrap("upload", "k", cause)

		var be *storage.BackendError
		require.ErrorAs(t, err, &be)
		assert.Equal(t, "upload", be.Op)
		assert.Equal(t, "k", be.Key)
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, `storage: upload "k": connection refused`, err.Error())
	})

	t.Run("Typed Errors Pass Through", func(t *testing.T) {
		typed := fmt.Errorf("%w: detail", storage.ErrInvalidRange)
		assert.Same(t, typed, storage.Wrap("download", "k", typed))

		be := &storage.BackendError{Op: "copy", Err: errors.New("x")}
		assert.Same(t, be, storage.Wrap("finish", "k", be))
	})

	t.Run("No Key", func(t *testing.T) {
		err := storage.Wrap("ping", "", errors.New("timeout"))
		assert.Equal(t, "storage: ping: timeout", err.Error())
	})
}

func TestReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{storage.ErrInvalidKey, "invalid_key"},
		{fmt.Errorf("%w: x", storage.ErrInvalidMultipartID), "invalid_multipart_id"},
		{storage.ErrInvalidMultipartChunk, "invalid_multipart_chunk"},
		{storage.ErrInvalidBuffer, "invalid_buffer"},
		{storage.ErrUnsupportedOperation, "unsupported"},
		{storage.ErrInvalidRange, "invalid_range"},
		{storage.Wrap("list", "", errors.New("x")), "backend_error"},
		{errors.New("plain"), "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, storage.Reason(tt.err))
		})
	}
}
