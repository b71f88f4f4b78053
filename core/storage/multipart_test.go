package storage_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"testing/iotest"

	"objstore/core/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mib = 1024 * 1024

func TestUploadMultipart(t *testing.T) {
	t.Run("Splits And Finishes In Order", func(t *testing.T) {
		d := newFakeDriver()
		data := append(bytes.Repeat([]byte{'a'}, 5*mib), bytes.Repeat([]byte{'b'}, 5*mib)...)
		data = append(data, []byte("tail")...)

		require.NoError(t, storage.UploadMultipart(context.Background(), d, "big.bin", bytes.NewReader(data), 5*mib, 3))

		require.Len(t, d.finished, 3)
		for i, c := range d.finished {
			assert.Equal(t, i+1, c.Number)
			assert.NotEmpty(t, c.ETag)
		}
		assert.Equal(t, data, d.assembled())
		assert.False(t, d.aborted)
	})

	t.Run("Raises Part Size To Minimum", func(t *testing.T) {
		d := newFakeDriver()
		data := bytes.Repeat([]byte{'x'}, 6*mib)

		require.NoError(t, storage.UploadMultipart(context.Background(), d, "big.bin", bytes.NewReader(data), 1024, 0))
		assert.Len(t, d.finished, 2)
		assert.Len(t, d.parts[1], 5*mib)
	})

	t.Run("Empty Reader Aborts", func(t *testing.T) {
		d := newFakeDriver()
		err := storage.UploadMultipart(context.Background(), d, "empty.bin", bytes.NewReader(nil), 5*mib, 1)

		assert.ErrorContains(t, err, "no parts")
		assert.True(t, d.aborted)
		assert.Nil(t, d.finished)
	})

	t.Run("Part Failure Aborts", func(t *testing.T) {
		d := newFakeDriver()
		d.failPart = 2
		d.partErr = &storage.BackendError{Op: "upload_part", Err: errors.New("boom")}
		data := bytes.Repeat([]byte{'x'}, 11*mib)

		err := storage.UploadMultipart(context.Background(), d, "big.bin", bytes.NewReader(data), 5*mib, 1)

		var be *storage.BackendError
		assert.ErrorAs(t, err, &be)
		assert.True(t, d.aborted)
		assert.Nil(t, d.finished)
	})

	t.Run("Abort Failure Is Joined", func(t *testing.T) {
		d := newFakeDriver()
		d.failPart = 1
		d.partErr = errors.New("part failed")
		d.abortErr = errors.New("abort failed")

		err := storage.UploadMultipart(context.Background(), d, "big.bin", bytes.NewReader([]byte("x")), 5*mib, 1)
		assert.ErrorIs(t, err, d.partErr)
		assert.ErrorIs(t, err, d.abortErr)
	})

	t.Run("Read Failure Aborts", func(t *testing.T) {
		d := newFakeDriver()
		readErr := errors.New("disk gone")

		err := storage.UploadMultipart(context.Background(), d, "big.bin", iotest.ErrReader(readErr), 5*mib, 1)
		assert.ErrorIs(t, err, readErr)
		assert.True(t, d.aborted)
	})

	t.Run("Cancelled Context Still Aborts", func(t *testing.T) {
		d := newFakeDriver()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := storage.UploadMultipart(ctx, d, "big.bin", bytes.NewReader([]byte("x")), 5*mib, 1)
		assert.ErrorIs(t, err, context.Canceled)
		assert.True(t, d.aborted)
		assert.Nil(t, d.finished)
	})

	t.Run("Finish Failure Aborts", func(t *testing.T) {
		d := newFakeDriver()
		d.finishErr = &storage.BackendError{Op: "finish", Err: context.DeadlineExceeded}

		err := storage.UploadMultipart(context.Background(), d, "big.bin", bytes.NewReader([]byte("x")), 5*mib, 1)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.True(t, d.aborted)
		assert.Len(t, d.finished, 1)
	})

	t.Run("Finish And Abort Failures Are Joined", func(t *testing.T) {
		d := newFakeDriver()
		d.finishErr = errors.New("finish failed")
		d.abortErr = errors.New("abort failed")

		err := storage.UploadMultipart(context.Background(), d, "big.bin", bytes.NewReader([]byte("x")), 5*mib, 1)
		assert.ErrorIs(t, err, d.finishErr)
		assert.ErrorIs(t, err, d.abortErr)
	})

	t.Run("Create Failure", func(t *testing.T) {
		d := newFakeDriver()
		d.createErr = storage.ErrInvalidMultipartID

		err := storage.UploadMultipart(context.Background(), d, "big.bin", bytes.NewReader([]byte("x")), 5*mib, 1)
		assert.ErrorIs(t, err, storage.ErrInvalidMultipartID)
		assert.False(t, d.aborted)
	})
}
