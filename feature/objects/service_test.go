package objects

import (
	"context"
	"io"
	"math"
	"strings"
	"testing"

	"objstore/core/storage"
	"objstore/core/storage/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// plainDriver hides the mock's Ping so the service sees a driver without
// health checks.
type plainDriver struct {
	storage.Driver
}

func TestNewServiceDefaults(t *testing.T) {
	svc := NewService(new(mocks.Driver), zap.NewNop(), Options{})
	assert.Equal(t, int64(storage.MinPartSizeMB*1024*1024), svc.opts.PartSize)
	assert.Equal(t, 1, svc.opts.Concurrency)
}

func TestService_List(t *testing.T) {
	mockDriver := new(mocks.Driver)
	mockDriver.On("List", mock.Anything, "empty").Return(nil, nil)
	svc := NewService(mockDriver, zap.NewNop(), Options{})

	listing, err := svc.List(context.Background(), "empty")
	require.NoError(t, err)
	assert.NotNil(t, listing.Names, "empty listings encode as [] rather than null")
}

func TestService_Open(t *testing.T) {
	t.Run("Full Read Skips Size", func(t *testing.T) {
		mockDriver := new(mocks.Driver)
		mockDriver.On("DownloadStream", mock.Anything, "k", (*storage.ByteRange)(nil)).
			Return(io.NopCloser(strings.NewReader("abc")), nil)
		svc := NewService(mockDriver, zap.NewNop(), Options{})

		body, partial, err := svc.Open(context.Background(), "k", nil)
		require.NoError(t, err)
		defer body.Close()
		assert.Nil(t, partial)
		mockDriver.AssertNotCalled(t, "Size", mock.Anything, mock.Anything)
	})

	t.Run("Range Is Clamped", func(t *testing.T) {
		mockDriver := new(mocks.Driver)
		rng := &storage.ByteRange{Start: 0, End: math.MaxUint64}
		mockDriver.On("DownloadStream", mock.Anything, "k", rng).
			Return(io.NopCloser(strings.NewReader("abc")), nil)
		mockDriver.On("Size", mock.Anything, "k").Return(uint64(3))
		svc := NewService(mockDriver, zap.NewNop(), Options{})

		body, partial, err := svc.Open(context.Background(), "k", rng)
		require.NoError(t, err)
		defer body.Close()
		assert.Equal(t, &Partial{Start: 0, End: 2, Total: 3}, partial)
		assert.Equal(t, "bytes 0-2/3", partial.ContentRange())
		assert.Equal(t, uint64(3), partial.Length())
	})

	t.Run("Empty Object", func(t *testing.T) {
		mockDriver := new(mocks.Driver)
		rng := &storage.ByteRange{Start: 0, End: 0}
		mockDriver.On("DownloadStream", mock.Anything, "k", rng).
			Return(io.NopCloser(strings.NewReader("")), nil)
		mockDriver.On("Size", mock.Anything, "k").Return(uint64(0))
		svc := NewService(mockDriver, zap.NewNop(), Options{})

		_, partial, err := svc.Open(context.Background(), "k", rng)
		assert.ErrorIs(t, err, errRangeNotSatisfiable)
		assert.Equal(t, &Partial{Total: 0}, partial)
	})
}

func TestService_Health(t *testing.T) {
	svc := NewService(plainDriver{new(mocks.Driver)}, zap.NewNop(), Options{})
	assert.NoError(t, svc.Health(context.Background()))
}
