package mocks

import (
	"context"
	"io"

	"objstore/core/storage"

	"github.com/stretchr/testify/mock"
)

// Driver is a mock implementation of storage.Driver and storage.Pinger
type Driver struct {
	mock.Mock
}

func (m *Driver) Upload(ctx context.Context, key string, data []byte) error {
	args := m.Called(ctx, key, data)
	return args.Error(0)
}

func (m *Driver) UploadStream(ctx context.Context, key string, r io.Reader, size int64) error {
	args := m.Called(ctx, key, r, size)
	return args.Error(0)
}

func (m *Driver) Download(ctx context.Context, key string, rng *storage.ByteRange) ([]byte, error) {
	args := m.Called(ctx, key, rng)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func (m *Driver) DownloadStream(ctx context.Context, key string, rng *storage.ByteRange) (io.ReadCloser, error) {
	args := m.Called(ctx, key, rng)
	body, _ := args.Get(0).(io.ReadCloser)
	return body, args.Error(1)
}

func (m *Driver) Exists(ctx context.Context, key string) bool {
	args := m.Called(ctx, key)
	return args.Bool(0)
}

func (m *Driver) Size(ctx context.Context, key string) uint64 {
	args := m.Called(ctx, key)
	return args.Get(0).(uint64)
}

func (m *Driver) Copy(ctx context.Context, source, destination string) error {
	args := m.Called(ctx, source, destination)
	return args.Error(0)
}

func (m *Driver) List(ctx context.Context, prefix string) ([]string, error) {
	args := m.Called(ctx, prefix)
	names, _ := args.Get(0).([]string)
	return names, args.Error(1)
}

func (m *Driver) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *Driver) Create(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *Driver) CreateMultipartID(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *Driver) UploadPart(ctx context.Context, multipartID, key string, number int, r io.Reader, size int64) (storage.Chunk, error) {
	args := m.Called(ctx, multipartID, key, number, r, size)
	return args.Get(0).(storage.Chunk), args.Error(1)
}

func (m *Driver) Abort(ctx context.Context, multipartID, key string) error {
	args := m.Called(ctx, multipartID, key)
	return args.Error(0)
}

func (m *Driver) Finish(ctx context.Context, multipartID, key string, chunks []storage.Chunk) error {
	args := m.Called(ctx, multipartID, key, chunks)
	return args.Error(0)
}

func (m *Driver) AvailableSpace() uint64 {
	args := m.Called()
	return args.Get(0).(uint64)
}

func (m *Driver) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *Driver) Close() error {
	args := m.Called()
	return args.Error(0)
}
