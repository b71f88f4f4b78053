package storage_test

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"objstore/core/storage"
)

// fakeDriver records multipart traffic. Methods not overridden panic through
// the nil embedded interface.
type fakeDriver struct {
	storage.Driver

	mu       sync.Mutex
	parts    map[int][]byte
	finished []storage.Chunk
	aborted  bool
	closed   atomic.Int32

	createErr error
	failPart  int
	partErr   error
	finishErr error
	abortErr  error
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{parts: make(map[int][]byte)}
}

func (f *fakeDriver) CreateMultipartID(context.Context, string) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	return "upload-1", nil
}

func (f *fakeDriver) UploadPart(ctx context.Context, id, _ string, number int, r io.Reader, size int64) (storage.Chunk, error) {
	if id != "upload-1" {
		return storage.Chunk{}, storage.ErrInvalidMultipartID
	}
	if number == f.failPart {
		return storage.Chunk{}, f.partErr
	}
	if err := ctx.Err(); err != nil {
		return storage.Chunk{}, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return storage.Chunk{}, err
	}
	if int64(len(data)) != size {
		return storage.Chunk{}, errors.New("size mismatch")
	}
	sum := md5.Sum(data)
	f.mu.Lock()
	f.parts[number] = data
	f.mu.Unlock()
	return storage.Chunk{Number: number, ETag: hex.EncodeToString(sum[:])}, nil
}

func (f *fakeDriver) Finish(_ context.Context, _, _ string, chunks []storage.Chunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finished = chunks
	return f.finishErr
}

func (f *fakeDriver) Abort(ctx context.Context, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	f.aborted = true
	return f.abortErr
}

func (f *fakeDriver) Close() error {
	f.closed.Add(1)
	return nil
}

// assembled joins the uploaded parts in part-number order.
func (f *fakeDriver) assembled() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []byte
	for i := 1; i <= len(f.parts); i++ {
		out = append(out, f.parts[i]...)
	}
	return out
}
