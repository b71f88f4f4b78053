// Package storagetest provides the conformance suite every storage.Driver
// must pass, plus an in-memory bucket model for building SDK fakes.
package storagetest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"objstore/core/storage"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// PartSize is the size of every non-final part uploaded by the suite. S3
// rejects smaller non-final parts.
const PartSize = storage.MinPartSizeMB * 1024 * 1024

// Run exercises d against the storage protocol. Every key it writes lives
// under a random prefix and is deleted when the test finishes.
func Run(t *testing.T, d storage.Driver) {
	t.Helper()
	s := &suite{driver: d, root: "storagetest-" + uuid.NewString() + "/"}
	t.Cleanup(func() { s.cleanup(t) })

	t.Run("MissingKey", s.testMissingKey)
	t.Run("CreateDirectory", s.testCreateDirectory)
	t.Run("CreateNormalizesKey", s.testCreateNormalizesKey)
	t.Run("UploadDownload", s.testUploadDownload)
	t.Run("DownloadRange", s.testDownloadRange)
	t.Run("DownloadMissing", s.testDownloadMissing)
	t.Run("DownloadStream", s.testDownloadStream)
	t.Run("UploadStream", s.testUploadStream)
	t.Run("SizeMissing", s.testSizeMissing)
	t.Run("Size", s.testSize)
	t.Run("List", s.testList)
	t.Run("CopyDelete", s.testCopyDelete)
	t.Run("CopyMissing", s.testCopyMissing)
	t.Run("DeleteMissing", s.testDeleteMissing)
	t.Run("Multipart", s.testMultipart)
	t.Run("MultipartAbort", s.testMultipartAbort)
	t.Run("UploadMultipart", s.testUploadMultipart)
	t.Run("AvailableSpace", s.testAvailableSpace)
}

type suite struct {
	driver storage.Driver
	root   string

	mu      sync.Mutex
	written []string
}

func (s *suite) key(name string) string {
	k := s.root + name
	s.mu.Lock()
	s.written = append(s.written, k, k+storage.Separator)
	s.mu.Unlock()
	return k
}

func (s *suite) cleanup(t *testing.T) {
	ctx := context.Background()
	for _, k := range s.written {
		if err := s.driver.Delete(ctx, k); err != nil {
			t.Logf("cleanup %s: %v", k, err)
		}
	}
	_ = s.driver.Delete(ctx, s.root)
}

func (s *suite) testMissingKey(t *testing.T) {
	ctx := context.Background()
	k := s.key("missing")
	assert.False(t, s.driver.Exists(ctx, k))
	assert.False(t, s.driver.Exists(ctx, k+"/"))
}

func (s *suite) testCreateDirectory(t *testing.T) {
	ctx := context.Background()
	k := s.key("dir")
	require.NoError(t, s.driver.Create(ctx, k))

	assert.True(t, s.driver.Exists(ctx, k+"/"))
	assert.True(t, s.driver.Exists(ctx, k), "directory marker should satisfy probe without separator")
	assert.Equal(t, uint64(0), s.driver.Size(ctx, k+"/"))
}

func (s *suite) testCreateNormalizesKey(t *testing.T) {
	ctx := context.Background()
	s.key("nested")
	s.key("nested/inner")
	require.NoError(t, s.driver.Create(ctx, s.root+"nested//inner///"))

	assert.True(t, s.driver.Exists(ctx, s.root+"nested/inner/"))
	assert.ErrorIs(t, s.driver.Create(ctx, "///"), storage.ErrInvalidKey)
}

func (s *suite) testUploadDownload(t *testing.T) {
	ctx := context.Background()
	k := s.key("roundtrip.txt")
	data := []byte("hello object storage")
	require.NoError(t, s.driver.Upload(ctx, k, data))

	got, err := s.driver.Download(ctx, k, nil)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	require.NoError(t, s.driver.Upload(ctx, k, []byte("replaced")))
	got, err = s.driver.Download(ctx, k, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("replaced"), got)
}

func (s *suite) testDownloadRange(t *testing.T) {
	ctx := context.Background()
	k := s.key("range.txt")
	require.NoError(t, s.driver.Upload(ctx, k, []byte("0123456789")))

	got, err := s.driver.Download(ctx, k, &storage.ByteRange{Start: 2, End: 5})
	require.NoError(t, err)
	assert.Equal(t, []byte("2345"), got)

	_, err = s.driver.Download(ctx, k, &storage.ByteRange{Start: 5, End: 2})
	assert.ErrorIs(t, err, storage.ErrInvalidRange)
}

func (s *suite) testDownloadMissing(t *testing.T) {
	ctx := context.Background()
	_, err := s.driver.Download(ctx, s.key("nope.txt"), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrInvalidKey)

	var be *storage.BackendError
	assert.False(t, errors.As(err, &be), "missing key must not surface as a backend error")
}

func (s *suite) testDownloadStream(t *testing.T) {
	ctx := context.Background()
	k := s.key("stream.bin")
	data := bytes.Repeat([]byte("abcdef"), 1024)
	require.NoError(t, s.driver.Upload(ctx, k, data))

	body, err := s.driver.DownloadStream(ctx, k, nil)
	require.NoError(t, err)
	got, err := io.ReadAll(body)
	require.NoError(t, err)
	require.NoError(t, body.Close())
	assert.Equal(t, data, got)

	// Abandoning a stream part way must be safe.
	body, err = s.driver.DownloadStream(ctx, k, nil)
	require.NoError(t, err)
	buf := make([]byte, 10)
	_, err = io.ReadFull(body, buf)
	require.NoError(t, err)
	assert.NoError(t, body.Close())
	assert.Equal(t, data[:10], buf)
}

func (s *suite) testUploadStream(t *testing.T) {
	ctx := context.Background()
	k := s.key("upload-stream.bin")
	data := bytes.Repeat([]byte{7}, 4096)

	require.NoError(t, s.driver.UploadStream(ctx, k, bytes.NewReader(data), int64(len(data))))
	assert.Equal(t, uint64(len(data)), s.driver.Size(ctx, k))

	unknown := s.key("upload-stream-unknown.bin")
	err := s.driver.UploadStream(ctx, unknown, io.LimitReader(bytes.NewReader(data), int64(len(data))), -1)
	if errors.Is(err, storage.ErrUnsupportedOperation) {
		return
	}
	require.NoError(t, err)
	got, err := s.driver.Download(ctx, unknown, nil)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func (s *suite) testSizeMissing(t *testing.T) {
	ctx := context.Background()
	k := s.key("size-missing")
	assert.Equal(t, uint64(0), s.driver.Size(ctx, k))
	assert.Equal(t, uint64(0), s.driver.Size(ctx, k))
}

func (s *suite) testSize(t *testing.T) {
	ctx := context.Background()
	k := s.key("size.txt")
	require.NoError(t, s.driver.Upload(ctx, k, []byte("12345")))
	assert.Equal(t, uint64(5), s.driver.Size(ctx, k))
}

func (s *suite) testList(t *testing.T) {
	ctx := context.Background()
	base := s.key("a")
	for _, name := range []string{"b", "c", "d/e"} {
		require.NoError(t, s.driver.Upload(ctx, s.key("a/"+name), []byte(name)))
	}
	s.key("a/d")

	names, err := s.driver.List(ctx, base+"/")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"b", "c", "d"}, names)

	require.NoError(t, s.driver.Upload(ctx, s.key("a/d/f"), []byte("f")))
	names, err = s.driver.List(ctx, base+"/")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"b", "c", "d"}, names, "children sharing a segment are reported once")
}

func (s *suite) testCopyDelete(t *testing.T) {
	ctx := context.Background()
	src, dst := s.key("copy-src.txt"), s.key("copy-dst.txt")
	data := []byte("copy me")
	require.NoError(t, s.driver.Upload(ctx, src, data))

	require.NoError(t, s.driver.Copy(ctx, src, dst))
	require.NoError(t, s.driver.Delete(ctx, src))

	got, err := s.driver.Download(ctx, dst, nil)
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.False(t, s.driver.Exists(ctx, src))
}

func (s *suite) testCopyMissing(t *testing.T) {
	ctx := context.Background()
	err := s.driver.Copy(ctx, s.key("copy-missing"), s.key("copy-missing-dst"))
	assert.ErrorIs(t, err, storage.ErrInvalidKey)
}

func (s *suite) testDeleteMissing(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, s.driver.Delete(ctx, s.key("never-written")))
}

func (s *suite) testMultipart(t *testing.T) {
	ctx := context.Background()
	k := s.key("multipart.bin")
	first := bytes.Repeat([]byte{'1'}, PartSize)
	second := []byte("tail")

	id, err := s.driver.CreateMultipartID(ctx, k)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	// Upload out of order and concurrently; Finish must order parts.
	var (
		wg     sync.WaitGroup
		chunks = make([]storage.Chunk, 2)
		errs   = make([]error, 2)
	)
	for i, part := range [][]byte{second, first} {
		number := 2 - i
		wg.Add(1)
		go func(i, number int, part []byte) {
			defer wg.Done()
			chunks[i], errs[i] = s.driver.UploadPart(ctx, id, k, number, bytes.NewReader(part), int64(len(part)))
		}(i, number, part)
	}
	wg.Wait()
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.NotEmpty(t, chunks[0].ETag)
	assert.NotEmpty(t, chunks[1].ETag)

	require.NoError(t, s.driver.Finish(ctx, id, k, chunks))

	got, err := s.driver.Download(ctx, k, nil)
	require.NoError(t, err)
	assert.Equal(t, append(append([]byte(nil), first...), second...), got)
}

func (s *suite) testMultipartAbort(t *testing.T) {
	ctx := context.Background()
	k := s.key("multipart-abort.bin")

	id, err := s.driver.CreateMultipartID(ctx, k)
	require.NoError(t, err)
	chunk, err := s.driver.UploadPart(ctx, id, k, 1, bytes.NewReader([]byte("part")), 4)
	require.NoError(t, err)

	require.NoError(t, s.driver.Abort(ctx, id, k))

	err = s.driver.Finish(ctx, id, k, []storage.Chunk{chunk})
	require.Error(t, err)
	var be *storage.BackendError
	assert.True(t, errors.As(err, &be), "finish after abort should be a backend error, got %v", err)
	assert.False(t, s.driver.Exists(ctx, k))
}

func (s *suite) testUploadMultipart(t *testing.T) {
	ctx := context.Background()
	k := s.key("upload-multipart.bin")
	data := append(bytes.Repeat([]byte{'x'}, 2*PartSize), []byte("rest")...)

	require.NoError(t, storage.UploadMultipart(ctx, s.driver, k, bytes.NewReader(data), PartSize, 2))

	assert.Equal(t, uint64(len(data)), s.driver.Size(ctx, k))
	got, err := s.driver.Download(ctx, k, &storage.ByteRange{Start: uint64(2 * PartSize), End: uint64(len(data) - 1)})
	require.NoError(t, err)
	assert.Equal(t, []byte("rest"), got)
}

func (s *suite) testAvailableSpace(t *testing.T) {
	assert.Greater(t, s.driver.AvailableSpace(), uint64(0))
}
