package s3_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math"
	"net/http"
	"testing"

	"objstore/core/storage"
	"objstore/core/storage/s3"
	"objstore/core/storage/s3/mocks"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var notFound = minio.ErrorResponse{Code: "NoSuchKey", StatusCode: http.StatusNotFound}

func setupDriver() (*s3.Driver, *mocks.Client) {
	mockClient := new(mocks.Client)
	cfg := storage.Config{Bucket: "test-bucket", PartSizeMB: 8}
	return s3.New(mockClient, cfg, zap.NewNop()), mockClient
}

func TestExists(t *testing.T) {
	t.Run("Object Present", func(t *testing.T) {
		d, mockClient := setupDriver()
		mockClient.On("StatObject", mock.Anything, "test-bucket", "file.txt", mock.Anything).Return(minio.ObjectInfo{Key: "file.txt"}, nil)

		assert.True(t, d.Exists(context.Background(), "file.txt"))
		mockClient.AssertNumberOfCalls(t, "StatObject", 1)
	})

	t.Run("Directory Marker", func(t *testing.T) {
		d, mockClient := setupDriver()
		mockClient.On("StatObject", mock.Anything, "test-bucket", "folder", mock.Anything).Return(minio.ObjectInfo{}, notFound)
		mockClient.On("StatObject", mock.Anything, "test-bucket", "folder/", mock.Anything).Return(minio.ObjectInfo{Key: "folder/"}, nil)

		assert.True(t, d.Exists(context.Background(), "folder"))
		mockClient.AssertNumberOfCalls(t, "StatObject", 2)
	})

	t.Run("Missing Probes Twice", func(t *testing.T) {
		d, mockClient := setupDriver()
		mockClient.On("StatObject", mock.Anything, "test-bucket", mock.Anything, mock.Anything).Return(minio.ObjectInfo{}, notFound)

		assert.False(t, d.Exists(context.Background(), "missing"))
		mockClient.AssertNumberOfCalls(t, "StatObject", 2)
	})

	t.Run("Trailing Separator Probes Once", func(t *testing.T) {
		d, mockClient := setupDriver()
		mockClient.On("StatObject", mock.Anything, "test-bucket", "missing/", mock.Anything).Return(minio.ObjectInfo{}, assert.AnError)

		assert.False(t, d.Exists(context.Background(), "missing/"))
		mockClient.AssertNumberOfCalls(t, "StatObject", 1)
	})

	t.Run("Empty Key", func(t *testing.T) {
		d, mockClient := setupDriver()
		assert.False(t, d.Exists(context.Background(), ""))
		mockClient.AssertNotCalled(t, "StatObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestSize(t *testing.T) {
	t.Run("Missing", func(t *testing.T) {
		d, mockClient := setupDriver()
		mockClient.On("StatObject", mock.Anything, "test-bucket", mock.Anything, mock.Anything).Return(minio.ObjectInfo{}, notFound)

		assert.Equal(t, uint64(0), d.Size(context.Background(), "missing"))
	})

	t.Run("Present", func(t *testing.T) {
		d, mockClient := setupDriver()
		mockClient.On("StatObject", mock.Anything, "test-bucket", "file.txt", mock.Anything).Return(minio.ObjectInfo{Size: 42}, nil)

		assert.Equal(t, uint64(42), d.Size(context.Background(), "file.txt"))
	})

	t.Run("Only Marker Exists", func(t *testing.T) {
		d, mockClient := setupDriver()
		mockClient.On("StatObject", mock.Anything, "test-bucket", "folder", mock.Anything).Return(minio.ObjectInfo{}, notFound)
		mockClient.On("StatObject", mock.Anything, "test-bucket", "folder/", mock.Anything).Return(minio.ObjectInfo{}, nil)

		assert.Equal(t, uint64(0), d.Size(context.Background(), "folder"))
	})
}

func TestDownload(t *testing.T) {
	t.Run("Missing Key", func(t *testing.T) {
		d, mockClient := setupDriver()
		mockClient.On("StatObject", mock.Anything, "test-bucket", mock.Anything, mock.Anything).Return(minio.ObjectInfo{}, notFound)

		_, err := d.Download(context.Background(), "missing.txt", nil)
		assert.ErrorIs(t, err, storage.ErrInvalidKey)
		mockClient.AssertNotCalled(t, "GetObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Range Header", func(t *testing.T) {
		d, mockClient := setupDriver()
		mockClient.On("StatObject", mock.Anything, "test-bucket", "file.txt", mock.Anything).Return(minio.ObjectInfo{}, nil)
		mockClient.On("GetObject", mock.Anything, "test-bucket", "file.txt", mock.MatchedBy(func(opts minio.GetObjectOptions) bool {
			return opts.Header().Get("Range") == "bytes=2-5"
		})).Return(io.NopCloser(bytes.NewReader([]byte("2345"))), nil)

		data, err := d.Download(context.Background(), "file.txt", &storage.ByteRange{Start: 2, End: 5})
		require.NoError(t, err)
		assert.Equal(t, []byte("2345"), data)
	})

	t.Run("Open Ended Range Is Clamped", func(t *testing.T) {
		d, mockClient := setupDriver()
		mockClient.On("StatObject", mock.Anything, "test-bucket", "file.txt", mock.Anything).Return(minio.ObjectInfo{}, nil)
		mockClient.On("GetObject", mock.Anything, "test-bucket", "file.txt", mock.MatchedBy(func(opts minio.GetObjectOptions) bool {
			return opts.Header().Get("Range") == "bytes=0-9223372036854775807"
		})).Return(io.NopCloser(bytes.NewReader([]byte("whole"))), nil)

		rng, err := storage.ParseRange("bytes=0-18446744073709551615")
		require.NoError(t, err)
		data, err := d.Download(context.Background(), "file.txt", rng)
		require.NoError(t, err)
		assert.Equal(t, []byte("whole"), data)
	})

	t.Run("Start Beyond Int64", func(t *testing.T) {
		d, mockClient := setupDriver()

		_, err := d.Download(context.Background(), "file.txt", &storage.ByteRange{Start: math.MaxUint64 - 9, End: math.MaxUint64})
		assert.ErrorIs(t, err, storage.ErrInvalidRange)
		mockClient.AssertNotCalled(t, "GetObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Invalid Range", func(t *testing.T) {
		d, mockClient := setupDriver()

		_, err := d.Download(context.Background(), "file.txt", &storage.ByteRange{Start: 9, End: 1})
		assert.ErrorIs(t, err, storage.ErrInvalidRange)
		mockClient.AssertNotCalled(t, "StatObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("No Body", func(t *testing.T) {
		d, mockClient := setupDriver()
		mockClient.On("StatObject", mock.Anything, "test-bucket", "file.txt", mock.Anything).Return(minio.ObjectInfo{}, nil)
		mockClient.On("GetObject", mock.Anything, "test-bucket", "file.txt", mock.Anything).Return(nil, nil)

		_, err := d.Download(context.Background(), "file.txt", nil)
		assert.ErrorIs(t, err, storage.ErrInvalidBuffer)
	})

	t.Run("Backend Failure", func(t *testing.T) {
		d, mockClient := setupDriver()
		mockClient.On("StatObject", mock.Anything, "test-bucket", "file.txt", mock.Anything).Return(minio.ObjectInfo{}, nil)
		mockClient.On("GetObject", mock.Anything, "test-bucket", "file.txt", mock.Anything).Return(nil, assert.AnError)

		_, err := d.Download(context.Background(), "file.txt", nil)
		var be *storage.BackendError
		require.True(t, errors.As(err, &be))
		assert.Equal(t, "download", be.Op)
		assert.ErrorIs(t, err, assert.AnError)
	})
}

func TestUpload(t *testing.T) {
	t.Run("Wraps Backend Error", func(t *testing.T) {
		d, mockClient := setupDriver()
		mockClient.On("PutObject", mock.Anything, "test-bucket", "file.txt", mock.Anything, int64(5), mock.Anything).Return(minio.UploadInfo{}, assert.AnError)

		err := d.Upload(context.Background(), "file.txt", []byte("hello"))
		assert.ErrorIs(t, err, assert.AnError)
		var be *storage.BackendError
		assert.True(t, errors.As(err, &be))
	})

	t.Run("Empty Key", func(t *testing.T) {
		d, _ := setupDriver()
		assert.ErrorIs(t, d.Upload(context.Background(), "", []byte("x")), storage.ErrInvalidKey)
	})

	t.Run("Unknown Length Stream", func(t *testing.T) {
		d, mockClient := setupDriver()
		mockClient.On("PutObject", mock.Anything, "test-bucket", "big.bin", mock.Anything, int64(-1), mock.MatchedBy(func(opts minio.PutObjectOptions) bool {
			return opts.PartSize == 8*1024*1024
		})).Return(minio.UploadInfo{}, nil)

		err := d.UploadStream(context.Background(), "big.bin", bytes.NewReader([]byte("data")), -5)
		assert.NoError(t, err)
		mockClient.AssertExpectations(t)
	})
}

func TestCreate(t *testing.T) {
	d, mockClient := setupDriver()
	mockClient.On("PutObject", mock.Anything, "test-bucket", "a/b/c/", mock.Anything, int64(0), mock.Anything).Return(minio.UploadInfo{}, nil)

	require.NoError(t, d.Create(context.Background(), "/a//b/c"))
	mockClient.AssertExpectations(t)

	assert.ErrorIs(t, d.Create(context.Background(), "//"), storage.ErrInvalidKey)
}

func TestCopy(t *testing.T) {
	t.Run("Missing Source", func(t *testing.T) {
		d, mockClient := setupDriver()
		mockClient.On("StatObject", mock.Anything, "test-bucket", mock.Anything, mock.Anything).Return(minio.ObjectInfo{}, notFound)

		err := d.Copy(context.Background(), "src", "dst")
		assert.ErrorIs(t, err, storage.ErrInvalidKey)
		mockClient.AssertNotCalled(t, "CopyObject", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Same Bucket", func(t *testing.T) {
		d, mockClient := setupDriver()
		mockClient.On("StatObject", mock.Anything, "test-bucket", "src", mock.Anything).Return(minio.ObjectInfo{}, nil)
		mockClient.On("CopyObject", mock.Anything,
			minio.CopyDestOptions{Bucket: "test-bucket", Object: "dst"},
			minio.CopySrcOptions{Bucket: "test-bucket", Object: "src"},
		).Return(minio.UploadInfo{}, nil)

		require.NoError(t, d.Copy(context.Background(), "src", "dst"))
		mockClient.AssertExpectations(t)
	})
}

func TestList(t *testing.T) {
	t.Run("Immediate Children", func(t *testing.T) {
		d, mockClient := setupDriver()
		ch := make(chan minio.ObjectInfo, 5)
		for _, k := range []string{"a/", "a/b", "a/c", "a/d/e", "a/d/f"} {
			ch <- minio.ObjectInfo{Key: k}
		}
		close(ch)
		mockClient.On("ListObjects", mock.Anything, "test-bucket", mock.MatchedBy(func(opts minio.ListObjectsOptions) bool {
			return opts.Prefix == "a/" && opts.Recursive
		})).Return((<-chan minio.ObjectInfo)(ch))

		names, err := d.List(context.Background(), "a/")
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "c", "d"}, names)
	})

	t.Run("Listing Error", func(t *testing.T) {
		d, mockClient := setupDriver()
		ch := make(chan minio.ObjectInfo, 1)
		ch <- minio.ObjectInfo{Err: assert.AnError}
		close(ch)
		mockClient.On("ListObjects", mock.Anything, "test-bucket", mock.Anything).Return((<-chan minio.ObjectInfo)(ch))

		_, err := d.List(context.Background(), "")
		assert.ErrorIs(t, err, assert.AnError)
	})
}

func TestDelete(t *testing.T) {
	d, mockClient := setupDriver()
	mockClient.On("RemoveObject", mock.Anything, "test-bucket", "gone", mock.Anything).Return(notFound)
	mockClient.On("RemoveObject", mock.Anything, "test-bucket", "denied", mock.Anything).Return(minio.ErrorResponse{Code: "AccessDenied", StatusCode: http.StatusForbidden})

	assert.NoError(t, d.Delete(context.Background(), "gone"))

	var be *storage.BackendError
	assert.True(t, errors.As(d.Delete(context.Background(), "denied"), &be))
}

func TestMultipart(t *testing.T) {
	t.Run("Missing Upload ID", func(t *testing.T) {
		d, mockClient := setupDriver()
		mockClient.On("NewMultipartUpload", mock.Anything, "test-bucket", "big.bin", mock.Anything).Return("", nil)

		_, err := d.CreateMultipartID(context.Background(), "big.bin")
		assert.ErrorIs(t, err, storage.ErrInvalidMultipartID)
	})

	t.Run("Create Failure", func(t *testing.T) {
		d, mockClient := setupDriver()
		mockClient.On("NewMultipartUpload", mock.Anything, "test-bucket", "big.bin", mock.Anything).Return("", assert.AnError)

		_, err := d.CreateMultipartID(context.Background(), "big.bin")
		var be *storage.BackendError
		assert.True(t, errors.As(err, &be))
		assert.NotErrorIs(t, err, storage.ErrInvalidMultipartID)
	})

	t.Run("Missing ETag", func(t *testing.T) {
		d, mockClient := setupDriver()
		mockClient.On("PutObjectPart", mock.Anything, "test-bucket", "big.bin", "upload-1", 1, mock.Anything, int64(4), mock.Anything).
			Return(minio.ObjectPart{PartNumber: 1}, nil)

		_, err := d.UploadPart(context.Background(), "upload-1", "big.bin", 1, bytes.NewReader([]byte("part")), 4)
		assert.ErrorIs(t, err, storage.ErrInvalidMultipartChunk)
	})

	t.Run("Invalid Part Number", func(t *testing.T) {
		d, mockClient := setupDriver()

		_, err := d.UploadPart(context.Background(), "upload-1", "big.bin", 0, bytes.NewReader(nil), 0)
		assert.ErrorIs(t, err, storage.ErrInvalidMultipartChunk)
		mockClient.AssertNotCalled(t, "PutObjectPart")
	})

	t.Run("Chunk Returned", func(t *testing.T) {
		d, mockClient := setupDriver()
		mockClient.On("PutObjectPart", mock.Anything, "test-bucket", "big.bin", "upload-1", 3, mock.Anything, int64(4), mock.Anything).
			Return(minio.ObjectPart{PartNumber: 3, ETag: "etag-3"}, nil)

		chunk, err := d.UploadPart(context.Background(), "upload-1", "big.bin", 3, bytes.NewReader([]byte("part")), 4)
		require.NoError(t, err)
		assert.Equal(t, storage.Chunk{Number: 3, ETag: "etag-3"}, chunk)
	})

	t.Run("Finish Orders Parts", func(t *testing.T) {
		d, mockClient := setupDriver()
		want := []minio.CompletePart{{PartNumber: 1, ETag: "e1"}, {PartNumber: 2, ETag: "e2"}}
		mockClient.On("CompleteMultipartUpload", mock.Anything, "test-bucket", "big.bin", "upload-1", want, mock.Anything).
			Return(minio.UploadInfo{}, nil)

		chunks := []storage.Chunk{{Number: 2, ETag: "e2"}, {Number: 1, ETag: "e1"}}
		require.NoError(t, d.Finish(context.Background(), "upload-1", "big.bin", chunks))
		mockClient.AssertExpectations(t)
		assert.Equal(t, 2, chunks[0].Number, "caller's slice must not be reordered")
	})

	t.Run("Abort", func(t *testing.T) {
		d, mockClient := setupDriver()
		mockClient.On("AbortMultipartUpload", mock.Anything, "test-bucket", "big.bin", "upload-1").Return(nil)

		require.NoError(t, d.Abort(context.Background(), "upload-1", "big.bin"))
		mockClient.AssertExpectations(t)
	})
}

func TestPing(t *testing.T) {
	d, mockClient := setupDriver()
	mockClient.On("BucketExists", mock.Anything, "test-bucket").Return(false, nil).Once()
	mockClient.On("BucketExists", mock.Anything, "test-bucket").Return(true, nil).Once()

	assert.Error(t, d.Ping(context.Background()))
	assert.NoError(t, d.Ping(context.Background()))
}
