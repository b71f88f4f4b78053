package storage

import (
	"context"
	"io"
)

// Driver is the operation set every storage backend implements.
// Implementations must be safe for concurrent use.
type Driver interface {
	// Upload stores data at key, overwriting any existing object.
	Upload(ctx context.Context, key string, data []byte) error
	// UploadStream stores the contents of r at key. A negative size means the
	// length is unknown; backends that cannot stream unknown lengths return
	// ErrUnsupportedOperation.
	UploadStream(ctx context.Context, key string, r io.Reader, size int64) error
	// Download reads the object (or the requested range of it) into memory.
	// Returns ErrInvalidKey if the key does not exist.
	Download(ctx context.Context, key string, rng *ByteRange) ([]byte, error)
	// DownloadStream opens a single-pass reader over the object. The caller
	// must Close it; closing early releases the connection without draining.
	DownloadStream(ctx context.Context, key string, rng *ByteRange) (io.ReadCloser, error)
	// Exists reports whether key, or its directory marker, exists.
	Exists(ctx context.Context, key string) bool
	// Size returns the content length of key, or 0 when it does not exist.
	Size(ctx context.Context, key string) uint64
	// Copy duplicates source to destination inside the bucket.
	Copy(ctx context.Context, source, destination string) error
	// List returns the immediate child names below prefix.
	List(ctx context.Context, prefix string) ([]string, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Create makes a zero-length directory marker for key.
	Create(ctx context.Context, key string) error

	// CreateMultipartID starts a multipart session for key.
	CreateMultipartID(ctx context.Context, key string) (string, error)
	// UploadPart uploads one part of a multipart session.
	UploadPart(ctx context.Context, multipartID, key string, number int, r io.Reader, size int64) (Chunk, error)
	// Abort discards a multipart session.
	Abort(ctx context.Context, multipartID, key string) error
	// Finish commits a multipart session from its chunks.
	Finish(ctx context.Context, multipartID, key string, chunks []Chunk) error

	// AvailableSpace reports the remaining capacity of the backend.
	AvailableSpace() uint64
	// Close releases the backend handle.
	Close() error
}

// Pinger is implemented by drivers that can verify backend reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Chunk is one committed part of a multipart session.
type Chunk struct {
	Number int    `json:"number"`
	ETag   string `json:"etag"`
}
