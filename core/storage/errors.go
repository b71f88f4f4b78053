package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidKey is returned when a key is empty or an operation requires an
	// object that does not exist.
	ErrInvalidKey = errors.New("storage: invalid key")
	// ErrInvalidMultipartID is returned when the backend accepts a multipart
	// request but omits the upload id.
	ErrInvalidMultipartID = errors.New("storage: invalid multipart id")
	// ErrInvalidMultipartChunk is returned when an uploaded part comes back
	// without an etag, or the part number is not positive.
	ErrInvalidMultipartChunk = errors.New("storage: invalid multipart chunk")
	// ErrInvalidBuffer is returned when the backend answers a read without a body.
	ErrInvalidBuffer = errors.New("storage: invalid buffer")
	// ErrUnsupportedOperation is returned when the backend cannot serve a request.
	ErrUnsupportedOperation = errors.New("storage: unsupported operation")
	// ErrInvalidRange is returned when a byte range starts after it ends.
	ErrInvalidRange = errors.New("storage: invalid byte range")
)

// BackendError wraps any failure reported by the backend or its transport.
type BackendError struct {
	// Op is the driver operation that failed (e.g. "upload", "finish").
	Op string
	// Key is the object key the operation targeted, if any.
	Key string
	// Err is the underlying SDK or transport error.
	Err error
}

func (e *BackendError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage: %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// Wrap converts err into a *BackendError unless it is nil or already one of
// the package's typed errors.
func Wrap(op, key string, err error) error {
	if err == nil {
		return nil
	}
	if IsTyped(err) {
		return err
	}
	return &BackendError{Op: op, Key: key, Err: err}
}

// IsTyped reports whether err belongs to the storage error taxonomy.
func IsTyped(err error) bool {
	var be *BackendError
	switch {
	case errors.As(err, &be),
		errors.Is(err, ErrInvalidKey),
		errors.Is(err, ErrInvalidMultipartID),
		errors.Is(err, ErrInvalidMultipartChunk),
		errors.Is(err, ErrInvalidBuffer),
		errors.Is(err, ErrUnsupportedOperation),
		errors.Is(err, ErrInvalidRange):
		return true
	}
	return false
}

// Reason returns a short, stable label for err, used for metrics and logs.
func Reason(err error) string {
	var be *BackendError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidKey):
		return "invalid_key"
	case errors.Is(err, ErrInvalidMultipartID):
		return "invalid_multipart_id"
	case errors.Is(err, ErrInvalidMultipartChunk):
		return "invalid_multipart_chunk"
	case errors.Is(err, ErrInvalidBuffer):
		return "invalid_buffer"
	case errors.Is(err, ErrUnsupportedOperation):
		return "unsupported"
	case errors.Is(err, ErrInvalidRange):
		return "invalid_range"
	case errors.As(err, &be):
		return "backend_error"
	}
	return "unknown"
}
