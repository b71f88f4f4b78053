package storagetest

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrNoSuchKey is returned for reads of missing objects.
	ErrNoSuchKey = errors.New("no such key")
	// ErrNoSuchUpload is returned for unknown, completed or aborted sessions.
	ErrNoSuchUpload = errors.New("no such upload")
	// ErrInvalidPart is returned when a completed part is missing or its etag
	// does not match.
	ErrInvalidPart = errors.New("invalid part")
	// ErrInvalidPartOrder is returned when parts are not in ascending order.
	ErrInvalidPartOrder = errors.New("invalid part order")
	// ErrInvalidRange is returned when a range starts beyond the object.
	ErrInvalidRange = errors.New("invalid range")
)

// Part identifies an uploaded multipart part.
type Part struct {
	Number int
	ETag   string
}

type upload struct {
	key   string
	parts map[int][]byte
	etags map[int]string
}

// Bucket is an in-memory model of a single S3 bucket, used to back SDK
// fakes in driver tests. It is safe for concurrent use.
type Bucket struct {
	mu      sync.Mutex
	objects map[string][]byte
	uploads map[string]*upload
}

// NewBucket returns an empty bucket.
func NewBucket() *Bucket {
	return &Bucket{
		objects: make(map[string][]byte),
		uploads: make(map[string]*upload),
	}
}

// Put stores a copy of data at key.
func (b *Bucket) Put(key string, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = append([]byte(nil), data...)
}

// Get returns the object at key.
func (b *Bucket) Get(key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[key]
	if !ok {
		return nil, ErrNoSuchKey
	}
	return data, nil
}

// GetRange returns the inclusive byte range [start, end] of key, clamping end
// to the object length.
func (b *Bucket) GetRange(key string, start, end int64) ([]byte, error) {
	data, err := b.Get(key)
	if err != nil {
		return nil, err
	}
	if start < 0 || start >= int64(len(data)) || end < start {
		return nil, ErrInvalidRange
	}
	if end >= int64(len(data)) {
		end = int64(len(data)) - 1
	}
	return data[start : end+1], nil
}

// Delete removes key. Missing keys are ignored.
func (b *Bucket) Delete(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, key)
}

// Copy duplicates src to dst.
func (b *Bucket) Copy(src, dst string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[src]
	if !ok {
		return ErrNoSuchKey
	}
	b.objects[dst] = append([]byte(nil), data...)
	return nil
}

// Keys returns every key starting with prefix in lexical order.
func (b *Bucket) Keys(prefix string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var keys []string
	for k := range b.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// CreateUpload starts a multipart session for key.
func (b *Bucket) CreateUpload(key string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := uuid.NewString()
	b.uploads[id] = &upload{
		key:   key,
		parts: make(map[int][]byte),
		etags: make(map[int]string),
	}
	return id
}

// PutPart stores part number of session id and returns its etag.
func (b *Bucket) PutPart(id, key string, number int, data []byte) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.uploads[id]
	if !ok || u.key != key {
		return "", ErrNoSuchUpload
	}
	sum := md5.Sum(data)
	etag := `"` + hex.EncodeToString(sum[:]) + `"`
	u.parts[number] = append([]byte(nil), data...)
	u.etags[number] = etag
	return etag, nil
}

// Complete assembles the listed parts into key and closes the session.
func (b *Bucket) Complete(id, key string, parts []Part) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.uploads[id]
	if !ok || u.key != key {
		return ErrNoSuchUpload
	}
	if len(parts) == 0 {
		return fmt.Errorf("%w: no parts", ErrInvalidPart)
	}
	var data []byte
	last := 0
	for _, p := range parts {
		if p.Number <= last {
			return ErrInvalidPartOrder
		}
		last = p.Number
		etag, ok := u.etags[p.Number]
		if !ok || etag != p.ETag {
			return fmt.Errorf("%w: %d", ErrInvalidPart, p.Number)
		}
		data = append(data, u.parts[p.Number]...)
	}
	b.objects[key] = data
	delete(b.uploads, id)
	return nil
}

// Abort discards session id.
func (b *Bucket) Abort(id, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.uploads[id]
	if !ok || u.key != key {
		return ErrNoSuchUpload
	}
	delete(b.uploads, id)
	return nil
}

// Uploads returns the number of open multipart sessions.
func (b *Bucket) Uploads() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.uploads)
}
