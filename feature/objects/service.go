package objects

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"objstore/core/storage"

	"go.uber.org/zap"
)

// Options tunes how the service uploads large bodies.
type Options struct {
	// PartSize is the body size above which uploads go through a multipart
	// session, and the size of each part.
	PartSize int64
	// Concurrency bounds parallel part uploads.
	Concurrency int
}

// Service exposes storage operations to the HTTP layer.
type Service struct {
	driver storage.Driver
	logger *zap.Logger
	opts   Options
}

// NewService creates a new objects service.
func NewService(driver storage.Driver, logger *zap.Logger, opts Options) *Service {
	if opts.PartSize <= 0 {
		opts.PartSize = storage.MinPartSizeMB * 1024 * 1024
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Service{driver: driver, logger: logger, opts: opts}
}

// Stat describes an object.
type Stat struct {
	Key    string `json:"key"`
	Exists bool   `json:"exists"`
	Size   uint64 `json:"size"`
}

// Listing is the result of a prefix listing.
type Listing struct {
	Prefix string   `json:"prefix"`
	Names  []string `json:"names"`
}

// List returns the immediate children of prefix.
func (s *Service) List(ctx context.Context, prefix string) (Listing, error) {
	names, err := s.driver.List(ctx, prefix)
	if err != nil {
		return Listing{}, err
	}
	if names == nil {
		names = []string{}
	}
	return Listing{Prefix: prefix, Names: names}, nil
}

// Stat reports whether key exists and its size.
func (s *Service) Stat(ctx context.Context, key string) Stat {
	st := Stat{Key: key, Exists: s.driver.Exists(ctx, key)}
	if st.Exists {
		st.Size = s.driver.Size(ctx, key)
	}
	return st
}

// Partial describes the slice of an object served by a ranged read.
type Partial struct {
	Start uint64
	End   uint64
	Total uint64
}

// ContentRange renders p as a Content-Range header value.
func (p Partial) ContentRange() string {
	return fmt.Sprintf("bytes %d-%d/%d", p.Start, p.End, p.Total)
}

// Length is the number of bytes in the slice.
func (p Partial) Length() uint64 { return p.End - p.Start + 1 }

// Open returns a stream over key. Full reads are streamed without a declared
// length. Ranged reads are clamped to the object and described by the
// returned Partial; a range starting past the end fails with
// errRangeNotSatisfiable and a Partial carrying only the total size.
func (s *Service) Open(ctx context.Context, key string, rng *storage.ByteRange) (io.ReadCloser, *Partial, error) {
	body, err := s.driver.DownloadStream(ctx, key, rng)
	if err != nil {
		return nil, nil, err
	}
	if rng == nil {
		return body, nil, nil
	}

	total := s.driver.Size(ctx, key)
	if rng.Start >= total {
		body.Close()
		return nil, &Partial{Total: total}, errRangeNotSatisfiable
	}
	return body, &Partial{Start: rng.Start, End: min(rng.End, total-1), Total: total}, nil
}

// Put stores data at key. Bodies larger than one part are uploaded as a
// multipart session.
func (s *Service) Put(ctx context.Context, key string, data []byte) error {
	if int64(len(data)) <= s.opts.PartSize {
		return s.driver.Upload(ctx, key, data)
	}
	s.logger.Debug("Uploading in parts",
		zap.String("key", key),
		zap.Int("size", len(data)),
		zap.Int64("part_size", s.opts.PartSize))
	return storage.UploadMultipart(ctx, s.driver, key, bytes.NewReader(data), s.opts.PartSize, s.opts.Concurrency)
}

// Delete removes key.
func (s *Service) Delete(ctx context.Context, key string) error {
	return s.driver.Delete(ctx, key)
}

// Copy duplicates source to destination.
func (s *Service) Copy(ctx context.Context, source, destination string) error {
	return s.driver.Copy(ctx, source, destination)
}

// CreateFolder writes a directory marker for key.
func (s *Service) CreateFolder(ctx context.Context, key string) error {
	return s.driver.Create(ctx, key)
}

// StartMultipart opens a multipart session for key.
func (s *Service) StartMultipart(ctx context.Context, key string) (string, error) {
	return s.driver.CreateMultipartID(ctx, key)
}

// UploadPart uploads one part of a session.
func (s *Service) UploadPart(ctx context.Context, id, key string, number int, data []byte) (storage.Chunk, error) {
	return s.driver.UploadPart(ctx, id, key, number, bytes.NewReader(data), int64(len(data)))
}

// CompleteMultipart commits a session.
func (s *Service) CompleteMultipart(ctx context.Context, id, key string, chunks []storage.Chunk) error {
	return s.driver.Finish(ctx, id, key, chunks)
}

// AbortMultipart discards a session.
func (s *Service) AbortMultipart(ctx context.Context, id, key string) error {
	return s.driver.Abort(ctx, id, key)
}

// AvailableSpace reports the backend's free capacity.
func (s *Service) AvailableSpace() uint64 {
	return s.driver.AvailableSpace()
}

// Health pings the backend when the driver supports it.
func (s *Service) Health(ctx context.Context) error {
	if p, ok := s.driver.(storage.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
