package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"net/http"

	"objstore/core/storage"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

func init() {
	storage.RegisterFactory(storage.ProviderS3, func(_ context.Context, cfg storage.Config, log *zap.Logger) (storage.Driver, error) {
		return Open(cfg, log)
	})
}

// Driver implements storage.Driver on top of the MinIO Go client.
type Driver struct {
	api      ObjectAPI
	bucket   string
	partSize uint64
	log      *zap.Logger
}

// Open builds a MinIO client from cfg and wraps it in a Driver.
func Open(cfg storage.Config, log *zap.Logger) (*Driver, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return New(client, cfg, log), nil
}

// New wraps an existing ObjectAPI. If api implements io.Closer it is closed
// by Driver.Close.
func New(api ObjectAPI, cfg storage.Config, log *zap.Logger) *Driver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Driver{
		api:      api,
		bucket:   cfg.Bucket,
		partSize: uint64(cfg.PartSize()),
		log:      log.With(zap.String("bucket", cfg.Bucket)),
	}
}

// Upload stores data at key.
func (d *Driver) Upload(ctx context.Context, key string, data []byte) error {
	if err := storage.ValidateKey(key); err != nil {
		return err
	}
	d.log.Debug("Uploading object", zap.String("key", key), zap.Int("size", len(data)))
	_, err := d.api.PutObject(ctx, d.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{})
	return storage.Wrap("upload", key, err)
}

// UploadStream stores r at key. Unknown lengths are streamed as multipart
// uploads of the configured part size.
func (d *Driver) UploadStream(ctx context.Context, key string, r io.Reader, size int64) error {
	if err := storage.ValidateKey(key); err != nil {
		return err
	}
	opts := minio.PutObjectOptions{}
	if size < 0 {
		size = -1
		opts.PartSize = d.partSize
	}
	d.log.Debug("Streaming object", zap.String("key", key), zap.Int64("size", size))
	_, err := d.api.PutObject(ctx, d.bucket, key, r, size, opts)
	return storage.Wrap("upload_stream", key, err)
}

// Download reads the object, or rng of it, into memory.
func (d *Driver) Download(ctx context.Context, key string, rng *storage.ByteRange) ([]byte, error) {
	body, err := d.DownloadStream(ctx, key, rng)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, storage.Wrap("download", key, err)
	}
	return data, nil
}

// DownloadStream opens a lazy reader over the object.
func (d *Driver) DownloadStream(ctx context.Context, key string, rng *storage.ByteRange) (io.ReadCloser, error) {
	if err := storage.ValidateKey(key); err != nil {
		return nil, err
	}
	opts := minio.GetObjectOptions{}
	if rng != nil {
		if err := rng.Validate(); err != nil {
			return nil, err
		}
		if rng.Start > math.MaxInt64 {
			return nil, fmt.Errorf("%w: start %d", storage.ErrInvalidRange, rng.Start)
		}
		// minio treats a negative end as a suffix range; no object is larger than MaxInt64.
		end := min(rng.End, math.MaxInt64)
		if err := opts.SetRange(int64(rng.Start), int64(end)); err != nil {
			return nil, fmt.Errorf("%w: %v", storage.ErrInvalidRange, err)
		}
	}
	if !d.Exists(ctx, key) {
		return nil, fmt.Errorf("%w: %s", storage.ErrInvalidKey, key)
	}

	body, err := d.api.GetObject(ctx, d.bucket, key, opts)
	if err != nil {
		return nil, storage.Wrap("download", key, err)
	}
	if body == nil {
		return nil, storage.ErrInvalidBuffer
	}
	return body, nil
}

// Exists probes key and, when that fails, its directory marker.
func (d *Driver) Exists(ctx context.Context, key string) bool {
	if key == "" {
		return false
	}
	if d.probe(ctx, key) {
		return true
	}
	if marker, ok := storage.MarkerKey(key); ok {
		return d.probe(ctx, marker)
	}
	return false
}

func (d *Driver) probe(ctx context.Context, key string) bool {
	_, err := d.api.StatObject(ctx, d.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if !isNotFound(err) {
			d.log.Debug("Existence probe failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	return true
}

// Size returns the content length of key, or 0 when it is missing.
func (d *Driver) Size(ctx context.Context, key string) uint64 {
	if !d.Exists(ctx, key) {
		return 0
	}
	info, err := d.api.StatObject(ctx, d.bucket, key, minio.StatObjectOptions{})
	if err != nil || info.Size < 0 {
		return 0
	}
	return uint64(info.Size)
}

// Copy performs a server-side copy inside the bucket.
func (d *Driver) Copy(ctx context.Context, source, destination string) error {
	if err := storage.ValidateKey(destination); err != nil {
		return err
	}
	if !d.Exists(ctx, source) {
		return fmt.Errorf("%w: %s", storage.ErrInvalidKey, source)
	}
	d.log.Debug("Copying object", zap.String("source", source), zap.String("destination", destination))
	_, err := d.api.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: d.bucket, Object: destination},
		minio.CopySrcOptions{Bucket: d.bucket, Object: source},
	)
	return storage.Wrap("copy", source, err)
}

// List returns the immediate child names below prefix.
func (d *Driver) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	for obj := range d.api.ListObjects(ctx, d.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, storage.Wrap("list", prefix, obj.Err)
		}
		keys = append(keys, obj.Key)
	}
	return storage.ChildNames(prefix, keys), nil
}

// Delete removes key.
func (d *Driver) Delete(ctx context.Context, key string) error {
	if err := storage.ValidateKey(key); err != nil {
		return err
	}
	d.log.Debug("Deleting object", zap.String("key", key))
	err := d.api.RemoveObject(ctx, d.bucket, key, minio.RemoveObjectOptions{})
	if err != nil && isNotFound(err) {
		return nil
	}
	return storage.Wrap("delete", key, err)
}

// Create writes a zero-length directory marker for key.
func (d *Driver) Create(ctx context.Context, key string) error {
	marker, err := storage.DirectoryKey(key)
	if err != nil {
		return err
	}
	d.log.Debug("Creating directory marker", zap.String("key", marker))
	_, err = d.api.PutObject(ctx, d.bucket, marker, bytes.NewReader(nil), 0, minio.PutObjectOptions{})
	return storage.Wrap("create", marker, err)
}

// CreateMultipartID starts a multipart upload for key.
func (d *Driver) CreateMultipartID(ctx context.Context, key string) (string, error) {
	if err := storage.ValidateKey(key); err != nil {
		return "", err
	}
	id, err := d.api.NewMultipartUpload(ctx, d.bucket, key, minio.PutObjectOptions{})
	if err != nil {
		return "", storage.Wrap("create_multipart", key, err)
	}
	if id == "" {
		return "", storage.ErrInvalidMultipartID
	}
	d.log.Debug("Started multipart upload", zap.String("key", key), zap.String("upload_id", id))
	return id, nil
}

// UploadPart uploads part number of a multipart session.
func (d *Driver) UploadPart(ctx context.Context, multipartID, key string, number int, r io.Reader, size int64) (storage.Chunk, error) {
	if multipartID == "" {
		return storage.Chunk{}, storage.ErrInvalidMultipartID
	}
	if number < 1 {
		return storage.Chunk{}, fmt.Errorf("%w: part number %d", storage.ErrInvalidMultipartChunk, number)
	}
	if size < 0 {
		return storage.Chunk{}, fmt.Errorf("%w: part of unknown length", storage.ErrUnsupportedOperation)
	}
	part, err := d.api.PutObjectPart(ctx, d.bucket, key, multipartID, number, r, size, minio.PutObjectPartOptions{})
	if err != nil {
		return storage.Chunk{}, storage.Wrap("upload_part", key, err)
	}
	if part.ETag == "" {
		return storage.Chunk{}, storage.ErrInvalidMultipartChunk
	}
	return storage.Chunk{Number: number, ETag: part.ETag}, nil
}

// Abort discards a multipart session.
func (d *Driver) Abort(ctx context.Context, multipartID, key string) error {
	if multipartID == "" {
		return storage.ErrInvalidMultipartID
	}
	d.log.Debug("Aborting multipart upload", zap.String("key", key), zap.String("upload_id", multipartID))
	err := d.api.AbortMultipartUpload(ctx, d.bucket, key, multipartID)
	return storage.Wrap("abort", key, err)
}

// Finish commits a multipart session.
func (d *Driver) Finish(ctx context.Context, multipartID, key string, chunks []storage.Chunk) error {
	if multipartID == "" {
		return storage.ErrInvalidMultipartID
	}
	sorted := storage.SortedChunks(chunks)
	parts := make([]minio.CompletePart, len(sorted))
	for i, c := range sorted {
		parts[i] = minio.CompletePart{PartNumber: c.Number, ETag: c.ETag}
	}
	d.log.Debug("Completing multipart upload",
		zap.String("key", key),
		zap.String("upload_id", multipartID),
		zap.Int("parts", len(parts)))
	_, err := d.api.CompleteMultipartUpload(ctx, d.bucket, key, multipartID, parts, minio.PutObjectOptions{})
	return storage.Wrap("finish", key, err)
}

// AvailableSpace reports unlimited capacity.
func (d *Driver) AvailableSpace() uint64 { return math.MaxUint64 }

// Ping verifies the bucket is reachable.
func (d *Driver) Ping(ctx context.Context) error {
	ok, err := d.api.BucketExists(ctx, d.bucket)
	if err != nil {
		return storage.Wrap("ping", "", err)
	}
	if !ok {
		return storage.Wrap("ping", "", fmt.Errorf("bucket %s does not exist", d.bucket))
	}
	return nil
}

// Close releases the client when it owns closable resources.
func (d *Driver) Close() error {
	if c, ok := d.api.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.Code == "NotFound" || resp.StatusCode == http.StatusNotFound
}

var (
	_ storage.Driver = (*Driver)(nil)
	_ storage.Pinger = (*Driver)(nil)
)
