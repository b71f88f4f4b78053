package awss3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"

	"objstore/core/storage"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"
)

func init() {
	storage.RegisterFactory(storage.ProviderAWS, func(ctx context.Context, cfg storage.Config, log *zap.Logger) (storage.Driver, error) {
		return Open(ctx, cfg, log)
	})
}

// API is the subset of *s3.Client the driver depends on.
type API interface {
	HeadBucket(ctx context.Context, in *awss3.HeadBucketInput, optFns ...func(*awss3.Options)) (*awss3.HeadBucketOutput, error)
	PutObject(ctx context.Context, in *awss3.PutObjectInput, optFns ...func(*awss3.Options)) (*awss3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *awss3.GetObjectInput, optFns ...func(*awss3.Options)) (*awss3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *awss3.HeadObjectInput, optFns ...func(*awss3.Options)) (*awss3.HeadObjectOutput, error)
	CopyObject(ctx context.Context, in *awss3.CopyObjectInput, optFns ...func(*awss3.Options)) (*awss3.CopyObjectOutput, error)
	DeleteObject(ctx context.Context, in *awss3.DeleteObjectInput, optFns ...func(*awss3.Options)) (*awss3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *awss3.ListObjectsV2Input, optFns ...func(*awss3.Options)) (*awss3.ListObjectsV2Output, error)
	CreateMultipartUpload(ctx context.Context, in *awss3.CreateMultipartUploadInput, optFns ...func(*awss3.Options)) (*awss3.CreateMultipartUploadOutput, error)
	UploadPart(ctx context.Context, in *awss3.UploadPartInput, optFns ...func(*awss3.Options)) (*awss3.UploadPartOutput, error)
	CompleteMultipartUpload(ctx context.Context, in *awss3.CompleteMultipartUploadInput, optFns ...func(*awss3.Options)) (*awss3.CompleteMultipartUploadOutput, error)
	AbortMultipartUpload(ctx context.Context, in *awss3.AbortMultipartUploadInput, optFns ...func(*awss3.Options)) (*awss3.AbortMultipartUploadOutput, error)
}

// Driver implements storage.Driver using the AWS SDK for Go v2.
type Driver struct {
	api       API
	bucket    string
	log       *zap.Logger
	transport *http.Transport
}

// Open creates an S3 client from cfg and wraps it in a Driver.
func Open(ctx context.Context, cfg storage.Config, log *zap.Logger) (*Driver, error) {
	client, transport, err := NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	d := New(client, cfg.Bucket, log)
	d.transport = transport
	return d, nil
}

// New wraps an existing API implementation.
func New(api API, bucket string, log *zap.Logger) *Driver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Driver{api: api, bucket: bucket, log: log.With(zap.String("bucket", bucket))}
}

// Upload stores data at key.
func (d *Driver) Upload(ctx context.Context, key string, data []byte) error {
	if err := storage.ValidateKey(key); err != nil {
		return err
	}
	d.log.Debug("Uploading object", zap.String("key", key), zap.Int("size", len(data)))
	_, err := d.api.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:        aws.String(d.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	return storage.Wrap("upload", key, err)
}

// UploadStream stores r at key. PutObject needs a content length, so an
// unknown size is only accepted when r can be measured by seeking.
func (d *Driver) UploadStream(ctx context.Context, key string, r io.Reader, size int64) error {
	if err := storage.ValidateKey(key); err != nil {
		return err
	}
	if size < 0 {
		n, err := remaining(r)
		if err != nil {
			return err
		}
		size = n
	}
	d.log.Debug("Streaming object", zap.String("key", key), zap.Int64("size", size))
	_, err := d.api.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:        aws.String(d.bucket),
		Key:           aws.String(key),
		Body:          r,
		ContentLength: aws.Int64(size),
	})
	return storage.Wrap("upload_stream", key, err)
}

// remaining measures the bytes left in a seekable reader.
func remaining(r io.Reader) (int64, error) {
	seeker, ok := r.(io.Seeker)
	if !ok {
		return 0, fmt.Errorf("%w: stream of unknown length", storage.ErrUnsupportedOperation)
	}
	cur, err := seeker.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", storage.ErrUnsupportedOperation, err)
	}
	end, err := seeker.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", storage.ErrUnsupportedOperation, err)
	}
	if _, err := seeker.Seek(cur, io.SeekStart); err != nil {
		return 0, fmt.Errorf("%w: %v", storage.ErrUnsupportedOperation, err)
	}
	return end - cur, nil
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

// DownloadStream returns the response body of a GetObject call.
func (d *Driver) DownloadStream(ctx context.Context, key string, rng *storage.ByteRange) (io.ReadCloser, error) {
	if err := storage.ValidateKey(key); err != nil {
		return nil, err
	}
	in := &awss3.GetObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(key),
	}
	if rng != nil {
		if err := rng.Validate(); err != nil {
			return nil, err
		}
		in.Range = aws.String(rng.Header())
	}
	if !d.Exists(ctx, key) {
		return nil, fmt.Errorf("%w: %s", storage.ErrInvalidKey, key)
	}

	out, err := d.api.GetObject(ctx, in)
	if err != nil {
		return nil, storage.Wrap("download", key, err)
	}
	if out == nil || out.Body == nil {
		return nil, storage.ErrInvalidBuffer
	}
	return out.Body, nil
}

// Exists probes key and, when that fails, its directory marker.
func (d *Driver) Exists(ctx context.Context, key string) bool {
	if key == "" {
		return false
	}
	if _, ok := d.head(ctx, key); ok {
		return true
	}
	if marker, ok := storage.MarkerKey(key); ok {
		_, found := d.head(ctx, marker)
		return found
	}
	return false
}

func (d *Driver) head(ctx context.Context, key string) (*awss3.HeadObjectOutput, bool) {
	out, err := d.api.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if !isNotFound(err) {
			d.log.Debug("Existence probe failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return out, true
}

// Size returns the content length of key, or 0 when it is missing.
func (d *Driver) Size(ctx context.Context, key string) uint64 {
	if !d.Exists(ctx, key) {
		return 0
	}
	out, ok := d.head(ctx, key)
	if !ok || out == nil {
		return 0
	}
	if n := aws.ToInt64(out.ContentLength); n > 0 {
		return uint64(n)
	}
	return 0
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
	_, err := d.api.CopyObject(ctx, &awss3.CopyObjectInput{
		Bucket:     aws.String(d.bucket),
		CopySource: aws.String(copySource(d.bucket, source)),
		Key:        aws.String(destination),
	})
	return storage.Wrap("copy", source, err)
}

// copySource builds the URL-encoded "bucket/key" copy source.
func copySource(bucket, key string) string {
	segments := strings.Split(key, storage.Separator)
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return bucket + storage.Separator + strings.Join(segments, storage.Separator)
}

// List returns the immediate child names below prefix.
func (d *Driver) List(ctx context.Context, prefix string) ([]string, error) {
	in := &awss3.ListObjectsV2Input{Bucket: aws.String(d.bucket)}
	if prefix != "" {
		in.Prefix = aws.String(prefix)
	}

	var keys []string
	pages := awss3.NewListObjectsV2Paginator(d.api, in)
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, storage.Wrap("list", prefix, err)
		}
		for _, obj := range page.Contents {
			if obj.Key != nil {
				keys = append(keys, *obj.Key)
			}
		}
	}
	return storage.ChildNames(prefix, keys), nil
}

// Delete removes key.
func (d *Driver) Delete(ctx context.Context, key string) error {
	if err := storage.ValidateKey(key); err != nil {
		return err
	}
	d.log.Debug("Deleting object", zap.String("key", key))
	_, err := d.api.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(key),
	})
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
	_, err = d.api.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:        aws.String(d.bucket),
		Key:           aws.String(marker),
		Body:          bytes.NewReader(nil),
		ContentLength: aws.Int64(0),
	})
	return storage.Wrap("create", marker, err)
}

// CreateMultipartID starts a multipart upload for key.
func (d *Driver) CreateMultipartID(ctx context.Context, key string) (string, error) {
	if err := storage.ValidateKey(key); err != nil {
		return "", err
	}
	out, err := d.api.CreateMultipartUpload(ctx, &awss3.CreateMultipartUploadInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", storage.Wrap("create_multipart", key, err)
	}
	if out == nil || aws.ToString(out.UploadId) == "" {
		return "", storage.ErrInvalidMultipartID
	}
	d.log.Debug("Started multipart upload", zap.String("key", key), zap.String("upload_id", *out.UploadId))
	return *out.UploadId, nil
}

// UploadPart uploads part number of a multipart session.
func (d *Driver) UploadPart(ctx context.Context, multipartID, key string, number int, r io.Reader, size int64) (storage.Chunk, error) {
	if multipartID == "" {
		return storage.Chunk{}, storage.ErrInvalidMultipartID
	}
	if number < 1 || number > math.MaxInt32 {
		return storage.Chunk{}, fmt.Errorf("%w: part number %d", storage.ErrInvalidMultipartChunk, number)
	}
	if size < 0 {
		n, err := remaining(r)
		if err != nil {
			return storage.Chunk{}, err
		}
		size = n
	}
	out, err := d.api.UploadPart(ctx, &awss3.UploadPartInput{
		Bucket:        aws.String(d.bucket),
		Key:           aws.String(key),
		UploadId:      aws.String(multipartID),
		PartNumber:    aws.Int32(int32(number)),
		Body:          r,
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return storage.Chunk{}, storage.Wrap("upload_part", key, err)
	}
	if out == nil || aws.ToString(out.ETag) == "" {
		return storage.Chunk{}, storage.ErrInvalidMultipartChunk
	}
	return storage.Chunk{Number: number, ETag: *out.ETag}, nil
}

// Abort discards a multipart session.
func (d *Driver) Abort(ctx context.Context, multipartID, key string) error {
	if multipartID == "" {
		return storage.ErrInvalidMultipartID
	}
	d.log.Debug("Aborting multipart upload", zap.String("key", key), zap.String("upload_id", multipartID))
	_, err := d.api.AbortMultipartUpload(ctx, &awss3.AbortMultipartUploadInput{
		Bucket:   aws.String(d.bucket),
		Key:      aws.String(key),
		UploadId: aws.String(multipartID),
	})
	return storage.Wrap("abort", key, err)
}

// Finish commits a multipart session.
func (d *Driver) Finish(ctx context.Context, multipartID, key string, chunks []storage.Chunk) error {
	if multipartID == "" {
		return storage.ErrInvalidMultipartID
	}
	sorted := storage.SortedChunks(chunks)
	parts := make([]types.CompletedPart, len(sorted))
	for i, c := range sorted {
		parts[i] = types.CompletedPart{
			ETag:       aws.String(c.ETag),
			PartNumber: aws.Int32(int32(c.Number)),
		}
	}
	d.log.Debug("Completing multipart upload",
		zap.String("key", key),
		zap.String("upload_id", multipartID),
		zap.Int("parts", len(parts)))
	_, err := d.api.CompleteMultipartUpload(ctx, &awss3.CompleteMultipartUploadInput{
		Bucket:          aws.String(d.bucket),
		Key:             aws.String(key),
		UploadId:        aws.String(multipartID),
		MultipartUpload: &types.CompletedMultipartUpload{Parts: parts},
	})
	return storage.Wrap("finish", key, err)
}

// AvailableSpace reports unlimited capacity.
func (d *Driver) AvailableSpace() uint64 { return math.MaxUint64 }

// Ping verifies the bucket is reachable.
func (d *Driver) Ping(ctx context.Context) error {
	_, err := d.api.HeadBucket(ctx, &awss3.HeadBucketInput{Bucket: aws.String(d.bucket)})
	return storage.Wrap("ping", "", err)
}

// Close drops idle connections held by the driver's transport.
func (d *Driver) Close() error {
	if d.transport != nil {
		d.transport.CloseIdleConnections()
	}
	return nil
}

// isNotFound reports whether err means the object does not exist.
func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

var (
	_ storage.Driver = (*Driver)(nil)
	_ storage.Pinger = (*Driver)(nil)
)
