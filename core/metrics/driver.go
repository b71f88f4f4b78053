package metrics

import (
	"context"
	"io"
	"time"

	"objstore/core/storage"

	"github.com/prometheus/client_golang/prometheus"
)

// Driver decorates a storage.Driver with operation metrics.
type Driver struct {
	next    storage.Driver
	metrics *Metrics
}

// Instrument wraps d and registers its collectors with reg.
func Instrument(d storage.Driver, reg prometheus.Registerer) *Driver {
	return Wrap(d, New(reg))
}

// Wrap decorates d with an existing Metrics set, so several drivers can share
// one registration.
func Wrap(d storage.Driver, m *Metrics) *Driver {
	return &Driver{next: d, metrics: m}
}

// Unwrap returns the decorated driver.
func (d *Driver) Unwrap() storage.Driver { return d.next }

func (d *Driver) Upload(ctx context.Context, key string, data []byte) error {
	start := time.Now()
	err := d.next.Upload(ctx, key, data)
	d.metrics.observe("upload", start, err)
	return err
}

func (d *Driver) UploadStream(ctx context.Context, key string, r io.Reader, size int64) error {
	start := time.Now()
	err := d.next.UploadStream(ctx, key, r, size)
	d.metrics.observe("upload_stream", start, err)
	return err
}

func (d *Driver) Download(ctx context.Context, key string, rng *storage.ByteRange) ([]byte, error) {
	start := time.Now()
	data, err := d.next.Download(ctx, key, rng)
	d.metrics.observe("download", start, err)
	return data, err
}

// DownloadStream only measures the time to open the stream.
func (d *Driver) DownloadStream(ctx context.Context, key string, rng *storage.ByteRange) (io.ReadCloser, error) {
	start := time.Now()
	body, err := d.next.DownloadStream(ctx, key, rng)
	d.metrics.observe("download_stream", start, err)
	return body, err
}

func (d *Driver) Exists(ctx context.Context, key string) bool {
	start := time.Now()
	ok := d.next.Exists(ctx, key)
	d.metrics.observe("exists", start, nil)
	return ok
}

func (d *Driver) Size(ctx context.Context, key string) uint64 {
	start := time.Now()
	n := d.next.Size(ctx, key)
	d.metrics.observe("size", start, nil)
	return n
}

func (d *Driver) Copy(ctx context.Context, source, destination string) error {
	start := time.Now()
	err := d.next.Copy(ctx, source, destination)
	d.metrics.observe("copy", start, err)
	return err
}

func (d *Driver) List(ctx context.Context, prefix string) ([]string, error) {
	start := time.Now()
	names, err := d.next.List(ctx, prefix)
	d.metrics.observe("list", start, err)
	return names, err
}

func (d *Driver) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := d.next.Delete(ctx, key)
	d.metrics.observe("delete", start, err)
	return err
}

func (d *Driver) Create(ctx context.Context, key string) error {
	start := time.Now()
	err := d.next.Create(ctx, key)
	d.metrics.observe("create", start, err)
	return err
}

func (d *Driver) CreateMultipartID(ctx context.Context, key string) (string, error) {
	start := time.Now()
	id, err := d.next.CreateMultipartID(ctx, key)
	d.metrics.observe("create_multipart", start, err)
	return id, err
}

func (d *Driver) UploadPart(ctx context.Context, multipartID, key string, number int, r io.Reader, size int64) (storage.Chunk, error) {
	start := time.Now()
	chunk, err := d.next.UploadPart(ctx, multipartID, key, number, r, size)
	d.metrics.observe("upload_part", start, err)
	return chunk, err
}

func (d *Driver) Abort(ctx context.Context, multipartID, key string) error {
	start := time.Now()
	err := d.next.Abort(ctx, multipartID, key)
	d.metrics.observe("abort", start, err)
	return err
}

func (d *Driver) Finish(ctx context.Context, multipartID, key string, chunks []storage.Chunk) error {
	start := time.Now()
	err := d.next.Finish(ctx, multipartID, key, chunks)
	d.metrics.observe("finish", start, err)
	return err
}

func (d *Driver) AvailableSpace() uint64 { return d.next.AvailableSpace() }

// Ping forwards to the wrapped driver when it supports health checks.
func (d *Driver) Ping(ctx context.Context) error {
	p, ok := d.next.(storage.Pinger)
	if !ok {
		return nil
	}
	start := time.Now()
	err := p.Ping(ctx)
	d.metrics.observe("ping", start, err)
	return err
}

func (d *Driver) Close() error { return d.next.Close() }

var (
	_ storage.Driver = (*Driver)(nil)
	_ storage.Pinger = (*Driver)(nil)
)
