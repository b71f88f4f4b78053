package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"
)

// UploadMultipart splits r into partSize parts, uploads them with at most
// concurrency parts in flight and commits the session once every part has
// been acknowledged. On any failure the session is aborted.
func UploadMultipart(ctx context.Context, d Driver, key string, r io.Reader, partSize int64, concurrency int) error {
	if partSize < MinPartSizeMB*1024*1024 {
		partSize = MinPartSizeMB * 1024 * 1024
	}
	if concurrency < 1 {
		concurrency = 1
	}

	id, err := d.CreateMultipartID(ctx, key)
	if err != nil {
		return err
	}

	chunks, err := uploadParts(ctx, d, id, key, r, partSize, concurrency)
	if err == nil && len(chunks) == 0 {
		err = errors.New("storage: multipart upload has no parts")
	}
	if err == nil {
		err = d.Finish(ctx, id, key, chunks)
	}
	if err != nil {
		return abort(ctx, d, id, key, err)
	}
	return nil
}

// abort cancels the session after cause and joins any abort failure to it.
func abort(ctx context.Context, d Driver, id, key string, cause error) error {
	// The caller's context may already be cancelled.
	if err := d.Abort(context.WithoutCancel(ctx), id, key); err != nil {
		return errors.Join(cause, fmt.Errorf("abort: %w", err))
	}
	return cause
}

func uploadParts(ctx context.Context, d Driver, id, key string, r io.Reader, partSize int64, concurrency int) ([]Chunk, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var (
		mu     sync.Mutex
		chunks []Chunk
	)
	for number := 1; ; number++ {
		buf := make([]byte, partSize)
		n, readErr := io.ReadFull(r, buf)
		if n == 0 && (readErr == io.EOF || readErr == io.ErrUnexpectedEOF) {
			break
		}
		if readErr != nil && readErr != io.EOF && readErr != io.ErrUnexpectedEOF {
			_ = g.Wait()
			return nil, fmt.Errorf("storage: read part %d: %w", number, readErr)
		}
		if gctx.Err() != nil {
			break
		}

		part, num := buf[:n], number
		g.Go(func() error {
			chunk, err := d.UploadPart(gctx, id, key, num, bytes.NewReader(part), int64(len(part)))
			if err != nil {
				return err
			}
			mu.Lock()
			chunks = append(chunks, chunk)
			mu.Unlock()
			return nil
		})

		if readErr != nil {
			break
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return SortedChunks(chunks), nil
}
