// Package storage defines the object storage protocol shared by every backend
// driver.
//
// A Driver translates a fixed operation set into calls against one bucket of
// an S3-compatible service. Drivers own their SDK client for their lifetime,
// hold no other mutable state and are safe for concurrent use.
//
// # Drivers
//
//   - storage/s3: MinIO Go client (AWS S3 and self-hosted MinIO)
//   - storage/awss3: AWS SDK for Go v2
//
// Drivers register themselves with RegisterFactory; Open selects one from
// Config.Provider.
//
// # Errors
//
// Operations with a precondition check it first and fail with a typed error
// (ErrInvalidKey when the object is missing). Structurally incomplete backend
// responses produce ErrInvalidMultipartID, ErrInvalidMultipartChunk or
// ErrInvalidBuffer. Everything else is returned as a *BackendError that
// wraps the original cause.
//
// # Directories
//
// Directories are zero-length objects whose key ends in "/". Exists probes a
// key and, if it is missing, its directory marker. List returns immediate
// child names only.
//
// # Usage
//
//	err := storage.Use(ctx, cfg.Storage, log, func(d storage.Driver) error {
//	    return d.Upload(ctx, "reports/2026/summary.json", data)
//	})
package storage
