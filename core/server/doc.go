// Package server holds the HTTP server configuration.
//
// The start command owns the Fiber application itself; this package only
// defines the settings it reads: listen port, API key, body limit and the
// parallelism used for multipart uploads.
package server
