// Package middleware groups the HTTP middleware of the Fiber application.
//
// # Components
//
//   - auth: rejects requests lacking the configured X-API-Key.
//   - rayid: tags each request with a ray id (X-Ray-ID) that logger.WithRayID
//     attaches to log entries.
//
// The start command installs rayid globally first, then mounts the public
// routes (/health, /metrics, /swagger) before auth so they stay reachable.
package middleware
