// Package objects exposes the storage driver over HTTP.
//
// Routes live under /objects. Keys are taken from the trailing wildcard of
// the path and may contain separators, e.g. PUT /objects/object/a/b/c.txt.
// Multipart sessions are driven through /objects/multipart so clients can
// upload parts in parallel and commit them with one request.
//
// Storage errors map to statuses as follows: invalid or missing keys give
// 404, bad ranges and multipart input give 400, unsupported operations give
// 501 and backend failures give 502.
package objects
