// Package s3 implements storage.Driver with the MinIO Go client.
//
// It works against AWS S3 and any S3-compatible service (MinIO, Ceph, R2).
// The driver depends on the narrow ObjectAPI interface rather than on
// *minio.Client directly so tests can substitute mocks (see s3/mocks).
//
// Importing the package registers the "s3" provider with storage.Open:
//
//	import _ "objstore/core/storage/s3"
package s3
