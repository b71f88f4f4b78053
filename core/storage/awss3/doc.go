// Package awss3 implements storage.Driver with the AWS SDK for Go v2.
//
// Importing the package registers the "aws" provider with storage.Open.
// Unlike the MinIO driver, PutObject here needs a content length up front, so
// streams of unknown size must be seekable.
package awss3
