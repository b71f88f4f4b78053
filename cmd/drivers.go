package cmd

// Register the storage providers with storage.Open.
import (
	_ "objstore/core/storage/awss3"
	_ "objstore/core/storage/s3"
)
