package storage

import (
	"errors"
	"fmt"
	"time"
)

// Provider names understood by Open.
const (
	ProviderS3  = "s3"
	ProviderAWS = "aws"
)

const (
	// MinPartSizeMB is the smallest part size S3 accepts for non-final parts.
	MinPartSizeMB = 5
	// DefaultTimeout applies when TimeoutSeconds is unset.
	DefaultTimeout = 30 * time.Second
)

// Config holds configuration for the storage backend.
type Config struct {
	// Provider selects the driver: "s3" (minio-go) or "aws" (aws-sdk-go-v2).
	Provider string `mapstructure:"provider" default:"s3"`
	// Endpoint is the URL of the storage service. Empty means AWS S3.
	Endpoint string `mapstructure:"endpoint" default:"localhost:9000"`
	// AccessKey is the access key ID for authentication.
	AccessKey string `mapstructure:"access_key" default:"minioadmin"`
	// SecretKey is the secret access key for authentication.
	SecretKey string `mapstructure:"secret_key" default:"minioadmin"`
	// UseSSL indicates whether to use SSL/TLS for connections.
	UseSSL bool `mapstructure:"use_ssl" default:"false"`
	// Bucket is the name of the bucket every operation targets.
	Bucket string `mapstructure:"bucket" default:"objects"`
	// Region is the location of the bucket (e.g., us-east-1).
	Region string `mapstructure:"region" default:"us-east-1"`
	// TimeoutSeconds bounds connection setup and time to first response byte.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
	// PartSizeMB is the part size used when streaming uploads of unknown length.
	PartSizeMB int `mapstructure:"part_size_mb" default:"16"`
	// ForcePathStyle forces path-style bucket addressing.
	ForcePathStyle bool `mapstructure:"force_path_style" default:"true"`
}

// ApplyDefaults fills in zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = ProviderS3
	}
	if c.Region == "" {
		c.Region = "us-east-1"
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = int(DefaultTimeout / time.Second)
	}
	if c.PartSizeMB < MinPartSizeMB {
		c.PartSizeMB = MinPartSizeMB
	}
}

// Validate checks the fields every provider needs.
func (c *Config) Validate() error {
	var errs []error
	if c.Bucket == "" {
		errs = append(errs, errors.New("bucket is required"))
	}
	if c.Region == "" {
		errs = append(errs, errors.New("region is required"))
	}
	if c.Provider == ProviderS3 && c.Endpoint == "" {
		errs = append(errs, errors.New("endpoint is required for the s3 provider"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("storage: invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Timeout returns the configured request timeout.
func (c Config) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return DefaultTimeout
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// PartSize returns the streaming part size in bytes.
func (c Config) PartSize() int64 {
	mb := c.PartSizeMB
	if mb < MinPartSizeMB {
		mb = MinPartSizeMB
	}
	return int64(mb) * 1024 * 1024
}
