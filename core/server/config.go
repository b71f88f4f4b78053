package server

import (
	"errors"
	"strconv"
)

// Config holds configuration for the HTTP server.
type Config struct {
	// Port is the port where the server will listen.
	Port string `mapstructure:"port" default:"8080"`
	// ApiKey is the secret key required to access the API. Empty disables auth.
	ApiKey string `mapstructure:"api_key" default:""`
	// BodyLimitMB caps request bodies, and therefore single-request uploads.
	BodyLimitMB int `mapstructure:"body_limit_mb" default:"64"`
	// MultipartConcurrency bounds parallel part uploads for large streams.
	MultipartConcurrency int `mapstructure:"multipart_concurrency" default:"4"`
}

// DefaultBodyLimitMB applies when BodyLimitMB is unset.
const DefaultBodyLimitMB = 64

// BodyLimit returns the request body limit in bytes.
func (c Config) BodyLimit() int {
	if c.BodyLimitMB <= 0 {
		return DefaultBodyLimitMB * 1024 * 1024
	}
	return c.BodyLimitMB * 1024 * 1024
}

// Concurrency returns the multipart concurrency, at least 1.
func (c Config) Concurrency() int {
	if c.MultipartConcurrency < 1 {
		return 1
	}
	return c.MultipartConcurrency
}

// Addr returns the listen address.
func (c Config) Addr() string { return ":" + c.Port }

// Validate checks the port.
func (c Config) Validate() error {
	n, err := strconv.Atoi(c.Port)
	if err != nil || n < 1 || n > 65535 {
		return errors.New("server: port must be a number between 1 and 65535")
	}
	return nil
}
