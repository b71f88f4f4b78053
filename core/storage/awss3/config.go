package awss3

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"objstore/core/storage"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
)

// NewClient creates an S3 client from cfg. The returned transport is owned by
// the client and should be closed with the driver.
//
// The HTTP client starts as a BuildableClient so shared AWS config inputs such
// as AWS_CA_BUNDLE can still be applied, then is pinned to a single transport.
func NewClient(ctx context.Context, cfg storage.Config) (*awss3.Client, *http.Transport, error) {
	timeout := cfg.Timeout()
	httpClient := awshttp.NewBuildableClient().
		WithDialerOptions(func(d *net.Dialer) {
			d.Timeout = timeout
			d.KeepAlive = 30 * time.Second
		}).
		WithTransportOptions(func(tr *http.Transport) {
			tr.MaxIdleConns = 100
			tr.IdleConnTimeout = 90 * time.Second
			tr.TLSHandshakeTimeout = timeout
			tr.ExpectContinueTimeout = 1 * time.Second
			tr.ResponseHeaderTimeout = timeout
		})

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithHTTPClient(httpClient),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("storage: load aws config: %w", err)
	}

	buildable, ok := awsCfg.HTTPClient.(*awshttp.BuildableClient)
	if !ok {
		return nil, nil, fmt.Errorf("storage: unexpected aws http client %T", awsCfg.HTTPClient)
	}
	// GetTransport returns a clone carrying every option applied so far.
	transport := buildable.GetTransport()
	awsCfg.HTTPClient = &http.Client{Transport: transport}

	var s3Opts []func(*awss3.Options)
	if endpoint := endpointURL(cfg); endpoint != "" {
		s3Opts = append(s3Opts, func(o *awss3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}
	if cfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *awss3.Options) {
			o.UsePathStyle = true
		})
	}

	return awss3.NewFromConfig(awsCfg, s3Opts...), transport, nil
}

// endpointURL adds a scheme to bare host:port endpoints.
func endpointURL(cfg storage.Config) string {
	if cfg.Endpoint == "" {
		return ""
	}
	if strings.HasPrefix(cfg.Endpoint, "http://") || strings.HasPrefix(cfg.Endpoint, "https://") {
		return cfg.Endpoint
	}
	if cfg.UseSSL {
		return "https://" + cfg.Endpoint
	}
	return "http://" + cfg.Endpoint
}
