// Package minio wraps MinIO (or any S3-compatible store) as the artifact
// store for run outputs.  Each run uploads its scores CSV under
// runs/<run-id>/ in a single configured bucket.
package minio

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/turtacn/MolScore/internal/config"
	"github.com/turtacn/MolScore/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MolScore/pkg/errors"
)

// MinIOAPI abstracts the minio-go client for testing.
type MinIOAPI interface {
	ListBuckets(ctx context.Context) ([]minio.BucketInfo, error)
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expiry time.Duration, reqParams url.Values) (*url.URL, error)
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (*minio.Object, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
}

const (
	defaultBucket        = "molscore-artifacts"
	defaultPresignExpiry = 1 * time.Hour
	connectTimeout       = 10 * time.Second
)

// Client holds the connection and the artifact bucket configuration.
type Client struct {
	api    MinIOAPI
	cfg    config.MinIOConfig
	logger logging.Logger

	mu     sync.RWMutex
	closed bool
}

var ErrClientClosed = errors.New(errors.ErrCodeInternal, "minio client is closed")

// NewClient connects, verifies reachability and ensures the artifact bucket
// exists.
func NewClient(cfg config.MinIOConfig, log logging.Logger) (*Client, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}
	applyDefaults(&cfg)

	api, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create minio client")
	}

	c := &Client{
		api:    api,
		cfg:    cfg,
		logger: log.Named("minio"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if _, err := api.ListBuckets(ctx); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "failed to connect to minio").
			WithDetail(cfg.Endpoint)
	}
	if err := c.EnsureBucket(ctx); err != nil {
		return nil, err
	}

	c.logger.Info("object store connected",
		logging.String("endpoint", cfg.Endpoint),
		logging.String("bucket", cfg.Bucket),
		logging.Bool("ssl", cfg.UseSSL))
	return c, nil
}

func applyDefaults(cfg *config.MinIOConfig) {
	if cfg.Bucket == "" {
		cfg.Bucket = defaultBucket
	}
	if cfg.PresignExpiry == 0 {
		cfg.PresignExpiry = defaultPresignExpiry
	}
}

// EnsureBucket creates the artifact bucket when it does not exist yet.
func (c *Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.api.BucketExists(ctx, c.cfg.Bucket)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "failed to check bucket existence").
			WithDetail(c.cfg.Bucket)
	}
	if exists {
		return nil
	}
	if err := c.api.MakeBucket(ctx, c.cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService,
			fmt.Sprintf("failed to create bucket %s", c.cfg.Bucket))
	}
	c.logger.Info("bucket created", logging.String("bucket", c.cfg.Bucket))
	return nil
}

// Bucket returns the configured artifact bucket name.
func (c *Client) Bucket() string {
	return c.cfg.Bucket
}

// API exposes the underlying client.
func (c *Client) API() MinIOAPI {
	return c.api
}

// PresignedGetURL returns a time-limited download URL for an artifact.
// A zero expiry falls back to the configured default.
func (c *Client) PresignedGetURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	if expiry == 0 {
		expiry = c.cfg.PresignExpiry
	}
	u, err := c.api.PresignedGetObject(ctx, c.cfg.Bucket, objectName, expiry, nil)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeExternalService, "failed to presign download URL").
			WithDetail(objectName)
	}
	return u.String(), nil
}

// HealthStatus reports store reachability for the health endpoint.
type HealthStatus struct {
	Healthy      bool
	Latency      time.Duration
	BucketExists bool
	Error        string
}

func (c *Client) HealthCheck(ctx context.Context) *HealthStatus {
	start := time.Now()
	_, err := c.api.ListBuckets(ctx)
	status := &HealthStatus{
		Healthy: err == nil,
		Latency: time.Since(start),
	}
	if err != nil {
		status.Error = err.Error()
		return status
	}

	exists, _ := c.api.BucketExists(ctx, c.cfg.Bucket)
	status.BucketExists = exists
	if !exists {
		status.Healthy = false
		status.Error = fmt.Sprintf("bucket %s missing", c.cfg.Bucket)
	}
	return status
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

//Personal.AI order the ending
