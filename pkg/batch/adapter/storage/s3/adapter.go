// Package s3 provides an S3-compatible implementation of the storage adapter interfaces backed by minio-go.
package s3

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	storageAdapter "github.com/tigerroll/datalake/pkg/batch/adapter/storage"
	storageConfig "github.com/tigerroll/datalake/pkg/batch/adapter/storage/config"
	coreConfig "github.com/tigerroll/datalake/pkg/batch/core/config"
	"github.com/tigerroll/datalake/pkg/batch/support/util/logger"
)

const (
	// ProviderType defines the type identifier for this S3 storage provider.
	ProviderType = "s3"

	defaultEndpoint = "s3.amazonaws.com"
)

type s3Adapter struct {
	client *minio.Client
	cfg    storageConfig.StorageConfig
	name   string
}

var _ storageAdapter.StorageConnection = (*s3Adapter)(nil)

// NewS3Adapter creates a minio client for the configured endpoint using static V4 credentials.
// No request is sent until the first operation.
func NewS3Adapter(cfg storageConfig.StorageConfig, name string) (storageAdapter.StorageConnection, error) {
	if cfg.BucketName == "" {
		return nil, fmt.Errorf("s3 storage adapter '%s': bucket_name must be specified in configuration", name)
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}

	var creds *credentials.Credentials
	if cfg.AccessKeyID != "" {
		creds = credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)
	} else {
		creds = credentials.NewStatic("", "", "", credentials.SignatureAnonymous)
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  creds,
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("s3 storage adapter '%s': failed to create client for '%s': %w", name, endpoint, err)
	}
	return &s3Adapter{client: client, cfg: cfg, name: name}, nil
}

// Close is a no-op; the minio client holds only an http.Client.
func (a *s3Adapter) Close() error {
	logger.Debugf("S3 storage adapter '%s' closed.", a.name)
	return nil
}

func (a *s3Adapter) Type() string { return ProviderType }

func (a *s3Adapter) Name() string { return a.name }

func (a *s3Adapter) bucket(bucket string) string {
	if bucket == "" {
		return a.cfg.BucketName
	}
	return bucket
}

// Upload puts one object. Readers that report their length are sent in a single request,
// anything else is streamed as a multipart upload.
func (a *s3Adapter) Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error {
	size := int64(-1)
	if l, ok := data.(interface{ Len() int }); ok {
		size = int64(l.Len())
	}
	info, err := a.client.PutObject(ctx, a.bucket(bucket), objectName, data, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("failed to upload s3://%s/%s: %w", a.bucket(bucket), objectName, err)
	}
	logger.Debugf("Uploaded s3://%s/%s (%d bytes, adapter '%s').", info.Bucket, info.Key, info.Size, a.name)
	return nil
}

// Download returns the object body. The object is stat'ed first so a missing key fails here
// rather than on the first Read.
func (a *s3Adapter) Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error) {
	obj, err := a.client.GetObject(ctx, a.bucket(bucket), objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to open s3://%s/%s: %w", a.bucket(bucket), objectName, err)
	}
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, fmt.Errorf("failed to stat s3://%s/%s: %w", a.bucket(bucket), objectName, err)
	}
	return obj, nil
}

// ListObjects lists keys under prefix recursively, in the lexical order S3 returns them.
func (a *s3Adapter) ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for obj := range a.client.ListObjects(ctx, a.bucket(bucket), minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return fmt.Errorf("failed to list s3://%s/%s: %w", a.bucket(bucket), prefix, obj.Err)
		}
		if err := fn(obj.Key); err != nil {
			return err
		}
	}
	return nil
}

// DeleteObject removes one key. S3 reports success for missing keys.
func (a *s3Adapter) DeleteObject(ctx context.Context, bucket, objectName string) error {
	if err := a.client.RemoveObject(ctx, a.bucket(bucket), objectName, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete s3://%s/%s: %w", a.bucket(bucket), objectName, err)
	}
	return nil
}

// NewS3Provider creates the provider of "s3" connections.
func NewS3Provider(cfg *coreConfig.Config) storageAdapter.StorageProvider {
	return storageAdapter.NewCachingProvider(cfg, ProviderType, NewS3Adapter)
}
