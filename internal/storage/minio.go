// Package storage keeps rendered export files in an S3-compatible bucket.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config locates the bucket.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	Region    string
	// Prefix is prepended to every object key.
	Prefix string
}

// ObjectClient is the subset of *minio.Client the bucket uses.
type ObjectClient interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expiry time.Duration, reqParams url.Values) (*url.URL, error)
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

// Bucket stores export files. It implements export.Sink.
type Bucket struct {
	client ObjectClient
	name   string
	region string
	prefix string
}

// New connects a minio client for cfg.
func New(cfg Config) (*Bucket, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" || strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("storage: endpoint and bucket required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: new client: %w", err)
	}
	return NewBucket(client, cfg.Bucket, cfg.Region, cfg.Prefix), nil
}

// NewBucket wraps an existing client.
func NewBucket(client ObjectClient, name, region, prefix string) *Bucket {
	return &Bucket{client: client, name: name, region: region, prefix: strings.Trim(prefix, "/")}
}

// Key returns the object key for name.
func (b *Bucket) Key(name string) string {
	name = strings.TrimLeft(path.Clean("/"+name), "/")
	if b.prefix == "" {
		return name
	}
	return b.prefix + "/" + name
}

// EnsureBucket creates the bucket when it does not exist.
func (b *Bucket) EnsureBucket(ctx context.Context) error {
	found, err := b.client.BucketExists(ctx, b.name)
	if err != nil {
		return fmt.Errorf("storage: bucket exists %s: %w", b.name, err)
	}
	if found {
		return nil
	}
	if err := b.client.MakeBucket(ctx, b.name, minio.MakeBucketOptions{Region: b.region}); err != nil {
		return fmt.Errorf("storage: make bucket %s: %w", b.name, err)
	}
	return nil
}

// Put uploads data under Key(name).
func (b *Bucket) Put(ctx context.Context, name, contentType string, data []byte) error {
	key := b.Key(name)
	_, err := b.client.PutObject(ctx, b.name, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:        contentType,
		ContentDisposition: fmt.Sprintf("attachment; filename=%q", path.Base(key)),
	})
	if err != nil {
		return fmt.Errorf("storage: put %s: %w", key, err)
	}
	return nil
}

// URL returns a presigned download link for an object key.
func (b *Bucket) URL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	u, err := b.client.PresignedGetObject(ctx, b.name, key, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("storage: presign %s: %w", key, err)
	}
	return u.String(), nil
}

// Remove deletes an object key.
func (b *Bucket) Remove(ctx context.Context, key string) error {
	return b.client.RemoveObject(ctx, b.name, key, minio.RemoveObjectOptions{})
}
