package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var ErrObjectExists = errors.New("object already exists")

type Config struct {
	Endpoint      string
	Access        string
	Secret        string
	Bucket        string
	UseSSL        bool
	PublicBaseURL string
}

// Client is the S3-compatible upload backend used when no Supabase project
// is configured.
type Client struct {
	minio         *minio.Client
	bucket        string
	publicBaseURL string

	ensured sync.Map
}

func NewClient(cfg Config) (*Client, error) {
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Access, cfg.Secret, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("bucket is required")
	}

	publicBaseURL := strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/")
	if publicBaseURL == "" {
		publicBaseURL = strings.TrimRight(mc.EndpointURL().String(), "/")
	}

	return &Client{
		minio:         mc,
		bucket:        cfg.Bucket,
		publicBaseURL: publicBaseURL,
	}, nil
}

func (c *Client) Name() string {
	return "minio"
}

// Bucket is the default bucket for uploads that do not name one.
func (c *Client) Bucket() string {
	return c.bucket
}

func (c *Client) EnsureBucket(ctx context.Context, bucket string) error {
	if _, ok := c.ensured.Load(bucket); ok {
		return nil
	}

	exists, err := c.minio.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := c.minio.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			exists, checkErr := c.minio.BucketExists(ctx, bucket)
			if checkErr != nil || !exists {
				return fmt.Errorf("create bucket %s: %w", bucket, err)
			}
		}
	}

	c.ensured.Store(bucket, struct{}{})
	return nil
}

func (c *Client) ObjectExists(ctx context.Context, bucket, objectKey string) (bool, error) {
	_, err := c.minio.StatObject(ctx, bucket, objectKey, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}

	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.Code == "NoSuchObject" {
		return false, nil
	}
	return false, fmt.Errorf("stat object %s: %w", objectKey, err)
}

// Upload refuses to overwrite an existing key.
func (c *Client) Upload(ctx context.Context, bucket, objectKey string, blob Blob) (string, error) {
	if strings.TrimSpace(bucket) == "" {
		bucket = c.bucket
	}
	if err := c.EnsureBucket(ctx, bucket); err != nil {
		return "", err
	}

	exists, err := c.ObjectExists(ctx, bucket, objectKey)
	if err != nil {
		return "", err
	}
	if exists {
		return "", fmt.Errorf("%s/%s: %w", bucket, objectKey, ErrObjectExists)
	}

	_, err = c.minio.PutObject(
		ctx,
		bucket,
		objectKey,
		bytes.NewReader(blob.Data),
		int64(len(blob.Data)),
		minio.PutObjectOptions{
			ContentType:  blob.ContentType,
			CacheControl: uploadCacheControl,
		},
	)
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", objectKey, err)
	}
	return c.PublicURL(bucket, objectKey), nil
}

func (c *Client) PublicURL(bucket, objectKey string) string {
	return c.publicBaseURL + "/" + escapePath(bucket) + "/" + escapePath(objectKey)
}

func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
