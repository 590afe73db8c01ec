package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	storage_go "github.com/supabase-community/storage-go"
)

const uploadCacheControl = "max-age=3600"

// SupabaseClient uploads to Supabase Storage through the storage-go SDK.
type SupabaseClient struct {
	client *storage_go.Client
}

func NewSupabaseClient(baseURL, key string) *SupabaseClient {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	key = strings.TrimSpace(key)
	return &SupabaseClient{
		client: storage_go.NewClient(baseURL+"/storage/v1", key, map[string]string{"apikey": key}),
	}
}

func (c *SupabaseClient) Name() string {
	return "supabase"
}

// Upload stores blob without overwriting an existing object and returns its
// public URL. The SDK has no context support, so ctx is only checked before
// the request starts.
func (c *SupabaseClient) Upload(ctx context.Context, bucket, objectPath string, blob Blob) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	contentType := blob.ContentType
	cacheControl := uploadCacheControl
	upsert := false
	_, err := c.client.UploadFile(bucket, objectPath, bytes.NewReader(blob.Data), storage_go.FileOptions{
		ContentType:  &contentType,
		CacheControl: &cacheControl,
		Upsert:       &upsert,
	})
	if err != nil {
		return "", fmt.Errorf("supabase upload %s/%s: %w", bucket, objectPath, err)
	}

	return c.PublicURL(bucket, objectPath), nil
}

func (c *SupabaseClient) PublicURL(bucket, objectPath string) string {
	return c.client.GetPublicUrl(bucket, objectPath).SignedURL
}
