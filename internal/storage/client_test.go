package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 answers the handful of path-style S3 calls the client makes.
type fakeS3 struct {
	mu           sync.Mutex
	buckets      map[string]bool
	objects      map[string]string
	bucketPuts   int
	cacheControl string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{buckets: map[string]bool{}, objects: map[string]string{}}
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := r.URL.Query()["location"]; ok {
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?><LocationConstraint xmlns="http://s3.amazonaws.com/doc/2006-03-01/">us-east-1</LocationConstraint>`)
		return
	}

	bucket, key, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")
	switch {
	case key == "" && r.Method == http.MethodHead:
		if !f.buckets[bucket] {
			w.WriteHeader(http.StatusNotFound)
		}
	case key == "" && r.Method == http.MethodPut:
		_, _ = io.Copy(io.Discard, r.Body)
		f.buckets[bucket] = true
		f.bucketPuts++
	case r.Method == http.MethodHead:
		contentType, ok := f.objects[bucket+"/"+key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Length", "0")
	case r.Method == http.MethodPut:
		_, _ = io.Copy(io.Discard, r.Body)
		f.objects[bucket+"/"+key] = r.Header.Get("Content-Type")
		f.cacheControl = r.Header.Get("Cache-Control")
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestClient(t *testing.T, publicBaseURL string) (*Client, *fakeS3, string) {
	t.Helper()
	fake := newFakeS3()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{
		Endpoint:      strings.TrimPrefix(srv.URL, "http://"),
		Access:        "access",
		Secret:        "secret-key",
		Bucket:        "uploads",
		PublicBaseURL: publicBaseURL,
	})
	require.NoError(t, err)
	return client, fake, srv.URL
}

func TestClientUploadCreatesBucketAndRefusesOverwrite(t *testing.T) {
	client, fake, endpoint := newTestClient(t, "")
	ctx := context.Background()

	publicURL, err := client.Upload(ctx, "", "1-abc-cat photo.png", Blob{Data: pngHeader, ContentType: "image/png"})
	require.NoError(t, err)
	assert.Equal(t, endpoint+"/uploads/1-abc-cat%20photo.png", publicURL)
	assert.True(t, fake.buckets["uploads"])
	assert.Equal(t, "image/png", fake.objects["uploads/1-abc-cat photo.png"])
	assert.Equal(t, uploadCacheControl, fake.cacheControl)

	exists, err := client.ObjectExists(ctx, "uploads", "1-abc-cat photo.png")
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = client.Upload(ctx, "uploads", "1-abc-cat photo.png", Blob{Data: pngHeader, ContentType: "image/png"})
	assert.ErrorIs(t, err, ErrObjectExists)
	assert.Equal(t, 1, fake.bucketPuts)
}

func TestClientObjectExistsMissing(t *testing.T) {
	client, fake, _ := newTestClient(t, "")
	fake.buckets["uploads"] = true

	exists, err := client.ObjectExists(context.Background(), "uploads", "nope.png")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestClientPublicURL(t *testing.T) {
	client, _, _ := newTestClient(t, "https://cdn.example.com/")
	assert.Equal(t, "https://cdn.example.com/images/a%20b/c.png", client.PublicURL("images", "a b/c.png"))
	assert.Equal(t, "minio", client.Name())
	assert.Equal(t, "uploads", client.Bucket())
}

func TestNewClientRequiresBucket(t *testing.T) {
	_, err := NewClient(Config{Endpoint: "127.0.0.1:9000", Access: "a", Secret: "b"})
	assert.Error(t, err)
}
