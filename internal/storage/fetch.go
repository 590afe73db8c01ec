package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dunamismax/launchpad/internal/apperror"
	"github.com/gabriel-vasile/mimetype"
	"github.com/vincent-petithory/dataurl"
)

const DefaultMaxFetchBytes int64 = 32 << 20

var ErrTooLarge = errors.New("image exceeds the size limit")

// Blob is fetched image content ready to be stored.
type Blob struct {
	Data        []byte
	ContentType string
}

// Fetcher resolves an image reference into bytes. It accepts data: URIs and
// http(s) URLs.
type Fetcher struct {
	httpClient *http.Client
	maxBytes   int64
}

func NewFetcher(maxBytes int64) *Fetcher {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFetchBytes
	}
	return &Fetcher{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		maxBytes:   maxBytes,
	}
}

func (f *Fetcher) Fetch(ctx context.Context, ref string) (Blob, error) {
	ref = strings.TrimSpace(ref)
	if strings.HasPrefix(strings.ToLower(ref), "data:") {
		return f.decodeDataURL(ref)
	}

	u, err := url.Parse(ref)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Blob{}, apperror.InvalidInput("imageUrl must be a data: URI or an http(s) URL", err)
	}
	return f.download(ctx, u.String())
}

func (f *Fetcher) decodeDataURL(ref string) (Blob, error) {
	parsed, err := dataurl.DecodeString(ref)
	if err != nil {
		return Blob{}, apperror.InvalidInput("imageUrl is not a valid data URI", err)
	}
	if int64(len(parsed.Data)) > f.maxBytes {
		return Blob{}, apperror.InvalidInput("Image is too large", ErrTooLarge)
	}
	contentType := parsed.MediaType.ContentType()
	if contentType == "" || contentType == "text/plain" {
		contentType = mimetype.Detect(parsed.Data).String()
	}
	return Blob{Data: parsed.Data, ContentType: contentType}, nil
}

func (f *Fetcher) download(ctx context.Context, target string) (Blob, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Blob{}, apperror.InvalidInput("imageUrl is not a valid URL", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return Blob{}, apperror.Upstream("Failed to fetch image", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Blob{}, apperror.Upstream("Failed to fetch image", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return Blob{}, apperror.Upstream("Failed to fetch image", err)
	}
	if int64(len(data)) > f.maxBytes {
		return Blob{}, apperror.InvalidInput("Image is too large", ErrTooLarge)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" || strings.HasPrefix(contentType, "application/octet-stream") {
		contentType = mimetype.Detect(data).String()
	}
	return Blob{Data: data, ContentType: contentType}, nil
}
