package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/dunamismax/launchpad/internal/apperror"
	"github.com/dunamismax/launchpad/internal/domain"
	"github.com/dunamismax/launchpad/internal/id"
)

// Uploader stores a blob under bucket/objectPath and returns its public URL.
type Uploader interface {
	Name() string
	Upload(ctx context.Context, bucket, objectPath string, blob Blob) (string, error)
}

// SupabaseDefaults are the server-side credentials used when a request does
// not carry its own.
type SupabaseDefaults struct {
	URL string
	Key string
}

// Service resolves the image reference, picks an upload backend and stores
// the image.
type Service struct {
	fetcher     *Fetcher
	supabase    SupabaseDefaults
	objectStore Uploader
	newSupabase func(url, key string) Uploader
	now         func() time.Time
	token       func() string
}

// NewService builds the upload service. objectStore may be nil when no
// S3-compatible backend is configured.
func NewService(fetcher *Fetcher, supabase SupabaseDefaults, objectStore Uploader) *Service {
	if fetcher == nil {
		fetcher = NewFetcher(0)
	}
	return &Service{
		fetcher:     fetcher,
		supabase:    supabase,
		objectStore: objectStore,
		newSupabase: func(url, key string) Uploader { return NewSupabaseClient(url, key) },
		now:         time.Now,
		token:       id.Short,
	}
}

// Upload returns the name of the backend it chose alongside the result, and
// also with any error raised once a backend was picked.
func (s *Service) Upload(ctx context.Context, req domain.UploadRequest) (domain.UploadResult, string, error) {
	if err := req.Validate(); err != nil {
		return domain.UploadResult{}, "", apperror.InvalidInput(err.Error(), err)
	}

	uploader, err := s.resolve(req)
	if err != nil {
		return domain.UploadResult{}, "", err
	}

	blob, err := s.fetcher.Fetch(ctx, req.ImageURL)
	if err != nil {
		return domain.UploadResult{}, uploader.Name(), err
	}

	objectPath := ObjectPath(s.now(), s.token(), req.FileName)
	publicURL, err := uploader.Upload(ctx, req.Bucket, objectPath, blob)
	if err != nil {
		return domain.UploadResult{}, uploader.Name(), apperror.Upstream("Failed to upload to "+uploader.Name(), err)
	}

	return domain.UploadResult{
		Path:      objectPath,
		PublicURL: publicURL,
		Bucket:    req.Bucket,
	}, uploader.Name(), nil
}

// resolve prefers request credentials, then server Supabase credentials,
// then the object store.
func (s *Service) resolve(req domain.UploadRequest) (Uploader, error) {
	url := firstNonEmpty(req.SupabaseURL, s.supabase.URL)
	key := firstNonEmpty(req.SupabaseAnonKey, s.supabase.Key)
	if url != "" && key != "" {
		return s.newSupabase(url, key), nil
	}
	if s.objectStore != nil {
		return s.objectStore, nil
	}
	return nil, apperror.MissingCredential("Supabase credentials not provided")
}

// ObjectPath is <unixMillis>-<token>-<base name>.
func ObjectPath(now time.Time, token, fileName string) string {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(fileName), `\`, "/"))
	if base == "." || base == "/" {
		base = "upload"
	}
	return fmt.Sprintf("%d-%s-%s", now.UnixMilli(), token, base)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
