package domain

import (
	"errors"
	"strings"
)

type UploadRequest struct {
	ImageURL        string `json:"imageUrl"`
	FileName        string `json:"fileName"`
	Bucket          string `json:"bucket"`
	SupabaseURL     string `json:"supabaseUrl,omitempty"`
	SupabaseAnonKey string `json:"supabaseAnonKey,omitempty"`
}

func (r UploadRequest) Validate() error {
	if strings.TrimSpace(r.ImageURL) == "" {
		return errors.New("imageUrl is required")
	}
	if strings.TrimSpace(r.FileName) == "" {
		return errors.New("fileName is required")
	}
	if strings.TrimSpace(r.Bucket) == "" {
		return errors.New("bucket is required")
	}
	return nil
}

type UploadResult struct {
	Path      string `json:"path"`
	PublicURL string `json:"publicUrl"`
	Bucket    string `json:"bucket"`
}
