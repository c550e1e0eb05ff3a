// Package storage provides object storage for company files.
//
// Implementations:
//   - LocalStorage: local filesystem, for development
//   - R2Storage: Cloudflare R2 (S3-compatible), for production
//
// Quota is not enforced here. Callers reserve bytes against the company's
// storage cap before writing and release them if the write fails.
package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Storage stores objects by key. All methods are context-aware.
type Storage interface {
	// Put stores data at key, replacing any existing object.
	// Returns ErrTooLarge if MaxSize is set and data exceeds it.
	Put(ctx context.Context, key string, data io.Reader, opts PutOptions) error

	// Delete removes the object at key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// URL returns a URL for the object. expires is used for presigned URLs
	// and ignored where objects are served publicly.
	URL(ctx context.Context, key string, expires time.Duration) (string, error)
}

// PutOptions configures how an object is stored.
type PutOptions struct {
	// ContentType is the MIME type. Detected from the key's extension if empty.
	ContentType string

	// MaxSize is the largest accepted body in bytes; 0 means no limit.
	MaxSize int64
}

// LocalConfig holds configuration for local filesystem storage.
type LocalConfig struct {
	// BasePath is the root directory, e.g. "./storage".
	BasePath string

	// BaseURL is the public URL prefix, e.g. "http://localhost:8080/files".
	BaseURL string
}

// R2Config holds configuration for Cloudflare R2 storage.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string

	// PublicURL is the bucket's public URL (custom domain). If empty,
	// presigned URLs are used.
	PublicURL string

	// Region defaults to "auto".
	Region string

	// Endpoint overrides the R2 endpoint derived from AccountID.
	// Useful against S3-compatible test servers.
	Endpoint string
}

const (
	// ProviderLocal identifies the local filesystem storage provider.
	ProviderLocal = "local"

	// ProviderR2 identifies the Cloudflare R2 storage provider.
	ProviderR2 = "r2"
)

// CompanyFileKey generates a key for a file uploaded by a company.
// Format: companies/{companyID}/files/{uuid}{ext}
func CompanyFileKey(companyID uuid.UUID, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return fmt.Sprintf("companies/%s/files/%s%s", companyID, uuid.New(), ext)
}

// contentTypeFor returns the provided type, else the type implied by the
// key's extension, else application/octet-stream.
func contentTypeFor(provided, key string) string {
	if provided != "" {
		return provided
	}
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(key))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// validateKey rejects empty keys and path traversal.
func validateKey(key string) error {
	if key == "" || strings.Contains(key, "..") || strings.HasPrefix(key, "/") {
		return ErrInvalidKey
	}
	return nil
}
