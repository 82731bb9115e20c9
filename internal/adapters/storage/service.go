// Package storage provides S3-compatible object storage for client files.
// Two kinds of uploads exist: resumes and profile photos, each with its own
// bucket and content-type allowlist.
package storage

import (
	"context"
	"io"
	"time"
)

// FileKind partitions uploads by purpose. The kind decides the bucket and
// which content types are accepted.
type FileKind string

const (
	KindResume       FileKind = "resume"
	KindProfilePhoto FileKind = "profile_photo"
)

// PresignedURL contains the URL and metadata for a presigned upload or
// download operation.
type PresignedURL struct {
	URL       string    `json:"url"`
	FileKey   string    `json:"fileKey"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Service defines the object storage operations used by the client profile.
type Service interface {
	// GenerateUploadURL creates a presigned PUT URL for one client file. The
	// folder parameter is the path prefix, typically the client's user ID.
	GenerateUploadURL(ctx context.Context, kind FileKind, folder, fileName, contentType string, sizeBytes int64) (*PresignedURL, error)

	// GenerateDownloadURL creates a presigned GET URL for a stored file key.
	GenerateDownloadURL(ctx context.Context, kind FileKind, fileKey string) (*PresignedURL, error)

	// DownloadFile streams a stored file. The caller closes the reader.
	DownloadFile(ctx context.Context, kind FileKind, fileKey string) (io.ReadCloser, error)

	// DeleteObject removes a stored file.
	DeleteObject(ctx context.Context, kind FileKind, fileKey string) error

	// EnsureBuckets creates both buckets if they do not exist.
	EnsureBuckets(ctx context.Context) error

	// ValidateUpload checks content type and size for the given kind.
	ValidateUpload(kind FileKind, contentType string, sizeBytes int64) error
}

// Config defines the configuration surface for storage.
type Config interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOMaxFileSize() int64
	GetMinioBucketResumes() string
	GetMinioBucketProfilePhotos() string
	IsMinIOEnabled() bool
}
