package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"golang.org/x/sync/errgroup"
)

// PresignedURLTTL is the expiration time for presigned URLs.
const PresignedURLTTL = 15 * time.Minute

// MinIOService implements Service against MinIO or any S3-compatible store.
type MinIOService struct {
	client      *minio.Client
	maxFileSize int64
	buckets     map[FileKind]string
}

// NewMinIOService creates a new MinIO storage service.
func NewMinIOService(cfg Config) (*MinIOService, error) {
	if !cfg.IsMinIOEnabled() {
		return nil, fmt.Errorf("MinIO is not configured")
	}

	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &MinIOService{
		client:      client,
		maxFileSize: cfg.GetMinIOMaxFileSize(),
		buckets: map[FileKind]string{
			KindResume:       cfg.GetMinioBucketResumes(),
			KindProfilePhoto: cfg.GetMinioBucketProfilePhotos(),
		},
	}, nil
}

// EnsureBuckets creates both buckets if they do not exist.
func (s *MinIOService) EnsureBuckets(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, bucket := range s.buckets {
		g.Go(func() error {
			exists, err := s.client.BucketExists(gctx, bucket)
			if err != nil {
				return fmt.Errorf("failed to check bucket existence: %w", err)
			}
			if !exists {
				if err := s.client.MakeBucket(gctx, bucket, minio.MakeBucketOptions{}); err != nil {
					return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// GenerateUploadURL creates a presigned PUT URL for one client file.
func (s *MinIOService) GenerateUploadURL(ctx context.Context, kind FileKind, folder, fileName, contentType string, sizeBytes int64) (*PresignedURL, error) {
	bucket, err := s.bucketFor(kind)
	if err != nil {
		return nil, err
	}
	if err := s.ValidateUpload(kind, contentType, sizeBytes); err != nil {
		return nil, err
	}

	fileKey := uniqueFileKey(folder, fileName)
	expiresAt := time.Now().Add(PresignedURLTTL)
	presignedURL, err := s.client.PresignedPutObject(ctx, bucket, fileKey, PresignedURLTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate presigned upload URL: %w", err)
	}

	return &PresignedURL{
		URL:       presignedURL.String(),
		FileKey:   fileKey,
		ExpiresAt: expiresAt,
	}, nil
}

// GenerateDownloadURL creates a presigned GET URL for a stored file key.
func (s *MinIOService) GenerateDownloadURL(ctx context.Context, kind FileKind, fileKey string) (*PresignedURL, error) {
	bucket, err := s.bucketFor(kind)
	if err != nil {
		return nil, err
	}

	expiresAt := time.Now().Add(PresignedURLTTL)
	presignedURL, err := s.client.PresignedGetObject(ctx, bucket, fileKey, PresignedURLTTL, make(url.Values))
	if err != nil {
		return nil, fmt.Errorf("failed to generate presigned download URL: %w", err)
	}

	return &PresignedURL{
		URL:       presignedURL.String(),
		FileKey:   fileKey,
		ExpiresAt: expiresAt,
	}, nil
}

// DownloadFile streams a stored file. The caller closes the reader.
func (s *MinIOService) DownloadFile(ctx context.Context, kind FileKind, fileKey string) (io.ReadCloser, error) {
	bucket, err := s.bucketFor(kind)
	if err != nil {
		return nil, err
	}

	obj, err := s.client.GetObject(ctx, bucket, fileKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", fileKey, err)
	}
	return obj, nil
}

// DeleteObject removes a stored file.
func (s *MinIOService) DeleteObject(ctx context.Context, kind FileKind, fileKey string) error {
	bucket, err := s.bucketFor(kind)
	if err != nil {
		return err
	}

	if err := s.client.RemoveObject(ctx, bucket, fileKey, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object %s: %w", fileKey, err)
	}
	return nil
}

func (s *MinIOService) bucketFor(kind FileKind) (string, error) {
	bucket, ok := s.buckets[kind]
	if !ok || bucket == "" {
		return "", fmt.Errorf("no bucket configured for file kind %q", kind)
	}
	return bucket, nil
}

// uniqueFileKey suffixes the base name with a short random id so concurrent
// uploads of the same file name never overwrite each other.
func uniqueFileKey(folder, fileName string) string {
	ext := path.Ext(fileName)
	baseName := strings.TrimSuffix(fileName, ext)
	uniqueFileName := fmt.Sprintf("%s_%s%s", baseName, uuid.New().String()[:8], ext)
	return filepath.ToSlash(filepath.Join(folder, uniqueFileName))
}
