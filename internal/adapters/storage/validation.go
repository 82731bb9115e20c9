package storage

import (
	"fmt"
	"strings"
)

// allowedContentTypes maps each file kind to its accepted MIME types.
var allowedContentTypes = map[FileKind]map[string]bool{
	KindResume: {
		"application/pdf":    true,
		"application/msword": true,
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
		"text/plain": true,
	},
	KindProfilePhoto: {
		"image/jpeg": true,
		"image/png":  true,
		"image/webp": true,
	},
}

// ValidateUpload checks content type and size for the given kind.
func (s *MinIOService) ValidateUpload(kind FileKind, contentType string, sizeBytes int64) error {
	allowed, ok := allowedContentTypes[kind]
	if !ok {
		return fmt.Errorf("unknown file kind %q", kind)
	}

	// Strip parameters like charset before matching.
	normalized := strings.TrimSpace(strings.ToLower(strings.Split(contentType, ";")[0]))
	if !allowed[normalized] {
		return fmt.Errorf("content type %q is not allowed for %s uploads", contentType, kind)
	}

	if sizeBytes <= 0 {
		return fmt.Errorf("file size must be greater than 0")
	}
	if sizeBytes > s.maxFileSize {
		return fmt.Errorf("file size %d bytes exceeds maximum allowed size of %d bytes", sizeBytes, s.maxFileSize)
	}
	return nil
}

// AllowedContentTypes returns the accepted MIME types for a kind, for
// frontend validation.
func AllowedContentTypes(kind FileKind) []string {
	types := make([]string, 0, len(allowedContentTypes[kind]))
	for ct := range allowedContentTypes[kind] {
		types = append(types, ct)
	}
	return types
}
