package storage

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"
)

// UploadPolicy constrains candidate attachment uploads (resumes,
// portfolios) before a presigned URL is handed out.
type UploadPolicy struct {
	MaxFileMB  float64
	MimeTypes  []string
	Extensions []string
}

// DefaultUploadPolicy covers the usual resume formats.
func DefaultUploadPolicy() *UploadPolicy {
	return &UploadPolicy{
		MaxFileMB:  10,
		MimeTypes:  []string{"application/pdf", "image/*", "application/msword", "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
		Extensions: []string{"pdf", "png", "jpg", "jpeg", "doc", "docx"},
	}
}

// ValidateFile validates a file against the policy. Size zero skips the
// size check (size is optional at presign time).
func (p *UploadPolicy) ValidateFile(fileName, contentType string, fileSizeBytes int64) error {
	if p == nil {
		return nil // no policy means no restrictions
	}

	if p.MaxFileMB > 0 && fileSizeBytes > 0 {
		maxBytes := int64(p.MaxFileMB * 1024 * 1024)
		if fileSizeBytes > maxBytes {
			return fmt.Errorf("file size %d bytes exceeds maximum %d bytes (%.2f MB)",
				fileSizeBytes, maxBytes, p.MaxFileMB)
		}
	}

	if len(p.MimeTypes) > 0 && !p.matchesMimeType(contentType) {
		return fmt.Errorf("content type %s is not allowed. Allowed types: %v",
			contentType, p.MimeTypes)
	}

	if len(p.Extensions) > 0 && !p.matchesExtension(fileName) {
		return fmt.Errorf("file extension is not allowed. Allowed extensions: %v",
			p.Extensions)
	}

	return nil
}

// matchesMimeType checks contentType against allowed patterns,
// including wildcards like "image/*".
func (p *UploadPolicy) matchesMimeType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = contentType
	}

	for _, allowed := range p.MimeTypes {
		if strings.HasSuffix(allowed, "/*") {
			prefix := strings.TrimSuffix(allowed, "/*")
			if strings.HasPrefix(mediaType, prefix+"/") {
				return true
			}
		} else if mediaType == allowed {
			return true
		}
	}
	return false
}

func (p *UploadPolicy) matchesExtension(fileName string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
	if ext == "" {
		return false
	}

	for _, allowed := range p.Extensions {
		if ext == allowed {
			return true
		}
	}
	return false
}
