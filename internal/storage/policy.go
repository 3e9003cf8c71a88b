package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// MIME types for archive files
const (
	ParquetContentType = "application/vnd.apache.parquet"
	BinaryContentType  = "application/octet-stream"
)

var (
	ErrObjectTooLarge        = errors.New("object exceeds maximum size")
	ErrContentTypeNotAllowed = errors.New("content type not allowed")
	ErrEmptyObject           = errors.New("object is empty")
)

// Object is a single upload
type Object struct {
	Key          string
	Body         []byte
	ContentType  string
	CacheControl string
	Metadata     map[string]string
}

// UploadResult describes a stored object
type UploadResult struct {
	Key    string `json:"key"`
	URL    string `json:"url"`
	Bucket string `json:"bucket"`
	Region string `json:"region"`
	Size   int64  `json:"size"`
}

// UploadPolicy bounds what may be uploaded for a given purpose
type UploadPolicy struct {
	Name         string
	MaxBytes     int64
	AllowedTypes []string
}

// ArchivePolicy applies to analytics archive files
var ArchivePolicy = UploadPolicy{
	Name:         "archive",
	MaxBytes:     50 << 20,
	AllowedTypes: []string{ParquetContentType, BinaryContentType},
}

// AvatarPolicy applies to profile pictures
var AvatarPolicy = UploadPolicy{
	Name:         "avatar",
	MaxBytes:     2 << 20,
	AllowedTypes: []string{"image/jpeg", "image/png", "image/webp", "image/gif"},
}

// Check validates obj against the policy
func (p UploadPolicy) Check(obj Object) error {
	if len(obj.Body) == 0 {
		return ErrEmptyObject
	}
	if p.MaxBytes > 0 && int64(len(obj.Body)) > p.MaxBytes {
		return fmt.Errorf("%w: %d > %d bytes", ErrObjectTooLarge, len(obj.Body), p.MaxBytes)
	}
	if len(p.AllowedTypes) > 0 {
		ct := normalizeContentType(obj.ContentType)
		for _, allowed := range p.AllowedTypes {
			if ct == allowed {
				return nil
			}
		}
		return fmt.Errorf("%w: %q", ErrContentTypeNotAllowed, obj.ContentType)
	}
	return nil
}

// normalizeContentType strips parameters and lowercases a MIME type
func normalizeContentType(ct string) string {
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

// ContentTypeForExt returns the MIME type for a file extension
func ContentTypeForExt(extension string) string {
	switch strings.ToLower(extension) {
	case ".parquet":
		return ParquetContentType
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return BinaryContentType
	}
}

// ContentTypeForKey returns the MIME type for an object key
func ContentTypeForKey(key string) string {
	return ContentTypeForExt(filepath.Ext(key))
}
