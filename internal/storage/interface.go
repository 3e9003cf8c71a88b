package storage

import "context"

// ObjectStore is the blob storage used for analytics archives and avatars
type ObjectStore interface {
	// Put validates obj against policy and uploads it
	Put(ctx context.Context, obj Object, policy UploadPolicy) (*UploadResult, error)
	// Delete removes an object by key
	Delete(ctx context.Context, key string) error
	// KeyFromURL maps a public URL produced by Put back to its key
	KeyFromURL(url string) (string, bool)
}

// Ensure S3Uploader implements ObjectStore
var _ ObjectStore = (*S3Uploader)(nil)
