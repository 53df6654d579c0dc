// Package storage talks to the S3-compatible bucket that holds inquiry screenshots.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Stat when the object does not exist.
var ErrNotFound = errors.New("storage: object not found")

// ServiceConfig holds the configuration required to connect to the storage service.
type ServiceConfig struct {
	S3BucketName      string
	S3Endpoint        string
	S3Region          string
	S3AccessKeyID     string
	S3SecretAccessKey string
}

// Enabled reports whether enough settings are present to build a client.
func (c ServiceConfig) Enabled() bool {
	return c.S3BucketName != "" && c.S3Endpoint != "" && c.S3AccessKeyID != "" && c.S3SecretAccessKey != ""
}

// ObjectInfo is what Stat reports about a stored object.
type ObjectInfo struct {
	ContentType string
	Size        int64
}

// StorageService defines the public interface for the file storage service.
type StorageService interface {
	// PresignUpload generates a pre-signed PUT URL bound to the given type and size.
	PresignUpload(ctx context.Context, key, mimeType string, fileSize int64, duration time.Duration) (string, error)

	// PresignDownload generates a pre-signed GET URL.
	PresignDownload(ctx context.Context, key string, duration time.Duration) (string, error)

	// Stat reports an uploaded object's type and size.
	Stat(ctx context.Context, key string) (ObjectInfo, error)
}

// NewStorageService returns the S3-compatible implementation.
func NewStorageService(cfg ServiceConfig) (StorageService, error) {
	return newS3Client(cfg)
}
