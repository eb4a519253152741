/*
Package storage provides read access to S3-compatible object storage.

It is used at start-up to fetch the room catalog document when the catalog is not compiled
into the binary.
*/
package storage

import (
	"context"
)

// ServiceConfig holds the configuration required to connect to the storage service.
type ServiceConfig struct {
	S3BucketName      string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
}

// StorageService defines the public interface for the object storage service.
type StorageService interface {
	// Download fetches the whole object stored under key.
	Download(ctx context.Context, key string) ([]byte, error)

	// GetObjectMetadata retrieves the object's metadata.
	GetObjectMetadata(ctx context.Context, key string) (map[string]string, error)
}

// NewStorageService is the factory function for StorageService.
func NewStorageService(ctx context.Context, cfg ServiceConfig) (StorageService, error) {
	// Currently, only S3 compatible implementations are supported.
	return newS3Client(ctx, cfg)
}
