// Package gcs provides a BlobStore backed by Google Cloud Storage.
package gcs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
)

// Config captures the parameters required to write into GCS.
type Config struct {
	Bucket string
}

// objectWriter opens an upload for one object.
type objectWriter func(ctx context.Context, bucket, path, contentType string) io.WriteCloser

// BlobStore writes reports to a configured GCS bucket.
type BlobStore struct {
	client *storage.Client
	bucket string
	open   objectWriter
}

// New creates a GCS-backed blob store.
func New(client *storage.Client, cfg Config) (*BlobStore, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &BlobStore{client: client, bucket: bucket, open: clientWriter(client)}, nil
}

func clientWriter(client *storage.Client) objectWriter {
	return func(ctx context.Context, bucket, path, contentType string) io.WriteCloser {
		w := client.Bucket(bucket).Object(path).NewWriter(ctx)
		if contentType != "" {
			w.ContentType = contentType
		}
		return w
	}
}

// PutObject uploads data and returns a gs:// URI. The object only exists
// once the writer has been closed without error.
func (s *BlobStore) PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error) {
	path = strings.TrimLeft(strings.TrimSpace(path), "/")
	if path == "" {
		return "", fmt.Errorf("path is required")
	}
	writer := s.open(ctx, s.bucket, path, contentType)
	if _, err := io.Copy(writer, bytes.NewReader(data)); err != nil {
		if closeErr := writer.Close(); closeErr != nil {
			return "", fmt.Errorf("upload %s: %w (close writer: %v)", path, err, closeErr)
		}
		return "", fmt.Errorf("upload %s: %w", path, err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finish upload %s: %w", path, err)
	}
	return fmt.Sprintf("gs://%s/%s", s.bucket, path), nil
}

// Close releases the underlying client.
func (s *BlobStore) Close() error {
	if s.client == nil {
		return nil
	}
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("close storage client: %w", err)
	}
	return nil
}
