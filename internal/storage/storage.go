// Package storage keeps uploaded file blobs, keyed by server-generated names.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/yukikurage/taskflow-api/internal/config"
)

// ErrNotFound is returned by Read when no blob exists under the name.
var ErrNotFound = errors.New("blob not found")

// BlobStore persists raw file contents. Names are always produced by the server.
type BlobStore interface {
	Write(ctx context.Context, name string, data []byte, contentType string) error
	Read(ctx context.Context, name string) ([]byte, error)
	// Delete is a no-op for a missing blob.
	Delete(ctx context.Context, name string) error
	Close() error
}

// New builds the backend selected by BLOB_BACKEND.
func New(ctx context.Context, cfg *config.Config) (BlobStore, error) {
	switch cfg.BlobBackend {
	case "disk":
		return NewDiskStore(cfg.UploadDir)
	case "nats":
		store, err := NewJetStreamStore(cfg.NATSURL, cfg.NATSBucket)
		if err != nil {
			return nil, err
		}
		if err := store.Init(ctx); err != nil {
			_ = store.Close()
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported blob backend %q", cfg.BlobBackend)
	}
}
