// Package storage holds uploaded documents. Each backend keeps the blob and
// the metadata recorded at upload time under the same key.
package storage

import (
	"context"
	"errors"

	"github.com/dharsanguruparan/PrintDrop/internal/model"
)

var (
	// ErrNotFound is returned when no blob exists under a key.
	ErrNotFound = errors.New("file not found")
)

// FileStore is the contract every document backend satisfies.
type FileStore interface {
	// Put stores file.Data under file.Key, replacing any existing blob.
	Put(ctx context.Context, file *model.StoredFile) error
	// Get returns blob and metadata.
	Get(ctx context.Context, key string) (*model.StoredFile, error)
	// Stat returns metadata only; Data is nil.
	Stat(ctx context.Context, key string) (*model.StoredFile, error)
	Delete(ctx context.Context, key string) error
}
