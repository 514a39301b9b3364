package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dharsanguruparan/PrintDrop/internal/model"
)

// ErrInvalidKey rejects keys that could escape the storage directory.
var ErrInvalidKey = errors.New("invalid storage key")

// DiskStore keeps each blob as a file under basePath with its metadata in a
// JSON sidecar next to it.
type DiskStore struct {
	basePath string
}

// NewDiskStore creates basePath if needed.
func NewDiskStore(basePath string) (*DiskStore, error) {
	if err := os.MkdirAll(basePath, 0o750); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &DiskStore{basePath: basePath}, nil
}

// ValidateKey accepts flat keys made of letters, digits, '-' and '_'.
func ValidateKey(key string) error {
	if key == "" || len(key) > 128 {
		return ErrInvalidKey
	}
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return ErrInvalidKey
		}
	}
	return nil
}

func (d *DiskStore) paths(key string) (string, string, error) {
	if err := ValidateKey(key); err != nil {
		return "", "", err
	}
	blob := filepath.Join(d.basePath, key)
	return blob, blob + ".json", nil
}

// Put writes the blob first and the sidecar last, so a file without metadata
// is never visible to Stat.
func (d *DiskStore) Put(_ context.Context, file *model.StoredFile) error {
	blobPath, metaPath, err := d.paths(file.Key)
	if err != nil {
		return err
	}
	meta := *file
	meta.Data = nil
	meta.Size = int64(len(file.Data))
	if meta.UploadedAt.IsZero() {
		meta.UploadedAt = time.Now().UTC()
	}
	if err := writeAtomic(blobPath, file.Data); err != nil {
		return fmt.Errorf("write blob: %w", err)
	}
	encoded, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := writeAtomic(metaPath, encoded); err != nil {
		_ = os.Remove(blobPath)
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

// Get returns blob and metadata.
func (d *DiskStore) Get(ctx context.Context, key string) (*model.StoredFile, error) {
	meta, err := d.Stat(ctx, key)
	if err != nil {
		return nil, err
	}
	blobPath, _, _ := d.paths(key)
	data, err := os.ReadFile(blobPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read blob: %w", err)
	}
	meta.Data = data
	return meta, nil
}

// Stat reads the metadata sidecar.
func (d *DiskStore) Stat(_ context.Context, key string) (*model.StoredFile, error) {
	_, metaPath, err := d.paths(key)
	if err != nil {
		if errors.Is(err, ErrInvalidKey) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	raw, err := os.ReadFile(metaPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	var meta model.StoredFile
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return &meta, nil
}

// Delete removes metadata then blob.
func (d *DiskStore) Delete(_ context.Context, key string) error {
	blobPath, metaPath, err := d.paths(key)
	if err != nil {
		return ErrNotFound
	}
	if err := os.Remove(metaPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("remove metadata: %w", err)
	}
	if err := os.Remove(blobPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove blob: %w", err)
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	dir, base := filepath.Split(path)
	tmp, err := os.CreateTemp(dir, "."+strings.TrimPrefix(base, ".")+"-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
