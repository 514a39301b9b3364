package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/dharsanguruparan/PrintDrop/internal/model"
)

// OrdersFileName is the file holding the serialized order collection.
const OrdersFileName = "orders.json"

// JSONFileRepository stores the whole order collection as one JSON array.
// Every mutation reads, modifies and rewrites the full collection while
// holding mu; the rewrite goes through a temp file and rename.
type JSONFileRepository struct {
	mu   sync.Mutex
	path string
}

// NewJSONFileRepository keeps orders in dir/orders.json.
func NewJSONFileRepository(dir string) (*JSONFileRepository, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &JSONFileRepository{path: filepath.Join(dir, OrdersFileName)}, nil
}

// Path returns the location of the serialized collection.
func (r *JSONFileRepository) Path() string {
	return r.path
}

// load decodes each record as raw JSON so records that are not touched by a
// mutation are written back byte-for-byte.
func (r *JSONFileRepository) load() ([]json.RawMessage, error) {
	raw, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read orders: %w", err)
	}
	var records []json.RawMessage
	if len(raw) == 0 {
		return nil, nil
	}
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	return records, nil
}

func (r *JSONFileRepository) save(records []json.RawMessage) error {
	if records == nil {
		records = []json.RawMessage{}
	}
	encoded, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode orders: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(r.path), ".orders-*.json")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	if _, err := tmp.Write(encoded); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write orders: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("replace orders: %w", err)
	}
	return nil
}

type idOnly struct {
	OrderID string `json:"orderId"`
}

func recordID(raw json.RawMessage) string {
	var id idOnly
	_ = json.Unmarshal(raw, &id)
	return id.OrderID
}

// Create appends an order to the collection.
func (r *JSONFileRepository) Create(_ context.Context, order *model.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	records, err := r.load()
	if err != nil {
		return err
	}
	for _, rec := range records {
		if recordID(rec) == order.OrderID {
			return fmt.Errorf("%w: %s", ErrDuplicate, order.OrderID)
		}
	}
	encoded, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("encode order: %w", err)
	}
	return r.save(append(records, encoded))
}

// List decodes the full collection.
func (r *JSONFileRepository) List(_ context.Context) ([]model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	records, err := r.load()
	if err != nil {
		return nil, err
	}
	out := make([]model.Order, 0, len(records))
	for _, rec := range records {
		var o model.Order
		if err := json.Unmarshal(rec, &o); err != nil {
			return nil, fmt.Errorf("decode order: %w", err)
		}
		out = append(out, o)
	}
	return out, nil
}

// Get finds one order by id.
func (r *JSONFileRepository) Get(_ context.Context, id string) (*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	records, err := r.load()
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if recordID(rec) != id {
			continue
		}
		var o model.Order
		if err := json.Unmarshal(rec, &o); err != nil {
			return nil, fmt.Errorf("decode order: %w", err)
		}
		return &o, nil
	}
	return nil, ErrNotFound
}

// UpdateStatus rewrites the collection with only the matching record
// re-encoded.
func (r *JSONFileRepository) UpdateStatus(_ context.Context, id string, status model.OrderStatus) (*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	records, err := r.load()
	if err != nil {
		return nil, err
	}
	for i, rec := range records {
		if recordID(rec) != id {
			continue
		}
		var o model.Order
		if err := json.Unmarshal(rec, &o); err != nil {
			return nil, fmt.Errorf("decode order: %w", err)
		}
		o.Status = status
		encoded, err := json.Marshal(o)
		if err != nil {
			return nil, fmt.Errorf("encode order: %w", err)
		}
		records[i] = encoded
		if err := r.save(records); err != nil {
			return nil, err
		}
		return &o, nil
	}
	return nil, ErrNotFound
}
