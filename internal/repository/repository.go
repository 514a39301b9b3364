package repository

import (
	"context"
	"errors"

	"github.com/dharsanguruparan/PrintDrop/internal/model"
)

var (
	ErrNotFound  = errors.New("order not found")
	ErrDuplicate = errors.New("order id already exists")
)

// OrderRepository persists orders. Orders are appended on submission, only
// their status changes afterwards, and they are never deleted.
type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	// List returns every order in submission order.
	List(ctx context.Context) ([]model.Order, error)
	Get(ctx context.Context, id string) (*model.Order, error)
	// UpdateStatus sets the status of one order and returns the updated
	// record. There is no version check; the last writer wins.
	UpdateStatus(ctx context.Context, id string, status model.OrderStatus) (*model.Order, error)
}
