package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dharsanguruparan/PrintDrop/internal/model"
)

const uniqueViolation = "23505"

const orderColumns = `order_id, full_name, phone_number, print_type, copies, paper_size, print_side,
	selected_pages, special_instructions, files, order_date, status, total_cost`

// PostgresRepository keeps orders in the orders table, one row per order
// with the file references in a JSONB column.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs a repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Create inserts a new order row.
func (r *PostgresRepository) Create(ctx context.Context, o *model.Order) error {
	files := o.Files
	if files == nil {
		files = []model.FileRef{}
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`, o.OrderID, o.FullName, o.PhoneNumber, o.PrintType, o.Copies, o.PaperSize, o.PrintSide,
		o.SelectedPages, o.SpecialInstructions, files, o.OrderDate, o.Status, o.TotalCost)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", ErrDuplicate, o.OrderID)
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// List returns all orders, oldest first.
func (r *PostgresRepository) List(ctx context.Context) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()
	out := []model.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return out, nil
}

// Get returns an order by id.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*model.Order, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_id=$1`, id)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return o, nil
}

// UpdateStatus changes a single row's status.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, status model.OrderStatus) (*model.Order, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE orders SET status=$1, updated_at=now()
		WHERE order_id=$2
		RETURNING `+orderColumns, status, id)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return o, nil
}

func scanOrder(row pgx.Row) (*model.Order, error) {
	var o model.Order
	err := row.Scan(&o.OrderID, &o.FullName, &o.PhoneNumber, &o.PrintType, &o.Copies, &o.PaperSize, &o.PrintSide,
		&o.SelectedPages, &o.SpecialInstructions, &o.Files, &o.OrderDate, &o.Status, &o.TotalCost)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}
	o.OrderDate = o.OrderDate.UTC()
	return &o, nil
}
