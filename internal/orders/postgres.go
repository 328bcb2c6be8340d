package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS orders (
	id         BIGSERIAL PRIMARY KEY,
	item       TEXT        NOT NULL,
	qty        INTEGER     NOT NULL CHECK (qty > 0),
	status     TEXT        NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const orderColumns = `id, item, qty, status, created_at`

// PostgresRepository stores orders in the "orders" table.
type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Migrate creates the orders table if it does not exist.
func (p *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate orders: %w", err)
	}
	return nil
}

func (p *PostgresRepository) Create(ctx context.Context, item string, qty int) (Order, error) {
	row := p.db.QueryRow(ctx, `
		INSERT INTO orders (item, qty, status)
		VALUES ($1, $2, $3)
		RETURNING `+orderColumns, item, qty, StatusCreated)

	o, err := scanOrder(row)
	if err != nil {
		return Order{}, fmt.Errorf("insert order: %w", err)
	}
	return o, nil
}

func (p *PostgresRepository) Get(ctx context.Context, id int64) (Order, error) {
	row := p.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	return scanOrder(row)
}

func (p *PostgresRepository) UpdateQty(ctx context.Context, id int64, qty int) (Order, error) {
	row := p.db.QueryRow(ctx, `
		UPDATE orders SET qty = $2
		WHERE id = $1 AND status <> $3
		RETURNING `+orderColumns, id, qty, StatusCancelled)

	o, err := scanOrder(row)
	if !errors.Is(err, ErrNotFound) {
		return o, err
	}

	// Either the order does not exist or it is cancelled.
	if _, getErr := p.Get(ctx, id); getErr != nil {
		return Order{}, getErr
	}
	return Order{}, ErrCancelled
}

func (p *PostgresRepository) Cancel(ctx context.Context, id int64) (Order, error) {
	row := p.db.QueryRow(ctx, `
		UPDATE orders SET status = $2
		WHERE id = $1
		RETURNING `+orderColumns, id, StatusCancelled)
	return scanOrder(row)
}

func (p *PostgresRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := p.db.QueryRow(ctx, `SELECT count(*) FROM orders`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return n, nil
}

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.Item, &o.Qty, &o.Status, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, err
	}
	return o, nil
}
