// Package orders is a small order-taking API whose mutating endpoints run
// behind the idempotency coordinator.
package orders

import (
	"context"
	"errors"
	"time"
)

const (
	StatusCreated   = "created"
	StatusCancelled = "cancelled"
)

var (
	ErrNotFound  = errors.New("order not found")
	ErrCancelled = errors.New("order is cancelled")
)

type Order struct {
	ID        int64     `json:"id"`
	Item      string    `json:"item"`
	Qty       int       `json:"qty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"-"`
}

type CreateOrderRequest struct {
	Item string `json:"item" validate:"required,max=128"`
	Qty  int    `json:"qty" validate:"gt=0,lte=10000"`
}

type UpdateOrderRequest struct {
	Qty int `json:"qty" validate:"gt=0,lte=10000"`
}

// Repository persists orders. Get, UpdateQty and Cancel return ErrNotFound
// for an unknown id; UpdateQty returns ErrCancelled for a cancelled order.
// Cancel on an already cancelled order returns it unchanged.
type Repository interface {
	Create(ctx context.Context, item string, qty int) (Order, error)
	Get(ctx context.Context, id int64) (Order, error)
	UpdateQty(ctx context.Context, id int64, qty int) (Order, error)
	Cancel(ctx context.Context, id int64) (Order, error)
	Count(ctx context.Context) (int, error)
}
