package orders

import (
	"context"
	"sync"
	"time"
)

// MemoryRepository keeps orders in process. IDs start at 1.
type MemoryRepository struct {
	mu     sync.RWMutex
	orders map[int64]Order
	nextID int64
	now    func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		orders: make(map[int64]Order),
		nextID: 1,
		now:    time.Now,
	}
}

func (m *MemoryRepository) Create(_ context.Context, item string, qty int) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o := Order{
		ID:        m.nextID,
		Item:      item,
		Qty:       qty,
		Status:    StatusCreated,
		CreatedAt: m.now().UTC(),
	}
	m.orders[o.ID] = o
	m.nextID++
	return o, nil
}

func (m *MemoryRepository) Get(_ context.Context, id int64) (Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	o, ok := m.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	return o, nil
}

func (m *MemoryRepository) UpdateQty(_ context.Context, id int64, qty int) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	if o.Status == StatusCancelled {
		return Order{}, ErrCancelled
	}
	o.Qty = qty
	m.orders[id] = o
	return o, nil
}

func (m *MemoryRepository) Cancel(_ context.Context, id int64) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	o.Status = StatusCancelled
	m.orders[id] = o
	return o, nil
}

func (m *MemoryRepository) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.orders), nil
}
