package testutils

import (
	"context"
	"sync"

	"github.com/goatlabs/goat/types"
)

// MockPlacer implements the OrderPlacer interface in-memory, capturing
// every order for assertions. A non-nil Err is returned from each Place
// call to simulate venue failures.
type MockPlacer struct {
	mu     sync.RWMutex
	orders []types.Order
	Err    error
}

func NewMockPlacer() *MockPlacer { return &MockPlacer{} }

func (m *MockPlacer) Place(_ context.Context, o types.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = append(m.orders, o)
	return m.Err
}

// Orders returns a copy of all placed orders.
func (m *MockPlacer) Orders() []types.Order {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.Order, len(m.orders))
	copy(out, m.orders)
	return out
}
