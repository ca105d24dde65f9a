package dataset

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory implementation of Store for demo/test use.
type MemoryStore struct {
	mu          sync.RWMutex
	sellers     []Seller
	orders      []Order
	predictions []Prediction
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

var (
	_ Store  = (*MemoryStore)(nil)
	_ Writer = (*MemoryStore)(nil)
)

func (m *MemoryStore) LoadSellers(ctx context.Context) ([]Seller, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Seller(nil), m.sellers...), nil
}

func (m *MemoryStore) LoadOrders(ctx context.Context) ([]Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Order(nil), m.orders...), nil
}

func (m *MemoryStore) LoadPredictions(ctx context.Context) ([]Prediction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Prediction(nil), m.predictions...), nil
}

func (m *MemoryStore) AppendPrediction(ctx context.Context, p Prediction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictions = append(m.predictions, p)
	return nil
}

func (m *MemoryStore) SellerMarketplace(ctx context.Context, sellerID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sellers {
		if s.SellerID == sellerID {
			return s.MarketplaceID, nil
		}
	}
	return "", ErrSellerNotFound
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func (m *MemoryStore) ReplaceSellers(ctx context.Context, sellers []Seller) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sellers = append([]Seller(nil), sellers...)
	return nil
}

func (m *MemoryStore) ReplaceOrders(ctx context.Context, orders []Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = append([]Order(nil), orders...)
	return nil
}

func (m *MemoryStore) ReplacePredictions(ctx context.Context, preds []Prediction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictions = append([]Prediction(nil), preds...)
	return nil
}
