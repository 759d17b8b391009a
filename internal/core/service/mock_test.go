package service

import (
	"context"
	"sort"
	"strings"

	"github.com/rafaelmp/stockbook/internal/core/domain"
	"github.com/rafaelmp/stockbook/internal/port"
)

// mockDB is a map-backed DatabaseRepository mirroring the MySQL adapter's
// semantics, including the commit-time non-negativity guard.
type mockDB struct {
	products     map[int64]*domain.Product
	providers    map[int64]domain.Provider
	transactions []domain.Transaction

	productLookups int
	listCalls      int
	countCalls     int
}

func newMockDB() *mockDB {
	return &mockDB{
		products:  make(map[int64]*domain.Product),
		providers: make(map[int64]domain.Provider),
	}
}

func (m *mockDB) addProduct(id int64, name string, inventory int) {
	m.products[id] = &domain.Product{ID: id, Name: name, Inventory: inventory}
}

func (m *mockDB) GetProductsByIDs(ctx context.Context, ids []int64) ([]domain.Product, error) {
	m.productLookups++

	var found []domain.Product
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			found = append(found, *p)
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].ID < found[j].ID })
	return found, nil
}

func (m *mockDB) ProviderExists(ctx context.Context, id int64) (bool, error) {
	_, ok := m.providers[id]
	return ok, nil
}

func (m *mockDB) CreateTransaction(ctx context.Context, txn domain.Transaction, deltas []port.InventoryDelta) (*domain.Transaction, error) {
	var insufficient []int64
	for _, d := range deltas {
		if p := m.products[d.ProductID]; d.Delta < 0 && p.Inventory+d.Delta < 0 {
			insufficient = append(insufficient, d.ProductID)
		}
	}
	if len(insufficient) > 0 {
		return nil, &domain.InsufficientStockError{ProductIDs: insufficient}
	}

	for _, d := range deltas {
		m.products[d.ProductID].Inventory += d.Delta
	}

	if txn.ProviderID != nil {
		txn.ProviderName = m.providers[*txn.ProviderID].Name
	}
	m.transactions = append(m.transactions, txn)

	stored := txn
	return &stored, nil
}

func (m *mockDB) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	for _, txn := range m.transactions {
		if txn.ID == id {
			found := txn
			return &found, nil
		}
	}
	return nil, nil
}

func (m *mockDB) ListTransactions(ctx context.Context, filter port.TransactionFilter) ([]domain.Transaction, error) {
	m.listCalls++

	matched := m.filtered(filter)
	if filter.Limit > 0 {
		if filter.Offset >= len(matched) {
			return nil, nil
		}
		end := filter.Offset + filter.Limit
		if end > len(matched) {
			end = len(matched)
		}
		matched = matched[filter.Offset:end]
	}
	return matched, nil
}

func (m *mockDB) CountTransactions(ctx context.Context, filter port.TransactionFilter) (int, error) {
	m.countCalls++
	return len(m.filtered(filter)), nil
}

func (m *mockDB) filtered(filter port.TransactionFilter) []domain.Transaction {
	var matched []domain.Transaction
	for _, txn := range m.transactions {
		if filter.StartDate != nil && txn.Date.Before(*filter.StartDate) {
			continue
		}
		if filter.FinishDate != nil && txn.Date.After(*filter.FinishDate) {
			continue
		}
		if filter.Type != "" && txn.Type != filter.Type {
			continue
		}
		if filter.Description != "" && !containsFold(txn.Description, filter.Description) {
			continue
		}
		if filter.ProviderName != "" && !containsFold(txn.ProviderName, filter.ProviderName) {
			continue
		}
		if filter.ProductName != "" {
			found := false
			for _, item := range txn.LineItems {
				if containsFold(item.ProductName, filter.ProductName) {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		matched = append(matched, txn)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return matched
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

type mockCache struct {
	idempotency map[string]bool
	stock       map[int64]int
}

func newMockCache() *mockCache {
	return &mockCache{
		idempotency: make(map[string]bool),
		stock:       make(map[int64]int),
	}
}

func (m *mockCache) SetIdempotency(ctx context.Context, key string) (bool, error) {
	if m.idempotency[key] {
		return false, nil
	}
	m.idempotency[key] = true
	return true, nil
}

func (m *mockCache) SetStockLevel(ctx context.Context, productID int64, inventory int) error {
	m.stock[productID] = inventory
	return nil
}

func (m *mockCache) GetStockLevel(ctx context.Context, productID int64) (int, bool, error) {
	inventory, ok := m.stock[productID]
	return inventory, ok, nil
}
