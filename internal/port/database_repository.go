package port

import (
	"context"
	"time"

	"github.com/rafaelmp/stockbook/internal/core/domain"
)

// TransactionFilter narrows transaction reads. All populated fields combine
// conjunctively. Name and description matches are case-insensitive substring
// matches.
type TransactionFilter struct {
	ProductName  string
	ProviderName string
	Description  string
	Type         domain.TransactionType
	StartDate    *time.Time
	FinishDate   *time.Time

	// Limit zero means no pagination.
	Limit  int
	Offset int
}

// InventoryDelta is a signed adjustment applied to one product's inventory
// counter as part of a transaction create.
type InventoryDelta struct {
	ProductID int64
	Delta     int
}

type DatabaseRepository interface {
	// GetProductsByIDs bulk-reads products, ordered by id ascending. Missing
	// ids are simply absent from the result.
	GetProductsByIDs(ctx context.Context, ids []int64) ([]domain.Product, error)

	// ProviderExists reports whether a provider with the given id exists.
	ProviderExists(ctx context.Context, id int64) (bool, error)

	// CreateTransaction persists the transaction header, its line items and
	// the inventory deltas as one atomic unit. Negative deltas must be
	// rejected with domain.InsufficientStockError when they would drive a
	// product's inventory below zero, rolling back the whole unit.
	CreateTransaction(ctx context.Context, tx domain.Transaction, deltas []InventoryDelta) (*domain.Transaction, error)

	// GetTransaction retrieves one transaction with its line items, or nil
	// when no such transaction exists.
	GetTransaction(ctx context.Context, id string) (*domain.Transaction, error)

	// ListTransactions retrieves matching transactions with eager-loaded line
	// items, ordered by transaction id ascending.
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]domain.Transaction, error)

	// CountTransactions returns the number of transactions matching the
	// filter, ignoring Limit and Offset.
	CountTransactions(ctx context.Context, filter TransactionFilter) (int, error)
}
