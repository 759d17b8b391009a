package domain

import "time"

type TransactionType string

const (
	TransactionIncoming TransactionType = "incoming"
	TransactionOutgoing TransactionType = "outgoing"
)

func (t TransactionType) Valid() bool {
	return t == TransactionIncoming || t == TransactionOutgoing
}

// LineItem is one (product, quantity) entry within a transaction. Within a
// single transaction at most one line item exists per product.
type LineItem struct {
	ProductID   int64
	ProductName string
	Quantity    int
}

// Transaction is an append-only stock movement record. Incoming transactions
// may reference a provider; outgoing transactions never do.
type Transaction struct {
	ID           string
	Type         TransactionType
	ProviderID   *int64
	ProviderName string
	Description  string
	Date         time.Time
	CreatedBy    int64
	LineItems    []LineItem
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
