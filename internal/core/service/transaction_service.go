package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/rafaelmp/stockbook/internal/core/domain"
	"github.com/rafaelmp/stockbook/internal/port"
)

const idempotencyKeyPrefix = "txn:create:"

type TransactionService struct {
	db    port.DatabaseRepository
	cache port.CacheRepository
}

// NewTransactionService builds the service. cache may be nil, in which case
// idempotency checks and stock snapshots are skipped.
func NewTransactionService(db port.DatabaseRepository, cache port.CacheRepository) *TransactionService {
	return &TransactionService{db: db, cache: cache}
}

// CreateRequest describes one stock movement to record. ProviderID is only
// honoured for incoming transactions. RequestID, when set, deduplicates
// retried submissions.
type CreateRequest struct {
	Type        domain.TransactionType
	LineItems   []LineItemRequest
	ProviderID  *int64
	Description string
	Date        time.Time
	RequestID   string
}

// Create validates, persists and applies one incoming or outgoing transaction.
// The repository runs the insert and the inventory adjustment as a single
// atomic unit, so a failure on either side leaves no partial rows.
func (s *TransactionService) Create(ctx context.Context, user domain.User, req CreateRequest) (*domain.Transaction, error) {
	if len(req.LineItems) == 0 {
		return nil, domain.ErrEmptyTransaction
	}
	if !req.Type.Valid() {
		return nil, fmt.Errorf("unknown transaction type %q", req.Type)
	}

	if req.RequestID != "" && s.cache != nil {
		ok, err := s.cache.SetIdempotency(ctx, idempotencyKeyPrefix+req.RequestID)
		if err != nil {
			return nil, fmt.Errorf("idempotency check failed: %w", err)
		}
		if !ok {
			return nil, domain.ErrDuplicateRequest
		}
	}

	if req.Type == domain.TransactionIncoming && req.ProviderID != nil {
		ok, err := s.db.ProviderExists(ctx, *req.ProviderID)
		if err != nil {
			return nil, fmt.Errorf("provider lookup failed: %w", err)
		}
		if !ok {
			return nil, &domain.ProviderNotFoundError{ProviderID: *req.ProviderID}
		}
	}

	items := normalizeLineItems(req.LineItems)
	if err := checkPositiveQuantities(items); err != nil {
		return nil, err
	}

	ids := productIDs(items)
	products, err := s.db.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("product lookup failed: %w", err)
	}
	if len(products) != len(ids) {
		return nil, &domain.ProductsNotFoundError{ProductIDs: missingProductIDs(ids, products)}
	}

	sign := 1
	if req.Type == domain.TransactionOutgoing {
		if err := checkAvailability(products, items); err != nil {
			return nil, err
		}
		sign = -1
	}

	now := time.Now()
	tx := domain.Transaction{
		ID:          uuid.NewString(),
		Type:        req.Type,
		Description: req.Description,
		Date:        req.Date,
		CreatedBy:   user.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.Type == domain.TransactionIncoming {
		tx.ProviderID = req.ProviderID
	}

	deltas := make([]port.InventoryDelta, len(items))
	for i, item := range items {
		tx.LineItems = append(tx.LineItems, domain.LineItem{
			ProductID:   item.ProductID,
			ProductName: products[i].Name,
			Quantity:    item.Quantity,
		})
		deltas[i] = port.InventoryDelta{ProductID: item.ProductID, Delta: sign * item.Quantity}
	}

	created, err := s.db.CreateTransaction(ctx, tx, deltas)
	if err != nil {
		return nil, err
	}

	s.refreshStockLevels(ctx, products, deltas)

	return created, nil
}

// refreshStockLevels pushes post-commit inventory values into the cache.
// Best effort: a stale snapshot only affects the read endpoint, never the
// source of truth.
func (s *TransactionService) refreshStockLevels(ctx context.Context, products []domain.Product, deltas []port.InventoryDelta) {
	if s.cache == nil {
		return
	}
	for i, p := range products {
		if err := s.cache.SetStockLevel(ctx, p.ID, p.Inventory+deltas[i].Delta); err != nil {
			log.WithFields(log.Fields{"product_id": p.ID, "err": err}).Warn("stock snapshot refresh failed")
			return
		}
	}
}

// ProductDetails resolves product ids to (id, name, inventory) rows, used by
// the boundary layer to render batch-error payloads.
func (s *TransactionService) ProductDetails(ctx context.Context, ids []int64) ([]domain.StockLevel, error) {
	products, err := s.db.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("product lookup failed: %w", err)
	}

	rows := make([]domain.StockLevel, len(products))
	for i, p := range products {
		rows[i] = domain.StockLevel{ProductID: p.ID, Name: p.Name, Inventory: p.Inventory}
	}
	return rows, nil
}

// StockLevel returns a product's current inventory, preferring the cache
// snapshot and falling back to the catalog.
func (s *TransactionService) StockLevel(ctx context.Context, productID int64) (int, error) {
	if s.cache != nil {
		inventory, ok, err := s.cache.GetStockLevel(ctx, productID)
		if err == nil && ok {
			return inventory, nil
		}
		if err != nil {
			log.WithFields(log.Fields{"product_id": productID, "err": err}).Warn("stock snapshot read failed")
		}
	}

	products, err := s.db.GetProductsByIDs(ctx, []int64{productID})
	if err != nil {
		return 0, fmt.Errorf("product lookup failed: %w", err)
	}
	if len(products) == 0 {
		return 0, &domain.ProductsNotFoundError{ProductIDs: []int64{productID}}
	}

	inventory := products[0].Inventory
	if s.cache != nil {
		if err := s.cache.SetStockLevel(ctx, productID, inventory); err != nil {
			log.WithFields(log.Fields{"product_id": productID, "err": err}).Warn("stock snapshot refresh failed")
		}
	}
	return inventory, nil
}
