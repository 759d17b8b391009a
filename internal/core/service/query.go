package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rafaelmp/stockbook/internal/core/domain"
	"github.com/rafaelmp/stockbook/internal/port"
)

// ListFilters are the optional, conjunctive filters over transaction history.
type ListFilters struct {
	ProductName  string
	ProviderName string
	Description  string
	Type         domain.TransactionType
	StartDate    *time.Time
	FinishDate   *time.Time
}

func (f ListFilters) validate() error {
	if f.StartDate != nil && f.FinishDate != nil && f.StartDate.After(*f.FinishDate) {
		return domain.ErrInvalidDateRange
	}
	if f.Type != "" && !f.Type.Valid() {
		return fmt.Errorf("unknown transaction type %q", f.Type)
	}
	return nil
}

func (f ListFilters) repoFilter() port.TransactionFilter {
	return port.TransactionFilter{
		ProductName:  f.ProductName,
		ProviderName: f.ProviderName,
		Description:  f.Description,
		Type:         f.Type,
		StartDate:    f.StartDate,
		FinishDate:   f.FinishDate,
	}
}

// Pagination is the metadata returned alongside a page of records. Filters
// echoes the arguments used so callers can build page links.
type Pagination struct {
	CurrentPage int
	TotalPages  int
	PerPage     int
	TotalItems  int
	Filters     ListFilters
}

type TransactionPage struct {
	Records    []domain.Transaction
	Pagination Pagination
}

// Get retrieves one transaction by id.
func (s *TransactionService) Get(ctx context.Context, id string) (*domain.Transaction, error) {
	tx, err := s.db.GetTransaction(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("transaction lookup failed: %w", err)
	}
	if tx == nil {
		return nil, domain.ErrTransactionNotFound
	}
	return tx, nil
}

// List retrieves every transaction matching the filters, ordered by id
// ascending.
func (s *TransactionService) List(ctx context.Context, filters ListFilters) ([]domain.Transaction, error) {
	if err := filters.validate(); err != nil {
		return nil, err
	}

	records, err := s.db.ListTransactions(ctx, filters.repoFilter())
	if err != nil {
		return nil, fmt.Errorf("transaction query failed: %w", err)
	}
	if len(records) == 0 {
		return nil, domain.ErrNoTransactionsFound
	}
	return records, nil
}

// ListPaged retrieves one page of matching transactions plus pagination
// metadata. page and perPage are 1-based and must both be positive.
func (s *TransactionService) ListPaged(ctx context.Context, filters ListFilters, page, perPage int) (*TransactionPage, error) {
	if page < 1 {
		return nil, &domain.InvalidPageError{Page: page}
	}
	if perPage < 1 {
		return nil, &domain.InvalidPageSizeError{PerPage: perPage}
	}
	if err := filters.validate(); err != nil {
		return nil, err
	}

	total, err := s.db.CountTransactions(ctx, filters.repoFilter())
	if err != nil {
		return nil, fmt.Errorf("transaction count failed: %w", err)
	}

	totalPages := (total + perPage - 1) / perPage
	if page > totalPages && totalPages > 0 {
		return nil, &domain.InvalidPageError{Page: page, TotalPages: totalPages}
	}

	repoFilter := filters.repoFilter()
	repoFilter.Limit = perPage
	repoFilter.Offset = (page - 1) * perPage

	records, err := s.db.ListTransactions(ctx, repoFilter)
	if err != nil {
		return nil, fmt.Errorf("transaction query failed: %w", err)
	}
	if len(records) == 0 {
		return nil, domain.ErrNoTransactionsFound
	}

	return &TransactionPage{
		Records: records,
		Pagination: Pagination{
			CurrentPage: page,
			TotalPages:  totalPages,
			PerPage:     perPage,
			TotalItems:  total,
			Filters:     filters,
		},
	}, nil
}
