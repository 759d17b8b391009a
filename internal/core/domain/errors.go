package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyTransaction    = errors.New("transaction has no line items")
	ErrDuplicateRequest    = errors.New("duplicate request")
	ErrInvalidDateRange    = errors.New("start date is after finish date")
	ErrNoTransactionsFound = errors.New("no transactions found")
	ErrTransactionNotFound = errors.New("transaction not found")
)

// InvalidQuantityError reports every line item whose merged quantity violated
// the sign policy for the requested transaction type.
type InvalidQuantityError struct {
	ProductIDs []int64
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("invalid quantity for products %v", e.ProductIDs)
}

// ProductsNotFoundError reports every requested product id missing from the
// catalog.
type ProductsNotFoundError struct {
	ProductIDs []int64
}

func (e *ProductsNotFoundError) Error() string {
	return fmt.Sprintf("products not found: %v", e.ProductIDs)
}

// InsufficientStockError reports every product whose inventory cannot cover
// the requested outgoing quantity.
type InsufficientStockError struct {
	ProductIDs []int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for products %v", e.ProductIDs)
}

type ProviderNotFoundError struct {
	ProviderID int64
}

func (e *ProviderNotFoundError) Error() string {
	return fmt.Sprintf("provider %d not found", e.ProviderID)
}

type InvalidPageError struct {
	Page       int
	TotalPages int
}

func (e *InvalidPageError) Error() string {
	if e.TotalPages > 0 {
		return fmt.Sprintf("invalid page %d, total pages is %d", e.Page, e.TotalPages)
	}
	return fmt.Sprintf("page must be greater than zero: %d", e.Page)
}

type InvalidPageSizeError struct {
	PerPage int
}

func (e *InvalidPageSizeError) Error() string {
	return fmt.Sprintf("items per page must be greater than zero: %d", e.PerPage)
}
