package service

import (
	"sort"

	"github.com/rafaelmp/stockbook/internal/core/domain"
)

// LineItemRequest is one requested (product, quantity) pair. Quantities are
// submitted as positive magnitudes for both transaction types; outgoing
// requests are converted to subtractions at the write stage.
type LineItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// normalizeLineItems collapses duplicate product entries by summing their
// quantities and returns the result ordered by product id ascending. The
// ordering matches the catalog bulk read so the two can be zipped positionally.
func normalizeLineItems(items []LineItemRequest) []LineItemRequest {
	sorted := make([]LineItemRequest, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ProductID < sorted[j].ProductID })

	merged := make([]LineItemRequest, 0, len(sorted))
	for _, item := range sorted {
		if n := len(merged); n > 0 && merged[n-1].ProductID == item.ProductID {
			merged[n-1].Quantity += item.Quantity
			continue
		}
		merged = append(merged, item)
	}
	return merged
}

// checkPositiveQuantities rejects any merged line item whose quantity is not
// strictly positive, collecting every violator.
func checkPositiveQuantities(items []LineItemRequest) error {
	var invalid []int64
	for _, item := range items {
		if item.Quantity <= 0 {
			invalid = append(invalid, item.ProductID)
		}
	}
	if len(invalid) > 0 {
		return &domain.InvalidQuantityError{ProductIDs: invalid}
	}
	return nil
}

// checkNegativeQuantities is the mirror policy for batches expressed as
// negative deltas. The create flow submits consumption as positive magnitudes,
// so nothing routes here today.
func checkNegativeQuantities(items []LineItemRequest) error {
	var invalid []int64
	for _, item := range items {
		if item.Quantity >= 0 {
			invalid = append(invalid, item.ProductID)
		}
	}
	if len(invalid) > 0 {
		return &domain.InvalidQuantityError{ProductIDs: invalid}
	}
	return nil
}

func productIDs(items []LineItemRequest) []int64 {
	ids := make([]int64, len(items))
	for i, item := range items {
		ids[i] = item.ProductID
	}
	return ids
}

// missingProductIDs returns the requested ids that were not resolved,
// preserving their original order.
func missingProductIDs(requested []int64, found []domain.Product) []int64 {
	resolved := make(map[int64]bool, len(found))
	for _, p := range found {
		resolved[p.ID] = true
	}

	var missing []int64
	for _, id := range requested {
		if !resolved[id] {
			missing = append(missing, id)
		}
	}
	return missing
}

// checkAvailability verifies every requested consumption against current
// inventory. Products and items are positionally paired: both are ordered by
// product id ascending and have the same length.
func checkAvailability(products []domain.Product, items []LineItemRequest) error {
	var insufficient []int64
	for i, p := range products {
		if items[i].Quantity > p.Inventory {
			insufficient = append(insufficient, p.ID)
		}
	}
	if len(insufficient) > 0 {
		return &domain.InsufficientStockError{ProductIDs: insufficient}
	}
	return nil
}
