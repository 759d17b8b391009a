package port

import "context"

type CacheRepository interface {
	// SetIdempotency sets a key for idempotency check, returns false if already exists
	SetIdempotency(ctx context.Context, key string) (bool, error)

	// SetStockLevel stores a product's current inventory snapshot
	SetStockLevel(ctx context.Context, productID int64, inventory int) error

	// GetStockLevel reads a product's inventory snapshot, ok=false on miss
	GetStockLevel(ctx context.Context, productID int64) (int, bool, error)
}
