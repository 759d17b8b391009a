package domain

import "time"

type Product struct {
	ID        int64
	Name      string
	Size      string
	Inventory int
	Weight    float64
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Provider struct {
	ID   int64
	Name string
}

type User struct {
	ID   int64
	Name string
}

// StockLevel is the per-product inventory snapshot served on the read path.
type StockLevel struct {
	ProductID int64
	Name      string
	Inventory int
}
