package models

import "time"

// Product is a catalog entry. The ordering core treats the catalog as
// read-only; prices are snapshotted into cart and order lines at add time.
type Product struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name" binding:"required"`
	Price     float64   `json:"price" db:"price"`
	ImagePath *string   `json:"image_path,omitempty" db:"image_path"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
