package models

import "time"

// Table is a physical dining table. Availability is mutated exclusively by
// the table allocator (occupy on dine-in checkout, release on payment).
type Table struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name" binding:"required"`
	Capacity    int       `json:"capacity" db:"capacity"`
	IsAvailable bool      `json:"is_available" db:"is_available"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
