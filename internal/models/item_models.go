package models

import "time"

// Item represents a stock-keeping unit. Quantity is the on-hand stock and is
// only ever mutated through ItemRepository.AdjustQuantity.
type Item struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name" binding:"required"`
	Type      string    `json:"type" db:"type" binding:"required"`
	Size      *string   `json:"size,omitempty" db:"size"`
	Color     *string   `json:"color,omitempty" db:"color"`
	UnitPrice float64   `json:"unit_price" db:"unit_price"`
	Quantity  int       `json:"quantity" db:"quantity"`
	OwnerID   *int64    `json:"owner_id,omitempty" db:"owner_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ItemFilters holds the optional filters and pagination for listing items.
type ItemFilters struct {
	Name     *string
	Type     *string
	OwnerID  *int64
	Page     int
	PageSize int
}
