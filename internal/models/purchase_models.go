package models

import "time"

// Purchase is a staged stock-inbound document. It accumulates PurchaseItems
// with no stock effect until Finalize applies every line to item stock and
// flips Finalized. A finalized purchase is immutable and deleting it does not
// reverse the stock it applied.
type Purchase struct {
	ID           int64          `json:"id" db:"id"`
	Supplier     string         `json:"supplier" db:"supplier" binding:"required"`
	PurchaseDate time.Time      `json:"purchase_date" db:"purchase_date"`
	AmountPaid   float64        `json:"amount_paid" db:"amount_paid"`
	Finalized    bool           `json:"finalized" db:"finalized"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at" db:"updated_at"`
	Items        []PurchaseItem `json:"items,omitempty"`
}

// PurchaseItem is one line of a purchase. (PurchaseID, ItemID) is unique;
// adding the same item again accumulates onto the existing line.
type PurchaseItem struct {
	ID         int64     `json:"id" db:"id"`
	PurchaseID int64     `json:"purchase_id" db:"purchase_id"`
	ItemID     int64     `json:"item_id" db:"item_id"`
	Quantity   int       `json:"quantity" db:"quantity"`
	UnitCost   float64   `json:"unit_cost" db:"unit_cost"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
	Item       *Item     `json:"item,omitempty"`
}

// PurchaseFilters holds the optional filters and pagination for listing
// purchases.
type PurchaseFilters struct {
	Supplier  *string
	Finalized *bool
	DateFrom  *time.Time
	DateTo    *time.Time
	Page      int
	PageSize  int
}

// PurchaseStatistics aggregates purchases over a period window.
type PurchaseStatistics struct {
	TotalCount    int     `json:"total_count"`
	TotalPaid     float64 `json:"total_paid"`
	TotalQuantity int     `json:"total_quantity"`
}
