package models

import "time"

// Write-down (baixa) reason codes.
const (
	ReasonLoss         = "Loss"
	ReasonTheft        = "Theft"
	ReasonInternalUse  = "InternalUse"
	ReasonObsolescence = "Obsolescence"
	ReasonStained      = "Stained"
	ReasonDefect       = "Defect"
	ReasonDonation     = "Donation"
)

// WriteDownReasons lists every accepted reason code.
var WriteDownReasons = []string{
	ReasonLoss, ReasonTheft, ReasonInternalUse, ReasonObsolescence,
	ReasonStained, ReasonDefect, ReasonDonation,
}

// IsValidWriteDownReason reports whether reason is one of the accepted codes.
func IsValidWriteDownReason(reason string) bool {
	for _, r := range WriteDownReasons {
		if r == reason {
			return true
		}
	}
	return false
}

// WriteDown records a stock removal (baixa). ItemID and Quantity are frozen at
// creation; changing them afterwards would desynchronize the stock ledger.
// Only Reason and Note may be updated.
type WriteDown struct {
	ID        int64     `json:"id" db:"id"`
	ItemID    int64     `json:"item_id" db:"item_id" binding:"required"`
	Quantity  int       `json:"quantity" db:"quantity" binding:"required,gt=0"`
	Reason    string    `json:"reason" db:"reason" binding:"required"`
	Note      *string   `json:"note,omitempty" db:"note"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
	Item      *Item     `json:"item,omitempty"` // joined item snapshot
}

// WriteDownFilters holds the optional filters and pagination for listing
// write-downs.
type WriteDownFilters struct {
	ItemID   *int64
	Reason   *string
	DateFrom *time.Time
	DateTo   *time.Time
	Page     int
	PageSize int
}

// ReasonAggregate is the per-reason slice of a write-down statistics window.
// Value is quantity priced at the item's current unit price.
type ReasonAggregate struct {
	Quantity int     `json:"quantity"`
	Value    float64 `json:"value"`
}

// WriteDownStatistics aggregates write-downs over a period window. An empty
// window yields zeroed totals and an empty ByReason map.
type WriteDownStatistics struct {
	TotalCount    int                        `json:"total_count"`
	TotalQuantity int                        `json:"total_quantity"`
	ByReason      map[string]ReasonAggregate `json:"by_reason"`
}
