package inventory

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          int64           `json:"product_id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Unit        string          `json:"unit"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	CategoryID  *int64          `json:"category_id,omitempty"`
	Stock       int             `json:"stock"` // actual quantity, 0 when no inventory record
	CreatedAt   time.Time       `json:"created_at"`
}

// Record is the authoritative stock position of one product.
type Record struct {
	ProductID   int64     `json:"product_id"`
	Actual      int       `json:"actual_quantity"`
	Reserved    int       `json:"reserved_quantity"`
	LastUpdated time.Time `json:"last_updated"`
	// Version grows by one on every write to the record.
	Version int64 `json:"version"`
}

func (r Record) Available() int { return r.Actual - r.Reserved }

type MovementKind string

const (
	MovementEntry MovementKind = "entry"
	MovementExit  MovementKind = "exit"
)

// Movement is append-only audit history. Current stock comes from Record.
type Movement struct {
	ID        int64        `json:"id"`
	Kind      MovementKind `json:"kind"`
	ProductID int64        `json:"product_id"`
	Quantity  int          `json:"quantity"`
	At        time.Time    `json:"at"`
	Reference string       `json:"reference,omitempty"`
}

// StockLevel is a Record joined with its product name for listings.
type StockLevel struct {
	ProductID   int64     `json:"product_id"`
	Name        string    `json:"name"`
	Actual      int       `json:"actual_quantity"`
	Reserved    int       `json:"reserved_quantity"`
	Available   int       `json:"available"`
	LastUpdated time.Time `json:"last_updated"`
}
