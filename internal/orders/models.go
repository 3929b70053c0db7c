package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentSummary struct {
	ID          int64           `json:"payment_id"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	ShippingFee decimal.Decimal `json:"shipping_fee"`
	Total       decimal.Decimal `json:"total"`
	Method      string          `json:"payment_method"`
}

type Line struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"order_id"`
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type TrackingEvent struct {
	ID      int64     `json:"id"`
	OrderID int64     `json:"order_id"`
	Status  Status    `json:"status"`
	At      time.Time `json:"at"`
	Detail  string    `json:"detail"`
}

// Order is created once at checkout. Lines and Payment never change afterwards; the
// status is derived from Tracking.
type Order struct {
	ID         int64           `json:"order_id"`
	CustomerID int64           `json:"customer_id"`
	AddressID  *int64          `json:"address_id,omitempty"`
	PaymentID  int64           `json:"-"`
	Reference  string          `json:"reference"`
	CreatedAt  time.Time       `json:"created_at"`
	Status     Status          `json:"status"`
	Payment    PaymentSummary  `json:"payment"`
	Lines      []Line          `json:"lines"`
	Tracking   []TrackingEvent `json:"tracking,omitempty"` // newest first
}

// Summary is a row of the order listings.
type Summary struct {
	ID         int64           `json:"order_id"`
	Reference  string          `json:"reference"`
	CustomerID int64           `json:"customer_id"`
	CreatedAt  time.Time       `json:"created_at"`
	Status     Status          `json:"status"`
	Total      decimal.Decimal `json:"total"`
	LineCount  int             `json:"line_count"`
}

// StatusView is what the status cache holds. UpdatedAt and EventID identify the
// tracking event the status was derived from.
type StatusView struct {
	OrderID   int64     `json:"order_id"`
	Status    Status    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
	EventID   int64     `json:"event_id"`
}

// Newer reports whether v comes from a later tracking event than old, using the same
// (at, id) order that derives the current status. Caches keep the newer of two views
// so late writes cannot roll a status back.
func (v StatusView) Newer(old StatusView) bool {
	if !v.UpdatedAt.Equal(old.UpdatedAt) {
		return v.UpdatedAt.After(old.UpdatedAt)
	}
	return v.EventID > old.EventID
}

type LineInput struct {
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type NewOrder struct {
	CustomerID    int64           `json:"customer_id"`
	AddressID     *int64          `json:"address_id"`
	Lines         []LineInput     `json:"lines"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	ShippingFee   decimal.Decimal `json:"shipping_fee"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod string          `json:"payment_method"`
}
