package orders

import "github.com/shopspring/decimal"

const (
	EventOrderCreated       = "OrderCreated"
	EventOrderStatusChanged = "OrderStatusChanged"
)

type OrderCreatedPayload struct {
	OrderID    int64           `json:"order_id"`
	Reference  string          `json:"reference"`
	CustomerID int64           `json:"customer_id"`
	Lines      []LineInput     `json:"lines"`
	Total      decimal.Decimal `json:"total"`
}

type OrderStatusChangedPayload struct {
	OrderID   int64  `json:"order_id"`
	Reference string `json:"reference"`
	From      int    `json:"from_status"`
	To        int    `json:"to_status"`
	Detail    string `json:"detail,omitempty"`
}
