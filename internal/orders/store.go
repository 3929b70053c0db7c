package orders

import (
	"context"
	"errors"

	"github.com/ariefcatur/go-bakery-orders/internal/inventory"
)

var (
	ErrNotFound         = errors.New("order not found")
	ErrCustomerNotFound = errors.New("customer not found")
	ErrAddressNotFound  = errors.New("address not found")
)

// Store is the write side of the order aggregate, bound to one transaction.
type Store interface {
	InsertPayment(ctx context.Context, p *PaymentSummary) error
	InsertOrder(ctx context.Context, o *Order) error
	InsertLine(ctx context.Context, l *Line) error
	InsertTracking(ctx context.Context, ev *TrackingEvent) error
	// LockOrder loads the header and holds a row lock; ErrNotFound when absent.
	LockOrder(ctx context.Context, orderID int64) (Order, error)
	OrderLines(ctx context.Context, orderID int64) ([]Line, error)
	// LatestTracking returns the event with the greatest (at, id).
	LatestTracking(ctx context.Context, orderID int64) (TrackingEvent, error)
}

// Tx is one unit of work spanning orders and inventory.
type Tx interface {
	Store
	inventory.Store
}

type Transactor interface {
	Transact(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

type Reader interface {
	// GetOrder returns the full aggregate with lines, payment and tracking; ErrNotFound when absent.
	GetOrder(ctx context.Context, orderID int64) (Order, error)
	// ListOrders returns summaries newest first; customerID 0 means all customers.
	ListOrders(ctx context.Context, customerID int64) ([]Summary, error)
	CurrentStatus(ctx context.Context, orderID int64) (StatusView, error)
}

// StatusCache is a read-through cache in front of CurrentStatus. Put must be
// conditional: a view that is not Newer than the cached one is discarded, because
// puts from concurrent transitions and read-throughs can arrive in any order.
type StatusCache interface {
	Get(ctx context.Context, orderID int64) (StatusView, bool)
	Put(ctx context.Context, v StatusView)
}
