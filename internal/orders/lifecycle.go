package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ariefcatur/go-bakery-orders/internal/apperr"
	"github.com/ariefcatur/go-bakery-orders/internal/inventory"
	kafkax "github.com/ariefcatur/go-bakery-orders/internal/kafka"
	"github.com/ariefcatur/go-bakery-orders/internal/logx"
)

const (
	DefaultCreatedDetail = "Order received"
	DefaultCancelReason  = "Order cancelled by customer"
)

// Lifecycle creates orders and moves them through their statuses, keeping the
// inventory ledger in step inside the same unit of work.
type Lifecycle struct {
	Tx     Transactor
	Reader Reader
	Cache  StatusCache // optional

	// optional event producers, one per topic
	Created          kafkax.Publisher
	StatusChanged    kafkax.Publisher
	InventoryChanged kafkax.Publisher

	Log         *zap.Logger
	Now         func() time.Time
	ServiceName string
}

func (lc *Lifecycle) now() time.Time {
	now := time.Now
	if lc.Now != nil {
		now = lc.Now
	}
	return now().UTC().Truncate(time.Microsecond)
}

func (lc *Lifecycle) ledger(tx Tx) *inventory.Ledger {
	return inventory.NewLedger(tx, lc.now)
}

func validateNew(in NewOrder) error {
	if in.CustomerID <= 0 {
		return apperr.Validation(apperr.CodeInvalidOrder, "customer is required")
	}
	if len(in.Lines) == 0 {
		return apperr.Validation(apperr.CodeInvalidOrder, "order must have at least one line")
	}
	for i, ln := range in.Lines {
		if ln.ProductID <= 0 {
			return apperr.Validation(apperr.CodeInvalidOrder, "line %d: product is required", i+1)
		}
		if ln.Quantity <= 0 {
			return apperr.Validation(apperr.CodeInvalidQuantity, "line %d: quantity must be positive", i+1)
		}
		if ln.UnitPrice.IsNegative() {
			return apperr.Validation(apperr.CodeInvalidOrder, "line %d: unit price cannot be negative", i+1)
		}
	}
	if in.Subtotal.IsNegative() || in.ShippingFee.IsNegative() || in.Total.IsNegative() {
		return apperr.Validation(apperr.CodeInvalidOrder, "payment amounts cannot be negative")
	}
	return nil
}

func mapStoreErr(err error) error {
	switch {
	case errors.Is(err, ErrCustomerNotFound):
		return apperr.NotFound(apperr.CodeCustomerNotFound, "customer does not exist")
	case errors.Is(err, ErrAddressNotFound):
		return apperr.NotFound(apperr.CodeAddressNotFound, "address does not exist")
	}
	return err
}

// Create validates stock for every line, then persists the order, reserves its
// quantities and records the initial Pending event. Nothing is written if any line
// cannot be served.
func (lc *Lifecycle) Create(ctx context.Context, in NewOrder) (Order, error) {
	if err := validateNew(in); err != nil {
		return Order{}, err
	}

	var (
		order   Order
		touched []inventory.Record
	)
	err := lc.Tx.Transact(ctx, func(ctx context.Context, tx Tx) error {
		now := lc.now()
		led := lc.ledger(tx)

		ids := make([]int64, 0, len(in.Lines))
		for _, ln := range in.Lines {
			ids = append(ids, ln.ProductID)
		}
		recs, err := led.Lock(ctx, ids...)
		if err != nil {
			return err
		}
		need := make(map[int64]int, len(in.Lines))
		for _, ln := range in.Lines {
			rec, ok := recs[ln.ProductID]
			if !ok {
				return apperr.Conflict(apperr.CodeInsufficientStock, "product %d has no inventory", ln.ProductID)
			}
			need[ln.ProductID] += ln.Quantity
			if need[ln.ProductID] > rec.Available() {
				return apperr.Conflict(apperr.CodeInsufficientStock,
					"product %d: only %d units available", ln.ProductID, rec.Available())
			}
		}

		pay := &PaymentSummary{
			Subtotal:    in.Subtotal,
			ShippingFee: in.ShippingFee,
			Total:       in.Total,
			Method:      in.PaymentMethod,
		}
		if err := tx.InsertPayment(ctx, pay); err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
		order = Order{
			CustomerID: in.CustomerID,
			AddressID:  in.AddressID,
			PaymentID:  pay.ID,
			Reference:  NewReference(now),
			CreatedAt:  now,
			Status:     StatusPending,
			Payment:    *pay,
		}
		if err := tx.InsertOrder(ctx, &order); err != nil {
			return mapStoreErr(err)
		}
		for _, ln := range in.Lines {
			line := &Line{OrderID: order.ID, ProductID: ln.ProductID, Quantity: ln.Quantity, UnitPrice: ln.UnitPrice}
			if err := tx.InsertLine(ctx, line); err != nil {
				return fmt.Errorf("insert line: %w", err)
			}
			order.Lines = append(order.Lines, *line)
			if _, err := led.Reserve(ctx, ln.ProductID, ln.Quantity); err != nil {
				return err
			}
		}
		ev := &TrackingEvent{OrderID: order.ID, Status: StatusPending, At: now, Detail: DefaultCreatedDetail}
		if err := tx.InsertTracking(ctx, ev); err != nil {
			return fmt.Errorf("insert tracking: %w", err)
		}
		order.Tracking = []TrackingEvent{*ev}
		touched = led.Touched()
		return nil
	})
	if err != nil {
		return Order{}, apperr.Persistence(err)
	}

	logx.OrNop(lc.Log).Info("order created",
		zap.Int64("order_id", order.ID),
		zap.String("reference", order.Reference),
		zap.Int("lines", len(order.Lines)))
	created := order.Tracking[0]
	lc.cache(ctx, StatusView{OrderID: order.ID, Status: created.Status, UpdatedAt: created.At, EventID: created.ID})

	trace := kafkax.TraceFrom(ctx)
	key := PartitionKey(order.ID)
	kafkax.Emit(lc.Created, key, EventOrderCreated, lc.ServiceName, key, trace, OrderCreatedPayload{
		OrderID:    order.ID,
		Reference:  order.Reference,
		CustomerID: order.CustomerID,
		Lines:      in.Lines,
		Total:      order.Payment.Total,
	})
	inventory.PublishChanges(lc.InventoryChanged, lc.ServiceName, trace, inventory.CauseReserve, order.Reference, touched)
	return order, nil
}

// SetStatus appends a tracking event with the given status id. Delivered commits the
// order's reservations; Cancelled releases them.
func (lc *Lifecycle) SetStatus(ctx context.Context, orderID int64, statusID int, detail string) (TrackingEvent, error) {
	to, err := ParseStatus(statusID)
	if err != nil {
		return TrackingEvent{}, err
	}
	return lc.transition(ctx, orderID, to, detail, false)
}

// Cancel moves a non-delivered order to Cancelled and releases its reservations.
func (lc *Lifecycle) Cancel(ctx context.Context, orderID int64, reason string) (TrackingEvent, error) {
	if reason == "" {
		reason = DefaultCancelReason
	}
	return lc.transition(ctx, orderID, StatusCancelled, reason, true)
}

func (lc *Lifecycle) transition(ctx context.Context, orderID int64, to Status, detail string, cancel bool) (TrackingEvent, error) {
	var (
		ev      TrackingEvent
		from    Status
		ref     string
		touched []inventory.Record
	)
	err := lc.Tx.Transact(ctx, func(ctx context.Context, tx Tx) error {
		o, err := tx.LockOrder(ctx, orderID)
		if errors.Is(err, ErrNotFound) {
			return apperr.NotFound(apperr.CodeOrderNotFound, "order %d does not exist", orderID)
		}
		if err != nil {
			return fmt.Errorf("lock order %d: %w", orderID, err)
		}
		cur, err := tx.LatestTracking(ctx, orderID)
		if err != nil {
			return fmt.Errorf("latest tracking %d: %w", orderID, err)
		}
		from, ref = cur.Status, o.Reference

		if cancel && from == StatusDelivered {
			return apperr.Conflict(apperr.CodeAlreadyDelivered, "order %s has already been delivered", ref)
		}
		if !CanTransition(from, to) {
			return apperr.Conflict(apperr.CodeInvalidTransition, "order %s cannot move from %s to %s", ref, from, to)
		}

		led := lc.ledger(tx)
		if to == StatusDelivered || to == StatusCancelled {
			lines, err := tx.OrderLines(ctx, orderID)
			if err != nil {
				return fmt.Errorf("order lines %d: %w", orderID, err)
			}
			ids := make([]int64, 0, len(lines))
			for _, ln := range lines {
				ids = append(ids, ln.ProductID)
			}
			if _, err := led.Lock(ctx, ids...); err != nil {
				return err
			}
			for _, ln := range lines {
				if to == StatusDelivered {
					_, err = led.CommitReservation(ctx, ln.ProductID, ln.Quantity, ref)
				} else {
					_, err = led.Release(ctx, ln.ProductID, ln.Quantity)
				}
				if err != nil {
					return err
				}
			}
		}

		at := lc.now()
		if at.Before(cur.At) {
			// keep the new event last even if the clock stepped back
			at = cur.At
		}
		ev = TrackingEvent{OrderID: orderID, Status: to, At: at, Detail: detail}
		if err := tx.InsertTracking(ctx, &ev); err != nil {
			return fmt.Errorf("insert tracking: %w", err)
		}
		touched = led.Touched()
		return nil
	})
	if err != nil {
		return TrackingEvent{}, apperr.Persistence(err)
	}

	logx.OrNop(lc.Log).Info("order status changed",
		zap.Int64("order_id", orderID),
		zap.Stringer("from", from),
		zap.Stringer("to", to))
	lc.cache(ctx, StatusView{OrderID: orderID, Status: to, UpdatedAt: ev.At, EventID: ev.ID})

	trace := kafkax.TraceFrom(ctx)
	key := PartitionKey(orderID)
	kafkax.Emit(lc.StatusChanged, key, EventOrderStatusChanged, lc.ServiceName, key, trace, OrderStatusChangedPayload{
		OrderID:   orderID,
		Reference: ref,
		From:      int(from),
		To:        int(to),
		Detail:    detail,
	})
	cause := inventory.CauseRelease
	if to == StatusDelivered {
		cause = inventory.CauseDelivery
	}
	inventory.PublishChanges(lc.InventoryChanged, lc.ServiceName, trace, cause, ref, touched)
	return ev, nil
}

func (lc *Lifecycle) cache(ctx context.Context, v StatusView) {
	if lc.Cache != nil {
		lc.Cache.Put(ctx, v)
	}
}

func (lc *Lifecycle) Get(ctx context.Context, orderID int64) (Order, error) {
	o, err := lc.Reader.GetOrder(ctx, orderID)
	if errors.Is(err, ErrNotFound) {
		return Order{}, apperr.NotFound(apperr.CodeOrderNotFound, "order %d does not exist", orderID)
	}
	return o, apperr.Persistence(err)
}

func (lc *Lifecycle) List(ctx context.Context) ([]Summary, error) {
	out, err := lc.Reader.ListOrders(ctx, 0)
	return out, apperr.Persistence(err)
}

func (lc *Lifecycle) ListByCustomer(ctx context.Context, customerID int64) ([]Summary, error) {
	if customerID <= 0 {
		return nil, apperr.Validation(apperr.CodeInvalidRequest, "customer id must be positive")
	}
	out, err := lc.Reader.ListOrders(ctx, customerID)
	return out, apperr.Persistence(err)
}

// CurrentStatus reads through the status cache.
func (lc *Lifecycle) CurrentStatus(ctx context.Context, orderID int64) (StatusView, error) {
	if lc.Cache != nil {
		if v, ok := lc.Cache.Get(ctx, orderID); ok {
			return v, nil
		}
	}
	v, err := lc.Reader.CurrentStatus(ctx, orderID)
	if errors.Is(err, ErrNotFound) {
		return StatusView{}, apperr.NotFound(apperr.CodeOrderNotFound, "order %d does not exist", orderID)
	}
	if err != nil {
		return StatusView{}, apperr.Persistence(err)
	}
	lc.cache(ctx, v)
	return v, nil
}
