package memstore

import (
	"context"

	"github.com/ariefcatur/go-bakery-orders/internal/inventory"
	"github.com/ariefcatur/go-bakery-orders/internal/orders"
)

// tx is the working copy handed to a unit of work. Row locks are implicit: the
// whole store is held by Transact.
type tx struct{ t *tables }

func (x *tx) LockInventory(_ context.Context, productID int64) (inventory.Record, error) {
	rec, ok := x.t.inventory[productID]
	if !ok {
		return inventory.Record{}, inventory.ErrNoRecord
	}
	return rec, nil
}

func (x *tx) InsertInventory(_ context.Context, rec inventory.Record) error {
	if cur, ok := x.t.inventory[rec.ProductID]; ok {
		cur.Actual += rec.Actual
		cur.LastUpdated = rec.LastUpdated
		cur.Version++
		x.t.inventory[rec.ProductID] = cur
		return nil
	}
	x.t.inventory[rec.ProductID] = rec
	return nil
}

func (x *tx) UpdateInventory(_ context.Context, rec inventory.Record) error {
	if _, ok := x.t.inventory[rec.ProductID]; !ok {
		return inventory.ErrNoRecord
	}
	x.t.inventory[rec.ProductID] = rec
	return nil
}

func (x *tx) InsertMovement(_ context.Context, m *inventory.Movement) error {
	m.ID = x.t.next()
	x.t.movements = append(x.t.movements, *m)
	return nil
}

func (x *tx) ProductExists(_ context.Context, productID int64) (bool, error) {
	_, ok := x.t.products[productID]
	return ok, nil
}

func (x *tx) InsertProduct(_ context.Context, p *inventory.Product) error {
	p.ID = x.t.next()
	x.t.products[p.ID] = *p
	return nil
}

func (x *tx) InsertPayment(_ context.Context, p *orders.PaymentSummary) error {
	p.ID = x.t.next()
	x.t.payments[p.ID] = *p
	return nil
}

func (x *tx) InsertOrder(_ context.Context, o *orders.Order) error {
	if !x.t.customers[o.CustomerID] {
		return orders.ErrCustomerNotFound
	}
	if o.AddressID != nil {
		if _, ok := x.t.addresses[*o.AddressID]; !ok {
			return orders.ErrAddressNotFound
		}
	}
	o.ID = x.t.next()
	h := *o
	h.Lines, h.Tracking = nil, nil
	x.t.orders[o.ID] = h
	return nil
}

func (x *tx) InsertLine(_ context.Context, l *orders.Line) error {
	l.ID = x.t.next()
	x.t.lines = append(x.t.lines, *l)
	return nil
}

func (x *tx) InsertTracking(_ context.Context, ev *orders.TrackingEvent) error {
	if _, ok := x.t.orders[ev.OrderID]; !ok {
		return orders.ErrNotFound
	}
	ev.ID = x.t.next()
	x.t.tracking = append(x.t.tracking, *ev)
	return nil
}

func (x *tx) LockOrder(_ context.Context, orderID int64) (orders.Order, error) {
	o, ok := x.t.orders[orderID]
	if !ok {
		return orders.Order{}, orders.ErrNotFound
	}
	return o, nil
}

func (x *tx) OrderLines(_ context.Context, orderID int64) ([]orders.Line, error) {
	return x.t.linesOf(orderID), nil
}

func (x *tx) LatestTracking(_ context.Context, orderID int64) (orders.TrackingEvent, error) {
	ev, ok := x.t.latest(orderID)
	if !ok {
		return orders.TrackingEvent{}, orders.ErrNotFound
	}
	return ev, nil
}

func (t *tables) linesOf(orderID int64) []orders.Line {
	var out []orders.Line
	for _, l := range t.lines {
		if l.OrderID == orderID {
			out = append(out, l)
		}
	}
	return out
}

// latest picks the tracking event with the greatest (At, ID).
func (t *tables) latest(orderID int64) (orders.TrackingEvent, bool) {
	var (
		best  orders.TrackingEvent
		found bool
	)
	for _, ev := range t.tracking {
		if ev.OrderID != orderID {
			continue
		}
		if !found || ev.At.After(best.At) || (ev.At.Equal(best.At) && ev.ID > best.ID) {
			best, found = ev, true
		}
	}
	return best, found
}
