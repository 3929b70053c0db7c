package memstore

import (
	"context"
	"sort"

	"github.com/ariefcatur/go-bakery-orders/internal/inventory"
	"github.com/ariefcatur/go-bakery-orders/internal/orders"
)

func (s *Store) GetInventory(_ context.Context, productID int64) (inventory.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.t.inventory[productID]
	if !ok {
		return inventory.Record{}, inventory.ErrNoRecord
	}
	return rec, nil
}

func (s *Store) level(rec inventory.Record) inventory.StockLevel {
	return inventory.StockLevel{
		ProductID:   rec.ProductID,
		Name:        s.t.products[rec.ProductID].Name,
		Actual:      rec.Actual,
		Reserved:    rec.Reserved,
		Available:   rec.Available(),
		LastUpdated: rec.LastUpdated,
	}
}

func (s *Store) ListInventory(_ context.Context) ([]inventory.StockLevel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]inventory.StockLevel, 0, len(s.t.inventory))
	for _, rec := range s.t.inventory {
		out = append(out, s.level(rec))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ProductID < out[j].ProductID
	})
	return out, nil
}

func (s *Store) ListLowStock(_ context.Context, threshold int) ([]inventory.StockLevel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []inventory.StockLevel{}
	for _, rec := range s.t.inventory {
		if rec.Available() < threshold {
			out = append(out, s.level(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Available != out[j].Available {
			return out[i].Available < out[j].Available
		}
		return out[i].ProductID < out[j].ProductID
	})
	return out, nil
}

func (s *Store) ListMovements(_ context.Context, productID int64) ([]inventory.Movement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []inventory.Movement{}
	for _, m := range s.t.movements {
		if m.ProductID == productID {
			out = append(out, m)
		}
	}
	sortMovementsDesc(out)
	return out, nil
}

func (s *Store) ListProducts(_ context.Context) ([]inventory.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]inventory.Product, 0, len(s.t.products))
	for _, p := range s.t.products {
		p.Stock = s.t.inventory[p.ID].Actual
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetOrder(_ context.Context, orderID int64) (orders.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.t.orders[orderID]
	if !ok {
		return orders.Order{}, orders.ErrNotFound
	}
	o.Payment = s.t.payments[o.PaymentID]
	o.Lines = s.t.linesOf(orderID)
	for _, ev := range s.t.tracking {
		if ev.OrderID == orderID {
			o.Tracking = append(o.Tracking, ev)
		}
	}
	sort.Slice(o.Tracking, func(i, j int) bool {
		a, b := o.Tracking[i], o.Tracking[j]
		if !a.At.Equal(b.At) {
			return a.At.After(b.At)
		}
		return a.ID > b.ID
	})
	if latest, ok := s.t.latest(orderID); ok {
		o.Status = latest.Status
	}
	return o, nil
}

func (s *Store) ListOrders(_ context.Context, customerID int64) ([]orders.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []orders.Summary{}
	for _, o := range s.t.orders {
		if customerID != 0 && o.CustomerID != customerID {
			continue
		}
		sum := orders.Summary{
			ID:         o.ID,
			Reference:  o.Reference,
			CustomerID: o.CustomerID,
			CreatedAt:  o.CreatedAt,
			Total:      s.t.payments[o.PaymentID].Total,
			LineCount:  len(s.t.linesOf(o.ID)),
		}
		if latest, ok := s.t.latest(o.ID); ok {
			sum.Status = latest.Status
		}
		out = append(out, sum)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) CurrentStatus(_ context.Context, orderID int64) (orders.StatusView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.t.orders[orderID]; !ok {
		return orders.StatusView{}, orders.ErrNotFound
	}
	ev, ok := s.t.latest(orderID)
	if !ok {
		return orders.StatusView{}, orders.ErrNotFound
	}
	return orders.StatusView{OrderID: orderID, Status: ev.Status, UpdatedAt: ev.At, EventID: ev.ID}, nil
}
