// Package memstore keeps the bakery tables in process memory. A unit of work runs on a
// private copy of the tables and replaces them only when it returns nil, so failed
// work leaves no trace. Units of work are serialized by one mutex.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/ariefcatur/go-bakery-orders/internal/inventory"
	"github.com/ariefcatur/go-bakery-orders/internal/orders"
)

type tables struct {
	seq       int64
	products  map[int64]inventory.Product
	customers map[int64]bool
	addresses map[int64]int64 // address -> customer
	inventory map[int64]inventory.Record
	movements []inventory.Movement
	payments  map[int64]orders.PaymentSummary
	orders    map[int64]orders.Order // headers only
	lines     []orders.Line
	tracking  []orders.TrackingEvent
}

func newTables() *tables {
	return &tables{
		products:  map[int64]inventory.Product{},
		customers: map[int64]bool{},
		addresses: map[int64]int64{},
		inventory: map[int64]inventory.Record{},
		payments:  map[int64]orders.PaymentSummary{},
		orders:    map[int64]orders.Order{},
	}
}

func (t *tables) next() int64 {
	t.seq++
	return t.seq
}

func (t *tables) clone() *tables {
	c := &tables{
		seq:       t.seq,
		products:  make(map[int64]inventory.Product, len(t.products)),
		customers: make(map[int64]bool, len(t.customers)),
		addresses: make(map[int64]int64, len(t.addresses)),
		inventory: make(map[int64]inventory.Record, len(t.inventory)),
		movements: append([]inventory.Movement(nil), t.movements...),
		payments:  make(map[int64]orders.PaymentSummary, len(t.payments)),
		orders:    make(map[int64]orders.Order, len(t.orders)),
		lines:     append([]orders.Line(nil), t.lines...),
		tracking:  append([]orders.TrackingEvent(nil), t.tracking...),
	}
	for k, v := range t.products {
		c.products[k] = v
	}
	for k, v := range t.customers {
		c.customers[k] = v
	}
	for k, v := range t.addresses {
		c.addresses[k] = v
	}
	for k, v := range t.inventory {
		c.inventory[k] = v
	}
	for k, v := range t.payments {
		c.payments[k] = v
	}
	for k, v := range t.orders {
		c.orders[k] = v
	}
	return c
}

type Store struct {
	mu sync.RWMutex
	t  *tables
}

func New() *Store { return &Store{t: newTables()} }

// Transact implements orders.Transactor.
func (s *Store) Transact(ctx context.Context, fn func(ctx context.Context, tx orders.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.t.clone()
	if err := fn(ctx, &tx{t: work}); err != nil {
		return err
	}
	s.t = work
	return nil
}

// TransactInventory implements inventory.Transactor.
func (s *Store) TransactInventory(ctx context.Context, fn func(ctx context.Context, st inventory.Store) error) error {
	return s.Transact(ctx, func(ctx context.Context, tx orders.Tx) error { return fn(ctx, tx) })
}

func (s *Store) AddCustomer() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.t.next()
	s.t.customers[id] = true
	return id
}

func (s *Store) AddAddress(customerID int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.t.next()
	s.t.addresses[id] = customerID
	return id
}

// AddProduct registers a catalog entry without stock.
func (s *Store) AddProduct(p inventory.Product) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.t.next()
	s.t.products[p.ID] = p
	return p.ID
}

// Snapshot returns copies of the inventory records and movements, for comparisons.
func (s *Store) Snapshot() (map[int64]inventory.Record, []inventory.Movement, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := s.t.clone()
	return c.inventory, c.movements, len(c.orders)
}

func sortMovementsDesc(ms []inventory.Movement) {
	sort.Slice(ms, func(i, j int) bool {
		if !ms[i].At.Equal(ms[j].At) {
			return ms[i].At.After(ms[j].At)
		}
		return ms[i].ID > ms[j].ID
	})
}

var (
	_ orders.Transactor    = (*Store)(nil)
	_ orders.Reader        = (*Store)(nil)
	_ inventory.Transactor = (*Store)(nil)
	_ inventory.Reader     = (*Store)(nil)
)
