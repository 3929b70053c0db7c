package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ariefcatur/go-bakery-orders/internal/apperr"
)

// ErrNoRecord is returned by Store.LockInventory when the product has no inventory row.
var ErrNoRecord = errors.New("inventory record not found")

// Store is the write side of the ledger. Implementations are bound to one transaction.
type Store interface {
	// LockInventory reads the record and holds a row lock until the transaction ends.
	LockInventory(ctx context.Context, productID int64) (Record, error)
	// InsertInventory creates a record. On a concurrent insert of the same product the
	// implementation must add Actual to the existing row and bump its Version instead of failing.
	InsertInventory(ctx context.Context, rec Record) error
	UpdateInventory(ctx context.Context, rec Record) error
	InsertMovement(ctx context.Context, m *Movement) error
	ProductExists(ctx context.Context, productID int64) (bool, error)
	InsertProduct(ctx context.Context, p *Product) error
}

// Ledger applies stock changes inside one unit of work and remembers what it touched.
type Ledger struct {
	st      Store
	now     func() time.Time
	touched map[int64]Record
}

func NewLedger(st Store, now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{st: st, now: now, touched: map[int64]Record{}}
}

func checkQty(qty int) error {
	if qty <= 0 {
		return apperr.Validation(apperr.CodeInvalidQuantity, "quantity must be a positive integer, got %d", qty)
	}
	return nil
}

// lock loads the record or maps a missing row to ProductNotFound.
func (l *Ledger) lock(ctx context.Context, productID int64) (Record, error) {
	rec, err := l.st.LockInventory(ctx, productID)
	if errors.Is(err, ErrNoRecord) {
		return Record{}, apperr.NotFound(apperr.CodeProductNotFound, "product %d has no inventory", productID)
	}
	if err != nil {
		return Record{}, fmt.Errorf("lock inventory %d: %w", productID, err)
	}
	return rec, nil
}

func (l *Ledger) save(ctx context.Context, rec Record) (Record, error) {
	rec.LastUpdated = l.now().UTC()
	rec.Version++
	if err := l.st.UpdateInventory(ctx, rec); err != nil {
		return Record{}, fmt.Errorf("update inventory %d: %w", rec.ProductID, err)
	}
	l.touched[rec.ProductID] = rec
	return rec, nil
}

func (l *Ledger) appendMovement(ctx context.Context, kind MovementKind, productID int64, qty int, ref string) error {
	m := &Movement{Kind: kind, ProductID: productID, Quantity: qty, At: l.now().UTC(), Reference: ref}
	if err := l.st.InsertMovement(ctx, m); err != nil {
		return fmt.Errorf("insert %s movement for %d: %w", kind, productID, err)
	}
	return nil
}

// Lock takes row locks on several products in ascending id order. Callers that touch
// more than one product use it first so concurrent units of work cannot deadlock.
// Missing records are skipped.
func (l *Ledger) Lock(ctx context.Context, productIDs ...int64) (map[int64]Record, error) {
	ids := append([]int64(nil), productIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make(map[int64]Record, len(ids))
	for i, id := range ids {
		if i > 0 && ids[i-1] == id {
			continue
		}
		rec, err := l.st.LockInventory(ctx, id)
		if errors.Is(err, ErrNoRecord) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("lock inventory %d: %w", id, err)
		}
		out[id] = rec
	}
	return out, nil
}

// RecordEntry adds stock, creating the record on first entry.
func (l *Ledger) RecordEntry(ctx context.Context, productID int64, qty int, ref string) (Record, error) {
	if err := checkQty(qty); err != nil {
		return Record{}, err
	}
	rec, err := l.st.LockInventory(ctx, productID)
	switch {
	case errors.Is(err, ErrNoRecord):
		ok, err := l.st.ProductExists(ctx, productID)
		if err != nil {
			return Record{}, fmt.Errorf("product exists %d: %w", productID, err)
		}
		if !ok {
			return Record{}, apperr.NotFound(apperr.CodeProductNotFound, "product %d does not exist", productID)
		}
		if err := l.appendMovement(ctx, MovementEntry, productID, qty, ref); err != nil {
			return Record{}, err
		}
		rec = Record{ProductID: productID, Actual: qty, LastUpdated: l.now().UTC(), Version: 1}
		if err := l.st.InsertInventory(ctx, rec); err != nil {
			return Record{}, fmt.Errorf("insert inventory %d: %w", productID, err)
		}
		// a concurrent first entry may have merged into an existing row; re-read it
		if rec, err = l.lock(ctx, productID); err != nil {
			return Record{}, err
		}
		l.touched[productID] = rec
		return rec, nil
	case err != nil:
		return Record{}, fmt.Errorf("lock inventory %d: %w", productID, err)
	}
	if err := l.appendMovement(ctx, MovementEntry, productID, qty, ref); err != nil {
		return Record{}, err
	}
	rec.Actual += qty
	return l.save(ctx, rec)
}

// RecordExit removes unreserved stock.
func (l *Ledger) RecordExit(ctx context.Context, productID int64, qty int, ref string) (Record, error) {
	if err := checkQty(qty); err != nil {
		return Record{}, err
	}
	rec, err := l.lock(ctx, productID)
	if err != nil {
		return Record{}, err
	}
	if qty > rec.Available() {
		return Record{}, insufficient(productID, qty, rec.Available())
	}
	if err := l.appendMovement(ctx, MovementExit, productID, qty, ref); err != nil {
		return Record{}, err
	}
	rec.Actual -= qty
	return l.save(ctx, rec)
}

// Reserve sets stock aside for an order.
func (l *Ledger) Reserve(ctx context.Context, productID int64, qty int) (Record, error) {
	if err := checkQty(qty); err != nil {
		return Record{}, err
	}
	rec, err := l.lock(ctx, productID)
	if err != nil {
		return Record{}, err
	}
	if qty > rec.Available() {
		return Record{}, insufficient(productID, qty, rec.Available())
	}
	rec.Reserved += qty
	return l.save(ctx, rec)
}

// Release returns reserved stock to available. Releasing more than is reserved means
// the order and inventory books disagree, which aborts the unit of work.
func (l *Ledger) Release(ctx context.Context, productID int64, qty int) (Record, error) {
	if err := checkQty(qty); err != nil {
		return Record{}, err
	}
	rec, err := l.lock(ctx, productID)
	if err != nil {
		return Record{}, err
	}
	if rec.Reserved < qty {
		return Record{}, apperr.Fault(apperr.CodeReservationUnderflow,
			"release of %d exceeds reserved %d for product %d", qty, rec.Reserved, productID)
	}
	rec.Reserved -= qty
	return l.save(ctx, rec)
}

// CommitReservation ships reserved goods: both actual and reserved drop by qty and an
// exit movement tagged with ref is appended.
func (l *Ledger) CommitReservation(ctx context.Context, productID int64, qty int, ref string) (Record, error) {
	if err := checkQty(qty); err != nil {
		return Record{}, err
	}
	rec, err := l.lock(ctx, productID)
	if err != nil {
		return Record{}, err
	}
	if rec.Reserved < qty || rec.Actual < qty {
		return Record{}, apperr.Fault(apperr.CodeReservationUnderflow,
			"commit of %d exceeds reserved %d / actual %d for product %d", qty, rec.Reserved, rec.Actual, productID)
	}
	if err := l.appendMovement(ctx, MovementExit, productID, qty, ref); err != nil {
		return Record{}, err
	}
	rec.Actual -= qty
	rec.Reserved -= qty
	return l.save(ctx, rec)
}

// RegisterProduct inserts a product and books its initial stock as an entry.
func (l *Ledger) RegisterProduct(ctx context.Context, p *Product, initialStock int) error {
	if p.Name == "" {
		return apperr.Validation(apperr.CodeInvalidRequest, "product name is required")
	}
	if !p.UnitPrice.IsPositive() {
		return apperr.Validation(apperr.CodeInvalidRequest, "unit price must be greater than 0")
	}
	if initialStock < 0 {
		return apperr.Validation(apperr.CodeInvalidQuantity, "initial stock cannot be negative")
	}
	if p.Unit == "" {
		p.Unit = "Pieza"
	}
	p.CreatedAt = l.now().UTC()
	if err := l.st.InsertProduct(ctx, p); err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	if initialStock == 0 {
		return nil
	}
	rec, err := l.RecordEntry(ctx, p.ID, initialStock, "initial stock")
	if err != nil {
		return err
	}
	p.Stock = rec.Actual
	return nil
}

// Touched returns the final state of every record changed so far, by product id.
func (l *Ledger) Touched() []Record {
	out := make([]Record, 0, len(l.touched))
	for _, r := range l.touched {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

func insufficient(productID int64, want, available int) error {
	return apperr.Conflict(apperr.CodeInsufficientStock,
		"product %d: requested %d, only %d available", productID, want, available)
}
