package inventory_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-bakery-orders/internal/apperr"
	"github.com/ariefcatur/go-bakery-orders/internal/inventory"
	"github.com/ariefcatur/go-bakery-orders/internal/memstore"
)

type clock struct{ t time.Time }

func newClock() *clock { return &clock{t: time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC)} }

// Now advances one second per call so movement order is deterministic.
func (c *clock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func addProduct(st *memstore.Store, name string) int64 {
	return st.AddProduct(inventory.Product{Name: name, Unit: "Pieza", UnitPrice: decimal.NewFromInt(12)})
}

// withLedger runs fn in one unit of work against st.
func withLedger(t *testing.T, st *memstore.Store, fn func(ctx context.Context, l *inventory.Ledger) error) error {
	t.Helper()
	c := newClock()
	return st.TransactInventory(context.Background(), func(ctx context.Context, s inventory.Store) error {
		return fn(ctx, inventory.NewLedger(s, c.Now))
	})
}

func stock(t *testing.T, st *memstore.Store, pid int64, qty int) {
	t.Helper()
	require.NoError(t, withLedger(t, st, func(ctx context.Context, l *inventory.Ledger) error {
		_, err := l.RecordEntry(ctx, pid, qty, "seed")
		return err
	}))
}

func record(t *testing.T, st *memstore.Store, pid int64) inventory.Record {
	t.Helper()
	rec, err := st.GetInventory(context.Background(), pid)
	require.NoError(t, err)
	return rec
}

func TestRecordEntryCreatesRecord(t *testing.T) {
	st := memstore.New()
	pid := addProduct(st, "Concha")

	_, err := st.GetInventory(context.Background(), pid)
	require.ErrorIs(t, err, inventory.ErrNoRecord)

	stock(t, st, pid, 10)

	rec := record(t, st, pid)
	assert.Equal(t, 10, rec.Actual)
	assert.Equal(t, 0, rec.Reserved)

	ms, err := st.ListMovements(context.Background(), pid)
	require.NoError(t, err)
	require.Len(t, ms, 1)
	assert.Equal(t, inventory.MovementEntry, ms[0].Kind)
	assert.Equal(t, 10, ms[0].Quantity)
}

func TestRecordEntryAddsToExisting(t *testing.T) {
	st := memstore.New()
	pid := addProduct(st, "Concha")
	stock(t, st, pid, 10)
	stock(t, st, pid, 5)

	assert.Equal(t, 15, record(t, st, pid).Actual)
}

func TestRecordEntryRejects(t *testing.T) {
	st := memstore.New()
	pid := addProduct(st, "Concha")

	for _, qty := range []int{0, -3} {
		err := withLedger(t, st, func(ctx context.Context, l *inventory.Ledger) error {
			_, err := l.RecordEntry(ctx, pid, qty, "")
			return err
		})
		assert.Equal(t, apperr.CodeInvalidQuantity, apperr.CodeOf(err), "qty %d", qty)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	}

	err := withLedger(t, st, func(ctx context.Context, l *inventory.Ledger) error {
		_, err := l.RecordEntry(ctx, 999, 5, "")
		return err
	})
	assert.Equal(t, apperr.CodeProductNotFound, apperr.CodeOf(err))
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestRecordExit(t *testing.T) {
	st := memstore.New()
	pid := addProduct(st, "Bolillo")
	stock(t, st, pid, 8)

	err := withLedger(t, st, func(ctx context.Context, l *inventory.Ledger) error {
		_, err := l.RecordExit(ctx, pid, 9, "spoiled")
		return err
	})
	assert.Equal(t, apperr.CodeInsufficientStock, apperr.CodeOf(err))
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.Equal(t, 8, record(t, st, pid).Actual)

	err = withLedger(t, st, func(ctx context.Context, l *inventory.Ledger) error {
		_, err := l.RecordExit(ctx, pid, 3, "spoiled")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 5, record(t, st, pid).Actual)

	ms, err := st.ListMovements(context.Background(), pid)
	require.NoError(t, err)
	require.Len(t, ms, 2)
	assert.Equal(t, inventory.MovementExit, ms[0].Kind)
	assert.Equal(t, "spoiled", ms[0].Reference)
}

func TestRecordExitWithoutRecord(t *testing.T) {
	st := memstore.New()
	pid := addProduct(st, "Bolillo")

	err := withLedger(t, st, func(ctx context.Context, l *inventory.Ledger) error {
		_, err := l.RecordExit(ctx, pid, 1, "")
		return err
	})
	assert.Equal(t, apperr.CodeProductNotFound, apperr.CodeOf(err))
}

func TestRecordExitCannotTouchReserved(t *testing.T) {
	st := memstore.New()
	pid := addProduct(st, "Bolillo")
	stock(t, st, pid, 10)
	require.NoError(t, withLedger(t, st, func(ctx context.Context, l *inventory.Ledger) error {
		_, err := l.Reserve(ctx, pid, 7)
		return err
	}))

	err := withLedger(t, st, func(ctx context.Context, l *inventory.Ledger) error {
		_, err := l.RecordExit(ctx, pid, 4, "")
		return err
	})
	assert.Equal(t, apperr.CodeInsufficientStock, apperr.CodeOf(err))
}

func TestReserveReleaseInverse(t *testing.T) {
	st := memstore.New()
	pid := addProduct(st, "Concha")
	stock(t, st, pid, 20)
	before := record(t, st, pid)

	require.NoError(t, withLedger(t, st, func(ctx context.Context, l *inventory.Ledger) error {
		rec, err := l.Reserve(ctx, pid, 6)
		if err != nil {
			return err
		}
		assert.Equal(t, 6, rec.Reserved)
		assert.Equal(t, 14, rec.Available())
		_, err = l.Release(ctx, pid, 6)
		return err
	}))

	after := record(t, st, pid)
	assert.Equal(t, before.Actual, after.Actual)
	assert.Equal(t, before.Reserved, after.Reserved)
}

func TestReserveCommitReservation(t *testing.T) {
	st := memstore.New()
	pid := addProduct(st, "Concha")
	stock(t, st, pid, 20)
	before := record(t, st, pid)

	require.NoError(t, withLedger(t, st, func(ctx context.Context, l *inventory.Ledger) error {
		if _, err := l.Reserve(ctx, pid, 6); err != nil {
			return err
		}
		_, err := l.CommitReservation(ctx, pid, 6, "ORD-1")
		return err
	}))

	after := record(t, st, pid)
	assert.Equal(t, before.Actual-6, after.Actual)
	assert.Equal(t, before.Reserved, after.Reserved)

	ms, err := st.ListMovements(context.Background(), pid)
	require.NoError(t, err)
	assert.Equal(t, inventory.MovementExit, ms[0].Kind)
	assert.Equal(t, "ORD-1", ms[0].Reference)
}

func TestReserveInsufficient(t *testing.T) {
	st := memstore.New()
	pid := addProduct(st, "Concha")
	stock(t, st, pid, 5)

	err := withLedger(t, st, func(ctx context.Context, l *inventory.Ledger) error {
		_, err := l.Reserve(ctx, pid, 6)
		return err
	})
	assert.Equal(t, apperr.CodeInsufficientStock, apperr.CodeOf(err))
	assert.Equal(t, 0, record(t, st, pid).Reserved)
}

func TestReleaseUnderflowIsFault(t *testing.T) {
	st := memstore.New()
	pid := addProduct(st, "Concha")
	stock(t, st, pid, 10)
	require.NoError(t, withLedger(t, st, func(ctx context.Context, l *inventory.Ledger) error {
		_, err := l.Reserve(ctx, pid, 2)
		return err
	}))

	err := withLedger(t, st, func(ctx context.Context, l *inventory.Ledger) error {
		if _, err := l.RecordEntry(ctx, pid, 5, "inside failed work"); err != nil {
			return err
		}
		_, err := l.Release(ctx, pid, 3)
		return err
	})
	assert.Equal(t, apperr.CodeReservationUnderflow, apperr.CodeOf(err))
	assert.Equal(t, apperr.KindPersistence, apperr.KindOf(err))

	// the entry made before the fault was rolled back with it
	rec := record(t, st, pid)
	assert.Equal(t, 10, rec.Actual)
	assert.Equal(t, 2, rec.Reserved)
}

func TestCommitReservationUnderflowIsFault(t *testing.T) {
	st := memstore.New()
	pid := addProduct(st, "Concha")
	stock(t, st, pid, 10)

	err := withLedger(t, st, func(ctx context.Context, l *inventory.Ledger) error {
		_, err := l.CommitReservation(ctx, pid, 1, "ORD-X")
		return err
	})
	assert.Equal(t, apperr.CodeReservationUnderflow, apperr.CodeOf(err))
	assert.Equal(t, 10, record(t, st, pid).Actual)
}

func TestLockSkipsMissingAndSorts(t *testing.T) {
	st := memstore.New()
	a := addProduct(st, "A")
	b := addProduct(st, "B")
	stock(t, st, b, 3)

	require.NoError(t, withLedger(t, st, func(ctx context.Context, l *inventory.Ledger) error {
		recs, err := l.Lock(ctx, b, a, b)
		require.NoError(t, err)
		assert.Len(t, recs, 1)
		assert.Equal(t, 3, recs[b].Actual)
		return nil
	}))
}

func TestRegisterProduct(t *testing.T) {
	st := memstore.New()

	var p inventory.Product
	require.NoError(t, withLedger(t, st, func(ctx context.Context, l *inventory.Ledger) error {
		p = inventory.Product{Name: "Rosca", UnitPrice: decimal.RequireFromString("150.00")}
		return l.RegisterProduct(ctx, &p, 4)
	}))
	assert.NotZero(t, p.ID)
	assert.Equal(t, "Pieza", p.Unit)
	assert.Equal(t, 4, p.Stock)
	assert.Equal(t, 4, record(t, st, p.ID).Actual)

	err := withLedger(t, st, func(ctx context.Context, l *inventory.Ledger) error {
		return l.RegisterProduct(ctx, &inventory.Product{Name: "Free", UnitPrice: decimal.Zero}, 0)
	})
	assert.Equal(t, apperr.CodeInvalidRequest, apperr.CodeOf(err))
}

func TestRecordVersionGrowsOnEveryWrite(t *testing.T) {
	st := memstore.New()
	pid := addProduct(st, "Oreja")
	stock(t, st, pid, 10)
	assert.Equal(t, int64(1), record(t, st, pid).Version)

	require.NoError(t, withLedger(t, st, func(ctx context.Context, l *inventory.Ledger) error {
		if _, err := l.Reserve(ctx, pid, 4); err != nil {
			return err
		}
		_, err := l.Release(ctx, pid, 4)
		return err
	}))
	assert.Equal(t, int64(3), record(t, st, pid).Version)

	stock(t, st, pid, 1)
	assert.Equal(t, int64(4), record(t, st, pid).Version)
}
