package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-bakery-orders/internal/inventory"
	"github.com/ariefcatur/go-bakery-orders/internal/orders"
)

const defaultAttempts = 3

// DB is the injected persistence handle. It runs units of work and serves reads.
type DB struct {
	Pool        *pgxpool.Pool
	Log         *zap.Logger
	MaxAttempts int
}

func New(pool *pgxpool.Pool, log *zap.Logger) *DB {
	if log == nil {
		log = zap.NewNop()
	}
	return &DB{Pool: pool, Log: log, MaxAttempts: defaultAttempts}
}

var (
	_ orders.Transactor    = (*DB)(nil)
	_ orders.Reader        = (*DB)(nil)
	_ inventory.Transactor = (*DB)(nil)
	_ inventory.Reader     = (*DB)(nil)
)

// Transact runs fn in one read-committed transaction. The transaction is rolled back on
// every exit path except a successful commit, including panics. Serialization failures
// and deadlocks rerun fn from scratch.
func (db *DB) Transact(ctx context.Context, fn func(ctx context.Context, tx orders.Tx) error) error {
	attempts := db.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	for attempt := 1; ; attempt++ {
		err := db.once(ctx, fn)
		if err == nil || !retryable(err) || attempt >= attempts {
			return err
		}
		db.Log.Warn("retrying transaction", zap.Int("attempt", attempt), zap.Error(err))
	}
}

func (db *DB) TransactInventory(ctx context.Context, fn func(ctx context.Context, st inventory.Store) error) error {
	return db.Transact(ctx, func(ctx context.Context, tx orders.Tx) error { return fn(ctx, tx) })
}

func (db *DB) once(ctx context.Context, fn func(ctx context.Context, tx orders.Tx) error) error {
	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &txStore{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func retryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}

func isForeignKeyViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503" && pgErr.ConstraintName == constraint
}
