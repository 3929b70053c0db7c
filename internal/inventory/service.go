package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ariefcatur/go-bakery-orders/internal/apperr"
	kafkax "github.com/ariefcatur/go-bakery-orders/internal/kafka"
	"github.com/ariefcatur/go-bakery-orders/internal/logx"
)

// Transactor runs fn inside one database transaction; any error rolls everything back.
type Transactor interface {
	TransactInventory(ctx context.Context, fn func(ctx context.Context, st Store) error) error
}

// Reader serves the read-only inventory queries.
type Reader interface {
	GetInventory(ctx context.Context, productID int64) (Record, error)
	ListInventory(ctx context.Context) ([]StockLevel, error)
	ListLowStock(ctx context.Context, threshold int) ([]StockLevel, error)
	ListMovements(ctx context.Context, productID int64) ([]Movement, error)
	ListProducts(ctx context.Context) ([]Product, error)
}

type Service struct {
	Tx          Transactor
	Reader      Reader
	Producer    kafkax.Publisher // InventoryChanged, optional
	Log         *zap.Logger
	Now         func() time.Time
	ServiceName string
}

func (s *Service) run(ctx context.Context, fn func(ctx context.Context, l *Ledger) error) ([]Record, error) {
	var touched []Record
	err := s.Tx.TransactInventory(ctx, func(ctx context.Context, st Store) error {
		l := NewLedger(st, s.Now)
		if err := fn(ctx, l); err != nil {
			return err
		}
		touched = l.Touched()
		return nil
	})
	if err != nil {
		return nil, apperr.Persistence(err)
	}
	return touched, nil
}

func (s *Service) RecordEntry(ctx context.Context, productID int64, qty int, ref string) (Record, error) {
	var rec Record
	touched, err := s.run(ctx, func(ctx context.Context, l *Ledger) (err error) {
		rec, err = l.RecordEntry(ctx, productID, qty, ref)
		return err
	})
	if err != nil {
		return Record{}, err
	}
	logx.OrNop(s.Log).Info("stock entry", zap.Int64("product_id", productID), zap.Int("quantity", qty), zap.Int("actual", rec.Actual))
	PublishChanges(s.Producer, s.ServiceName, kafkax.TraceFrom(ctx), CauseEntry, ref, touched)
	return rec, nil
}

func (s *Service) RecordExit(ctx context.Context, productID int64, qty int, ref string) (Record, error) {
	var rec Record
	touched, err := s.run(ctx, func(ctx context.Context, l *Ledger) (err error) {
		rec, err = l.RecordExit(ctx, productID, qty, ref)
		return err
	})
	if err != nil {
		return Record{}, err
	}
	logx.OrNop(s.Log).Info("stock exit", zap.Int64("product_id", productID), zap.Int("quantity", qty), zap.String("reference", ref))
	PublishChanges(s.Producer, s.ServiceName, kafkax.TraceFrom(ctx), CauseExit, ref, touched)
	return rec, nil
}

// RegisterProduct creates a product and, when initialStock > 0, its inventory record.
func (s *Service) RegisterProduct(ctx context.Context, p Product, initialStock int) (Product, error) {
	touched, err := s.run(ctx, func(ctx context.Context, l *Ledger) error {
		return l.RegisterProduct(ctx, &p, initialStock)
	})
	if err != nil {
		return Product{}, err
	}
	logx.OrNop(s.Log).Info("product registered", zap.Int64("product_id", p.ID), zap.String("name", p.Name), zap.Int("stock", p.Stock))
	PublishChanges(s.Producer, s.ServiceName, kafkax.TraceFrom(ctx), CauseEntry, "initial stock", touched)
	return p, nil
}

func (s *Service) Get(ctx context.Context, productID int64) (Record, error) {
	rec, err := s.Reader.GetInventory(ctx, productID)
	if errors.Is(err, ErrNoRecord) {
		return Record{}, apperr.NotFound(apperr.CodeProductNotFound, "product %d has no inventory", productID)
	}
	return rec, apperr.Persistence(err)
}

func (s *Service) Levels(ctx context.Context) ([]StockLevel, error) {
	out, err := s.Reader.ListInventory(ctx)
	return out, apperr.Persistence(err)
}

// LowStock lists products whose available quantity is below threshold, lowest first.
func (s *Service) LowStock(ctx context.Context, threshold int) ([]StockLevel, error) {
	if threshold < 0 {
		return nil, apperr.Validation(apperr.CodeInvalidRequest, "threshold cannot be negative")
	}
	out, err := s.Reader.ListLowStock(ctx, threshold)
	return out, apperr.Persistence(err)
}

// History returns a snapshot of the product's movements, newest first.
func (s *Service) History(ctx context.Context, productID int64) ([]Movement, error) {
	out, err := s.Reader.ListMovements(ctx, productID)
	if err != nil {
		return nil, apperr.Persistence(fmt.Errorf("movements for %d: %w", productID, err))
	}
	return out, nil
}

func (s *Service) Products(ctx context.Context) ([]Product, error) {
	out, err := s.Reader.ListProducts(ctx)
	return out, apperr.Persistence(err)
}
