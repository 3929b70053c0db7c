package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ariefcatur/go-bakery-orders/internal/inventory"
	"github.com/ariefcatur/go-bakery-orders/internal/orders"
)

// txStore implements orders.Tx on top of one pgx transaction.
type txStore struct{ tx pgx.Tx }

func (s *txStore) LockInventory(ctx context.Context, productID int64) (inventory.Record, error) {
	var rec inventory.Record
	err := s.tx.QueryRow(ctx, `
		SELECT product_id, actual_quantity, reserved_quantity, last_updated, version
		FROM inventory WHERE product_id = $1 FOR UPDATE`, productID,
	).Scan(&rec.ProductID, &rec.Actual, &rec.Reserved, &rec.LastUpdated, &rec.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return inventory.Record{}, inventory.ErrNoRecord
	}
	return rec, err
}

// InsertInventory merges into an existing row when a concurrent first entry won the race.
func (s *txStore) InsertInventory(ctx context.Context, rec inventory.Record) error {
	_, err := s.tx.Exec(ctx, `
		INSERT INTO inventory(product_id, actual_quantity, reserved_quantity, last_updated, version)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (product_id) DO UPDATE
		SET actual_quantity = inventory.actual_quantity + EXCLUDED.actual_quantity,
		    last_updated = EXCLUDED.last_updated,
		    version = inventory.version + 1`,
		rec.ProductID, rec.Actual, rec.Reserved, rec.LastUpdated, rec.Version)
	return err
}

func (s *txStore) UpdateInventory(ctx context.Context, rec inventory.Record) error {
	ct, err := s.tx.Exec(ctx, `
		UPDATE inventory
		SET actual_quantity = $2, reserved_quantity = $3, last_updated = $4, version = $5
		WHERE product_id = $1`,
		rec.ProductID, rec.Actual, rec.Reserved, rec.LastUpdated, rec.Version)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return inventory.ErrNoRecord
	}
	return nil
}

func (s *txStore) InsertMovement(ctx context.Context, m *inventory.Movement) error {
	return s.tx.QueryRow(ctx, `
		INSERT INTO movements(kind, product_id, quantity, at, reference)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		string(m.Kind), m.ProductID, m.Quantity, m.At, m.Reference,
	).Scan(&m.ID)
}

func (s *txStore) ProductExists(ctx context.Context, productID int64) (bool, error) {
	var ok bool
	err := s.tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)`, productID).Scan(&ok)
	return ok, err
}

func (s *txStore) InsertProduct(ctx context.Context, p *inventory.Product) error {
	return s.tx.QueryRow(ctx, `
		INSERT INTO products(name, description, unit, unit_price, category_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		p.Name, p.Description, p.Unit, p.UnitPrice, p.CategoryID, p.CreatedAt,
	).Scan(&p.ID)
}

func (s *txStore) InsertPayment(ctx context.Context, p *orders.PaymentSummary) error {
	return s.tx.QueryRow(ctx, `
		INSERT INTO payments(subtotal, shipping_fee, total, payment_method)
		VALUES ($1, $2, $3, $4) RETURNING id`,
		p.Subtotal, p.ShippingFee, p.Total, p.Method,
	).Scan(&p.ID)
}

func (s *txStore) InsertOrder(ctx context.Context, o *orders.Order) error {
	err := s.tx.QueryRow(ctx, `
		INSERT INTO orders(customer_id, address_id, payment_id, reference, created_at)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		o.CustomerID, o.AddressID, o.PaymentID, o.Reference, o.CreatedAt,
	).Scan(&o.ID)
	switch {
	case isForeignKeyViolation(err, "orders_customer_fk"):
		return fmt.Errorf("insert order: %w", orders.ErrCustomerNotFound)
	case isForeignKeyViolation(err, "orders_address_fk"):
		return fmt.Errorf("insert order: %w", orders.ErrAddressNotFound)
	}
	return err
}

func (s *txStore) InsertLine(ctx context.Context, l *orders.Line) error {
	return s.tx.QueryRow(ctx, `
		INSERT INTO order_lines(order_id, product_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4) RETURNING id`,
		l.OrderID, l.ProductID, l.Quantity, l.UnitPrice,
	).Scan(&l.ID)
}

func (s *txStore) InsertTracking(ctx context.Context, ev *orders.TrackingEvent) error {
	return s.tx.QueryRow(ctx, `
		INSERT INTO tracking_events(order_id, status_id, at, detail)
		VALUES ($1, $2, $3, $4) RETURNING id`,
		ev.OrderID, int(ev.Status), ev.At, ev.Detail,
	).Scan(&ev.ID)
}

func (s *txStore) LockOrder(ctx context.Context, orderID int64) (orders.Order, error) {
	var o orders.Order
	err := s.tx.QueryRow(ctx, `
		SELECT id, customer_id, address_id, payment_id, reference, created_at
		FROM orders WHERE id = $1 FOR UPDATE`, orderID,
	).Scan(&o.ID, &o.CustomerID, &o.AddressID, &o.PaymentID, &o.Reference, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.Order{}, orders.ErrNotFound
	}
	return o, err
}

func (s *txStore) OrderLines(ctx context.Context, orderID int64) ([]orders.Line, error) {
	return queryLines(ctx, s.tx, orderID)
}

func (s *txStore) LatestTracking(ctx context.Context, orderID int64) (orders.TrackingEvent, error) {
	var (
		ev     orders.TrackingEvent
		status int
	)
	err := s.tx.QueryRow(ctx, `
		SELECT id, order_id, status_id, at, detail
		FROM tracking_events WHERE order_id = $1
		ORDER BY at DESC, id DESC LIMIT 1`, orderID,
	).Scan(&ev.ID, &ev.OrderID, &status, &ev.At, &ev.Detail)
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.TrackingEvent{}, orders.ErrNotFound
	}
	ev.Status = orders.Status(status)
	return ev, err
}

// querier is the part of pgx shared by pools and transactions.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func queryLines(ctx context.Context, q querier, orderID int64) ([]orders.Line, error) {
	rows, err := q.Query(ctx, `
		SELECT id, order_id, product_id, quantity, unit_price
		FROM order_lines WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []orders.Line
	for rows.Next() {
		var l orders.Line
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.Quantity, &l.UnitPrice); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
