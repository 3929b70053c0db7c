package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/ariefcatur/go-bakery-orders/internal/inventory"
	"github.com/ariefcatur/go-bakery-orders/internal/orders"
)

func (db *DB) GetInventory(ctx context.Context, productID int64) (inventory.Record, error) {
	var rec inventory.Record
	err := db.Pool.QueryRow(ctx, `
		SELECT product_id, actual_quantity, reserved_quantity, last_updated, version
		FROM inventory WHERE product_id = $1`, productID,
	).Scan(&rec.ProductID, &rec.Actual, &rec.Reserved, &rec.LastUpdated, &rec.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return inventory.Record{}, inventory.ErrNoRecord
	}
	return rec, err
}

const stockLevelColumns = `
	i.product_id, p.name, i.actual_quantity, i.reserved_quantity,
	i.actual_quantity - i.reserved_quantity AS available, i.last_updated`

func (db *DB) stockLevels(ctx context.Context, sql string, args ...any) ([]inventory.StockLevel, error) {
	rows, err := db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []inventory.StockLevel{}
	for rows.Next() {
		var l inventory.StockLevel
		if err := rows.Scan(&l.ProductID, &l.Name, &l.Actual, &l.Reserved, &l.Available, &l.LastUpdated); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (db *DB) ListInventory(ctx context.Context) ([]inventory.StockLevel, error) {
	return db.stockLevels(ctx, `SELECT `+stockLevelColumns+`
		FROM inventory i JOIN products p ON p.id = i.product_id
		ORDER BY p.name, i.product_id`)
}

func (db *DB) ListLowStock(ctx context.Context, threshold int) ([]inventory.StockLevel, error) {
	return db.stockLevels(ctx, `SELECT `+stockLevelColumns+`
		FROM inventory i JOIN products p ON p.id = i.product_id
		WHERE i.actual_quantity - i.reserved_quantity < $1
		ORDER BY available ASC, i.product_id`, threshold)
}

func (db *DB) ListMovements(ctx context.Context, productID int64) ([]inventory.Movement, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, kind, product_id, quantity, at, reference
		FROM movements WHERE product_id = $1
		ORDER BY at DESC, id DESC`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []inventory.Movement{}
	for rows.Next() {
		var (
			m    inventory.Movement
			kind string
		)
		if err := rows.Scan(&m.ID, &kind, &m.ProductID, &m.Quantity, &m.At, &m.Reference); err != nil {
			return nil, err
		}
		m.Kind = inventory.MovementKind(kind)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (db *DB) ListProducts(ctx context.Context) ([]inventory.Product, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT p.id, p.name, p.description, p.unit, p.unit_price, p.category_id,
		       COALESCE(i.actual_quantity, 0), p.created_at
		FROM products p LEFT JOIN inventory i ON i.product_id = p.id
		ORDER BY p.name, p.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []inventory.Product{}
	for rows.Next() {
		var p inventory.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Unit, &p.UnitPrice, &p.CategoryID, &p.Stock, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (db *DB) GetOrder(ctx context.Context, orderID int64) (orders.Order, error) {
	var o orders.Order
	err := db.Pool.QueryRow(ctx, `
		SELECT o.id, o.customer_id, o.address_id, o.payment_id, o.reference, o.created_at,
		       p.id, p.subtotal, p.shipping_fee, p.total, p.payment_method
		FROM orders o JOIN payments p ON p.id = o.payment_id
		WHERE o.id = $1`, orderID,
	).Scan(&o.ID, &o.CustomerID, &o.AddressID, &o.PaymentID, &o.Reference, &o.CreatedAt,
		&o.Payment.ID, &o.Payment.Subtotal, &o.Payment.ShippingFee, &o.Payment.Total, &o.Payment.Method)
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.Order{}, orders.ErrNotFound
	}
	if err != nil {
		return orders.Order{}, err
	}

	if o.Lines, err = queryLines(ctx, db.Pool, orderID); err != nil {
		return orders.Order{}, err
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT id, order_id, status_id, at, detail
		FROM tracking_events WHERE order_id = $1
		ORDER BY at DESC, id DESC`, orderID)
	if err != nil {
		return orders.Order{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			ev     orders.TrackingEvent
			status int
		)
		if err := rows.Scan(&ev.ID, &ev.OrderID, &status, &ev.At, &ev.Detail); err != nil {
			return orders.Order{}, err
		}
		ev.Status = orders.Status(status)
		o.Tracking = append(o.Tracking, ev)
	}
	if err := rows.Err(); err != nil {
		return orders.Order{}, err
	}
	if len(o.Tracking) > 0 {
		o.Status = o.Tracking[0].Status
	}
	return o, nil
}

// ListOrders derives each order's status from its latest tracking event.
func (db *DB) ListOrders(ctx context.Context, customerID int64) ([]orders.Summary, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT o.id, o.reference, o.customer_id, o.created_at, t.status_id, p.total,
		       (SELECT COUNT(*) FROM order_lines l WHERE l.order_id = o.id)
		FROM orders o
		JOIN payments p ON p.id = o.payment_id
		JOIN LATERAL (
			SELECT te.status_id FROM tracking_events te
			WHERE te.order_id = o.id
			ORDER BY te.at DESC, te.id DESC LIMIT 1
		) t ON true
		WHERE ($1::bigint = 0 OR o.customer_id = $1)
		ORDER BY o.created_at DESC, o.id DESC`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []orders.Summary{}
	for rows.Next() {
		var (
			s      orders.Summary
			status int
		)
		if err := rows.Scan(&s.ID, &s.Reference, &s.CustomerID, &s.CreatedAt, &status, &s.Total, &s.LineCount); err != nil {
			return nil, err
		}
		s.Status = orders.Status(status)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (db *DB) CurrentStatus(ctx context.Context, orderID int64) (orders.StatusView, error) {
	var (
		v      = orders.StatusView{OrderID: orderID}
		status int
	)
	err := db.Pool.QueryRow(ctx, `
		SELECT status_id, at, id FROM tracking_events
		WHERE order_id = $1
		ORDER BY at DESC, id DESC LIMIT 1`, orderID,
	).Scan(&status, &v.UpdatedAt, &v.EventID)
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.StatusView{}, orders.ErrNotFound
	}
	v.Status = orders.Status(status)
	return v, err
}
