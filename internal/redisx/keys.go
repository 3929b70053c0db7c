package redisx

import "time"

const (
	// Idempotent order create: idem:order:create:{caller}:{Idempotency-Key} -> {"order_id":..,"reference":..}
	KeyIdemOrderCreate = "idem:order:create:%s:%s"

	// Cached current status: hash order_status:{order_id} with fields view, at, event_id
	KeyOrderStatus = "order_status:%d"

	// Open low-stock alerts: hash product_id -> Alert JSON
	KeyLowStockAlerts = "inventory:low_stock_alerts"

	// Last applied inventory version per product: hash product_id -> version
	KeyAlertVersions = "inventory:low_stock_alert_versions"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLStatusCache = 5 * time.Minute
)
