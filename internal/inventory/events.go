package inventory

import (
	"strconv"

	kafkax "github.com/ariefcatur/go-bakery-orders/internal/kafka"
)

const (
	TopicInventoryChanged = "bakery.inventory.changed"
	EventInventoryChanged = "InventoryChanged"
)

// Causes carried on InventoryChanged events.
const (
	CauseEntry    = "entry"
	CauseExit     = "exit"
	CauseReserve  = "reserve"
	CauseRelease  = "release"
	CauseDelivery = "delivery"
)

type ChangedPayload struct {
	ProductID int64  `json:"product_id"`
	Actual    int    `json:"actual_quantity"`
	Reserved  int    `json:"reserved_quantity"`
	Available int    `json:"available"`
	Cause     string `json:"cause"`
	Reference string `json:"reference,omitempty"`
	Version   int64  `json:"version"`
}

// PublishChanges emits one InventoryChanged event per record, keyed by product id.
// Call only after the unit of work that produced recs has committed.
func PublishChanges(p kafkax.Publisher, producer, traceID, cause, ref string, recs []Record) {
	for _, r := range recs {
		key := strconv.FormatInt(r.ProductID, 10)
		kafkax.Emit(p, key, EventInventoryChanged, producer, key, traceID, ChangedPayload{
			ProductID: r.ProductID,
			Actual:    r.Actual,
			Reserved:  r.Reserved,
			Available: r.Available(),
			Cause:     cause,
			Reference: ref,
			Version:   r.Version,
		})
	}
}
