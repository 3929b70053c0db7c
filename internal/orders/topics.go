package orders

import "strconv"

const (
	TopicOrderCreated       = "bakery.order.created"
	TopicOrderStatusChanged = "bakery.order.status_changed"
)

// PartitionKey keeps all events of one order on one partition, in order.
func PartitionKey(orderID int64) string { return strconv.FormatInt(orderID, 10) }
