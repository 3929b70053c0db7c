package redisx

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/ariefcatur/go-bakery-orders/internal/inventory"
)

// applyAlert sets or removes one alert field when ARGV[2] is newer than the version
// last applied for that product. An empty ARGV[3] removes the alert.
var applyAlert = redis.NewScript(`
local cur = tonumber(redis.call('HGET', KEYS[2], ARGV[1]) or '0')
if cur >= tonumber(ARGV[2]) then
	return 0
end
redis.call('HSET', KEYS[2], ARGV[1], ARGV[2])
if ARGV[3] == '' then
	redis.call('HDEL', KEYS[1], ARGV[1])
else
	redis.call('HSET', KEYS[1], ARGV[1], ARGV[3])
end
return 1
`)

// AlertStore keeps open low-stock alerts in one hash, next to a hash of the inventory
// version each product's alert state was last derived from.
type AlertStore struct {
	RDB redis.Cmdable
}

var _ inventory.AlertSink = (*AlertStore)(nil)

func (s *AlertStore) apply(ctx context.Context, productID, version int64, value string) (bool, error) {
	n, err := applyAlert.Run(ctx, s.RDB,
		[]string{KeyLowStockAlerts, KeyAlertVersions},
		strconv.FormatInt(productID, 10), version, value,
	).Int()
	return n == 1, err
}

func (s *AlertStore) Raise(ctx context.Context, a inventory.Alert) (bool, error) {
	b, err := json.Marshal(a)
	if err != nil {
		return false, err
	}
	return s.apply(ctx, a.ProductID, a.Version, string(b))
}

func (s *AlertStore) Clear(ctx context.Context, productID, version int64) (bool, error) {
	return s.apply(ctx, productID, version, "")
}

// List returns open alerts, lowest availability first.
func (s *AlertStore) List(ctx context.Context) ([]inventory.Alert, error) {
	m, err := s.RDB.HGetAll(ctx, KeyLowStockAlerts).Result()
	if err != nil {
		return nil, err
	}
	out := make([]inventory.Alert, 0, len(m))
	for _, v := range m {
		var a inventory.Alert
		if err := json.Unmarshal([]byte(v), &a); err != nil {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Available != out[j].Available {
			return out[i].Available < out[j].Available
		}
		return out[i].ProductID < out[j].ProductID
	})
	return out, nil
}
