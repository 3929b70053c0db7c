package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-bakery-orders/internal/logx"
	"github.com/ariefcatur/go-bakery-orders/internal/orders"
)

// putStatus writes the view only when (ARGV[1], ARGV[2]) sorts after the stored
// (at, event_id), mirroring orders.StatusView.Newer.
var putStatus = redis.NewScript(`
local at = redis.call('HGET', KEYS[1], 'at')
if at then
	local cur, new = tonumber(at), tonumber(ARGV[1])
	if cur > new then
		return 0
	end
	if cur == new and tonumber(redis.call('HGET', KEYS[1], 'event_id') or '0') >= tonumber(ARGV[2]) then
		return 0
	end
end
redis.call('HSET', KEYS[1], 'at', ARGV[1], 'event_id', ARGV[2], 'view', ARGV[3])
redis.call('PEXPIRE', KEYS[1], ARGV[4])
return 1
`)

// StatusCache keeps the derived order status for fast GETs. Redis errors degrade to a
// cache miss; the database stays the source of truth.
type StatusCache struct {
	RDB redis.Cmdable
	Log *zap.Logger
}

var _ orders.StatusCache = (*StatusCache)(nil)

func (c *StatusCache) Get(ctx context.Context, orderID int64) (orders.StatusView, bool) {
	s, err := c.RDB.HGet(ctx, fmt.Sprintf(KeyOrderStatus, orderID), "view").Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logx.OrNop(c.Log).Warn("status cache get", zap.Int64("order_id", orderID), zap.Error(err))
		}
		return orders.StatusView{}, false
	}
	var v orders.StatusView
	if err := json.Unmarshal([]byte(s), &v); err != nil || v.OrderID != orderID {
		return orders.StatusView{}, false
	}
	return v, true
}

// Put stores v unless the cache already holds a view from a later tracking event.
// Timestamps are compared at microsecond precision, the resolution Postgres keeps.
func (c *StatusCache) Put(ctx context.Context, v orders.StatusView) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	err = putStatus.Run(ctx, c.RDB,
		[]string{fmt.Sprintf(KeyOrderStatus, v.OrderID)},
		v.UpdatedAt.UnixMicro(), v.EventID, string(b), TTLStatusCache.Milliseconds(),
	).Err()
	if err != nil {
		logx.OrNop(c.Log).Warn("status cache put", zap.Int64("order_id", v.OrderID), zap.Error(err))
	}
}
