package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// OrderRef is what a repeated POST /orders gets back.
type OrderRef struct {
	OrderID   int64  `json:"order_id"`
	Reference string `json:"reference"`
}

type Idempotency struct {
	RDB redis.Cmdable
}

// Lookup returns the order caller first created under key, if any. Keys are
// scoped to the caller so two clients picking the same key never share an order.
func (s *Idempotency) Lookup(ctx context.Context, caller, key string) (OrderRef, bool, error) {
	b, err := s.RDB.Get(ctx, fmt.Sprintf(KeyIdemOrderCreate, caller, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return OrderRef{}, false, nil
	}
	if err != nil {
		return OrderRef{}, false, err
	}
	var ref OrderRef
	if err := json.Unmarshal(b, &ref); err != nil {
		return OrderRef{}, false, err
	}
	return ref, true, nil
}

// Remember stores ref under caller's key unless an earlier request already did.
func (s *Idempotency) Remember(ctx context.Context, caller, key string, ref OrderRef) error {
	b, err := json.Marshal(ref)
	if err != nil {
		return err
	}
	return s.RDB.SetNX(ctx, fmt.Sprintf(KeyIdemOrderCreate, caller, key), b, TTLIdempotency).Err()
}
