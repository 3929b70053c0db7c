package inventory

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/ariefcatur/go-bakery-orders/internal/kafka"
	"github.com/ariefcatur/go-bakery-orders/internal/logx"
)

type Alert struct {
	ProductID int64     `json:"product_id"`
	Available int       `json:"available"`
	Threshold int       `json:"threshold"`
	RaisedAt  time.Time `json:"raised_at"`
	// Version is the inventory record version the alert was raised from.
	Version int64 `json:"version"`
}

// AlertSink stores the current set of low-stock alerts. Both writes are conditional on
// version: a sink applies a change only when version is newer than the last one it
// applied for that product, and reports whether it did. Redeliveries and events that
// arrive out of order are therefore no-ops.
type AlertSink interface {
	Raise(ctx context.Context, a Alert) (bool, error)
	Clear(ctx context.Context, productID, version int64) (bool, error)
}

// AlertService turns InventoryChanged events into low-stock alerts.
type AlertService struct {
	Sink      AlertSink
	Threshold int
	Log       *zap.Logger
	Now       func() time.Time
}

// HandleInventoryChanged is installed as the consumer handler.
func (s *AlertService) HandleInventoryChanged(ctx context.Context, m kafka.Message) error {
	var env kafkax.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		logx.OrNop(s.Log).Warn("dropping undecodable message", zap.Int64("offset", m.Offset), zap.Error(err))
		return nil
	}
	if env.EventType != EventInventoryChanged {
		return nil
	}
	return s.Apply(ctx, env)
}

// Apply brings the product's alert in line with the stock carried by env, unless a
// newer stock position was already applied.
func (s *AlertService) Apply(ctx context.Context, env kafkax.Envelope) error {
	p, err := kafkax.UnwrapPayload[ChangedPayload](env.Payload)
	if err != nil {
		logx.OrNop(s.Log).Warn("dropping undecodable payload", zap.String("event_id", env.EventID), zap.Error(err))
		return nil
	}
	log := logx.OrNop(s.Log).With(
		zap.Int64("product_id", p.ProductID),
		zap.Int("available", p.Available),
		zap.Int64("version", p.Version),
	)

	var applied bool
	if p.Available >= s.Threshold {
		applied, err = s.Sink.Clear(ctx, p.ProductID, p.Version)
	} else {
		now := time.Now
		if s.Now != nil {
			now = s.Now
		}
		applied, err = s.Sink.Raise(ctx, Alert{
			ProductID: p.ProductID,
			Available: p.Available,
			Threshold: s.Threshold,
			RaisedAt:  now().UTC(),
			Version:   p.Version,
		})
		if applied {
			log.Warn("low stock", zap.Int("threshold", s.Threshold), zap.String("cause", p.Cause))
		}
	}
	if err != nil {
		return err
	}
	if !applied {
		log.Debug("stale inventory event skipped", zap.String("event_id", env.EventID))
	}
	return nil
}
