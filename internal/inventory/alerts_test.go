package inventory_test

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-bakery-orders/internal/inventory"
	kafkax "github.com/ariefcatur/go-bakery-orders/internal/kafka"
	"github.com/ariefcatur/go-bakery-orders/internal/memstore"
)

// fakeSink applies the same version rule as the Redis store.
type fakeSink struct {
	versions map[int64]int64
	alerts   map[int64]inventory.Alert
}

func newFakeSink() *fakeSink {
	return &fakeSink{versions: map[int64]int64{}, alerts: map[int64]inventory.Alert{}}
}

func (f *fakeSink) advance(pid, version int64) bool {
	if f.versions[pid] >= version {
		return false
	}
	f.versions[pid] = version
	return true
}

func (f *fakeSink) Raise(_ context.Context, a inventory.Alert) (bool, error) {
	if !f.advance(a.ProductID, a.Version) {
		return false, nil
	}
	f.alerts[a.ProductID] = a
	return true, nil
}

func (f *fakeSink) Clear(_ context.Context, pid, version int64) (bool, error) {
	if !f.advance(pid, version) {
		return false, nil
	}
	delete(f.alerts, pid)
	return true, nil
}

func changed(pid int64, available int, version int64) kafkax.Envelope {
	return kafkax.NewEnvelope(inventory.EventInventoryChanged, "test", "", "", inventory.ChangedPayload{
		ProductID: pid,
		Actual:    available,
		Available: available,
		Cause:     inventory.CauseExit,
		Version:   version,
	})
}

func TestAlertsRaiseAndClear(t *testing.T) {
	sink := newFakeSink()
	svc := &inventory.AlertService{Sink: sink, Threshold: 10, Now: newClock().Now}
	ctx := context.Background()

	require.NoError(t, svc.Apply(ctx, changed(7, 3, 1)))
	require.Contains(t, sink.alerts, int64(7))
	assert.Equal(t, 3, sink.alerts[7].Available)
	assert.Equal(t, 10, sink.alerts[7].Threshold)
	assert.Equal(t, int64(1), sink.alerts[7].Version)

	require.NoError(t, svc.Apply(ctx, changed(7, 10, 2)))
	assert.NotContains(t, sink.alerts, int64(7))
}

func TestAlertsIgnoreRedelivery(t *testing.T) {
	sink := newFakeSink()
	svc := &inventory.AlertService{Sink: sink, Threshold: 10}
	ctx := context.Background()

	low := changed(7, 3, 1)
	require.NoError(t, svc.Apply(ctx, low))
	require.NoError(t, svc.Apply(ctx, changed(7, 50, 2)))
	require.NoError(t, svc.Apply(ctx, low))

	assert.Empty(t, sink.alerts)
}

func TestAlertsIgnoreOlderStockPosition(t *testing.T) {
	sink := newFakeSink()
	svc := &inventory.AlertService{Sink: sink, Threshold: 10}
	ctx := context.Background()

	// the newer position arrives first, then a distinct but older event
	require.NoError(t, svc.Apply(ctx, changed(7, 50, 6)))
	require.NoError(t, svc.Apply(ctx, changed(7, 3, 5)))
	assert.Empty(t, sink.alerts)

	// and an older high position cannot clear a newer low one
	require.NoError(t, svc.Apply(ctx, changed(8, 2, 4)))
	require.NoError(t, svc.Apply(ctx, changed(8, 40, 3)))
	require.Contains(t, sink.alerts, int64(8))
	assert.Equal(t, 2, sink.alerts[8].Available)
}

func TestAlertsFollowLedgerVersions(t *testing.T) {
	st := memstore.New()
	pid := addProduct(st, "Bolillo")
	stock(t, st, pid, 20)

	events := &recorder{}
	exit := func(qty int) {
		require.NoError(t, withLedger(t, st, func(ctx context.Context, l *inventory.Ledger) error {
			if _, err := l.RecordExit(ctx, pid, qty, "sale"); err != nil {
				return err
			}
			inventory.PublishChanges(events, "test", "", inventory.CauseExit, "sale", l.Touched())
			return nil
		}))
	}
	exit(15) // available 5
	exit(5)  // available 0
	require.Len(t, events.envs, 2)

	sink := newFakeSink()
	svc := &inventory.AlertService{Sink: sink, Threshold: 10}
	ctx := context.Background()
	require.NoError(t, svc.Apply(ctx, events.envs[1]))
	require.NoError(t, svc.Apply(ctx, events.envs[0]))

	require.Contains(t, sink.alerts, pid)
	assert.Equal(t, 0, sink.alerts[pid].Available)
}

func TestAlertsHandleMessage(t *testing.T) {
	sink := newFakeSink()
	svc := &inventory.AlertService{Sink: sink, Threshold: 5}
	ctx := context.Background()

	require.NoError(t, svc.HandleInventoryChanged(ctx, kafka.Message{Value: kafkax.MustMarshal(changed(3, 1, 1))}))
	assert.Contains(t, sink.alerts, int64(3))

	// foreign and broken messages are skipped so the offset can be committed
	other := kafkax.NewEnvelope("OrderCreated", "test", "", "", map[string]int{"order_id": 1})
	require.NoError(t, svc.HandleInventoryChanged(ctx, kafka.Message{Value: kafkax.MustMarshal(other)}))
	require.NoError(t, svc.HandleInventoryChanged(ctx, kafka.Message{Value: []byte("{")}))
	assert.Len(t, sink.alerts, 1)
}
