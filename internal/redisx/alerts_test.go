package redisx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-bakery-orders/internal/inventory"
	kafkax "github.com/ariefcatur/go-bakery-orders/internal/kafka"
)

func TestAlertStoreVersionGate(t *testing.T) {
	_, rdb := newRedis(t)
	s := &AlertStore{RDB: rdb}
	ctx := context.Background()

	ok, err := s.Raise(ctx, inventory.Alert{ProductID: 7, Available: 3, Threshold: 10, Version: 1})
	require.NoError(t, err)
	assert.True(t, ok)

	// redelivery of the same version
	ok, err = s.Raise(ctx, inventory.Alert{ProductID: 7, Available: 3, Threshold: 10, Version: 1})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.Clear(ctx, 7, 3)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Raise(ctx, inventory.Alert{ProductID: 7, Available: 1, Threshold: 10, Version: 2})
	require.NoError(t, err)
	assert.False(t, ok, "older than the clear")

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestAlertStoreListOrder(t *testing.T) {
	mr, rdb := newRedis(t)
	s := &AlertStore{RDB: rdb}
	ctx := context.Background()

	for _, a := range []inventory.Alert{
		{ProductID: 3, Available: 5, Threshold: 10, Version: 1},
		{ProductID: 2, Available: 2, Threshold: 10, Version: 1},
		{ProductID: 1, Available: 2, Threshold: 10, Version: 1},
	} {
		_, err := s.Raise(ctx, a)
		require.NoError(t, err)
	}
	mr.HSet(KeyLowStockAlerts, "9", "{")

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []int64{1, 2, 3}, []int64{list[0].ProductID, list[1].ProductID, list[2].ProductID})
}

func TestAlertServiceOnRedisIgnoresStaleEvents(t *testing.T) {
	_, rdb := newRedis(t)
	store := &AlertStore{RDB: rdb}
	svc := &inventory.AlertService{Sink: store, Threshold: 10}
	ctx := context.Background()

	changed := func(available int, version int64) kafkax.Envelope {
		return kafkax.NewEnvelope(inventory.EventInventoryChanged, "test", "", "", inventory.ChangedPayload{
			ProductID: 7, Actual: available, Available: available, Version: version,
		})
	}
	require.NoError(t, svc.Apply(ctx, changed(50, 6)))
	require.NoError(t, svc.Apply(ctx, changed(3, 5)))

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}
