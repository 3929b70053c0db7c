package inventory_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-bakery-orders/internal/apperr"
	"github.com/ariefcatur/go-bakery-orders/internal/inventory"
	kafkax "github.com/ariefcatur/go-bakery-orders/internal/kafka"
	"github.com/ariefcatur/go-bakery-orders/internal/memstore"
)

type recorder struct{ envs []kafkax.Envelope }

func (r *recorder) Publish(_, value []byte, _ ...kafka.Header) {
	var env kafkax.Envelope
	if err := json.Unmarshal(value, &env); err == nil {
		r.envs = append(r.envs, env)
	}
}

func newService(st *memstore.Store, pub kafkax.Publisher) *inventory.Service {
	return &inventory.Service{Tx: st, Reader: st, Producer: pub, Now: newClock().Now, ServiceName: "test"}
}

func TestServiceEntryPublishesChange(t *testing.T) {
	st := memstore.New()
	pid := addProduct(st, "Concha")
	pub := &recorder{}
	svc := newService(st, pub)
	ctx := kafkax.WithTrace(context.Background(), "req-7")

	rec, err := svc.RecordEntry(ctx, pid, 12, "delivery note 4")
	require.NoError(t, err)
	assert.Equal(t, 12, rec.Actual)

	require.Len(t, pub.envs, 1)
	env := pub.envs[0]
	assert.Equal(t, inventory.EventInventoryChanged, env.EventType)
	assert.Equal(t, "req-7", env.TraceID)
	p, err := kafkax.UnwrapPayload[inventory.ChangedPayload](env.Payload)
	require.NoError(t, err)
	assert.Equal(t, pid, p.ProductID)
	assert.Equal(t, 12, p.Available)
	assert.Equal(t, inventory.CauseEntry, p.Cause)
}

func TestServiceFailureDoesNotPublish(t *testing.T) {
	st := memstore.New()
	pid := addProduct(st, "Concha")
	pub := &recorder{}
	svc := newService(st, pub)

	_, err := svc.RecordExit(context.Background(), pid, 1, "")
	require.Error(t, err)
	assert.Empty(t, pub.envs)
}

func TestServiceLowStock(t *testing.T) {
	st := memstore.New()
	svc := newService(st, nil)
	ctx := context.Background()

	a := addProduct(st, "Bolillo")
	b := addProduct(st, "Concha")
	c := addProduct(st, "Dona")
	d := addProduct(st, "Empanada")
	for pid, qty := range map[int64]int{a: 4, b: 2, c: 30, d: 2} {
		_, err := svc.RecordEntry(ctx, pid, qty, "")
		require.NoError(t, err)
	}

	low, err := svc.LowStock(ctx, 10)
	require.NoError(t, err)
	require.Len(t, low, 3)
	assert.Equal(t, []int64{b, d, a}, []int64{low[0].ProductID, low[1].ProductID, low[2].ProductID})
	assert.Equal(t, "Concha", low[0].Name)

	none, err := svc.LowStock(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = svc.LowStock(ctx, -1)
	assert.Equal(t, apperr.CodeInvalidRequest, apperr.CodeOf(err))
}

func TestServiceHistoryNewestFirst(t *testing.T) {
	st := memstore.New()
	svc := newService(st, nil)
	ctx := context.Background()
	pid := addProduct(st, "Concha")

	_, err := svc.RecordEntry(ctx, pid, 10, "first")
	require.NoError(t, err)
	_, err = svc.RecordExit(ctx, pid, 3, "second")
	require.NoError(t, err)
	_, err = svc.RecordEntry(ctx, pid, 1, "third")
	require.NoError(t, err)

	ms, err := svc.History(ctx, pid)
	require.NoError(t, err)
	require.Len(t, ms, 3)
	assert.Equal(t, "third", ms[0].Reference)
	assert.Equal(t, "second", ms[1].Reference)
	assert.Equal(t, "first", ms[2].Reference)
	assert.True(t, !ms[0].At.Before(ms[1].At))

	empty, err := svc.History(ctx, 12345)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestServiceGetAndLevels(t *testing.T) {
	st := memstore.New()
	svc := newService(st, nil)
	ctx := context.Background()
	pid := addProduct(st, "Concha")
	bare := addProduct(st, "Aaa no stock")

	_, err := svc.Get(ctx, pid)
	assert.Equal(t, apperr.CodeProductNotFound, apperr.CodeOf(err))

	_, err = svc.RecordEntry(ctx, pid, 3, "")
	require.NoError(t, err)
	rec, err := svc.Get(ctx, pid)
	require.NoError(t, err)
	assert.Equal(t, 3, rec.Actual)

	levels, err := svc.Levels(ctx)
	require.NoError(t, err)
	require.Len(t, levels, 1)
	assert.Equal(t, 3, levels[0].Available)

	products, err := svc.Products(ctx)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, bare, products[0].ID)
	assert.Equal(t, 0, products[0].Stock)
	assert.Equal(t, 3, products[1].Stock)
}
