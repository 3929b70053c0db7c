package orders_test

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-bakery-orders/internal/inventory"
	kafkax "github.com/ariefcatur/go-bakery-orders/internal/kafka"
	"github.com/ariefcatur/go-bakery-orders/internal/memstore"
	"github.com/ariefcatur/go-bakery-orders/internal/orders"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type recorder struct {
	mu   sync.Mutex
	envs []kafkax.Envelope
}

func (r *recorder) Publish(_, value []byte, _ ...kafka.Header) {
	var env kafkax.Envelope
	if err := json.Unmarshal(value, &env); err == nil {
		r.mu.Lock()
		r.envs = append(r.envs, env)
		r.mu.Unlock()
	}
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.envs))
	for _, e := range r.envs {
		out = append(out, e.EventType)
	}
	return out
}

type mapCache struct {
	mu sync.Mutex
	m  map[int64]orders.StatusView
}

func (c *mapCache) Get(_ context.Context, id int64) (orders.StatusView, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.m[id]
	return v, ok
}

func (c *mapCache) Put(_ context.Context, v orders.StatusView) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.m[v.OrderID]; ok && !v.Newer(cur) {
		return
	}
	c.m[v.OrderID] = v
}

// heldCache parks the first Put of status hold until release is closed.
type heldCache struct {
	orders.StatusCache
	hold    orders.Status
	parked  chan struct{}
	release chan struct{}
	once    sync.Once
}

func (c *heldCache) Put(ctx context.Context, v orders.StatusView) {
	if v.Status == c.hold {
		held := false
		c.once.Do(func() { held = true })
		if held {
			close(c.parked)
			<-c.release
		}
	}
	c.StatusCache.Put(ctx, v)
}

// bakery is a memstore with one customer and a stocked product.
type bakery struct {
	st        *memstore.Store
	lc        *orders.Lifecycle
	inv       *inventory.Service
	events    *recorder
	cache     *mapCache
	customer  int64
	address   int64
	productID int64
}

func newBakery(stock int) (*bakery, error) {
	st := memstore.New()
	clk := &clock{t: time.Date(2026, 10, 16, 7, 0, 0, 0, time.UTC)}
	ev := &recorder{}
	b := &bakery{
		st:     st,
		events: ev,
		cache:  &mapCache{m: map[int64]orders.StatusView{}},
		inv:    &inventory.Service{Tx: st, Reader: st, Producer: ev, Now: clk.Now, ServiceName: "test"},
	}
	b.lc = &orders.Lifecycle{
		Tx:               st,
		Reader:           st,
		Cache:            b.cache,
		Created:          ev,
		StatusChanged:    ev,
		InventoryChanged: ev,
		Now:              clk.Now,
		ServiceName:      "test",
	}
	b.customer = st.AddCustomer()
	b.address = st.AddAddress(b.customer)
	b.productID = b.addProduct("Concha")
	if stock > 0 {
		if _, err := b.inv.RecordEntry(context.Background(), b.productID, stock, "seed"); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (b *bakery) addProduct(name string) int64 {
	return b.st.AddProduct(inventory.Product{Name: name, Unit: "Pieza", UnitPrice: decimal.RequireFromString("12.50")})
}

func (b *bakery) order(lines ...orders.LineInput) orders.NewOrder {
	sub := decimal.Zero
	for _, ln := range lines {
		sub = sub.Add(ln.UnitPrice.Mul(decimal.NewFromInt(int64(ln.Quantity))))
	}
	fee := decimal.RequireFromString("30.00")
	return orders.NewOrder{
		CustomerID:    b.customer,
		AddressID:     &b.address,
		Lines:         lines,
		Subtotal:      sub,
		ShippingFee:   fee,
		Total:         sub.Add(fee),
		PaymentMethod: "cash",
	}
}

func line(pid int64, qty int) orders.LineInput {
	return orders.LineInput{ProductID: pid, Quantity: qty, UnitPrice: decimal.RequireFromString("12.50")}
}

func (b *bakery) record(pid int64) inventory.Record {
	rec, _ := b.st.GetInventory(context.Background(), pid)
	return rec
}

func decodeStatusChanged(raw json.RawMessage) (orders.OrderStatusChangedPayload, error) {
	return kafkax.UnwrapPayload[orders.OrderStatusChangedPayload](raw)
}
