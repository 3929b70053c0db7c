package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-bakery-orders/internal/logx"
	"github.com/ariefcatur/go-bakery-orders/internal/orders"
	"github.com/ariefcatur/go-bakery-orders/internal/redisx"
)

const HeaderIdempotencyKey = "Idempotency-Key"

// IdempotencyStore remembers which order a caller's client key created.
type IdempotencyStore interface {
	Lookup(ctx context.Context, caller, key string) (redisx.OrderRef, bool, error)
	Remember(ctx context.Context, caller, key string, ref redisx.OrderRef) error
}

type OrdersHandler struct {
	Lifecycle   *orders.Lifecycle
	Idempotency IdempotencyStore // optional
	Log         *zap.Logger
	Dev         bool
}

type CreateOrderResp struct {
	OrderID    int64  `json:"order_id"`
	Reference  string `json:"reference"`
	Idempotent bool   `json:"idempotent,omitempty"`
}

type SetStatusReq struct {
	StatusID int    `json:"status_id"`
	Detail   string `json:"detail"`
}

type CancelReq struct {
	Reason string `json:"reason"`
}

type StatusResp struct {
	OrderID int64                `json:"order_id"`
	Status  orders.Status        `json:"status"`
	Event   orders.TrackingEvent `json:"event"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Post("/orders", h.createOrder)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/orders/{id}/status", h.getStatus)
	r.Put("/orders/{id}/status", h.setStatus)
	r.Post("/orders/{id}/cancel", h.cancelOrder)
	r.Get("/customers/{id}/orders", h.listCustomerOrders)
}

func (h *OrdersHandler) fail(w http.ResponseWriter, err error) { writeError(w, err, h.Dev, h.Log) }

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req orders.NewOrder
	if err := decode(r, &req); err != nil {
		h.fail(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	key := r.Header.Get(HeaderIdempotencyKey)
	caller := r.Header.Get(HeaderCaller)
	if key != "" && h.Idempotency != nil {
		ref, ok, err := h.Idempotency.Lookup(ctx, caller, key)
		if err != nil {
			logx.OrNop(h.Log).Warn("idempotency lookup", zap.String("key", key), zap.Error(err))
		}
		if ok {
			writeJSON(w, http.StatusOK, CreateOrderResp{OrderID: ref.OrderID, Reference: ref.Reference, Idempotent: true})
			return
		}
	}

	o, err := h.Lifecycle.Create(ctx, req)
	if err != nil {
		h.fail(w, err)
		return
	}

	if key != "" && h.Idempotency != nil {
		if err := h.Idempotency.Remember(ctx, caller, key, redisx.OrderRef{OrderID: o.ID, Reference: o.Reference}); err != nil {
			logx.OrNop(h.Log).Warn("idempotency remember", zap.String("key", key), zap.Error(err))
		}
	}
	writeJSON(w, http.StatusCreated, CreateOrderResp{OrderID: o.ID, Reference: o.Reference})
}

func (h *OrdersHandler) setStatus(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, err)
		return
	}
	var req SetStatusReq
	if err := decode(r, &req); err != nil {
		h.fail(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	ev, err := h.Lifecycle.SetStatus(ctx, id, req.StatusID, req.Detail)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResp{OrderID: id, Status: ev.Status, Event: ev})
}

func (h *OrdersHandler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, err)
		return
	}
	var req CancelReq
	if err := decodeOptional(r, &req); err != nil {
		h.fail(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	ev, err := h.Lifecycle.Cancel(ctx, id, req.Reason)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResp{OrderID: id, Status: ev.Status, Event: ev})
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Lifecycle.Get(ctx, id)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) getStatus(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	v, err := h.Lifecycle.CurrentStatus(ctx, id)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := h.Lifecycle.List(ctx)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) listCustomerOrders(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := h.Lifecycle.ListByCustomer(ctx, id)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
