package httpx

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-bakery-orders/internal/apperr"
	"github.com/ariefcatur/go-bakery-orders/internal/inventory"
)

type AlertLister interface {
	List(ctx context.Context) ([]inventory.Alert, error)
}

type InventoryHandler struct {
	Service   *inventory.Service
	Alerts    AlertLister // optional
	Threshold int         // default limit for low-stock queries
	Log       *zap.Logger
	Dev       bool
}

type MovementReq struct {
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Reference string `json:"reference"`
}

func (h *InventoryHandler) Register(r chi.Router) {
	r.Get("/inventory", h.levels)
	r.Post("/inventory/entry", h.entry)
	r.Post("/inventory/exit", h.exit)
	r.Get("/inventory/low-stock", h.lowStock)
	r.Get("/inventory/alerts", h.alerts)
	r.Get("/inventory/{product_id}/movements", h.movements)
	r.Get("/products", h.products)
}

func (h *InventoryHandler) fail(w http.ResponseWriter, err error) { writeError(w, err, h.Dev, h.Log) }

func (h *InventoryHandler) entry(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, h.Service.RecordEntry)
}

func (h *InventoryHandler) exit(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, h.Service.RecordExit)
}

func (h *InventoryHandler) move(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, productID int64, qty int, ref string) (inventory.Record, error)) {
	var req MovementReq
	if err := decode(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	if req.ProductID <= 0 {
		h.fail(w, apperr.Validation(apperr.CodeInvalidRequest, "product_id is required"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	rec, err := op(ctx, req.ProductID, req.Quantity, req.Reference)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *InventoryHandler) lowStock(w http.ResponseWriter, r *http.Request) {
	limit := h.Threshold
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			h.fail(w, apperr.Validation(apperr.CodeInvalidRequest, "limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := h.Service.LowStock(ctx, limit)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *InventoryHandler) levels(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := h.Service.Levels(ctx)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *InventoryHandler) movements(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "product_id")
	if err != nil {
		h.fail(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := h.Service.History(ctx, id)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *InventoryHandler) alerts(w http.ResponseWriter, r *http.Request) {
	if h.Alerts == nil {
		writeJSON(w, http.StatusOK, []inventory.Alert{})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := h.Alerts.List(ctx)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *InventoryHandler) products(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := h.Service.Products(ctx)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
