package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-bakery-orders/internal/apperr"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError translates err into the API error body. Causes are only exposed in
// development; storage failures get a generic message otherwise.
func writeError(w http.ResponseWriter, err error, dev bool, log *zap.Logger) {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		ae = apperr.Persistence(err).(*apperr.Error)
	}
	body := errorBody{Error: ae.Code, Message: ae.Message}
	status := ae.Kind.HTTPStatus()
	if status >= http.StatusInternalServerError {
		if log != nil {
			log.Error("request failed", zap.String("code", ae.Code), zap.Error(err))
		}
		if !dev {
			body.Message = "internal error"
		}
	}
	if dev && ae.Err != nil {
		body.Details = ae.Err.Error()
	}
	writeJSON(w, status, body)
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Validation(apperr.CodeInvalidRequest, "invalid json: %v", err)
	}
	return nil
}

// decodeOptional is decode for endpoints whose body may be empty.
func decodeOptional(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return apperr.Validation(apperr.CodeInvalidRequest, "invalid json: %v", err)
	}
	return nil
}

func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation(apperr.CodeInvalidRequest, "%s must be a positive integer", name)
	}
	return id, nil
}
