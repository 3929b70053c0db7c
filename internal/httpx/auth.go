package httpx

import (
	"net/http"

	"github.com/ariefcatur/go-bakery-orders/internal/apperr"
)

const HeaderCaller = "X-Caller-Id"

// RequireCaller rejects requests that carry no caller identity. Authentication itself
// happens upstream; this only checks that it did.
func RequireCaller(required, dev bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if required && r.Header.Get(HeaderCaller) == "" {
				writeError(w, apperr.Unauthorized(apperr.CodeMissingCaller, "missing %s header", HeaderCaller), dev, nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
