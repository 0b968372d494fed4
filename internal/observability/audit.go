package observability

import (
	"log/slog"
	"net/http"
)

// Audit emits a structured security-relevant event tied to a request. Raw
// secrets, full fingerprints and password hashes must never appear in attrs.
func Audit(r *http.Request, event string, attrs ...any) {
	base := []any{
		"event", event,
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", r.Header.Get("X-Request-Id"),
	}
	base = append(base, attrs...)
	slog.InfoContext(r.Context(), "audit", base...)
}
