package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/inkwellhq/inkwell-server/internal/http/response"
	"github.com/inkwellhq/inkwell-server/internal/observability"
	"github.com/inkwellhq/inkwell-server/internal/security"
)

type contextKey string

const ClaimsContextKey contextKey = "claims"

// AuthMiddleware is the stateless request gate: it verifies the access token
// signature and expiry and attaches the claims to the request context. It
// never touches the token store, so it stays cheap on every protected
// request. Expired and forged tokens get the same generic answer.
func AuthMiddleware(jwtMgr *security.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, source := extractAccessToken(r)
			if raw == "" {
				observability.RecordAccessTokenValidation(r.Context(), "missing", "none")
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing access token")
				return
			}
			claims, err := jwtMgr.ParseAccessToken(raw)
			if err != nil {
				observability.RecordAccessTokenValidation(r.Context(), "invalid", source)
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid access token")
				return
			}
			observability.RecordAccessTokenValidation(r.Context(), "valid", source)
			ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractAccessToken(r *http.Request) (raw, source string) {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:]), "bearer"
	}
	if v := security.GetCookie(r, security.AccessCookieName); v != "" {
		return v, "cookie"
	}
	return "", ""
}

func ClaimsFromContext(ctx context.Context) (*security.Claims, bool) {
	c, ok := ctx.Value(ClaimsContextKey).(*security.Claims)
	return c, ok
}
