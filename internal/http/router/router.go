package router

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/inkwellhq/inkwell-server/internal/http/handler"
	"github.com/inkwellhq/inkwell-server/internal/http/middleware"
	"github.com/inkwellhq/inkwell-server/internal/http/response"
	"github.com/inkwellhq/inkwell-server/internal/security"
)

type Dependencies struct {
	AuthHandler      *handler.AuthHandler
	JWTManager       *security.JWTManager
	APIRateLimitRPM  int
	AuthRateLimitRPM int
	Limiter          middleware.Limiter
	Readiness        func(ctx context.Context) error
	EnableOTelHTTP   bool
}

func New(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.StructuredRequestLogger)
	r.Use(middleware.SecurityHeaders)

	limiter := dep.Limiter
	if limiter == nil {
		limiter = middleware.NewLocalLimiter()
	}
	apiLimiter := middleware.NewRateLimiter(limiter, dep.APIRateLimitRPM, time.Minute, "api").Middleware()
	authLimiter := middleware.NewRateLimiter(limiter, dep.AuthRateLimitRPM, time.Minute, "auth").Middleware()
	r.Use(apiLimiter)

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if dep.Readiness != nil {
			if err := dep.Readiness(r.Context()); err != nil {
				response.Error(w, r, http.StatusServiceUnavailable, "DEPENDENCY_UNREADY", "dependencies are not ready")
				return
			}
		}
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(authLimiter).Post("/register", dep.AuthHandler.Register)
			r.With(authLimiter).Post("/login", dep.AuthHandler.Login)
			r.With(authLimiter).Post("/refresh", dep.AuthHandler.Refresh)
			r.Post("/logout", dep.AuthHandler.Logout)
			r.With(middleware.AuthMiddleware(dep.JWTManager)).Post("/logout-all", dep.AuthHandler.LogoutAll)
		})

		r.With(middleware.AuthMiddleware(dep.JWTManager)).Get("/me", dep.AuthHandler.Me)
	})

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}
