package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	httpSwagger "github.com/swaggo/http-swagger"

	"eventplanner/internal/delivery/http/controllers"
	"eventplanner/internal/delivery/http/helpers"
	"eventplanner/internal/delivery/http/middleware"
	"eventplanner/internal/domain"
	"eventplanner/internal/metrics"
)

// HealthCheck reports whether a backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

// RouterConfig carries the handlers and settings NewRouter wires together.
type RouterConfig struct {
	Logger   *slog.Logger
	Verifier domain.TokenVerifier

	Events *controllers.EventController
	Auth   *controllers.AuthController
	Users  *controllers.UserController

	GraphQL       http.Handler
	Notifications http.Handler
	Health        HealthCheck

	AllowedOrigins     []string
	LoginRatePerMinute int
	LoginBurst         int
}

// NewRouter initializes the HTTP router with all application routes and the middleware chain.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()
	requireAuth := middleware.RequireAuth(cfg.Verifier, cfg.Logger)
	limit := middleware.RateLimit(cfg.LoginRatePerMinute, cfg.LoginBurst)

	// Auth
	mux.HandleFunc("POST /auth/signup", limit(cfg.Auth.SignUp))
	mux.HandleFunc("POST /auth/login", limit(cfg.Auth.Login))

	// Users
	mux.HandleFunc("GET /users/me", requireAuth(cfg.Users.GetMe))
	mux.HandleFunc("GET /users", cfg.Users.ListUsers)

	// Events
	mux.HandleFunc("GET /events", cfg.Events.ListEvents)
	mux.HandleFunc("POST /events", cfg.Events.CreateEvent)
	mux.HandleFunc("GET /events/{eventID}", cfg.Events.GetEvent)
	mux.HandleFunc("DELETE /events/{eventID}", cfg.Events.CancelEvent)
	mux.HandleFunc("POST /events/{eventID}/attendees", cfg.Events.JoinEvent)
	mux.HandleFunc("DELETE /events/{eventID}/attendees", cfg.Events.LeaveEvent)

	// Mobile client
	if cfg.GraphQL != nil {
		mux.Handle("POST /graphql", cfg.GraphQL)
	}
	if cfg.Notifications != nil {
		mux.Handle("GET /ws", cfg.Notifications)
	}

	// Operations
	mux.HandleFunc("GET /healthz", healthz(cfg.Health, cfg.Logger))
	mux.Handle("GET /metrics", metrics.Handler())

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	// Metrics sits innermost so it sees the matched pattern.
	var handler http.Handler = metrics.HTTPMiddleware(mux)
	handler = middleware.Authenticate(cfg.Verifier, cfg.Logger)(handler)
	handler = middleware.LoggingMiddleware(cfg.Logger, handler)
	return middleware.CORS(cfg.AllowedOrigins, handler)
}

type healthResponse struct {
	Status string `json:"status"`
}

// healthz godoc
// @Summary Health check
// @Tags operations
// @Produce json
// @Success 200 {object} helpers.APIResponse
// @Failure 503 {object} helpers.APIResponse
// @Router /healthz [get]
func healthz(check HealthCheck, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				logger.WarnContext(r.Context(), "health check failed", "err", err)
				helpers.WriteJSONError(w, http.StatusServiceUnavailable, helpers.ErrCodeInternalError, "unavailable")
				return
			}
		}
		helpers.WriteJSONSuccess(w, http.StatusOK, healthResponse{Status: "ok"})
	}
}
