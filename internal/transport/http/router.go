package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"proofshare/internal/platform/health"
	"proofshare/internal/platform/middleware"
	"proofshare/internal/share/handler"
)

// RouterConfig carries the pieces NewRouter assembles. Requester routes sit
// behind bearer auth; holder routes stay public since a scanned QR carries no
// credentials.
type RouterConfig struct {
	Share         *handler.Handler
	Health        *health.Handler
	Logger        *slog.Logger
	JWTSigningKey string
}

// NewRouter wires all endpoints with the middleware stack.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Timeout(30 * time.Second))

	cfg.Health.Register(r)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(public chi.Router) {
		cfg.Share.RegisterHolder(public)
	})

	r.Group(func(authed chi.Router) {
		authed.Use(middleware.RequireAuth(cfg.JWTSigningKey, cfg.Logger))
		cfg.Share.RegisterRequester(authed)
	})

	return r
}
