package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/quickplate/support-core-go/internal/infra/observability"
	"github.com/quickplate/support-core-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Pinger is implemented by session stores that can report backend
// connectivity. A nil Pinger means the store is always reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewRouter creates the HTTP router with all routes and middleware.
// jwtSecret empty disables bearer authentication on the API routes.
func NewRouter(svc *service.SupportService, metrics *observability.Metrics, storePinger Pinger, jwtSecret string, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(storePinger))
	r.Get("/readyz", readyzHandler(storePinger))
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		if jwtSecret != "" {
			r.Use(JWTAuthMiddleware(jwtSecret, logger))
		}

		// =============================================
		// Sessions
		// =============================================
		r.Post("/sessions", startSessionHandler(svc, logger))
		r.Get("/sessions/{sessionId}", getSessionHandler(svc, logger))
		r.Delete("/sessions/{sessionId}", endSessionHandler(svc, logger))
		r.Post("/sessions/{sessionId}/messages", postMessageHandler(svc, logger))
		r.Post("/sessions/{sessionId}/escalate", escalateHandler(svc, logger))

		// =============================================
		// Decision metrics
		// =============================================
		r.Get("/metrics/decisions", decisionMetricsHandler(metrics))
	})

	return r
}

// ============================================================
// Health
// ============================================================

type serviceHealth struct {
	Name      string `json:"name"`
	Status    string `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
}

func healthzHandler(storePinger Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		services := []serviceHealth{
			{Name: "support-core", Status: "healthy"},
		}

		overall := "healthy"
		if storePinger != nil {
			start := time.Now()
			status := "healthy"
			if err := storePinger.Ping(r.Context()); err != nil {
				status = "degraded"
				overall = "degraded"
			}
			services = append(services, serviceHealth{
				Name:      "session-store",
				Status:    status,
				LatencyMs: time.Since(start).Milliseconds(),
			})
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"status":   overall,
			"services": services,
		})
	}
}

func readyzHandler(storePinger Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if storePinger != nil {
			if err := storePinger.Ping(r.Context()); err != nil {
				writeError(w, http.StatusServiceUnavailable, "session store unreachable")
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func decisionMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetDecisionSnapshot())
	}
}
