package handler

import (
	"net/http"
	"time"

	"github.com/aequasi/expensify-to-excel/internal/domain"
	"github.com/aequasi/expensify-to-excel/internal/infra/observability"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Options tunes the router.
type Options struct {
	// MaxUploadBytes caps the multipart request body. Zero disables the cap.
	MaxUploadBytes int64
	// Breakers are reported by /healthz; an open breaker degrades the status.
	Breakers []*gobreaker.CircuitBreaker
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(gen ReportGenerator, metrics *observability.Metrics, opts Options, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(opts.Breakers))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- Upload ---
	r.Get("/", uploadFormHandler())
	r.Post("/", reportHandler(gen, opts.MaxUploadBytes, logger))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		r.Post("/reports", reportHandler(gen, opts.MaxUploadBytes, logger))
		r.Get("/metrics/receipts", receiptMetricsHandler(metrics))
	})

	return r
}

func healthzHandler(breakers []*gobreaker.CircuitBreaker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "expensify-to-excel", Status: "healthy", LastChecked: now},
		}
		for _, cb := range breakers {
			status := "healthy"
			switch cb.State() {
			case gobreaker.StateOpen:
				status = "degraded"
			case gobreaker.StateHalfOpen:
				status = "recovering"
			}
			services = append(services, domain.ServiceHealth{Name: cb.Name(), Status: status, LastChecked: now})
		}

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status == "degraded" {
				overallStatus = "degraded"
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func receiptMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetReceiptSnapshot())
	}
}
