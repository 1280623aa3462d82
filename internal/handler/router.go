package handler

import (
	"context"
	"net/http"
	"time"

	chathandler "github.com/boddenberg/organic-shop-bfa/internal/chat/handler"
	chatservice "github.com/boddenberg/organic-shop-bfa/internal/chat/service"
	"github.com/boddenberg/organic-shop-bfa/internal/domain"
	"github.com/boddenberg/organic-shop-bfa/internal/infra/observability"
	"github.com/boddenberg/organic-shop-bfa/internal/port"
	"github.com/boddenberg/organic-shop-bfa/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

const healthCheckTimeout = 2 * time.Second

// Services bundles what the router dispatches to. Nil members leave their
// routes registered but unusable, which is enough for ops-only tests.
type Services struct {
	Chat        *chatservice.ChatService
	Catalog     *service.CatalogService
	Auth        *service.AuthService
	Health      port.HealthChecker
	ChatLimiter *RateLimiter
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svcs Services, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svcs.Health, logger))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	limiter := svcs.ChatLimiter
	if limiter == nil {
		limiter = NewRateLimiter(0, 1)
	}

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// =============================================
		// 1. Chat assistant
		// POST /v1/chat, GET /v1/chat/faqs
		// =============================================
		r.With(RateLimitMiddleware(limiter, "chat", metrics, logger)).
			Post("/chat", chathandler.ChatHandler(svcs.Chat, logger))
		r.Get("/chat/faqs", chathandler.FaqListHandler(svcs.Chat, logger))
		r.Get("/metrics/chat", chatMetricsHandler(metrics))

		// =============================================
		// 2. Catalog
		// =============================================
		r.Get("/categories", listCategoriesHandler(svcs.Catalog, logger))
		r.Get("/categories/{id}", getCategoryHandler(svcs.Catalog, logger))
		r.Get("/products", listProductsHandler(svcs.Catalog, logger))
		r.Get("/products/{id}", getProductHandler(svcs.Catalog, logger))

		// =============================================
		// 3. Auth
		// =============================================
		r.Post("/auth/register", authRegisterHandler(svcs.Auth, logger))
		r.Post("/auth/login", authLoginHandler(svcs.Auth, logger))
		r.With(JWTAuthMiddleware(svcs.Auth, logger)).
			Get("/auth/me", authMeHandler(svcs.Auth, logger))
	})

	return r
}

// ============================================================
// Operational handlers
// ============================================================

func healthzHandler(store port.HealthChecker, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "shop-api", Status: "healthy", LastChecked: now},
		}

		if store != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			defer cancel()

			start := time.Now()
			err := store.Ping(ctx)
			status := "healthy"
			if err != nil {
				status = "unhealthy"
				logger.Error("healthz: database ping failed", zap.Error(err))
			}
			services = append(services, domain.ServiceHealth{
				Name: "database", Status: status,
				LatencyMs: time.Since(start).Milliseconds(), LastChecked: now,
			})
		}

		overallStatus := "healthy"
		code := http.StatusOK
		for _, s := range services {
			if s.Status == "unhealthy" {
				overallStatus = "unhealthy"
				code = http.StatusServiceUnavailable
				break
			}
		}

		writeJSON(w, code, domain.HealthStatus{
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

func chatMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetChatSnapshot())
	}
}
