package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	httpmiddleware "github.com/adrs-io/adrs/internal/http/middleware"
	"github.com/adrs-io/adrs/internal/receipt"
	"github.com/adrs-io/adrs/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	ReceiptHandler     *receipt.Handler
	AuthJWTSecret      string
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
}

// New creates a new Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api", func(api chi.Router) {
		api.Post("/inference", cfg.ReceiptHandler.ExecuteInference)
		api.Get("/receipts/{id}", cfg.ReceiptHandler.GetReceipt)

		// Review requires the ADMIN role.
		api.With(httpmiddleware.RequireRole(cfg.AuthJWTSecret, httpmiddleware.RoleAdmin)).
			Post("/receipts/{id}/review", cfg.ReceiptHandler.ReviewReceipt)

		// Audit and analytics surfaces require AUDITOR or ADMIN.
		api.Group(func(audit chi.Router) {
			audit.Use(httpmiddleware.RequireRole(cfg.AuthJWTSecret,
				httpmiddleware.RoleAuditor, httpmiddleware.RoleAdmin))
			audit.Get("/audit/dashboard", cfg.ReceiptHandler.Dashboard)
			audit.Get("/receipts/{id}/export", cfg.ReceiptHandler.Export)
			audit.Get("/analytics/trends", cfg.ReceiptHandler.Trends)
			audit.Get("/analytics/drift", cfg.ReceiptHandler.Drift)
			audit.Get("/analytics/risks", cfg.ReceiptHandler.Risks)
		})
	})

	return r
}
