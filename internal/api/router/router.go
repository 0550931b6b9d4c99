package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/fjstoneservices/site-api/internal/content"
	httpmiddleware "github.com/fjstoneservices/site-api/internal/http/middleware"
	"github.com/fjstoneservices/site-api/internal/leads"
	"github.com/fjstoneservices/site-api/internal/quotes"
	"github.com/fjstoneservices/site-api/internal/ratelimit"
	"github.com/fjstoneservices/site-api/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger         *logging.Logger
	QuotesHandler  *quotes.Handler
	LeadsHandler   *leads.Handler
	ContentHandler *content.Handler

	// DownloadHandler serves signed links for the local object store.
	DownloadHandler http.Handler
	// DownloadLimiter throttles guesses against /files/{token}.
	DownloadLimiter httpmiddleware.Allower
	ClientKey       func(*http.Request) string

	AdminAuthSecret    string
	AdminEmails        []string
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
	// Ready reports dependency health for /ready.
	Ready func(r *http.Request) error
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", health)
		if cfg.Ready != nil {
			public.Get("/ready", ready(cfg.Ready))
		}
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.QuotesHandler != nil {
			public.Post("/api/quotes", cfg.QuotesHandler.Submit)
		}
		if cfg.DownloadHandler != nil {
			keyFn := cfg.ClientKey
			if keyFn == nil {
				keyFn = ratelimit.ClientKey
			}
			public.With(httpmiddleware.RateLimit(cfg.DownloadLimiter, keyFn)).
				Method(http.MethodGet, "/files/{token}", cfg.DownloadHandler)
		}
	})

	// Staff routes: 401 without a valid session, 403 for non-admins.
	r.Route("/api/admin", func(admin chi.Router) {
		admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
		admin.Use(httpmiddleware.RequireAdmin(cfg.AdminEmails))

		if cfg.LeadsHandler != nil {
			admin.Route("/quotes", func(r chi.Router) {
				r.Get("/", cfg.LeadsHandler.ListLeads)
				r.Get("/{id}", cfg.LeadsHandler.GetLead)
				r.Patch("/{id}", cfg.LeadsHandler.UpdateLead)
				r.Delete("/{id}", cfg.LeadsHandler.DeleteLead)
			})
		}
		if cfg.ContentHandler != nil {
			admin.Post("/content/update", cfg.ContentHandler.Update)
		}
	})

	return r
}

func health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func ready(check func(*http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := check(r); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
