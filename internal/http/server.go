// Package http exposes the REST API: auth, expenses, household lifecycle
// and categories.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"hogar/internal/auth"
	"hogar/internal/household"
	"hogar/internal/log"
	"hogar/internal/metrics"
	"hogar/internal/middleware/ratelimit"
	"hogar/internal/middleware/security"
	"hogar/internal/middleware/trace"
	"hogar/internal/services"
	"hogar/internal/storage"
	"hogar/internal/visibility"
)

// Handler bundles the services the API routes delegate to.
type Handler struct {
	auth      *auth.Service
	expenses  *services.ExpenseService
	engine    *visibility.Engine
	resolver  *household.Resolver
	lifecycle *household.Lifecycle
	store     storage.Store
	views     *SessionViews
	logger    *log.Logger
}

func NewHandler(
	authSvc *auth.Service,
	expenses *services.ExpenseService,
	engine *visibility.Engine,
	resolver *household.Resolver,
	lifecycle *household.Lifecycle,
	store storage.Store,
	logger *log.Logger,
) *Handler {
	return &Handler{
		auth:      authSvc,
		expenses:  expenses,
		engine:    engine,
		resolver:  resolver,
		lifecycle: lifecycle,
		store:     store,
		views:     NewSessionViews(),
		logger:    logger.WithComponent(log.ComponentHTTP),
	}
}

// Router assembles the middleware chain and routes.
func (h *Handler) Router(m *metrics.Metrics, limiter *ratelimit.Limiter) http.Handler {
	extractor := security.NewIPExtractor()
	tracer := trace.NewMiddleware(extractor.ExtractClientIP)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(headers.Middleware)
	r.Use(tracer.Middleware)
	r.Use(m.Middleware)
	r.Use(limiter.Middleware(extractor.ExtractClientIP))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", h.healthz)
	r.Get("/readyz", h.readyz)
	r.Method(http.MethodGet, "/metrics", m.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", h.register)
		r.Post("/auth/login", h.login)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth(h.auth))

			r.Get("/me", h.me)

			r.Route("/expenses", func(r chi.Router) {
				r.Get("/", h.listExpenses)
				r.Post("/", h.createExpense)
				r.Get("/summary", h.summarizeExpenses)
				r.Get("/export", h.exportExpenses)
				r.Put("/{id}", h.updateExpense)
				r.Delete("/{id}", h.deleteExpense)
			})

			r.Route("/household", func(r chi.Router) {
				r.Get("/", h.getHousehold)
				r.Post("/", h.createHousehold)
				r.Post("/join", h.joinHousehold)
				r.Post("/invite", h.inviteMember)
				r.Post("/leave", h.leaveHousehold)
				r.Post("/return", h.returnToHousehold)
				r.Delete("/membership", h.leavePermanently)
			})

			r.Route("/categories", func(r chi.Router) {
				r.Get("/", h.listCategories)
				r.Post("/", h.createCategory)
				r.Put("/{id}", h.updateCategory)
				r.Delete("/{id}", h.deleteCategory)
			})
		})
	})

	return r
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readyz probes the store with a cheap read so load balancers stop routing
// to an instance whose database is gone.
func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if _, err := h.store.ListCategories(ctx, "", ""); err != nil {
		h.logger.WarnContext(ctx, "Readiness probe failed", log.FieldError, err)
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// NewServer wraps the router in an http.Server with sane timeouts.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
