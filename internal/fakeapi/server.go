// Package fakeapi is an in-memory implementation of the budgeting REST API.
// It backs the integration tests of the client packages and can be run
// locally with `budgetctl serve-fake`.
package fakeapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/crypto/bcrypt"

	"budgetly/internal/cache"
	"budgetly/internal/log"
)

// Options configures the server. Zero values select working defaults.
type Options struct {
	// Secret signs issued tokens. A fixed development secret is used when empty.
	Secret []byte
	// BcryptCost defaults to bcrypt.MinCost, which keeps tests fast.
	BcryptCost int
	// Now is the clock used for tokens and report periods.
	Now func() time.Time
	// AuthRateLimit caps login and register attempts per client per minute.
	// Zero disables throttling.
	AuthRateLimit int
	// AllowedOrigins for browser clients. Defaults to any origin.
	AllowedOrigins []string
	Logger         *log.Logger
}

type Server struct {
	http.Server

	db         *db
	secret     []byte
	bcryptCost int
	now        func() time.Time
	logger     *log.Logger
	limiter    *limiter
	origins    []string
	caches     *cache.Manager
}

// NewServer returns a ready-to-run server listening on addr once started.
func NewServer(addr string, opts Options) *Server {
	if len(opts.Secret) == 0 {
		opts.Secret = []byte("budgetly-development-secret")
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.MinCost
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}

	s := &Server{
		db:         newDB(opts.Now),
		secret:     opts.Secret,
		bcryptCost: opts.BcryptCost,
		now:        opts.Now,
		logger:     opts.Logger.WithComponent(log.ComponentFakeAPI),
		limiter:    newLimiter(opts.AuthRateLimit, opts.Now),
		origins:    opts.AllowedOrigins,
		caches:     cache.NewManager(opts.Logger.WithComponent(log.ComponentFakeAPI)),
	}
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.caches.Register(s.limiter)
	s.caches.Register(s.db.revoked)
	s.caches.StartCleanup(5 * time.Minute)
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(log.Middleware(s.logger))
	r.Use(log.RequestIDMiddleware(func(r *http.Request) string { return r.Header.Get("X-Request-ID") }))
	r.Use(log.AccessLog)
	r.Use(securityHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"Retry-After"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		ok(w, http.StatusOK, "ok", nil)
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) { notFound(w) })
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		fail(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(s.limiter.middleware)
			r.Post("/login", s.handleLogin)
			r.Post("/register", s.handleRegister)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Post("/logout", s.handleLogout)
			r.Post("/logout-all", s.handleLogoutAll)
			r.Get("/profile", s.handleProfile)
			r.Put("/profile", s.handleUpdateProfile)
			r.Put("/password", s.handleUpdatePassword)

			r.Get("/categories", s.handleListCategories)
			r.Post("/categories", s.handleCreateCategory)
			r.Get("/categories/{id}", s.handleGetCategory)
			r.Put("/categories/{id}", s.handleUpdateCategory)
			r.Delete("/categories/{id}", s.handleDeleteCategory)

			r.Get("/budgets", s.handleListBudgets)
			r.Post("/budgets", s.handleCreateBudget)
			r.Get("/budgets/month/{month}", s.handleBudgetsByMonth)
			r.Get("/budgets/{id}", s.handleGetBudget)
			r.Put("/budgets/{id}", s.handleUpdateBudget)
			r.Delete("/budgets/{id}", s.handleDeleteBudget)
			r.Post("/budgets/{id}/items", s.handleCreateItem)

			r.Patch("/budget-items/{id}", s.handleUpdateItem)
			r.Delete("/budget-items/{id}", s.handleDeleteItem)

			r.Post("/incomes", s.handleCreateIncome)
			r.Patch("/incomes/{id}", s.handleUpdateIncome)
			r.Delete("/incomes/{id}", s.handleDeleteIncome)

			r.Post("/expenses", s.handleCreateExpense)
			r.Patch("/expenses/{id}", s.handleUpdateExpense)
			r.Delete("/expenses/{id}", s.handleDeleteExpense)

			r.Get("/reports/dashboard", s.handleDashboard)
			r.Get("/reports/current-month-budget-stats", s.handleCurrentMonthStats)
		})
	})
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting fake API server", "addr", s.Addr)
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// Shutdown stops background work and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.caches.Stop()
	return s.Server.Shutdown(ctx)
}
