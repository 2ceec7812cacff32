// Package http exposes the ledger engine to the portal's API-route
// collaborators as a JSON API. Mutations go straight to the engine;
// balance-sheet reads sit behind a short-TTL cache because dashboards
// poll them far more often than the books change.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/deepak-sekarbabu-coder/apargo-sub000/internal/cache"
	"github.com/deepak-sekarbabu-coder/apargo-sub000/internal/core"
	"github.com/deepak-sekarbabu-coder/apargo-sub000/internal/ledger"
	applog "github.com/deepak-sekarbabu-coder/apargo-sub000/internal/log"
	"github.com/deepak-sekarbabu-coder/apargo-sub000/internal/middleware/ratelimit"
	"github.com/deepak-sekarbabu-coder/apargo-sub000/internal/middleware/trace"
)

// Options configures the API server.
type Options struct {
	Port      string
	CacheSize int
	CacheTTL  time.Duration
	RateLimit ratelimit.Config
	Logger    *applog.Logger
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		Port:      "8081",
		CacheSize: 256,
		CacheTTL:  30 * time.Second,
		RateLimit: ratelimit.DefaultConfig(),
	}
}

type Server struct {
	engine       *ledger.Engine
	srv          *http.Server
	balanceCache *cache.LRUCache[[]core.BalanceSheet]
	cacheManager *cache.Manager
	limiter      *ratelimit.Limiter
}

func NewServer(engine *ledger.Engine, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentHTTP)
	}
	s := &Server{
		engine:       engine,
		balanceCache: cache.NewLRUCache[[]core.BalanceSheet](opts.CacheSize, opts.CacheTTL),
		cacheManager: cache.NewManager(),
		limiter:      ratelimit.NewLimiter(opts.RateLimit),
	}
	s.cacheManager.Register(s.balanceCache)
	s.cacheManager.StartCleanup(opts.CacheTTL)

	tracer := trace.NewMiddleware(extractClientIP)

	r := chi.NewRouter()
	r.Use(applog.Middleware(opts.Logger))
	r.Use(tracer.Middleware)
	r.Use(s.limiter.Middleware(extractClientIP, nil))

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/expenses", s.handleCreateExpense)
		r.Put("/expenses/{id}", s.handleUpdateExpense)
		r.Delete("/expenses/{id}", s.handleDeleteExpense)

		r.Post("/payments", s.handleCreatePayment)
		r.Put("/payments/{id}", s.handleUpdatePayment)
		r.Delete("/payments/{id}", s.handleDeletePayment)

		r.Post("/obligations/generate", s.handleGenerateObligations)

		r.Get("/balance-sheets", s.handleListBalanceSheets)
	})

	s.srv = &http.Server{
		Addr:              ":" + opts.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Start blocks serving requests until the listener fails or Shutdown runs.
func (s *Server) Start() error {
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops background loops.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	s.cacheManager.Stop()
	return s.srv.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// invalidateBalances drops cached balance sheets after any mutation.
func (s *Server) invalidateBalances() {
	s.balanceCache.Purge()
}
