// Package http serves the JSON API over the report and ledger services,
// together with health probes and Prometheus metrics.
package http

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	applog "stripbot/internal/log"
	"stripbot/internal/middleware/ratelimit"
	"stripbot/internal/middleware/security"
	"stripbot/internal/services"
)

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

type Server struct {
	http.Server
	reports *services.ReportService
	ledger  *services.LedgerService
	logger  *applog.Logger
	access  *applog.StructuredLogger
	limiter *ratelimit.Limiter

	mu     sync.RWMutex
	checks map[string]ReadinessCheck

	shutdownOnce sync.Once
}

// NewServer configures routes and returns a ready-to-run server.
func NewServer(addr string, reports *services.ReportService, ledger *services.LedgerService, logger *applog.Logger) *Server {
	if logger == nil {
		logger = applog.NewWithLevel(applog.ComponentHTTP, slog.LevelInfo)
	}
	s := &Server{
		reports: reports,
		ledger:  ledger,
		logger:  logger,
		access:  applog.NewStructuredLogger(logger),
		limiter: ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		checks:  make(map[string]ReadinessCheck),
	}
	s.Addr = addr
	s.Handler = s.routes()
	s.ReadHeaderTimeout = 10 * time.Second
	s.ReadTimeout = 10 * time.Second
	s.WriteTimeout = 10 * time.Second
	s.IdleTimeout = 60 * time.Second
	s.MaxHeaderBytes = 1 << 16 // 64KB
	return s
}

// AddReadinessCheck registers a dependency probed by /readyz.
func (s *Server) AddReadinessCheck(name string, check ReadinessCheck) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks[name] = check
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(applog.Middleware(s.logger))
	r.Use(applog.RequestIDMiddleware(func(r *http.Request) string {
		return middleware.GetReqID(r.Context())
	}))
	r.Use(applog.AccessMiddleware(s.access, clientIP))
	r.Use(security.Headers(security.DefaultHeadersConfig()))

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.limiter.Middleware(clientIP, func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded, retry later")
		}))

		r.Get("/banks", s.handleBanks)

		r.Route("/sessions/{userID}", func(r chi.Router) {
			r.Post("/start", s.handleStart)
			r.Post("/messages", s.handleCollect)
			r.Post("/process", s.handleProcess)
			r.Get("/stats", s.handleStats)
			r.Get("/export", s.handleExport)
			r.Delete("/", s.handleClear)
		})

		r.Route("/ledger/{userID}", func(r chi.Router) {
			r.Get("/", s.handleLedger)
			r.Post("/deposits", s.handleDeposit)
			r.Put("/limits", s.handleLimit)
		})
	})

	return r
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	s.mu.RLock()
	defer s.mu.RUnlock()

	status := http.StatusOK
	results := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			slog.WarnContext(ctx, "Readiness check failed", "check", name, "error", err)
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}
	writeJSON(w, status, map[string]any{"ready": status == http.StatusOK, "checks": results})
}

// clientIP is the remote host after chi's RealIP rewrote RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
