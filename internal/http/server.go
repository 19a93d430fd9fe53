// Package http exposes the ledger and payment verification over a JSON API.
package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"

	applog "litepay/internal/log"
	"litepay/internal/middleware/ratelimit"
	"litepay/internal/middleware/security"
	"litepay/internal/middleware/trace"
	"litepay/internal/services"
)

// HeaderSessionID identifies the client's verification session.
const HeaderSessionID = "X-Session-ID"

type Server struct {
	*http.Server
	svc     *services.LedgerService
	logger  *applog.Logger
	limiter *ratelimit.Limiter
	tracer  *trace.Middleware
}

// Options tunes the server. Zero values fall back to defaults.
type Options struct {
	CORSAllowedOrigins []string
	RateLimitPerMinute int
	TrustedProxies     []string
	Logger             *applog.Logger
}

func NewServer(addr string, svc *services.LedgerService, opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	ips, err := security.NewIPResolver(opts.TrustedProxies...)
	if err != nil {
		return nil, err
	}

	s := &Server{
		svc:     svc,
		logger:  logger,
		limiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		tracer:  trace.NewMiddleware(ips.ClientIP, applog.NewStructuredLogger(logger)),
	}

	r := chi.NewRouter()
	r.Use(s.tracer.Middleware)
	r.Use(applog.Middleware(logger))
	r.Use(applog.RequestIDMiddleware(trace.RequestIDFromRequest))
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(api chi.Router) {
		api.Use(s.limiter.Middleware(ips.ClientIP, s.onRateLimit))

		api.Get("/groups", s.handleListGroups)
		api.Post("/groups", s.handleCreateGroup)
		api.Get("/groups/selected", s.handleSelectedGroup)
		api.Route("/groups/{groupID}", func(g chi.Router) {
			g.Get("/", s.handleGetGroup)
			g.Delete("/", s.handleRemoveGroup)
			g.Post("/select", s.handleSelectGroup)
			g.Post("/members", s.handleAddMember)
			g.Delete("/members/{member}", s.handleRemoveMember)
			g.Post("/expenses", s.handleAddExpense)
			g.Get("/balances", s.handleBalances)
			g.Get("/summary", s.handleSummary)
		})

		api.Get("/payment-address", s.handlePaymentAddress)
		api.Post("/verifications", s.handleVerify)
		api.Get("/verifications/{sessionID}", s.handleVerificationState)
		api.Delete("/verifications/{sessionID}", s.handleResetVerification)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	origins := opts.CORSAllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	handler := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", HeaderSessionID, trace.HeaderRequestID},
		ExposedHeaders: []string{trace.HeaderRequestID},
		MaxAge:         300,
	}).Handler(r)

	s.Server = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// Limiter exposes the rate limiter so its idle clients can be swept.
func (s *Server) Limiter() *ratelimit.Limiter {
	return s.limiter
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	m := s.tracer.GetMetrics()
	s.logger.InfoContext(ctx, "HTTP server shutting down",
		"total_requests", m.TotalRequests,
		"avg_response_us", m.AverageResponseTime,
		"rate_limited", s.limiter.GetMetrics().TotalHits)
	return s.Server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady reports ready once persisted state has been restored.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if !s.svc.Restored() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "restoring"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
}

func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				applog.FromContext(r.Context()).ErrorContext(r.Context(), "Handler panic", "panic", rec)
				writeError(w, http.StatusInternalServerError, "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}
