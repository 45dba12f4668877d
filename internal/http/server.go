// Package http exposes the JSON API for projects, receipts, fixed expenses
// and the aggregated cash-flow views.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"manager/internal/cache"
	applog "manager/internal/log"
	"manager/internal/services"
)

type Server struct {
	http.Server

	cashflow *services.CashFlowService
	receipts *services.ReceiptService
	fixed    services.FixedExpenseStore
	projects services.ProjectStore

	jwtSecret []byte

	rateLimiter *rateLimiter
	metrics     *securityMetrics
	httpLog     *applog.StructuredLogger

	// totalsCache holds per-owner TotalExpenses responses, invalidated on
	// every write that can change the rollup.
	totalsCache *cache.LRU[services.TotalExpensesReport]

	shutdownOnce sync.Once
}

// Deps carries everything the server needs. TotalsCache may be nil to
// disable response caching.
type Deps struct {
	CashFlow    *services.CashFlowService
	Receipts    *services.ReceiptService
	Fixed       services.FixedExpenseStore
	Projects    services.ProjectStore
	JWTSecret   []byte
	TotalsCache *cache.LRU[services.TotalExpensesReport]
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		cashflow:    deps.CashFlow,
		receipts:    deps.Receipts,
		fixed:       deps.Fixed,
		projects:    deps.Projects,
		jwtSecret:   deps.JWTSecret,
		rateLimiter: newRateLimiter(),
		metrics:     &securityMetrics{},
		httpLog:     applog.NewStructuredLogger(applog.New(applog.Config{Component: applog.ComponentHTTP})),
		totalsCache: deps.TotalsCache,
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("/projects", s.protected(s.handleProjects))
	mux.HandleFunc("/projects/payments", s.protected(s.handleAddPayment))
	mux.HandleFunc("/receipts", s.protected(s.handleReceipts))
	mux.HandleFunc("/fixedExpenses", s.protected(s.handleFixedExpenses))
	mux.HandleFunc("/fixedExpenses/toggle", s.protected(s.handleToggleFixedExpense))
	mux.HandleFunc("/getCashFlowExpenses", s.protected(s.handleCashFlowExpenses))
	mux.HandleFunc("/getCashFlowIncomes", s.protected(s.handleCashFlowIncomes))
	mux.HandleFunc("/getTotalExpenses", s.protected(s.handleTotalExpenses))

	return s
}

// protected chains the middleware applied to every authenticated route.
func (s *Server) protected(next http.HandlerFunc) http.HandlerFunc {
	return s.withSecurityHeaders(s.withAuth(next))
}

// Shutdown gracefully shuts down the server and its cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withSecurityHeaders adds security headers, rate limiting, and request
// logging to responses.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)
		requestID := generateRequestID()

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		s.httpLog.LogHTTPStart(ctx, r, clientIP)

		if detectSuspiciousRequest(r, s.metrics) {
			slog.WarnContext(ctx, "Suspicious request detected",
				"client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
		}

		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP, s.metrics) {
			slog.WarnContext(ctx, "Rate limit exceeded",
				"client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		s.httpLog.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	}
}

type contextKey string

const requestIDKey contextKey = "request_id"

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
