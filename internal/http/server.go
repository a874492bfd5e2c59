// Package http exposes the JSON API.
package http

import (
	"context"
	"net/http"
	"runtime/debug"
	"sync/atomic"
	"time"

	"gastos/internal/auth"
	"gastos/internal/log"
	"gastos/internal/middleware/ratelimit"
	"gastos/internal/middleware/security"
	"gastos/internal/middleware/trace"
	"gastos/internal/services"
)

const (
	readinessTimeout = 5 * time.Second
	// defaultAIRateLimit applies when Options.AIRateLimitPerMinute is unset.
	defaultAIRateLimit = 10
)

// Pinger reports whether the storage backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the services the API serves.
type Deps struct {
	Auth         *auth.Service
	Transactions *services.TransactionService
	Analysis     *services.AnalysisService
	Store        Pinger
	Logger       *log.Logger
}

type Options struct {
	CORSAllowedOrigins []string
	RateLimitPerMinute int
	// AIRateLimitPerMinute is the per-client budget for /api/ai routes,
	// counted on top of the global limit.
	AIRateLimitPerMinute int
	TrustedProxies       []string
}

type appMetrics struct {
	startTime           time.Time
	transactionsCreated atomic.Int64
	analysesServed      atomic.Int64
}

type Server struct {
	http.Server
	auth             *auth.Service
	txs              *services.TransactionService
	analysis         *services.AnalysisService
	store            Pinger
	logger           *log.Logger
	rateLimiter      *ratelimit.Limiter
	aiLimiter        *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	metrics          appMetrics
	now              func() time.Time
}

func NewServer(addr string, deps Deps, opts Options) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		auth:             deps.Auth,
		txs:              deps.Transactions,
		analysis:         deps.Analysis,
		store:            deps.Store,
		logger:           logger,
		securityDetector: security.NewDetector(),
		now:              time.Now,
	}
	s.metrics.startTime = time.Now()
	s.rateLimiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute})
	if opts.AIRateLimitPerMinute <= 0 {
		opts.AIRateLimitPerMinute = defaultAIRateLimit
	}
	s.aiLimiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.AIRateLimitPerMinute})
	for _, cidr := range opts.TrustedProxies {
		if err := s.securityDetector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", log.FieldError, err, "cidr", cidr)
		}
	}
	s.traceMiddleware = trace.NewMiddleware(s.securityDetector.ExtractClientIP, s.logCompletion)

	mux := http.NewServeMux()
	s.routes(mux)

	cors := security.NewCORS(security.DefaultCORSConfig(opts.CORSAllowedOrigins))
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limit := s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		TooManyRequestsError().Write(w)
	})

	var handler http.Handler = mux
	handler = limit(handler)
	handler = cors.Middleware(handler)
	handler = headers.Middleware(handler)
	handler = s.securityDetector.Middleware(handler)
	handler = log.RequestIDMiddleware(trace.RequestIDFromRequest)(handler)
	handler = log.Middleware(logger)(handler)
	handler = s.recoverer(handler)
	handler = s.traceMiddleware.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	protected := auth.Middleware(s.auth.Tokens())
	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, protected(h))
	}
	aiLimit := s.aiLimiter.Middleware(s.securityDetector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		AIRateLimitError().Write(w)
	})
	handleAI := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, aiLimit(protected(h)))
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	handle("GET /api/auth/me", s.handleMe)

	handle("GET /api/transactions", s.handleListTransactions)
	handle("POST /api/transactions", s.handleCreateTransaction)
	handle("GET /api/transactions/summary", s.handleSummary)
	handle("GET /api/transactions/categories", s.handleCategories)
	handle("GET /api/transactions/stats/monthly", s.handleMonthlyStats)
	handle("GET /api/transactions/{id}", s.handleGetTransaction)
	handle("PUT /api/transactions/{id}", s.handleUpdateTransaction)
	handle("DELETE /api/transactions/{id}", s.handleDeleteTransaction)
	handle("POST /api/transactions/{id}/duplicate", s.handleDuplicateTransaction)

	handleAI("POST /api/ai/analyze", s.handleAnalyze)
	handleAI("GET /api/ai/analysis", s.handleAnalysis)
	handleAI("POST /api/ai/categorize", s.handleCategorize)
	handleAI("GET /api/ai/snapshots/latest", s.handleLatestSnapshot)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("Rota não encontrada").Write(w)
	})
}

func (s *Server) logCompletion(ctx context.Context, r *http.Request, statusCode int, durationMs int64, clientIP string) {
	logger := s.logger.With(log.FieldRequestID, trace.GetRequestID(ctx))
	log.NewStructuredLogger(logger).LogHTTPEnd(ctx, r, statusCode, durationMs, clientIP)
}

func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				s.logger.ErrorContext(r.Context(), "Recovered from panic",
					"panic", rec,
					"path", r.URL.Path,
					"stack", string(debug.Stack()))
				InternalServerError().Write(w)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// Shutdown stops accepting connections and the rate limiters' cleanup loops.
func (s *Server) Shutdown(ctx context.Context) error {
	s.rateLimiter.Stop()
	s.aiLimiter.Stop()
	return s.Server.Shutdown(ctx)
}

// userID returns the authenticated user. Routes without auth.Middleware
// never call it.
func userID(r *http.Request) int64 {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		return 0
	}
	return claims.UserID
}
