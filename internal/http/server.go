package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"salesdash/internal/core"
	applog "salesdash/internal/log"
	"salesdash/internal/middleware/ratelimit"
	"salesdash/internal/middleware/security"
	"salesdash/internal/middleware/trace"
	"salesdash/internal/services"
)

// QueryEngine answers the paginated listings.
type QueryEngine interface {
	List(ctx context.Context, p services.ListParams) (core.ListResult, error)
	ListByMonth(ctx context.Context, month int, page, limit int64) (core.MonthPage, error)
	SearchByMonth(ctx context.Context, month int, page, limit int64, searchText string) (core.MonthPage, error)
}

// AggregationEngine answers the monthly aggregates.
type AggregationEngine interface {
	Statistics(ctx context.Context, month int) (core.Statistics, error)
	Histogram(ctx context.Context, month int) ([]core.HistogramEntry, error)
	CategoryBreakdown(ctx context.Context, month int) ([]core.CategoryCount, error)
	Combined(ctx context.Context, month int) (core.Combined, error)
	Categories(ctx context.Context, month int) ([]string, error)
}

// Options tunes the server. Zero values fall back to defaults.
type Options struct {
	RequestTimeout     time.Duration
	RateLimitPerMinute int
	Logger             *applog.Logger
	// Ready reports whether the backing store can serve queries.
	Ready func(ctx context.Context) error
}

type Server struct {
	http.Server
	queries    QueryEngine
	aggregates AggregationEngine
	logger     *applog.Logger
	ready      func(ctx context.Context) error
	timeout    time.Duration
	started    time.Time

	rateLimiter *ratelimit.Limiter
	tracer      *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, queries QueryEngine, aggregates AggregationEngine, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.Default(applog.ComponentHTTP)
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	limiterCfg := ratelimit.DefaultConfig()
	limiterCfg.RequestsPerMinute = opts.RateLimitPerMinute

	s := &Server{
		queries:     queries,
		aggregates:  aggregates,
		logger:      logger,
		ready:       opts.Ready,
		timeout:     timeout,
		started:     time.Now(),
		rateLimiter: ratelimit.NewLimiter(limiterCfg),
		tracer:      trace.NewMiddleware(security.ExtractClientIP, logger),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/transactions", s.handleTransactions)
	mux.HandleFunc("GET /api/statistics", s.handleStatistics)
	mux.HandleFunc("GET /api/bar-chart", s.handleBarChart)
	mux.HandleFunc("GET /api/bar-chart.png", s.handleBarChartPNG)
	mux.HandleFunc("GET /api/pie-chart", s.handlePieChart)
	mux.HandleFunc("GET /api/combined", s.handleCombined)
	mux.HandleFunc("GET /api/transactions-by-month", s.handleTransactionsByMonth)
	mux.HandleFunc("GET /api/searchTransactionsByMonth", s.handleSearchTransactionsByMonth)
	mux.HandleFunc("GET /api/categories", s.handleCategories)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limit := s.rateLimiter.Middleware(security.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusTooManyRequests, errorBody{Message: "Rate limit exceeded. Please try again later."})
	})

	var handler http.Handler = mux
	handler = s.withTimeout(handler)
	handler = headers.Middleware(handler)
	handler = limit(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// withTimeout bounds every request; the deadline reaches the store through
// the request context.
func (s *Server) withTimeout(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Shutdown stops the rate limiter and drains the HTTP server. Safe to call
// more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
