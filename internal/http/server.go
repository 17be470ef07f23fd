package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"financas/internal/cache"
	"financas/internal/core"
	"financas/internal/log"
	"financas/internal/middleware/cors"
	"financas/internal/middleware/ratelimit"
	"financas/internal/middleware/security"
	"financas/internal/middleware/trace"
	"financas/internal/report"
)

// DefaultReportTimeout bounds the work of a single report request.
const DefaultReportTimeout = 7 * time.Second

type CategoryService interface {
	List(ctx context.Context) ([]core.Category, error)
	Get(ctx context.Context, id int64) (core.Category, error)
	Create(ctx context.Context, c core.Category) (core.Category, error)
	Update(ctx context.Context, id int64, c core.Category) (core.Category, error)
	Delete(ctx context.Context, id int64) error
}

type TransactionService interface {
	List(ctx context.Context, f core.TransactionFilter) ([]core.Transaction, error)
	Get(ctx context.Context, id int64) (core.Transaction, error)
	Create(ctx context.Context, t core.Transaction) (core.Transaction, error)
	Update(ctx context.Context, id int64, t core.Transaction) (core.Transaction, error)
	Delete(ctx context.Context, id int64) error
}

type GoalService interface {
	List(ctx context.Context) ([]core.Goal, error)
	Get(ctx context.Context, id int64) (core.Goal, error)
	Create(ctx context.Context, g core.Goal) (core.Goal, error)
	Update(ctx context.Context, id int64, g core.Goal) (core.Goal, error)
	Delete(ctx context.Context, id int64) error
}

type ReportService interface {
	Analysis(ctx context.Context, p report.AnalysisParams) (report.Analysis, error)
	Projection(ctx context.Context, year, months int) (report.Projection, error)
	Dashboard(ctx context.Context, p report.DashboardParams) (report.DashboardSnapshot, error)
}

// Services are the application services the routes call into.
type Services struct {
	Categories   CategoryService
	Transactions TransactionService
	Goals        GoalService
	Reports      ReportService
}

// Options configure the server. Zero values select defaults.
type Options struct {
	Addr          string
	APIPrefix     string
	CORSOrigins   []string
	RateLimit     ratelimit.Config
	Logger        *log.Logger
	ReadyChecks   map[string]func(ctx context.Context) error
	ReportTimeout time.Duration
	// CacheStats, when set, adds report cache counters to /metrics.
	CacheStats func() cache.Stats
}

type Server struct {
	http.Server
	svc           Services
	logger        *log.Logger
	limiter       *ratelimit.Limiter
	detector      *security.Detector
	tracer        *trace.Middleware
	readyChecks   map[string]func(ctx context.Context) error
	cacheStats    func() cache.Stats
	reportTimeout time.Duration
	started       time.Time
	shutdownOnce  sync.Once
}

// NewServer wires middleware and routes, returning a ready-to-run server.
func NewServer(svc Services, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	reportTimeout := opts.ReportTimeout
	if reportTimeout <= 0 {
		reportTimeout = DefaultReportTimeout
	}

	detector := security.NewDetector()
	s := &Server{
		svc:           svc,
		logger:        logger,
		limiter:       ratelimit.NewLimiter(opts.RateLimit),
		detector:      detector,
		tracer:        trace.NewMiddleware(logger, detector.ExtractClientIP),
		readyChecks:   opts.ReadyChecks,
		cacheStats:    opts.CacheStats,
		reportTimeout: reportTimeout,
		started:       time.Now(),
	}

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.routes(opts),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(s.tracer.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(log.Middleware(s.logger))
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.detector.Middleware)
	r.Use(cors.Middleware(opts.CORSOrigins))
	r.Use(s.limiter.Middleware(s.detector.ExtractClientIP))
	r.Use(middleware.StripSlashes)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError().Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		MethodNotAllowedError("GET, POST, PUT, PATCH, DELETE").Write(w)
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	api := func(r chi.Router) {
		r.Route("/categorias", func(r chi.Router) {
			r.Get("/", s.handleListCategories)
			r.Post("/", s.handleCreateCategory)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetCategory)
				r.Put("/", s.handleReplaceCategory)
				r.Patch("/", s.handlePatchCategory)
				r.Delete("/", s.handleDeleteCategory)
			})
		})
		r.Route("/transacoes", func(r chi.Router) {
			r.Get("/", s.handleListTransactions)
			r.Post("/", s.handleCreateTransaction)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetTransaction)
				r.Put("/", s.handleReplaceTransaction)
				r.Patch("/", s.handlePatchTransaction)
				r.Delete("/", s.handleDeleteTransaction)
			})
		})
		r.Route("/metas", func(r chi.Router) {
			r.Get("/", s.handleListGoals)
			r.Post("/", s.handleCreateGoal)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetGoal)
				r.Put("/", s.handleReplaceGoal)
				r.Patch("/", s.handlePatchGoal)
				r.Delete("/", s.handleDeleteGoal)
			})
		})
		r.Get("/analises", s.handleAnalysis)
		r.Get("/projecoes", s.handleProjection)
		r.Get("/dashboard", s.handleDashboard)
	}

	if opts.APIPrefix != "" {
		r.Route(opts.APIPrefix, api)
	} else {
		api(r)
	}
	return r
}

func (s *Server) reportContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.reportTimeout)
}

// Shutdown stops accepting requests, waits for in-flight ones and stops
// the rate limiter. Safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
