package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/singleflight"

	"github.com/marcosilvestroni/summarize-commits/internal/cache"
	"github.com/marcosilvestroni/summarize-commits/internal/core"
	"github.com/marcosilvestroni/summarize-commits/internal/log"
	"github.com/marcosilvestroni/summarize-commits/internal/metrics"
	"github.com/marcosilvestroni/summarize-commits/internal/middleware/ratelimit"
	"github.com/marcosilvestroni/summarize-commits/internal/middleware/security"
	"github.com/marcosilvestroni/summarize-commits/internal/middleware/trace"
	"github.com/marcosilvestroni/summarize-commits/internal/ports"
	appweb "github.com/marcosilvestroni/summarize-commits/web"
)

const (
	defaultCacheSize = 32
	defaultCacheTTL  = 5 * time.Minute
	refreshTimeout   = 5 * time.Minute
	staticMaxAge     = 3600
)

// Backend is everything the server reads from and asks of the data layer.
type Backend interface {
	ports.ContributionLister
	ports.SnapshotReader
	ports.Refresher
}

// Options tunes a Server. Zero values pick defaults.
type Options struct {
	Logger       *log.Logger
	Metrics      *metrics.Metrics
	CacheTTL     time.Duration
	CacheSize    int
	RefreshLimit ratelimit.Config
	// TrustedProxies are CIDRs whose X-Forwarded-For is believed.
	TrustedProxies []string
}

type Server struct {
	http.Server
	mux       *http.ServeMux
	templates *template.Template
	backend   Backend
	logger    *log.Logger
	metrics   *metrics.Metrics
	detector  *security.Detector
	limiter   *ratelimit.Limiter

	caches    *cache.Manager
	calendars *cache.LRUCache[[]core.Week]
	summaries *cache.LRUCache[core.YearSummary]

	refreshes    singleflight.Group
	lastRun      atomic.Pointer[ports.RunResult]
	started      time.Time
	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, b Backend, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default(log.ComponentHTTP)
	}
	size := opts.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}
	ttl := opts.CacheTTL
	if ttl < 0 {
		ttl = defaultCacheTTL
	}
	limit := opts.RefreshLimit
	if limit.Requests <= 0 || limit.Window <= 0 {
		limit = ratelimit.DefaultConfig()
	}

	s := &Server{
		mux:       http.NewServeMux(),
		backend:   b,
		logger:    logger,
		metrics:   opts.Metrics,
		detector:  security.NewDetector(),
		limiter:   ratelimit.NewLimiter(limit),
		caches:    cache.NewManager(),
		calendars: cache.NewLRUCache[[]core.Week](size, ttl),
		summaries: cache.NewLRUCache[core.YearSummary](size, ttl),
		started:   time.Now(),
	}
	s.caches.Register(s.calendars)
	s.caches.Register(s.summaries)

	for _, cidr := range opts.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", "cidr", cidr, log.FieldError, err)
		}
	}

	// Parse embedded templates at startup.
	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates", log.FieldError, err)
	} else {
		s.templates = t
	}

	s.routes()

	tr := trace.NewMiddleware(trace.Config{
		Logger:    logger,
		Metrics:   opts.Metrics,
		ExtractIP: s.detector.ExtractClientIP,
		Route:     s.route,
	})
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	handler := tr.Middleware(
		s.detector.Middleware(s.onSuspicious)(
			headers.Middleware(s.mux)))

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	chartHeaders := security.NewHeadersMiddleware(security.ChartHeadersConfig())
	limited := s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimited)

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		s.mux.Handle("GET /static/", security.StaticAssetMiddleware(staticMaxAge)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /ui/years/{year}", s.handleYearPartial)
	s.mux.Handle("GET /ui/years/{year}/chart", chartHeaders.Middleware(http.HandlerFunc(s.handleYearChart)))
	s.mux.Handle("GET /chart", chartHeaders.Middleware(http.HandlerFunc(s.handleChartPage)))

	s.mux.HandleFunc("GET /api/contributions", s.handleContributions)
	s.mux.HandleFunc("GET /api/years", s.handleYears)
	s.mux.HandleFunc("GET /api/years/{year}/calendar", s.handleCalendar)
	s.mux.HandleFunc("GET /api/years/{year}/summary", s.handleSummary)
	s.mux.Handle("POST /api/refresh", limited(http.HandlerFunc(s.handleRefresh)))

	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /readyz", s.handleReady)
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}
}

// route labels a request with the pattern that serves it.
func (s *Server) route(r *http.Request) string {
	if _, pattern := s.mux.Handler(r); pattern != "" {
		return pattern
	}
	return "unmatched"
}

func (s *Server) onRateLimited(r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	s.metrics.RateLimitHit()
}

func (s *Server) onSuspicious(*http.Request) {
	s.metrics.SuspiciousRequest()
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// InvalidateCaches drops every cached layout and summary.
func (s *Server) InvalidateCaches() {
	s.caches.PurgeAll()
}

// layoutKey scopes a cache entry to the aggregate it was computed from, so a
// newer snapshot never reads an entry built from an older one.
func layoutKey(agg core.Aggregate, year int) string {
	return strconv.FormatUint(agg.Stamp(), 10) + "/" + strconv.Itoa(year)
}

// calendar returns the heatmap grid of year for agg.
func (s *Server) calendar(ctx context.Context, year int, agg core.Aggregate) []core.Week {
	key := layoutKey(agg, year)
	if weeks, ok := s.calendars.Get(key); ok {
		s.metrics.CacheHit(true)
		return weeks
	}
	s.metrics.CacheHit(false)
	weeks := core.BuildYear(year, agg)
	s.calendars.Set(key, weeks)
	log.FromContext(ctx).DebugContext(ctx, "Calendar cached", log.FieldYear, year, "weeks", len(weeks))
	return weeks
}

// summary returns the project breakdown of year for agg.
func (s *Server) summary(ctx context.Context, year int, agg core.Aggregate) core.YearSummary {
	key := layoutKey(agg, year)
	if sum, ok := s.summaries.Get(key); ok {
		s.metrics.CacheHit(true)
		return sum
	}
	s.metrics.CacheHit(false)
	sum := core.BuildYearSummary(year, agg)
	s.summaries.Set(key, sum)
	log.FromContext(ctx).DebugContext(ctx, "Summary cached", log.FieldYear, year, log.FieldTotal, sum.Total)
	return sum
}

var templateFuncs = template.FuncMap{
	"add":   func(a, b int) int { return a + b },
	"comma": func(n int) string { return humanize.Comma(int64(n)) },
	"share": func(count, total int) string {
		if total <= 0 {
			return "0.0%"
		}
		return strconv.FormatFloat(float64(count)*100/float64(total), 'f', 1, 64) + "%"
	},
	"plural": func(n int, one, many string) string {
		if n == 1 {
			return one
		}
		return many
	},
	"ago": humanize.Time,
}
