// Package http serves the dashboard, entry, report, file and category pages.
package http

import (
	"bytes"
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"assetboard/internal/backend"
	"assetboard/internal/cache"
	"assetboard/internal/core"
	applog "assetboard/internal/log"
	"assetboard/internal/middleware/ratelimit"
	"assetboard/internal/middleware/security"
	"assetboard/internal/middleware/trace"
	appweb "assetboard/web"
)

// fetchTimeout bounds every backend call made while serving a request.
const fetchTimeout = 7 * time.Second

// maxImportHistory caps the file list kept in memory.
const maxImportHistory = 50

// Options tune a Server. Zero values fall back to defaults.
type Options struct {
	Logger          *applog.Logger
	USDFallbackRate decimal.Decimal
	RateLimit       ratelimit.Config
	// Caches are swept periodically while the server runs.
	Caches       []cache.Cleaner
	CacheCleanup time.Duration
	Now          func() time.Time
}

type Server struct {
	http.Server
	templates *template.Template
	backend   backend.Backend
	logger    *applog.Logger

	usdFallback decimal.Decimal
	now         func() time.Time
	started     time.Time

	detector    *security.Detector
	rateLimiter *ratelimit.Limiter
	tracer      *trace.Middleware
	caches      *cache.Manager

	importsMu sync.Mutex
	imports   []core.ImportResult // newest first

	shutdownOnce sync.Once
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run server.
func NewServer(addr string, be backend.Backend, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig())
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if !opts.USDFallbackRate.IsPositive() {
		opts.USDFallbackRate = decimal.NewFromInt(150)
	}
	if opts.CacheCleanup <= 0 {
		opts.CacheCleanup = 10 * time.Minute
	}
	if len(opts.RateLimit.Methods) == 0 {
		opts.RateLimit.Methods = []string{http.MethodPost}
	}

	detector := security.NewDetector()
	s := &Server{
		backend:     be,
		logger:      opts.Logger.WithComponent(applog.ComponentHTTP),
		usdFallback: opts.USDFallbackRate,
		now:         opts.Now,
		started:     opts.Now(),
		detector:    detector,
		rateLimiter: ratelimit.NewLimiter(opts.RateLimit),
		tracer:      trace.NewMiddleware(detector.ExtractClientIP),
		caches:      cache.NewManager(),
	}
	for _, c := range opts.Caches {
		s.caches.Register(c)
	}
	if len(opts.Caches) > 0 {
		s.caches.StartCleanup(opts.CacheCleanup)
	}

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates", applog.FieldError, err)
		t = nil
	}
	s.templates = t

	mux := http.NewServeMux()
	s.routes(mux)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	s.Server = http.Server{
		Addr: addr,
		Handler: chain(mux,
			s.tracer.Middleware,
			detector.Middleware,
			applog.Middleware(opts.Logger),
			applog.ComponentMiddleware(applog.ComponentHTTP),
			applog.RequestIDMiddleware(trace.RequestID),
			headers.Middleware,
			s.rateLimiter.Middleware(detector.ExtractClientIP),
		),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /{$}", s.handleDashboard)
	mux.HandleFunc("GET /assets", s.handleAssets)

	mux.HandleFunc("GET /manual-entry", s.handleManualEntry)
	mux.HandleFunc("POST /manual-entry", s.handleCreateEntry)
	mux.HandleFunc("POST /manual-entry/{id}/delete", s.handleDeleteEntry)

	mux.HandleFunc("GET /reports", s.handleReports)
	mux.HandleFunc("GET /reports/export.csv", s.handleExportCSV)
	mux.HandleFunc("GET /reports/export.xlsx", s.handleExportXLSX)

	mux.HandleFunc("GET /files", s.handleFiles)
	mux.HandleFunc("POST /files/import", s.handleImport)

	mux.HandleFunc("GET /admin/categories", s.handleCategories)
	mux.HandleFunc("GET /api/category2", s.handleCategory2List)
	mux.HandleFunc("GET /api/category2/normalize", s.handleCategory2Normalize)
}

// chain wraps h so the first middleware is the outermost.
func chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// Shutdown stops background work and the HTTP server. It is safe to call
// more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// render executes a template into a buffer first so a failing template
// never leaves a half written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	if s.templates == nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Templates not loaded",
			applog.FieldPath, r.URL.Path,
			"error_type", applog.ErrorTypeConfiguration)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			applog.FieldError, err,
			applog.FieldOperation, applog.OpRender,
			"template", name)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) renderFragment(name string, data any) (string, error) {
	if s.templates == nil {
		return "", errTemplatesMissing
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// recordImport prepends a result to the file list.
func (s *Server) recordImport(res core.ImportResult) {
	s.importsMu.Lock()
	defer s.importsMu.Unlock()
	s.imports = append([]core.ImportResult{res}, s.imports...)
	if len(s.imports) > maxImportHistory {
		s.imports = s.imports[:maxImportHistory]
	}
}

func (s *Server) importHistory() []core.ImportResult {
	s.importsMu.Lock()
	defer s.importsMu.Unlock()
	return append([]core.ImportResult(nil), s.imports...)
}
