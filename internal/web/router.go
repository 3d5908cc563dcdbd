package web

import (
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jusunglee/hanjahangul/internal/db"
	"github.com/jusunglee/hanjahangul/internal/hanja"
	"github.com/jusunglee/hanjahangul/internal/health"
	"github.com/jusunglee/hanjahangul/internal/web/handlers"
	"github.com/jusunglee/hanjahangul/internal/web/middleware"
)

const maxConvertBody = 64 << 10

type Options struct {
	Dictionary       *hanja.Dictionary
	DictionarySource string
	// Repo enables the history endpoints when set.
	Repo db.Repository
	// Recorder is optional. Leave it nil rather than a typed nil pointer.
	Recorder       handlers.Recorder
	Log            *slog.Logger
	AllowedOrigins []string
	// AdminPassword enables GET /api/v1/feedback.
	AdminPassword string
	// RequestsPerMinute is the per-IP budget for write endpoints.
	RequestsPerMinute int
	// Static defaults to the embedded front end.
	Static       fs.FS
	HealthChecks map[string]health.Check
}

type Router struct {
	opts    Options
	limiter *middleware.IPRateLimiter
}

func NewRouter(opts Options) *Router {
	if opts.RequestsPerMinute <= 0 {
		opts.RequestsPerMinute = 60
	}
	if opts.Static == nil {
		opts.Static = StaticFS()
	}
	return &Router{
		opts:    opts,
		limiter: middleware.NewRateLimiter(opts.RequestsPerMinute, time.Minute),
	}
}

// Close stops the rate limiter's background sweep.
func (r *Router) Close() {
	r.limiter.Stop()
}

func (r *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	log := r.opts.Log

	convertHandler := handlers.NewConvertHandler(r.opts.Dictionary, r.opts.Recorder, log)
	dictionaryHandler := handlers.NewDictionaryHandler(r.opts.Dictionary, r.opts.DictionarySource)

	write := func(h http.HandlerFunc) http.Handler {
		return middleware.Chain(h,
			middleware.PrometheusMetrics(),
			middleware.RequestLogger(log),
			middleware.RateLimit(r.limiter),
			middleware.MaxBodyBytes(maxConvertBody),
		)
	}
	read := func(h http.HandlerFunc, cache string) http.Handler {
		return middleware.Chain(h,
			middleware.PrometheusMetrics(),
			middleware.RequestLogger(log),
			middleware.CacheControl(cache),
		)
	}

	mux.Handle("POST /convert", write(convertHandler.Convert))
	mux.Handle("POST /api/v1/convert", write(convertHandler.ConvertAPI))
	mux.Handle("GET /api/v1/dictionary", read(dictionaryHandler.Stats, "public, max-age=60"))
	mux.Handle("GET /health", health.Handler(r.opts.HealthChecks))

	if r.opts.Repo != nil {
		historyHandler := handlers.NewHistoryHandler(r.opts.Repo, log)
		mux.Handle("GET /api/v1/conversions", read(historyHandler.List, "public, s-maxage=5, max-age=0"))
		mux.Handle("GET /api/v1/conversions/{id}", read(historyHandler.Get, "public, s-maxage=5, max-age=0"))
		mux.Handle("POST /api/v1/conversions/{id}/feedback", write(historyHandler.CreateFeedback))
		mux.Handle("GET /api/v1/feedback",
			middleware.Chain(
				http.HandlerFunc(historyHandler.ListFeedback),
				middleware.PrometheusMetrics(),
				middleware.RequestLogger(log),
				middleware.BasicAuth(r.opts.AdminPassword),
				middleware.CacheControl("no-store"),
			),
		)
	}

	mux.Handle("GET /", staticHandler(r.opts.Static))

	return middleware.CORS(r.opts.AllowedOrigins)(mux)
}

func staticHandler(static fs.FS) http.Handler {
	fileServer := http.FileServer(http.FS(static))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if path == "/" {
			path = "/index.html"
		}
		if _, err := fs.Stat(static, strings.TrimPrefix(path, "/")); err != nil {
			http.NotFound(w, r)
			return
		}
		if strings.HasPrefix(path, "/css/") || strings.HasPrefix(path, "/js/") {
			w.Header().Set("Cache-Control", "public, max-age=3600")
		} else {
			w.Header().Set("Cache-Control", "public, s-maxage=60, max-age=0")
		}
		fileServer.ServeHTTP(w, r)
	})
}

// RedirectHandler sends every request to target with a temporary redirect,
// keeping the request path and query.
func RedirectHandler(target string) http.Handler {
	target = strings.TrimSuffix(target, "/")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target+r.URL.RequestURI(), http.StatusTemporaryRedirect)
	})
}
