package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/taaskr/taaskr-shell/internal/guard"
	"github.com/taaskr/taaskr-shell/internal/observability"
	"github.com/taaskr/taaskr-shell/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger  *slog.Logger
	Config  *Config
	Guard   guard.Guard
	Proxy   http.Handler
	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router for one shell variant. API and OAuth
// paths are proxied to the backend; everything else serves the SPA shell,
// with protected pages behind the cookie-presence guard.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	// Backend-bound paths bypass the guard entirely; credentials travel in
	// cookies the proxy leaves alone.
	if params.Proxy != nil {
		r.Handle("/api/*", params.Proxy)
		r.Handle("/google/*", params.Proxy)
	}

	shell := shellHandler(params.Logger)

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		// Assets are unguarded: the login page needs them too.
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	loginPath := "/login"
	if params.Config != nil && params.Config.LoginPath != "" {
		loginPath = params.Config.LoginPath
	}
	r.Get(loginPath, shell)

	r.Group(func(r chi.Router) {
		r.Use(params.Guard.Middleware)
		r.Get("/", shell)
		// Client-side routes all resolve to the shell document.
		r.Get("/*", shell)
	})

	return r
}

// shellHandler serves the embedded SPA shell document.
func shellHandler(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		document, err := web.Static.ReadFile("static/index.html")
		if err != nil {
			logger.Error("read shell document", slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write(document)
	}
}

// staticCacheHandler wraps a file server with Cache-Control headers.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
