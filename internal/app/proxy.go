package app

import (
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
)

// NewAPIProxy builds the reverse proxy that forwards API and OAuth paths to
// the backend origin. Cookies pass through untouched in both directions;
// session validity stays a backend concern.
func NewAPIProxy(origin string, logger *slog.Logger) (http.Handler, error) {
	target, err := url.Parse(origin)
	if err != nil {
		return nil, err
	}

	proxy := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			pr.Out.Host = target.Host
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Error("backend proxy", slog.String("path", r.URL.Path), slog.Any("error", err))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"error":"NETWORK_ERROR"}`))
		},
	}
	return proxy, nil
}
