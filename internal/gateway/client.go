// Package gateway mediates every HTTP call against the Taaskr backend,
// including the transparent refresh-and-retry dance on expired sessions.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"os"
	"sync"

	"github.com/google/uuid"
)

const (
	// EnvAPIOrigin overrides the backend origin when no explicit base URL
	// is configured.
	EnvAPIOrigin = "TAASKR_API_ORIGIN"
	// DefaultAPIOrigin is the local development fallback.
	DefaultAPIOrigin = "http://localhost:8000"

	refreshPath = "/api/users/token/refresh/"

	headerContentType = "Content-Type"
	headerRequestID   = "X-Request-ID"
)

// ResolveBaseURL applies the base URL resolution order: explicit value,
// then the TAASKR_API_ORIGIN environment variable, then the local fallback.
func ResolveBaseURL(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if origin := os.Getenv(EnvAPIOrigin); origin != "" {
		return origin
	}
	return DefaultAPIOrigin
}

// Options is the caller-facing options bag for one logical request.
type Options struct {
	// Body is JSON-encoded unless it is a RawBody. A nil Body sends no
	// payload.
	Body any
	// Headers take precedence over injected defaults.
	Headers http.Header
}

// RawBody carries a pre-encoded payload such as a multipart form. No JSON
// content type is injected for it; ContentType is used verbatim when set
// (a multipart writer supplies the boundary there).
type RawBody struct {
	Reader      io.Reader
	ContentType string
}

// Client issues requests against the backend with cookie credentials.
// Session identity travels exclusively via cookies; the client never sets a
// bearer header.
type Client struct {
	baseURL string
	httpc   *http.Client
	logger  *slog.Logger

	mu          sync.Mutex
	subscribers []func()
}

// New constructs a Client with a fresh cookie jar. The logger may be nil.
func New(baseURL string, logger *slog.Logger) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: ResolveBaseURL(baseURL),
		// Timeout intentionally left at the transport default.
		httpc:  &http.Client{Jar: jar},
		logger: logger,
	}, nil
}

// BaseURL returns the resolved backend origin.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// OnTokenRefreshed registers fn to run after every successful silent
// refresh. Subscribers are invoked on their own goroutine so a subscriber
// may call back into the client.
func (c *Client) OnTokenRefreshed(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribers = append(c.subscribers, fn)
}

func (c *Client) notifyTokenRefreshed() {
	c.mu.Lock()
	subs := make([]func(), len(c.subscribers))
	copy(subs, c.subscribers)
	c.mu.Unlock()
	for _, fn := range subs {
		go fn()
	}
}

// Do performs one logical request. A 401 triggers a single silent refresh
// followed by exactly one retry; every other outcome maps onto the Result
// taxonomy. Do never returns an error value to its caller.
func (c *Client) Do(ctx context.Context, method, path string, opts Options) Result {
	prepared, err := c.prepare(opts)
	if err != nil {
		return Result{Code: CodeNetworkError, Detail: err.Error()}
	}
	return c.attempt(ctx, method, path, prepared)
}

// preparedRequest is a replayable form of Options: the body is buffered so
// the retry after a refresh can resend it.
type preparedRequest struct {
	body        []byte
	contentType string
	headers     http.Header
	requestID   string
}

func (c *Client) prepare(opts Options) (preparedRequest, error) {
	prepared := preparedRequest{
		headers:   opts.Headers,
		requestID: uuid.NewString(),
	}
	switch body := opts.Body.(type) {
	case nil:
	case RawBody:
		data, err := io.ReadAll(body.Reader)
		if err != nil {
			return preparedRequest{}, err
		}
		prepared.body = data
		prepared.contentType = body.ContentType
	default:
		data, err := json.Marshal(body)
		if err != nil {
			return preparedRequest{}, err
		}
		prepared.body = data
		prepared.contentType = "application/json"
	}
	return prepared, nil
}

// attempt issues the request with the single retry still available.
func (c *Client) attempt(ctx context.Context, method, path string, prepared preparedRequest) Result {
	resp, err := c.send(ctx, method, path, prepared)
	if err != nil {
		return Result{Code: CodeNetworkError, Detail: err.Error()}
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return decodeResponse(resp)
	}
	drain(resp)

	refreshResp, err := c.send(ctx, http.MethodPost, refreshPath, preparedRequest{requestID: uuid.NewString()})
	if err != nil {
		return Result{Code: CodeRefreshFailed, Detail: err.Error()}
	}
	drain(refreshResp)
	if refreshResp.StatusCode < 200 || refreshResp.StatusCode >= 300 {
		return Result{Code: CodeTokenExpired, Status: refreshResp.StatusCode}
	}

	c.logger.Debug("session refreshed, retrying request", slog.String("path", path))
	c.notifyTokenRefreshed()
	return c.attemptOnce(ctx, method, path, prepared)
}

// attemptOnce issues the request with no retry left. A further 401 falls
// through to normal response handling.
func (c *Client) attemptOnce(ctx context.Context, method, path string, prepared preparedRequest) Result {
	resp, err := c.send(ctx, method, path, prepared)
	if err != nil {
		return Result{Code: CodeNetworkError, Detail: err.Error()}
	}
	return decodeResponse(resp)
}

func (c *Client) send(ctx context.Context, method, path string, prepared preparedRequest) (*http.Response, error) {
	var body io.Reader
	if prepared.body != nil {
		body = bytes.NewReader(prepared.body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if prepared.contentType != "" {
		req.Header.Set(headerContentType, prepared.contentType)
	}
	req.Header.Set(headerRequestID, prepared.requestID)
	// Caller headers win over injected defaults.
	for key, values := range prepared.headers {
		req.Header.Del(key)
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	return c.httpc.Do(req)
}

func decodeResponse(resp *http.Response) Result {
	defer func() { _ = resp.Body.Close() }()

	status := resp.StatusCode
	success := status >= 200 && status < 300

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{Code: CodeNetworkError, Status: status, Detail: err.Error()}
	}

	var body any
	if err := json.Unmarshal(data, &body); err != nil {
		if success {
			// Empty or non-JSON 2xx body is a valid success with no data.
			return Result{Status: status}
		}
		return Result{Code: CodeRequestFailed, Status: status}
	}
	if !success && isEmptyValue(body) {
		return Result{Code: CodeRequestFailed, Status: status}
	}
	// The decoded body is returned verbatim; backend error envelopes pass
	// through unmodified.
	return Result{Status: status, Body: body}
}

// isEmptyValue mirrors the falsiness check applied to decoded error bodies.
func isEmptyValue(body any) bool {
	switch value := body.(type) {
	case nil:
		return true
	case string:
		return value == ""
	case bool:
		return !value
	case float64:
		return value == 0
	default:
		return false
	}
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
