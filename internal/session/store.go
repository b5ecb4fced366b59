// Package session owns the single in-memory identity for a running app
// instance. Every identity-changing action goes through the Store; the rest
// of the application only reads.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/taaskr/taaskr-shell/internal/gateway"
	"github.com/taaskr/taaskr-shell/internal/identity"
)

const (
	loginPath          = "/api/users/login/"
	logoutPath         = "/api/users/logout/"
	googleCallbackPath = "/google/callback/"
	googleLoginPath    = "/google/login/"
)

// Result is the structured outcome of a Store action. Actions never panic
// or return Go errors past the store boundary.
type Result struct {
	OK bool
	// Code is the machine-readable error code, empty on success.
	Code string
	// Error is the user-facing message for the failure, empty on success.
	Error string
}

var okResult = Result{OK: true}

func failure(code, detail string) Result {
	return Result{Code: code, Error: messageFor(code, detail)}
}

// Store mediates all identity-changing actions for one app instance. It is
// owned by the composition root and passed to consumers explicitly; there
// is no package-level singleton.
type Store struct {
	gw       *gateway.Client
	variant  Variant
	logger   *slog.Logger
	validate *validator.Validate

	mu             sync.RWMutex
	identity       *identity.Identity
	initialLoading bool
	actionPending  bool
	lastError      string
}

// New constructs a Store bound to the gateway client and app variant. The
// store subscribes to the gateway's token-refreshed notification so a
// silent refresh triggers a background identity resync.
func New(gw *gateway.Client, variant Variant, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		gw:       gw,
		variant:  variant,
		logger:   logger,
		validate: validator.New(),
	}
	gw.OnTokenRefreshed(func() {
		_ = s.ReloadUser(context.Background())
	})
	return s
}

// Initialize performs the startup identity fetch, moving the store out of
// its initializing state into anonymous or authenticated.
func (s *Store) Initialize(ctx context.Context) Result {
	s.mu.Lock()
	s.initialLoading = true
	s.mu.Unlock()

	res := s.ReloadUser(ctx)

	s.mu.Lock()
	s.initialLoading = false
	s.mu.Unlock()
	return res
}

type credentials struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// Login authenticates with email/password. On success the identity is
// populated from the subsequent "who am I" fetch, never from the login
// response itself. An identity that fails the variant's role predicate is
// rolled back with a silent logout.
func (s *Store) Login(ctx context.Context, email, password string) Result {
	return s.runAction(func() Result {
		if err := s.validate.Struct(credentials{Email: email, Password: password}); err != nil {
			return failure("INVALID_INPUT", "")
		}
		body := map[string]string{"email": email, "password": password}
		return s.completeLogin(ctx, s.gw.Do(ctx, http.MethodPost, loginPath, gateway.Options{Body: body}))
	})
}

// LoginWithGoogle exchanges an OAuth authorization code for a session. The
// role-check-then-possible-rollback behavior matches Login.
func (s *Store) LoginWithGoogle(ctx context.Context, code string) Result {
	return s.runAction(func() Result {
		if code == "" {
			return failure("INVALID_INPUT", "")
		}
		body := map[string]string{"code": code}
		return s.completeLogin(ctx, s.gw.Do(ctx, http.MethodPost, googleCallbackPath, gateway.Options{Body: body}))
	})
}

// completeLogin applies the shared post-authentication flow: surface
// backend errors, fetch the identity, and enforce the variant predicate.
func (s *Store) completeLogin(ctx context.Context, res gateway.Result) Result {
	// The backend reports login rejections both as non-2xx responses and as
	// 2xx bodies carrying an error envelope; either way no identity fetch
	// happens.
	if code := res.ErrorCode(); code != "" || !res.OK() {
		if code == "" {
			code = string(gateway.CodeRequestFailed)
		}
		return failure(code, res.ErrorDetail())
	}

	reload := s.ReloadUser(ctx)
	if !reload.OK {
		return reload
	}

	s.mu.RLock()
	current := s.identity
	s.mu.RUnlock()
	if !s.variant.Allows(current) {
		// Right password, wrong audience: roll the session back without
		// redirecting so the form can show the specific rejection.
		s.silentLogout(ctx)
		return failure(s.variant.MismatchCode(), "")
	}
	return okResult
}

// ReloadUser re-fetches the current identity. A response without a valid
// identity payload clears the stored identity and reports the outcome; it
// is not recorded as a visible error because an anonymous session is a
// normal state.
func (s *Store) ReloadUser(ctx context.Context) Result {
	res := s.gw.Do(ctx, http.MethodGet, s.variant.MePath(), gateway.Options{})
	// An absent or invalid session arrives as an error tag in the body, not
	// as a hard failure.
	if code := res.ErrorCode(); code != "" || !res.OK() || res.Body == nil {
		s.setIdentity(nil)
		if code == "" {
			code = string(gateway.CodeRequestFailed)
		}
		return Result{Code: code, Error: messageFor(code, res.ErrorDetail())}
	}

	id, err := decodeIdentity(res.Body)
	if err != nil || id.ID == "" {
		s.setIdentity(nil)
		return failure(string(gateway.CodeRequestFailed), "")
	}
	s.setIdentity(id)
	return okResult
}

// Logout clears the in-memory identity synchronously and fires a
// best-effort backend logout. The backend call's failure is neither
// retried nor surfaced; calling Logout repeatedly is harmless.
func (s *Store) Logout(ctx context.Context) Result {
	return s.runAction(func() Result {
		s.silentLogout(ctx)
		return okResult
	})
}

func (s *Store) silentLogout(ctx context.Context) {
	s.setIdentity(nil)
	if res := s.gw.Do(ctx, http.MethodPost, logoutPath, gateway.Options{}); !res.OK() {
		s.logger.Debug("backend logout ignored", slog.String("code", res.ErrorCode()))
	}
}

// GoogleLoginURL asks the backend for the redirect URL that starts the
// OAuth flow.
func (s *Store) GoogleLoginURL(ctx context.Context) (string, Result) {
	res := s.gw.Do(ctx, http.MethodGet, googleLoginPath, gateway.Options{})
	if code := res.ErrorCode(); code != "" || !res.OK() {
		if code == "" {
			code = string(gateway.CodeRequestFailed)
		}
		return "", failure(code, res.ErrorDetail())
	}
	url, _ := res.Object()["auth_url"].(string)
	if url == "" {
		return "", failure(string(gateway.CodeRequestFailed), "")
	}
	return url, okResult
}

// runAction wraps a state-changing action with the in-progress flag, the
// last-error bookkeeping, and the panic barrier.
func (s *Store) runAction(fn func() Result) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("session action panic", slog.Any("panic", r))
			res = failure(string(gateway.CodeNetworkError), fmt.Sprint(r))
			s.recordError(res)
		}
	}()

	s.mu.Lock()
	s.actionPending = true
	s.mu.Unlock()

	res = fn()
	s.recordError(res)

	s.mu.Lock()
	s.actionPending = false
	s.mu.Unlock()
	return res
}

func (s *Store) recordError(res Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if res.OK {
		s.lastError = ""
	} else {
		s.lastError = res.Error
	}
}

func (s *Store) setIdentity(id *identity.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = id
}

// Current returns the identity, or nil when anonymous.
func (s *Store) Current() *identity.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

// IsAuthenticated reports whether an identity is present.
func (s *Store) IsAuthenticated() bool {
	return s.Current() != nil
}

// InitialLoading reports whether the startup identity fetch is running.
func (s *Store) InitialLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialLoading
}

// ActionPending reports whether a login/logout action is in flight.
func (s *Store) ActionPending() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.actionPending
}

// LastError returns the most recent action error message, empty after a
// successful action.
func (s *Store) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

// HasRole reports whether the current identity carries the named role.
func (s *Store) HasRole(name string) bool {
	return s.Current().HasRole(name)
}

// HasAnyRole reports whether the current identity carries any of the named
// roles.
func (s *Store) HasAnyRole(names ...string) bool {
	id := s.Current()
	if id == nil {
		return false
	}
	return id.HasAnyRole(names...)
}

// HasPermission reports whether the current identity carries the
// permission code.
func (s *Store) HasPermission(code string) bool {
	return s.Current().HasPermission(code)
}

// decodeIdentity converts a decoded JSON payload into an Identity via a
// JSON round-trip so the dual role-shape handling applies.
func decodeIdentity(body any) (*identity.Identity, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	var id identity.Identity
	if err := json.Unmarshal(data, &id); err != nil {
		return nil, err
	}
	return &id, nil
}
