package session

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taaskr/taaskr-shell/internal/gateway"
)

// authBackend fakes the identity endpoints of the platform API.
type authBackend struct {
	mu          sync.Mutex
	hits        map[string]int
	meQueries   []string
	mePayload   string
	meStatus    int
	loginStatus int
	loginBody   string
	logoutCode  int
	server      *httptest.Server
}

func newAuthBackend(t *testing.T) *authBackend {
	t.Helper()
	backend := &authBackend{
		hits:        make(map[string]int),
		mePayload:   `{"error":"NOT_AUTHENTICATED"}`,
		meStatus:    http.StatusOK,
		loginStatus: http.StatusOK,
		loginBody:   `{}`,
		logoutCode:  http.StatusNoContent,
	}
	backend.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		backend.mu.Lock()
		backend.hits[r.URL.Path]++
		if r.URL.Path == "/api/users/me/" {
			backend.meQueries = append(backend.meQueries, r.URL.RawQuery)
		}
		backend.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/users/me/":
			backend.mu.Lock()
			status, payload := backend.meStatus, backend.mePayload
			backend.mu.Unlock()
			w.WriteHeader(status)
			_, _ = w.Write([]byte(payload))
		case "/api/users/login/", "/google/callback/":
			backend.mu.Lock()
			status, payload := backend.loginStatus, backend.loginBody
			backend.mu.Unlock()
			w.WriteHeader(status)
			_, _ = w.Write([]byte(payload))
		case "/api/users/logout/":
			backend.mu.Lock()
			status := backend.logoutCode
			backend.mu.Unlock()
			w.WriteHeader(status)
		case "/google/login/":
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"auth_url":"https://accounts.google.com/o/oauth2/auth?state=x"}`))
		case "/api/users/token/refresh/":
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{}`))
		case "/api/protected/":
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"TOKEN_EXPIRED"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(backend.server.Close)
	return backend
}

func (b *authBackend) setMe(payload string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.mePayload = payload
}

func (b *authBackend) setLogin(status int, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.loginStatus = status
	b.loginBody = body
}

func (b *authBackend) setLogout(status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logoutCode = status
}

func (b *authBackend) hitCount(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[path]
}

func (b *authBackend) lastMeQuery() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.meQueries) == 0 {
		return ""
	}
	return b.meQueries[len(b.meQueries)-1]
}

func newTestStore(t *testing.T, backend *authBackend, variant Variant) (*Store, *gateway.Client) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(testLogWriter{t}, nil))
	gw, err := gateway.New(backend.server.URL, logger)
	require.NoError(t, err)
	return New(gw, variant, logger), gw
}

type testLogWriter struct{ t *testing.T }

func (w testLogWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

const customerIdentity = `{
	"id": "u42",
	"name": "Dina",
	"email": "dina@example.com",
	"role": [{"name": "customer", "is_admin_role": false}],
	"permissions": []
}`

func TestLoginPopulatesIdentityFromReload(t *testing.T) {
	backend := newAuthBackend(t)
	// The login response carries a different name than the profile fetch;
	// the store must believe the profile fetch.
	backend.setLogin(http.StatusOK, `{"id":"u42","name":"Login Response"}`)
	backend.setMe(customerIdentity)
	store, _ := newTestStore(t, backend, VariantCustomer)

	res := store.Login(context.Background(), "dina@example.com", "hunter22")

	require.True(t, res.OK, res.Error)
	require.True(t, store.IsAuthenticated())
	assert.Equal(t, "Dina", store.Current().Name)
	assert.Empty(t, store.LastError())
	assert.Equal(t, 1, backend.hitCount("/api/users/me/"))
}

func TestLoginInvalidCredentialsStaysAnonymous(t *testing.T) {
	backend := newAuthBackend(t)
	backend.setLogin(http.StatusBadRequest, `{"error":"INVALID_CREDENTIALS"}`)
	store, _ := newTestStore(t, backend, VariantCustomer)

	res := store.Login(context.Background(), "dina@example.com", "wrong")

	assert.False(t, res.OK)
	assert.Equal(t, "Invalid credentials", res.Error)
	assert.Equal(t, "Invalid credentials", store.LastError())
	assert.False(t, store.IsAuthenticated())
	// No identity fetch is attempted after a rejected login.
	assert.Equal(t, 0, backend.hitCount("/api/users/me/"))
}

func TestLoginErrorEnvelopeOnSuccessStatusStaysAnonymous(t *testing.T) {
	backend := newAuthBackend(t)
	backend.setLogin(http.StatusOK, `{"error":"INVALID_CREDENTIALS"}`)
	store, _ := newTestStore(t, backend, VariantCustomer)

	res := store.Login(context.Background(), "dina@example.com", "wrong")

	assert.False(t, res.OK)
	assert.Equal(t, "Invalid credentials", res.Error)
	assert.Equal(t, 0, backend.hitCount("/api/users/me/"))
}

func TestLoginMalformedEmailSkipsNetwork(t *testing.T) {
	backend := newAuthBackend(t)
	store, _ := newTestStore(t, backend, VariantCustomer)

	res := store.Login(context.Background(), "not-an-email", "hunter22")

	assert.False(t, res.OK)
	assert.Equal(t, "INVALID_INPUT", res.Code)
	assert.Equal(t, 0, backend.hitCount("/api/users/login/"))
}

func TestAdminLoginRollsBackNonAdminIdentity(t *testing.T) {
	backend := newAuthBackend(t)
	backend.setMe(`{"id":"u7","name":"Pat","role":[{"name":"support","is_admin_role":false}]}`)
	store, _ := newTestStore(t, backend, VariantAdmin)

	res := store.Login(context.Background(), "pat@example.com", "hunter22")

	assert.False(t, res.OK)
	assert.Equal(t, "NOT_ADMIN", res.Code)
	assert.Equal(t, "Only admin users are allowed to sign in here", res.Error)
	assert.False(t, store.IsAuthenticated())
	// The silent rollback fires the backend logout.
	assert.Equal(t, 1, backend.hitCount("/api/users/logout/"))
}

func TestAdminVariantRequestsAdminContext(t *testing.T) {
	backend := newAuthBackend(t)
	backend.setMe(`{"id":"u7","name":"Ana","role":[{"name":"ops","is_admin_role":true}]}`)
	store, _ := newTestStore(t, backend, VariantAdmin)

	res := store.ReloadUser(context.Background())

	require.True(t, res.OK, res.Error)
	assert.Equal(t, "context=admin", backend.lastMeQuery())
}

func TestLogoutIsIdempotentAndIgnoresBackendFailure(t *testing.T) {
	backend := newAuthBackend(t)
	backend.setMe(customerIdentity)
	store, _ := newTestStore(t, backend, VariantCustomer)
	require.True(t, store.Login(context.Background(), "dina@example.com", "hunter22").OK)

	first := store.Logout(context.Background())
	backend.setLogout(http.StatusInternalServerError)
	second := store.Logout(context.Background())

	assert.True(t, first.OK)
	assert.True(t, second.OK)
	assert.False(t, store.IsAuthenticated())
	assert.Empty(t, store.LastError())
	assert.Equal(t, 2, backend.hitCount("/api/users/logout/"))
}

func TestInitializeResolvesToAnonymous(t *testing.T) {
	backend := newAuthBackend(t)
	store, _ := newTestStore(t, backend, VariantCustomer)

	res := store.Initialize(context.Background())

	assert.False(t, res.OK)
	assert.False(t, store.IsAuthenticated())
	assert.False(t, store.InitialLoading())
}

func TestInitializeResolvesToAuthenticated(t *testing.T) {
	backend := newAuthBackend(t)
	backend.setMe(customerIdentity)
	store, _ := newTestStore(t, backend, VariantCustomer)

	res := store.Initialize(context.Background())

	assert.True(t, res.OK)
	assert.True(t, store.IsAuthenticated())
}

func TestTokenRefreshTriggersBackgroundResync(t *testing.T) {
	backend := newAuthBackend(t)
	store, gw := newTestStore(t, backend, VariantCustomer)
	require.False(t, store.IsAuthenticated())

	backend.setMe(customerIdentity)
	// A 401 on any request makes the gateway refresh silently; a
	// successful refresh notifies subscribers and the store reloads the
	// identity on its own.
	gw.Do(context.Background(), http.MethodGet, "/api/protected/", gateway.Options{})

	require.Eventually(t, store.IsAuthenticated, 2*time.Second, 10*time.Millisecond)
}

func TestGoogleLoginFollowsSameRoleCheck(t *testing.T) {
	backend := newAuthBackend(t)
	backend.setMe(customerIdentity)
	store, _ := newTestStore(t, backend, VariantCustomer)

	res := store.LoginWithGoogle(context.Background(), "oauth-code-123")

	require.True(t, res.OK, res.Error)
	assert.True(t, store.IsAuthenticated())
	assert.Equal(t, 1, backend.hitCount("/google/callback/"))
}

func TestGoogleLoginURL(t *testing.T) {
	backend := newAuthBackend(t)
	store, _ := newTestStore(t, backend, VariantCustomer)

	url, res := store.GoogleLoginURL(context.Background())

	require.True(t, res.OK, res.Error)
	assert.Contains(t, url, "accounts.google.com")
}

func TestPredicatesReadCurrentIdentity(t *testing.T) {
	backend := newAuthBackend(t)
	backend.setMe(`{
		"id": "u9",
		"name": "Riz",
		"roles": ["customer", "beta"],
		"permissions": ["booking.view"]
	}`)
	store, _ := newTestStore(t, backend, VariantCustomer)
	require.True(t, store.Initialize(context.Background()).OK)

	assert.True(t, store.HasRole("customer"))
	assert.False(t, store.HasRole("admin"))
	assert.True(t, store.HasAnyRole("admin", "beta"))
	assert.True(t, store.HasPermission("booking.view"))
	assert.False(t, store.HasPermission("booking.add"))
}
