package handler_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/amansour/praxis42/internal/auth"
	"github.com/amansour/praxis42/internal/handler"
	"github.com/amansour/praxis42/internal/repository/sqlite"
	"github.com/amansour/praxis42/internal/service"
)

const appURL = "https://praxis.test"

// MockProvider stands in for the 42 OAuth provider. Call counters let tests
// assert that a forged callback never reaches the exchange step.
type MockProvider struct {
	ExchangeCalls int
	FetchCalls    int
	ExchangeErr   error
	FetchErr      error
	User          *auth.FortyTwoUser
}

func (m *MockProvider) AuthURL(state string) string {
	return "https://intra.test/oauth/authorize?state=" + state
}

func (m *MockProvider) ExchangeToken(ctx context.Context, code string) (*oauth2.Token, error) {
	m.ExchangeCalls++
	if m.ExchangeErr != nil {
		return nil, m.ExchangeErr
	}
	return &oauth2.Token{AccessToken: "intra-access-token"}, nil
}

func (m *MockProvider) FetchUser(ctx context.Context, token *oauth2.Token) (*auth.FortyTwoUser, error) {
	m.FetchCalls++
	if m.FetchErr != nil {
		return nil, m.FetchErr
	}
	return m.User, nil
}

type authFixture struct {
	handler  *handler.AuthHandler
	provider *MockProvider
	tokens   *auth.TokenService
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars")
	require.NoError(t, err)

	provider := &MockProvider{
		User: &auth.FortyTwoUser{ID: 4242, Login: "mamansou", Email: "mamansou@student.42.fr"},
	}
	authSvc := service.NewAuthService(db.Accounts(), db.Identities(), tokens, logger)

	return &authFixture{
		handler:  handler.NewAuthHandler(provider, authSvc, appURL, logger),
		provider: provider,
		tokens:   tokens,
	}
}

// callbackRequest builds GET /auth/42/callback with the state cookie set to
// cookieState and the given query parameters.
func callbackRequest(cookieState, query string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/auth/42/callback?"+query, nil)
	if cookieState != "" {
		req.AddCookie(&http.Cookie{Name: "oauth_state", Value: cookieState})
	}
	return req
}

// redirectErrorCode extracts ?error= from the Location header.
func redirectErrorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	loc, err := url.Parse(rr.Header().Get("Location"))
	require.NoError(t, err)
	return loc.Query().Get("error")
}

func TestAuthHandler_HandleLogin(t *testing.T) {
	t.Run("redirects to provider with state cookie", func(t *testing.T) {
		f := newAuthFixture(t)

		req := httptest.NewRequest(http.MethodGet, "/auth/42/login", nil)
		rr := httptest.NewRecorder()
		f.handler.HandleLogin(rr, req)

		assert.Equal(t, http.StatusTemporaryRedirect, rr.Code)

		var state string
		for _, c := range rr.Result().Cookies() {
			if c.Name == "oauth_state" {
				state = c.Value
				assert.True(t, c.HttpOnly)
			}
		}
		require.NotEmpty(t, state, "state cookie not set")
		assert.Equal(t, "https://intra.test/oauth/authorize?state="+state, rr.Header().Get("Location"))
	})

	t.Run("unconfigured provider redirects with config_error", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		h := handler.NewAuthHandler(nil, nil, appURL, logger)

		req := httptest.NewRequest(http.MethodGet, "/auth/42/login", nil)
		rr := httptest.NewRecorder()
		h.HandleLogin(rr, req)

		assert.Equal(t, http.StatusSeeOther, rr.Code)
		assert.Equal(t, "config_error", redirectErrorCode(t, rr))
	})
}

func TestAuthHandler_HandleCallback(t *testing.T) {
	t.Run("state mismatch never reaches the provider", func(t *testing.T) {
		f := newAuthFixture(t)

		rr := httptest.NewRecorder()
		f.handler.HandleCallback(rr, callbackRequest("expected", "state=forged&code=abc"))

		assert.Equal(t, "invalid_state", redirectErrorCode(t, rr))
		assert.Equal(t, 0, f.provider.ExchangeCalls)
	})

	t.Run("missing state cookie", func(t *testing.T) {
		f := newAuthFixture(t)

		rr := httptest.NewRecorder()
		f.handler.HandleCallback(rr, callbackRequest("", "state=abc&code=abc"))

		assert.Equal(t, "invalid_state", redirectErrorCode(t, rr))
		assert.Equal(t, 0, f.provider.ExchangeCalls)
	})

	t.Run("provider error param maps to no_code", func(t *testing.T) {
		f := newAuthFixture(t)

		rr := httptest.NewRecorder()
		f.handler.HandleCallback(rr, callbackRequest("s1", "state=s1&error=access_denied"))

		assert.Equal(t, "no_code", redirectErrorCode(t, rr))
		assert.Equal(t, 0, f.provider.ExchangeCalls)
	})

	t.Run("missing code maps to no_code", func(t *testing.T) {
		f := newAuthFixture(t)

		rr := httptest.NewRecorder()
		f.handler.HandleCallback(rr, callbackRequest("s1", "state=s1"))

		assert.Equal(t, "no_code", redirectErrorCode(t, rr))
	})

	t.Run("exchange failure maps to token_exchange_failed", func(t *testing.T) {
		f := newAuthFixture(t)
		f.provider.ExchangeErr = errors.New("intra said no")

		rr := httptest.NewRecorder()
		f.handler.HandleCallback(rr, callbackRequest("s1", "state=s1&code=abc"))

		assert.Equal(t, "token_exchange_failed", redirectErrorCode(t, rr))
		assert.Equal(t, 0, f.provider.FetchCalls)
	})

	t.Run("user fetch failure maps to user_fetch_failed", func(t *testing.T) {
		f := newAuthFixture(t)
		f.provider.FetchErr = errors.New("intra 500")

		rr := httptest.NewRecorder()
		f.handler.HandleCallback(rr, callbackRequest("s1", "state=s1&code=abc"))

		assert.Equal(t, "user_fetch_failed", redirectErrorCode(t, rr))
	})

	t.Run("success sets session cookie and redirects with token", func(t *testing.T) {
		f := newAuthFixture(t)

		rr := httptest.NewRecorder()
		f.handler.HandleCallback(rr, callbackRequest("s1", "state=s1&code=abc"))

		require.Equal(t, http.StatusSeeOther, rr.Code)

		var sessionToken string
		for _, c := range rr.Result().Cookies() {
			if c.Name == auth.SessionCookie {
				sessionToken = c.Value
				assert.True(t, c.HttpOnly)
			}
		}
		require.NotEmpty(t, sessionToken, "session cookie not set")

		loc, err := url.Parse(rr.Header().Get("Location"))
		require.NoError(t, err)
		assert.Equal(t, appURL+"/auth/callback", loc.Scheme+"://"+loc.Host+loc.Path)
		assert.Equal(t, sessionToken, loc.Query().Get("token"))

		claims, err := f.tokens.Validate(sessionToken)
		require.NoError(t, err)
		assert.Equal(t, "mamansou", claims.Login)
	})
}

func TestAuthHandler_HandleSession(t *testing.T) {
	f := newAuthFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
	rr := httptest.NewRecorder()
	f.handler.HandleSession(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"authenticated": false}`, rr.Body.String())
}

func TestAuthHandler_HandleLogout(t *testing.T) {
	f := newAuthFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	rr := httptest.NewRecorder()
	f.handler.HandleLogout(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var cleared bool
	for _, c := range rr.Result().Cookies() {
		if c.Name == auth.SessionCookie && c.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared, "session cookie not cleared")
}
