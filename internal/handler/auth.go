package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/rs/xid"
	"golang.org/x/oauth2"

	"github.com/amansour/praxis42/internal/auth"
	"github.com/amansour/praxis42/internal/service"
)

// stateCookie holds the single-use CSRF state between the login redirect and
// the provider callback.
const stateCookie = "oauth_state"

// Error codes appended to the frontend redirect when the login flow fails.
// The frontend switches UI copy on these, so they are part of the API
// contract and must not be renamed.
const (
	errCodeInvalidState        = "invalid_state"
	errCodeNoCode              = "no_code"
	errCodeConfig              = "config_error"
	errCodeTokenExchange       = "token_exchange_failed"
	errCodeUserFetch           = "user_fetch_failed"
	errCodeUpdateFailed        = "update_failed"
	errCodeProfileCreation     = "profile_creation_failed"
	errCodeAuthCreation        = "auth_creation_failed"
	errCodeServer              = "server_error"
	errCodeServiceRoleRequired = "service_role_required" // in the frontend's vocabulary; never emitted by this server
)

// OAuthProvider is the slice of the 42 provider the auth handler needs.
// Split into token exchange and user fetch so the two failures stay
// distinguishable in the redirect error code.
type OAuthProvider interface {
	AuthURL(state string) string
	ExchangeToken(ctx context.Context, code string) (*oauth2.Token, error)
	FetchUser(ctx context.Context, token *oauth2.Token) (*auth.FortyTwoUser, error)
}

// AuthHandler runs the 42 OAuth login flow and session endpoints.
//
//   - HandleLogin    → redirect the browser to 42's authorization page
//   - HandleCallback → exchange the code, resolve the account, issue the JWT
//   - HandleLogout   → clear the session cookie
//   - HandleMe       → return the logged-in account
//   - HandleSession  → cheap "am I logged in" probe for app boot
type AuthHandler struct {
	provider OAuthProvider
	authSvc  *service.AuthService
	appURL   string // frontend origin the callback redirects back to
	logger   *slog.Logger
}

func NewAuthHandler(provider OAuthProvider, authSvc *service.AuthService, appURL string, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		provider: provider,
		authSvc:  authSvc,
		appURL:   appURL,
		logger:   logger,
	}
}

// HandleLogin redirects the user to 42's authorization page.
//
// HTTP: GET /auth/42/login
//
// A random state value goes into a short-lived HttpOnly cookie; the callback
// verifies it to prove the flow started on this server.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		h.redirectError(w, r, errCodeConfig)
		return
	}

	state := xid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.provider.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleCallback completes the OAuth login flow.
//
// HTTP: GET /auth/42/callback?code=xxx&state=yyy
//
// Failures never render a server error page: every exit redirects back to
// the frontend with ?error=<code>, in this check order:
//
//	invalid_state           state cookie missing or mismatched (checked
//	                        before any provider call — a forged callback
//	                        must not trigger an exchange)
//	no_code                 provider sent error= or omitted code=
//	config_error            OAuth credentials not configured
//	token_exchange_failed   code-for-token exchange rejected
//	user_fetch_failed       /v2/me fetch failed
//	update_failed /
//	profile_creation_failed /
//	auth_creation_failed    account resolution failed at that step
//	server_error            anything else
//
// On success the credential is delivered twice: in the redirect as ?token=
// for SPA localStorage flows, and as an HttpOnly cookie for browser flows.
func (h *AuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || r.URL.Query().Get("state") != cookie.Value {
		h.logger.Warn("auth callback: state check failed")
		h.redirectError(w, r, errCodeInvalidState)
		return
	}

	// State is single-use
	http.SetCookie(w, &http.Cookie{
		Name:   stateCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: provider returned error", slog.String("error", errParam))
		h.redirectError(w, r, errCodeNoCode)
		return
	}
	code := r.URL.Query().Get("code")
	if code == "" {
		h.redirectError(w, r, errCodeNoCode)
		return
	}

	if h.provider == nil {
		h.redirectError(w, r, errCodeConfig)
		return
	}

	token, err := h.provider.ExchangeToken(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: token exchange failed", slog.String("error", err.Error()))
		h.redirectError(w, r, errCodeTokenExchange)
		return
	}

	intraUser, err := h.provider.FetchUser(r.Context(), token)
	if err != nil {
		h.logger.Error("auth callback: user fetch failed", slog.String("error", err.Error()))
		h.redirectError(w, r, errCodeUserFetch)
		return
	}

	result, err := h.authSvc.LoginWithIntra(r.Context(), intraUser)
	if err != nil {
		h.logger.Error("auth callback: account resolution failed",
			slog.Int64("intraID", intraUser.ID),
			slog.String("error", err.Error()),
		)
		h.redirectError(w, r, resolutionErrorCode(err))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    result.Token,
		Path:     "/",
		MaxAge:   int(auth.SessionDuration.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		// Secure: true behind HTTPS in production
	})

	h.logger.Info("user authenticated",
		slog.String("accountID", result.Account.ID),
		slog.String("login", result.Account.Login),
	)

	redirect := h.appURL + "/auth/callback?token=" + url.QueryEscape(result.Token)
	http.Redirect(w, r, redirect, http.StatusSeeOther)
}

// HandleLogout clears the session cookie.
//
// HTTP: POST /auth/logout
//
// Stateless sessions: the token stays technically valid until expiry, but
// without the cookie the browser can't send it.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleMe returns the authenticated account.
//
// HTTP: GET /api/me
// Auth: required
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		// Unreachable on a RequireAuth route, but be safe.
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, session.Account)
}

// HandleSession reports authentication state without failing for anonymous
// callers, so the frontend can probe it on boot.
//
// HTTP: GET /api/auth/session
// Auth: optional
func (h *AuthHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusOK, map[string]interface{}{"authenticated": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"authenticated": true,
		"user":          session.Account,
	})
}

// redirectError sends the browser back to the frontend's callback page with
// a machine-readable error code.
func (h *AuthHandler) redirectError(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, h.appURL+"/auth/callback?error="+url.QueryEscape(code), http.StatusSeeOther)
}

// resolutionErrorCode maps account-resolution failures onto redirect codes.
func resolutionErrorCode(err error) string {
	switch {
	case errors.Is(err, service.ErrUpdateFailed):
		return errCodeUpdateFailed
	case errors.Is(err, service.ErrProfileCreationFailed):
		return errCodeProfileCreation
	case errors.Is(err, service.ErrAuthCreationFailed):
		return errCodeAuthCreation
	}
	return errCodeServer
}
