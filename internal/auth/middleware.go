package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/amansour/praxis42/internal/model"
	"github.com/amansour/praxis42/internal/repository"
)

// SessionCookie is the name of the httpOnly cookie carrying the credential.
const SessionCookie = "session_token"

// contextKey is an unexported type for context keys in this package, so no
// other package can read or shadow the values we store.
type contextKey string

const sessionKey contextKey = "session"

// Session is the verified caller identity attached to the request context:
// the token claims plus a fresh read of the account row, so role and profile
// changes take effect without re-login.
type Session struct {
	Claims  *Claims
	Account *model.Account
}

// RequireAuth enforces authentication on protected routes. A missing,
// malformed, or expired credential — or a credential whose account no longer
// exists — uniformly yields 401 and stops the chain.
func RequireAuth(tokens *TokenService, accounts repository.AccountRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := extractSession(r, tokens, accounts)
			if err != nil {
				http.Error(w, `{"error":"unauthorized","message":"valid authentication required"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), sessionKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth attaches the caller identity when a valid credential is
// present but never blocks the request. Handlers on public routes check
// SessionFromContext to distinguish anonymous callers.
func OptionalAuth(tokens *TokenService, accounts repository.AccountRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if session, err := extractSession(r, tokens, accounts); err == nil {
				r = r.WithContext(context.WithValue(r.Context(), sessionKey, session))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SessionFromContext retrieves the authenticated caller, or (nil, false) for
// an anonymous request.
func SessionFromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey).(*Session)
	return s, ok && s != nil
}

// extractSession finds the credential, validates it, and re-fetches the
// account.
//
// PRECEDENCE: an Authorization: Bearer header wins over the cookie when both
// are present — programmatic API clients send the header, browsers send the
// cookie transparently.
func extractSession(r *http.Request, tokens *TokenService, accounts repository.AccountRepository) (*Session, error) {
	tokenStr := bearerToken(r.Header.Get("Authorization"))
	if tokenStr == "" {
		cookie, err := r.Cookie(SessionCookie)
		if err != nil {
			return nil, err
		}
		tokenStr = cookie.Value
	}

	claims, err := tokens.Validate(tokenStr)
	if err != nil {
		return nil, err
	}

	account, err := accounts.GetByID(r.Context(), claims.AccountID())
	if err != nil {
		return nil, err
	}

	return &Session{Claims: claims, Account: account}, nil
}

// bearerToken extracts the token from an "Authorization: Bearer X" header,
// returning "" when the header is absent or not a bearer scheme.
func bearerToken(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimPrefix(header, prefix)
}
