// Package auth provides the 42 OAuth provider, session-credential issuance
// and verification, and the HTTP middleware that gates authenticated routes.
//
// SESSION FLOW:
// 1. Student visits /auth/42/login → redirected to intra
// 2. Intra calls back /auth/42/callback with a code
// 3. Server exchanges the code, resolves the local account, and issues a
//    signed session credential — delivered both as a redirect query param
//    and as an httpOnly cookie
// 4. On subsequent calls, middleware validates the credential (header first,
//    cookie second) and attaches the caller's identity to the context
//
// The credential is a JWT: validity is purely cryptographic plus expiry, so
// the server stores no session state. The signature can be checked without a
// database lookup; only the account re-fetch touches storage.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionDuration is the fixed validity window of a session credential.
// After expiry the student logs in again; there is no refresh flow.
const SessionDuration = 7 * 24 * time.Hour

const issuer = "praxis42"

// Claims are the identity assertions embedded in a session credential:
// the account id (standard "sub"), plus the login handle and email so
// clients can render identity without an extra round trip.
type Claims struct {
	Login string `json:"login"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// AccountID returns the subject claim.
func (c *Claims) AccountID() string {
	return c.Subject
}

// TokenService signs and verifies session credentials. It holds the
// process-wide HMAC secret; no runtime rotation is modeled.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given secret.
// The secret should be at least 32 bytes of random data in production.
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// Generate creates and signs a session credential for the given identity,
// valid for SessionDuration.
func (s *TokenService) Generate(accountID, login, email string) (string, error) {
	return s.GenerateWithDuration(accountID, login, email, SessionDuration)
}

// GenerateWithDuration creates a credential with a custom validity window.
// Used by tests to mint expired or short-lived tokens.
func (s *TokenService) GenerateWithDuration(accountID, login, email string, d time.Duration) (string, error) {
	now := time.Now()
	c := Claims{
		Login: login,
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies a credential string, returning its claims.
//
// Checks performed: HMAC signature, expiry, issuer, and that the algorithm
// is HS256 (jwt.WithValidMethods closes the algorithm-confusion hole where
// an attacker submits an unsigned "none" token). An expired credential is
// indistinguishable from an absent one to callers — both are
// "unauthenticated".
func (s *TokenService) Validate(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&Claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("auth: token expired")
		}
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("auth: invalid token claims")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("auth: token has no subject")
	}

	return claims, nil
}
