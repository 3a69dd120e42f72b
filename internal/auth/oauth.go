package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// Default 42 Network endpoints. Tests substitute a local server via
// NewFortyTwoProviderAt.
const (
	intraAPIBase      = "https://api.intra.42.fr"
	intraAuthorizeURL = intraAPIBase + "/oauth/authorize"
	intraTokenURL     = intraAPIBase + "/oauth/token"
)

// providerTimeout bounds every HTTP call to the identity provider. Nothing
// in the login flow may hang a request indefinitely; a slow provider fails
// the exchange and the user restarts the flow.
const providerTimeout = 10 * time.Second

// FortyTwoUser is the portion of the 42 /v2/me response we care about.
// The API returns a much larger object — we only unmarshal what we need.
type FortyTwoUser struct {
	ID        int64  `json:"id"`    // 42's numeric user ID — stable, never changes
	Login     string `json:"login"` // intra login, e.g. "mamansou"
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Image     struct {
		Link string `json:"link"`
	} `json:"image"`
	Campus []struct {
		Name    string `json:"name"`
		Country string `json:"country"`
	} `json:"campus"`
}

// DisplayName builds "First Last" the way the profile pages render it.
func (u *FortyTwoUser) DisplayName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// CampusName returns the user's primary campus, or "" when none is listed.
func (u *FortyTwoUser) CampusName() string {
	if len(u.Campus) == 0 {
		return ""
	}
	return u.Campus[0].Name
}

// FortyTwoProvider wraps golang.org/x/oauth2 for the 42 Authorization Code
// flow: the server redirects the student to intra's authorize endpoint, intra
// redirects back with a short-lived code, and Exchange trades that code for
// the student's profile. The code-for-token exchange happens server-to-server
// using the confidential client secret — the access token never reaches the
// browser.
type FortyTwoProvider struct {
	config  *oauth2.Config
	apiBase string
}

// NewFortyTwoProvider creates a provider against the real 42 API.
// callbackURL must exactly match the redirect URI registered with the 42 app.
func NewFortyTwoProvider(clientID, clientSecret, callbackURL string) *FortyTwoProvider {
	return newProvider(intraAPIBase, clientID, clientSecret, callbackURL)
}

// NewFortyTwoProviderAt creates a provider against an arbitrary base URL.
// Used in tests with an httptest.Server standing in for intra.
func NewFortyTwoProviderAt(baseURL, clientID, clientSecret, callbackURL string) *FortyTwoProvider {
	return newProvider(baseURL, clientID, clientSecret, callbackURL)
}

func newProvider(baseURL, clientID, clientSecret, callbackURL string) *FortyTwoProvider {
	return &FortyTwoProvider{
		apiBase: baseURL,
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"public"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  baseURL + "/oauth/authorize",
				TokenURL: baseURL + "/oauth/token",
			},
		},
	}
}

// AuthURL returns the URL to redirect the student to for authorization.
//
// The state is a random value stored in a short-lived cookie before the
// redirect; the callback handler verifies the returned state matches,
// which blocks CSRF-initiated login completions.
func (p *FortyTwoProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state)
}

// ExchangeToken trades the authorization code for an access token.
// A non-2xx token response surfaces as an error; callers map it to the
// token_exchange_failed error code.
func (p *FortyTwoProvider) ExchangeToken(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := p.config.Exchange(p.boundedContext(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}
	return token, nil
}

// FetchUser retrieves the caller's profile from /v2/me using the access
// token. Callers map failures to user_fetch_failed.
func (p *FortyTwoProvider) FetchUser(ctx context.Context, token *oauth2.Token) (*FortyTwoUser, error) {
	client := p.config.Client(p.boundedContext(ctx), token)

	resp, err := client.Get(p.apiBase + "/v2/me")
	if err != nil {
		return nil, fmt.Errorf("auth: calling 42 /v2/me: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: 42 /v2/me returned status %d", resp.StatusCode)
	}

	var user FortyTwoUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("auth: decoding 42 /v2/me response: %w", err)
	}
	if user.ID == 0 {
		return nil, fmt.Errorf("auth: 42 returned an invalid user (ID = 0)")
	}

	return &user, nil
}

// Exchange runs the complete code → token → profile sequence.
func (p *FortyTwoProvider) Exchange(ctx context.Context, code string) (*FortyTwoUser, error) {
	token, err := p.ExchangeToken(ctx, code)
	if err != nil {
		return nil, err
	}
	return p.FetchUser(ctx, token)
}

// boundedContext injects a timeout-bearing http.Client for the oauth2
// machinery, so provider calls cannot outlive providerTimeout.
func (p *FortyTwoProvider) boundedContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: providerTimeout})
}
