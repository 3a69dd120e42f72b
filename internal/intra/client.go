// Package intra is the server-side client for the 42 Network's public API.
//
// Unlike the login flow (which acts on behalf of one student with a code
// obtained from their browser), this client authenticates as the application
// itself via the OAuth client-credentials grant, for public data: the
// project catalogue, user profiles, campuses. The short-lived app token is
// held in an injectable TokenCache; response bodies of hot endpoints are
// optionally cached in Redis.
package intra

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultCursusID is the main "42cursus" curriculum.
const DefaultCursusID = 21

const responseTTL = 5 * time.Minute

// Client calls the 42 API with an app-level token.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	tokens       *TokenCache
	cache        ResponseCache
	logger       *slog.Logger
}

// New creates a Client for the real 42 API.
func New(clientID, clientSecret string, tokens *TokenCache, cache ResponseCache, logger *slog.Logger) *Client {
	return NewAt("https://api.intra.42.fr", clientID, clientSecret, tokens, cache, logger)
}

// NewAt creates a Client against an arbitrary base URL (httptest in tests).
func NewAt(baseURL, clientID, clientSecret string, tokens *TokenCache, cache ResponseCache, logger *slog.Logger) *Client {
	if cache == nil {
		cache = NoopCache{}
	}
	return &Client{
		baseURL:      baseURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		tokens:       tokens,
		cache:        cache,
		logger:       logger,
	}
}

// Project is a catalogue entry from the 42 API.
type Project struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
	Exam        bool   `json:"exam"`
}

// UserProject is one row of a user's project history.
type UserProject struct {
	ID        int64  `json:"id"`
	FinalMark *int   `json:"final_mark"`
	Status    string `json:"status"`
	Validated *bool  `json:"validated?"`
	Project   struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
		Slug string `json:"slug"`
	} `json:"project"`
}

// UserFull is the full profile used by the profile pages and project sync.
type UserFull struct {
	ID            int64         `json:"id"`
	Login         string        `json:"login"`
	Email         string        `json:"email"`
	FirstName     string        `json:"first_name"`
	LastName      string        `json:"last_name"`
	ProjectsUsers []UserProject `json:"projects_users"`
	CursusUsers   []struct {
		Level  float64 `json:"level"`
		Grade  *string `json:"grade"`
		Cursus struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		} `json:"cursus"`
	} `json:"cursus_users"`
	Campus []struct {
		ID      int64  `json:"id"`
		Name    string `json:"name"`
		Country string `json:"country"`
	} `json:"campus"`
}

// Campus is one campus of the network.
type Campus struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Country string `json:"country"`
}

// CursusProjects lists the projects of one cursus, paginated.
func (c *Client) CursusProjects(ctx context.Context, cursusID, page, perPage int) ([]Project, error) {
	endpoint := fmt.Sprintf("/v2/cursus/%d/projects?page[number]=%d&page[size]=%d&sort=name",
		cursusID, page, perPage)
	var projects []Project
	if err := c.getJSON(ctx, endpoint, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// SearchProjects filters a cursus's projects by name.
func (c *Client) SearchProjects(ctx context.Context, query string, cursusID int) ([]Project, error) {
	endpoint := fmt.Sprintf("/v2/cursus/%d/projects?filter[name]=%s&page[size]=50",
		cursusID, url.QueryEscape(query))
	var projects []Project
	if err := c.getJSON(ctx, endpoint, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// FullUserByID fetches the full profile, including projects_users.
func (c *Client) FullUserByID(ctx context.Context, userID int64) (*UserFull, error) {
	var user UserFull
	if err := c.getJSON(ctx, "/v2/users/"+strconv.FormatInt(userID, 10), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// FullUserByLogin resolves a login to an id first — the filter endpoint
// omits the nested project data, so a second fetch by id is required.
func (c *Client) FullUserByLogin(ctx context.Context, login string) (*UserFull, error) {
	var users []struct {
		ID int64 `json:"id"`
	}
	endpoint := "/v2/users?filter[login]=" + url.QueryEscape(login)
	if err := c.getJSON(ctx, endpoint, &users); err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("intra: no user with login %q", login)
	}
	return c.FullUserByID(ctx, users[0].ID)
}

// Campuses lists all campuses of the network.
func (c *Client) Campuses(ctx context.Context) ([]Campus, error) {
	var campuses []Campus
	if err := c.getJSON(ctx, "/v2/campus?page[size]=100&sort=name", &campuses); err != nil {
		return nil, err
	}
	return campuses, nil
}

// getJSON performs an authenticated GET, consulting the response cache first.
func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	if body, ok := c.cache.Get(ctx, endpoint); ok {
		return json.Unmarshal(body, out)
	}

	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("intra: building request for %s: %w", endpoint, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("intra: calling %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("intra: %s returned status %d", endpoint, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("intra: reading %s response: %w", endpoint, err)
	}

	c.cache.Set(ctx, endpoint, body, responseTTL)
	return json.Unmarshal(body, out)
}

// accessToken returns a valid app token, fetching a fresh one via the
// client-credentials grant when the cache is empty or near expiry.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	if token, ok := c.tokens.Get(); ok {
		return token, nil
	}

	if c.clientID == "" || c.clientSecret == "" {
		return "", fmt.Errorf("intra: API credentials not configured")
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/oauth/token",
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("intra: building token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("intra: requesting app token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("intra: token endpoint returned status %d", resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("intra: decoding token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("intra: token endpoint returned no access_token")
	}

	c.tokens.Put(payload.AccessToken, time.Duration(payload.ExpiresIn)*time.Second)
	c.logger.Debug("intra app token refreshed", slog.Int("expires_in", payload.ExpiresIn))

	return payload.AccessToken, nil
}
