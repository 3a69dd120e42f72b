package intra

import (
	"sync"
	"time"
)

// refreshMargin renews the token slightly before the provider expires it, so
// a request never goes out with a token about to die mid-flight.
const refreshMargin = 60 * time.Second

// TokenCache holds the client-credentials access token until it expires.
//
// It is an explicit, injectable object rather than package-level state: the
// clock is a field, so tests control expiry deterministically, and two
// clients can hold independent caches.
type TokenCache struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time
	now       func() time.Time
}

// NewTokenCache returns an empty cache using the real clock.
func NewTokenCache() *TokenCache {
	return &TokenCache{now: time.Now}
}

// NewTokenCacheWithClock returns a cache driven by the given clock.
func NewTokenCacheWithClock(now func() time.Time) *TokenCache {
	return &TokenCache{now: now}
}

// Get returns the cached token, or ("", false) when the cache is empty or
// the token is within refreshMargin of expiry.
func (c *TokenCache) Get() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == "" || !c.now().Add(refreshMargin).Before(c.expiresAt) {
		return "", false
	}
	return c.token, true
}

// Put stores a token valid for expiresIn from now.
func (c *TokenCache) Put(token string, expiresIn time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	c.expiresAt = c.now().Add(expiresIn)
}
