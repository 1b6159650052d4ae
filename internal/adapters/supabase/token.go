package supabase

import (
	"net/http"
	"sync"
)

// TokenStore holds the credentials injected into outgoing requests.
// The anon key is always sent as the apikey header; the bearer token is
// the signed-in user's access token when present, the anon key otherwise.
// Safe for concurrent use.
type TokenStore struct {
	anonKey string

	mu          sync.RWMutex
	accessToken string
}

// NewTokenStore creates a token store with the given anon key.
func NewTokenStore(anonKey string) *TokenStore {
	return &TokenStore{anonKey: anonKey}
}

// Apply injects auth headers into a request. Suitable as a clients.Config
// AuthFunc; it is called on every attempt so retries pick up token changes.
func (t *TokenStore) Apply(req *http.Request) {
	t.mu.RLock()
	token := t.accessToken
	t.mu.RUnlock()

	if token == "" {
		token = t.anonKey
	}

	req.Header.Set("apikey", t.anonKey)
	req.Header.Set("Authorization", "Bearer "+token)
}

// SetAccessToken installs a user access token.
func (t *TokenStore) SetAccessToken(token string) {
	t.mu.Lock()
	t.accessToken = token
	t.mu.Unlock()
}

// Clear drops the user access token, falling back to the anon key.
func (t *TokenStore) Clear() {
	t.mu.Lock()
	t.accessToken = ""
	t.mu.Unlock()
}
