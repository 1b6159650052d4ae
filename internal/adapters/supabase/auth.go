package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/quotevault/quotevault/internal/adapters/clients"
	"github.com/quotevault/quotevault/internal/domain"
	"github.com/quotevault/quotevault/internal/ports"
)

const (
	authPrefix = "/auth/v1"

	// sessionCacheKey is where the refresh token is persisted so the
	// session survives restarts.
	sessionCacheKey = "auth/session"
)

// tokenResponse is the GoTrue token grant response shape.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         struct {
		ID string `json:"id"`
	} `json:"user"`
}

// storedSession is the persisted session shape in the local cache.
type storedSession struct {
	UserID       string `json:"user_id"`
	RefreshToken string `json:"refresh_token"`
}

// AuthConfig configures the auth session.
type AuthConfig struct {
	// Logger is an optional logger. If nil, the default logger is used.
	Logger *slog.Logger
}

// Auth manages the user session against the GoTrue auth API: password
// sign-in, sign-out, and silent restore from the persisted refresh token.
// It implements ports.Session and fans sign-in/sign-out events out to
// subscribers.
type Auth struct {
	client *clients.Client
	tokens *TokenStore
	cache  ports.LocalCache
	logger *slog.Logger

	mu           sync.RWMutex
	userID       string
	refreshToken string

	subMu       sync.Mutex
	subscribers map[int]func(ports.AuthEvent)
	nextSubID   int
}

var _ ports.Session = (*Auth)(nil)

// NewAuth creates an Auth using the given HTTP client, token store, and
// local cache for session persistence.
func NewAuth(client *clients.Client, tokens *TokenStore, cache ports.LocalCache, cfg AuthConfig) *Auth {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Auth{
		client:      client,
		tokens:      tokens,
		cache:       cache,
		logger:      logger.With(slog.String("component", "supabase.Auth")),
		subscribers: make(map[int]func(ports.AuthEvent)),
	}
}

// SignIn authenticates with email and password. On success the session is
// persisted locally and subscribers receive a signed-in event.
func (a *Auth) SignIn(ctx context.Context, email, password string) error {
	if email == "" {
		return domain.NewValidationError("email", "is required")
	}

	if password == "" {
		return domain.NewValidationError("password", "is required")
	}

	body, err := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}

	grant, err := a.tokenGrant(ctx, "password", body, "sign in")
	if err != nil {
		return err
	}

	a.installSession(ctx, grant)
	a.publish(ports.AuthEvent{Kind: ports.AuthSignedIn, UserID: grant.User.ID})

	a.logger.Info("signed in", slog.String("user_id", grant.User.ID))

	return nil
}

// SignOut revokes the session server-side on a best-effort basis and always
// clears local state. Subscribers receive a signed-out event.
func (a *Auth) SignOut(ctx context.Context) {
	a.mu.Lock()
	userID := a.userID
	a.userID = ""
	a.refreshToken = ""
	a.mu.Unlock()

	if userID == "" {
		return
	}

	resp, err := a.client.Post(ctx, authPrefix+"/logout", nil)
	if mapped := mapHTTPError(resp, err, "sign out"); mapped != nil {
		a.logger.Warn("server-side sign out failed", slog.Any("error", mapped))
	} else {
		drainClose(resp, a.logger)
	}

	a.tokens.Clear()

	if err := a.cache.Delete(ctx, sessionCacheKey); err != nil {
		a.logger.Warn("clearing persisted session", slog.Any("error", err))
	}

	a.publish(ports.AuthEvent{Kind: ports.AuthSignedOut, UserID: userID})

	a.logger.Info("signed out", slog.String("user_id", userID))
}

// Restore attempts a silent sign-in from the persisted refresh token.
// Returns true if a session was restored. Failures leave the session
// signed out and are never surfaced as errors.
func (a *Auth) Restore(ctx context.Context) bool {
	raw, err := a.cache.Get(ctx, sessionCacheKey)
	if err != nil {
		if !domain.IsNotFound(err) {
			a.logger.Debug("reading persisted session", slog.Any("error", err))
		}

		return false
	}

	var stored storedSession
	if err := json.Unmarshal(raw, &stored); err != nil {
		a.logger.Debug("decoding persisted session", slog.Any("error", err))
		return false
	}

	body, err := json.Marshal(map[string]string{
		"refresh_token": stored.RefreshToken,
	})
	if err != nil {
		return false
	}

	grant, err := a.tokenGrant(ctx, "refresh_token", body, "restore session")
	if err != nil {
		a.logger.Debug("session restore failed", slog.Any("error", err))
		return false
	}

	a.installSession(ctx, grant)
	a.publish(ports.AuthEvent{Kind: ports.AuthSignedIn, UserID: grant.User.ID})

	a.logger.Info("session restored", slog.String("user_id", grant.User.ID))

	return true
}

// UserID implements ports.Session.
func (a *Auth) UserID() (string, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.userID, a.userID != ""
}

// Subscribe implements ports.Session. The returned function removes the
// subscription.
func (a *Auth) Subscribe(fn func(ports.AuthEvent)) func() {
	a.subMu.Lock()
	id := a.nextSubID
	a.nextSubID++
	a.subscribers[id] = fn
	a.subMu.Unlock()

	return func() {
		a.subMu.Lock()
		delete(a.subscribers, id)
		a.subMu.Unlock()
	}
}

// tokenGrant executes a GoTrue token grant and decodes the response.
func (a *Auth) tokenGrant(ctx context.Context, grantType string, body []byte, operation string) (tokenResponse, error) {
	path := authPrefix + "/token?grant_type=" + grantType

	resp, err := a.client.Post(ctx, path, bytes.NewReader(body))
	if mapped := mapHTTPError(resp, err, operation); mapped != nil {
		drainClose(resp, a.logger)
		return tokenResponse{}, mapped
	}

	defer resp.Body.Close() //nolint:errcheck // Read side already consumed

	var grant tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&grant); err != nil {
		return tokenResponse{}, domain.NewUnavailableError(serviceName,
			fmt.Sprintf("decoding %s response: %v", operation, err))
	}

	if grant.AccessToken == "" || grant.User.ID == "" {
		return tokenResponse{}, domain.NewUnavailableError(serviceName,
			fmt.Sprintf("%s returned an incomplete grant", operation))
	}

	return grant, nil
}

// installSession records the grant in memory, the token store, and the
// local cache.
func (a *Auth) installSession(ctx context.Context, grant tokenResponse) {
	a.mu.Lock()
	a.userID = grant.User.ID
	a.refreshToken = grant.RefreshToken
	a.mu.Unlock()

	a.tokens.SetAccessToken(grant.AccessToken)

	raw, err := json.Marshal(storedSession{
		UserID:       grant.User.ID,
		RefreshToken: grant.RefreshToken,
	})
	if err != nil {
		return
	}

	if err := a.cache.Put(ctx, sessionCacheKey, raw); err != nil {
		a.logger.Warn("persisting session", slog.Any("error", err))
	}
}

// publish delivers an event to all subscribers. Delivery is synchronous;
// subscribers needing to do work should hand off to their own goroutine.
func (a *Auth) publish(event ports.AuthEvent) {
	a.subMu.Lock()
	fns := make([]func(ports.AuthEvent), 0, len(a.subscribers))
	for _, fn := range a.subscribers {
		fns = append(fns, fn)
	}
	a.subMu.Unlock()

	for _, fn := range fns {
		fn(event)
	}
}
