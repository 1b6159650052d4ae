//go:build integration

package integration

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quotevault/quotevault/internal/adapters/cache"
	"github.com/quotevault/quotevault/internal/adapters/clients"
	"github.com/quotevault/quotevault/internal/adapters/supabase"
	"github.com/quotevault/quotevault/internal/adapters/widget"
	"github.com/quotevault/quotevault/internal/app"
	"github.com/quotevault/quotevault/internal/platform/config"
)

const (
	testAnonKey  = "test-anon-key"
	testEmail    = "reader@example.com"
	testPassword = "s3cret"
	testUserID   = "user-1"

	testPageSize = 5
)

// harness wires the real adapters against an in-process fake backend:
// HTTP client -> store/auth -> application services, with an in-memory
// local cache.
type harness struct {
	backend *fakeBackend
	cache   *cache.SQLiteCache
	tokens  *supabase.TokenStore
	store   *supabase.Store
	auth    *supabase.Auth
	widget  *widget.Bridge

	feed    *app.FeedService
	library *app.LibraryService
	qotd    *app.QuoteOfDayService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	backend := newFakeBackend()
	t.Cleanup(backend.close)

	localCache, err := cache.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = localCache.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tokens := supabase.NewTokenStore(testAnonKey)

	client, err := clients.New(&clients.Config{
		BaseURL:     backend.url(),
		ServiceName: "supabase",
		Timeout:     5 * time.Second,
		Retry: config.RetryConfig{
			MaxAttempts:     2,
			InitialInterval: 10 * time.Millisecond,
			MaxInterval:     50 * time.Millisecond,
			Multiplier:      2.0,
		},
		Circuit: config.CircuitBreakerConfig{
			MaxFailures:   10,
			Timeout:       time.Second,
			HalfOpenLimit: 2,
		},
		AuthFunc: tokens.Apply,
		Logger:   logger,
	})
	require.NoError(t, err)

	store := supabase.NewStore(client, supabase.StoreConfig{
		SearchLimit: 50,
		Logger:      logger,
	})

	auth := supabase.NewAuth(client, tokens, localCache, supabase.AuthConfig{
		Logger: logger,
	})

	widgetBridge := widget.New(localCache, logger)

	h := &harness{
		backend: backend,
		cache:   localCache,
		tokens:  tokens,
		store:   store,
		auth:    auth,
		widget:  widgetBridge,
	}

	h.feed = app.NewFeed(app.FeedConfig{
		Quotes:            store,
		PageSize:          testPageSize,
		PrefetchThreshold: 2,
		RefreshAttempts:   2,
		RefreshDelay:      10 * time.Millisecond,
		Logger:            logger,
	})

	h.library = app.NewLibrary(app.LibraryConfig{
		Favorites:   store,
		Collections: store,
		Quotes:      store,
		Cache:       localCache,
		Session:     auth,
		SyncTimeout: 5 * time.Second,
		Logger:      logger,
	})
	t.Cleanup(h.library.Close)

	h.qotd = app.NewQuoteOfDay(app.QuoteOfDayConfig{
		Quotes: store,
		Cache:  localCache,
		Widget: widgetBridge,
		Logger: logger,
	})

	return h
}

// waitForFavorites polls until the library reports the expected favorite
// count, covering the background sync triggered by sign-in.
func (h *harness) waitForFavorites(t *testing.T, want int) {
	t.Helper()

	require.Eventually(t, func() bool {
		return len(h.library.FavoriteIDs()) == want
	}, 2*time.Second, 10*time.Millisecond)
}

// newAuthOverSameCache builds a second Auth sharing the harness backend
// and local cache, simulating a fresh process after restart.
func newAuthOverSameCache(t *testing.T, h *harness) *supabase.Auth {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens := supabase.NewTokenStore(testAnonKey)

	client, err := clients.New(&clients.Config{
		BaseURL:     h.backend.url(),
		ServiceName: "supabase",
		Timeout:     5 * time.Second,
		Retry: config.RetryConfig{
			MaxAttempts:     2,
			InitialInterval: 10 * time.Millisecond,
			MaxInterval:     50 * time.Millisecond,
			Multiplier:      2.0,
		},
		Circuit: config.CircuitBreakerConfig{
			MaxFailures:   10,
			Timeout:       time.Second,
			HalfOpenLimit: 2,
		},
		AuthFunc: tokens.Apply,
		Logger:   logger,
	})
	require.NoError(t, err)

	return supabase.NewAuth(client, tokens, h.cache, supabase.AuthConfig{
		Logger: logger,
	})
}
