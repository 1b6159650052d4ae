// Package app contains the application services behind the UI: the daily
// quote selection, the paginated browse feed, the user's favorites and
// collections, and search debouncing. Services depend on port interfaces,
// not concrete adapters, and push state to the UI through publishers.
package app

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/quotevault/quotevault/internal/domain"
	"github.com/quotevault/quotevault/internal/ports"
)

// FeedMode identifies what the feed currently displays.
type FeedMode string

const (
	// FeedModeBrowse pages through the catalog newest first.
	FeedModeBrowse FeedMode = "browse"

	// FeedModeSearch shows a capped, unpaginated result set.
	FeedModeSearch FeedMode = "search"
)

// FeedSnapshot is the immutable view of feed state pushed to subscribers.
type FeedSnapshot struct {
	Quotes   []domain.Quote
	Mode     FeedMode
	Query    string
	Category *domain.Category
	HasMore  bool
	Loading  bool
}

// FeedConfig contains dependencies and tuning for the feed service.
type FeedConfig struct {
	Quotes ports.QuoteStore

	// PageSize is the number of quotes fetched per browse page.
	PageSize int

	// PrefetchThreshold triggers the next page when the user is within
	// this many items of the end.
	PrefetchThreshold int

	// RefreshAttempts and RefreshDelay control the silent pull-to-refresh
	// retry loop.
	RefreshAttempts int
	RefreshDelay    time.Duration

	Logger *slog.Logger
}

// FeedService maintains the paginated quote list shown in the browse tab.
// Pages accumulate without duplicates, a failed page load leaves the list
// and cursor untouched, and a search replaces the list with a capped,
// unpaginated result set. All methods are safe for concurrent use.
type FeedService struct {
	quotes            ports.QuoteStore
	pageSize          int
	prefetchThreshold int
	refreshAttempts   int
	refreshDelay      time.Duration
	logger            *slog.Logger
	publisher         *Publisher[FeedSnapshot]

	mu       sync.Mutex
	mode     FeedMode
	query    string
	category *domain.Category
	items    []domain.Quote
	seen     map[string]struct{}
	page     int
	hasMore  bool
	loading  bool

	// gen increments on every list reset; a page load started under an
	// older generation is discarded when it lands.
	gen uint64
}

// NewFeed creates the feed service in browse mode with an empty list.
func NewFeed(cfg FeedConfig) *FeedService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &FeedService{
		quotes:            cfg.Quotes,
		pageSize:          cfg.PageSize,
		prefetchThreshold: cfg.PrefetchThreshold,
		refreshAttempts:   cfg.RefreshAttempts,
		refreshDelay:      cfg.RefreshDelay,
		logger:            logger.With(slog.String("component", "app.FeedService")),
		publisher:         NewPublisher[FeedSnapshot](),
		mode:              FeedModeBrowse,
		seen:              make(map[string]struct{}),
		hasMore:           true,
	}
}

// Subscribe registers a listener for feed snapshots. The current snapshot
// is replayed immediately once one has been published.
func (s *FeedService) Subscribe(fn func(FeedSnapshot)) (cancel func()) {
	return s.publisher.Subscribe(fn)
}

// Snapshot returns the current feed state.
func (s *FeedService) Snapshot() FeedSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshotLocked()
}

// LoadNextPage fetches the next browse page and appends it, skipping
// quotes already present. A page shorter than the page size marks the end
// of the feed. While a load is in flight further calls are no-ops, and a
// failed load leaves the cursor where it was so the page is retried next
// time.
func (s *FeedService) LoadNextPage(ctx context.Context) error {
	s.mu.Lock()
	if s.loading || !s.hasMore {
		s.mu.Unlock()
		return nil
	}

	page := s.page
	category := s.category
	gen := s.gen
	s.loading = true
	s.mu.Unlock()
	s.publish()

	fetched, err := s.quotes.FetchQuotes(ctx, page, s.pageSize, category)

	s.mu.Lock()
	s.loading = false

	if err != nil {
		s.mu.Unlock()
		s.publish()
		s.logger.WarnContext(ctx, "page load failed",
			slog.Int("page", page),
			slog.Any("error", err),
		)
		return err
	}

	if gen != s.gen {
		// The list was reset while this page was in flight.
		s.mu.Unlock()
		s.publish()
		return nil
	}

	s.appendLocked(fetched)
	s.page++
	s.hasMore = len(fetched) == s.pageSize
	s.mu.Unlock()
	s.publish()

	return nil
}

// Refresh replaces the list with a fresh first page. Failures are retried
// a configured number of times and then swallowed, leaving the current
// list on screen.
func (s *FeedService) Refresh(ctx context.Context) {
	s.mu.Lock()
	category := s.category
	gen := s.gen
	s.mu.Unlock()

	for attempt := 0; attempt < s.refreshAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.refreshDelay):
			}
		}

		fetched, err := s.quotes.FetchQuotes(ctx, 0, s.pageSize, category)
		if err != nil {
			s.logger.DebugContext(ctx, "refresh attempt failed",
				slog.Int("attempt", attempt+1),
				slog.Any("error", err),
			)
			continue
		}

		s.mu.Lock()
		if gen != s.gen {
			// The list was reset while the refresh was in flight.
			s.mu.Unlock()
			return
		}

		s.resetLocked(FeedModeBrowse, "", category)
		s.appendLocked(fetched)
		s.page = 1
		s.hasMore = len(fetched) == s.pageSize
		s.mu.Unlock()
		s.publish()

		return
	}

	s.logger.WarnContext(ctx, "refresh failed, keeping current feed")
}

// Search replaces the feed with quotes matching the term. Results are
// capped upstream and never paginated. A blank term returns the feed to
// browse mode and loads the first page.
func (s *FeedService) Search(ctx context.Context, term string, mode ports.SearchMode) error {
	term = strings.TrimSpace(term)
	if term == "" {
		return s.resetToBrowse(ctx)
	}

	results, err := s.quotes.SearchQuotes(ctx, term, mode)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.resetLocked(FeedModeSearch, term, s.category)
	s.appendLocked(results)
	s.hasMore = false
	s.mu.Unlock()
	s.publish()

	return nil
}

// SetCategory switches the browse filter, clears the list, and loads the
// first page. A nil category shows all quotes.
func (s *FeedService) SetCategory(ctx context.Context, category *domain.Category) error {
	s.mu.Lock()
	s.resetLocked(FeedModeBrowse, "", category)
	s.mu.Unlock()
	s.publish()

	return s.LoadNextPage(ctx)
}

// ShouldLoadMore reports whether displaying the item at index should
// trigger the next page load.
func (s *FeedService) ShouldLoadMore(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasMore || s.loading || s.mode != FeedModeBrowse {
		return false
	}

	return index >= len(s.items)-s.prefetchThreshold
}

func (s *FeedService) resetToBrowse(ctx context.Context) error {
	s.mu.Lock()
	category := s.category
	s.resetLocked(FeedModeBrowse, "", category)
	s.mu.Unlock()
	s.publish()

	return s.LoadNextPage(ctx)
}

// resetLocked clears list state and starts a new generation.
func (s *FeedService) resetLocked(mode FeedMode, query string, category *domain.Category) {
	s.mode = mode
	s.query = query
	s.category = category
	s.items = nil
	s.seen = make(map[string]struct{})
	s.page = 0
	s.hasMore = true
	s.gen++
}

// appendLocked appends quotes not already present, preserving order.
func (s *FeedService) appendLocked(quotes []domain.Quote) {
	for _, quote := range quotes {
		if _, dup := s.seen[quote.ID]; dup {
			continue
		}

		s.seen[quote.ID] = struct{}{}
		s.items = append(s.items, quote)
	}
}

func (s *FeedService) snapshotLocked() FeedSnapshot {
	items := make([]domain.Quote, len(s.items))
	copy(items, s.items)

	return FeedSnapshot{
		Quotes:   items,
		Mode:     s.mode,
		Query:    s.query,
		Category: s.category,
		HasMore:  s.hasMore,
		Loading:  s.loading,
	}
}

func (s *FeedService) publish() {
	s.mu.Lock()
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.publisher.Publish(snapshot)
}
