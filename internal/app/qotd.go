package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/quotevault/quotevault/internal/domain"
	"github.com/quotevault/quotevault/internal/ports"
)

// qotdCacheKey stores the cached daily selection.
const qotdCacheKey = "qotd/current"

// WidgetPublisher pushes the daily quote to the home-screen widget.
type WidgetPublisher interface {
	Publish(ctx context.Context, quote domain.Quote, now time.Time) error
}

// cachedQuoteOfDay is the persisted daily selection.
type cachedQuoteOfDay struct {
	Quote domain.Quote `json:"quote"`
	Day   int64        `json:"day"`
}

// QuoteOfDayConfig contains dependencies for the quote of the day service.
type QuoteOfDayConfig struct {
	Quotes ports.QuoteStore
	Cache  ports.LocalCache

	// Widget is optional; when set, each fresh daily selection is pushed
	// to the widget.
	Widget WidgetPublisher

	// Now is an optional clock override for tests. Defaults to time.Now.
	Now func() time.Time

	Logger *slog.Logger
}

// QuoteOfDayService selects and caches the deterministic daily quote.
// The same calendar day always yields the same quote for the same catalog,
// and the last known selection is served when the backend is unreachable.
type QuoteOfDayService struct {
	quotes ports.QuoteStore
	cache  ports.LocalCache
	widget WidgetPublisher
	now    func() time.Time
	logger *slog.Logger
}

// NewQuoteOfDay creates the service with the provided dependencies.
func NewQuoteOfDay(cfg QuoteOfDayConfig) *QuoteOfDayService {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &QuoteOfDayService{
		quotes: cfg.Quotes,
		cache:  cfg.Cache,
		widget: cfg.Widget,
		now:    now,
		logger: logger.With(slog.String("component", "app.QuoteOfDayService")),
	}
}

// Current returns today's quote. The cached selection is used when it is
// from today; otherwise the catalog is fetched and a fresh selection is
// made. If the fetch fails, a stale cached selection is served rather than
// an error.
func (s *QuoteOfDayService) Current(ctx context.Context) (domain.Quote, error) {
	now := s.now()
	today := domain.DaysSinceEpoch(now)

	if cached, ok := s.readCache(ctx); ok && cached.Day == today {
		// Re-publishing on every hit keeps the widget current even if an
		// earlier payload write was lost.
		s.publishWidget(ctx, cached.Quote, now)
		return cached.Quote, nil
	}

	quotes, err := s.quotes.AllQuotes(ctx)
	if err != nil {
		if cached, ok := s.readCache(ctx); ok {
			s.logger.WarnContext(ctx, "serving stale quote of the day",
				slog.Int64("cached_day", cached.Day),
				slog.Any("error", err),
			)
			return cached.Quote, nil
		}

		return domain.Quote{}, err
	}

	quote, err := domain.SelectQuoteOfDay(quotes, now)
	if err != nil {
		return domain.Quote{}, err
	}

	s.writeCache(ctx, cachedQuoteOfDay{Quote: quote, Day: today})
	s.publishWidget(ctx, quote, now)

	s.logger.InfoContext(ctx, "selected quote of the day",
		slog.String("quote_id", quote.ID),
		slog.Int64("day", today),
	)

	return quote, nil
}

func (s *QuoteOfDayService) publishWidget(ctx context.Context, quote domain.Quote, now time.Time) {
	if s.widget == nil {
		return
	}

	if err := s.widget.Publish(ctx, quote, now); err != nil {
		s.logger.WarnContext(ctx, "publishing widget payload",
			slog.Any("error", err),
		)
	}
}

func (s *QuoteOfDayService) readCache(ctx context.Context) (cachedQuoteOfDay, bool) {
	raw, err := s.cache.Get(ctx, qotdCacheKey)
	if err != nil {
		if !domain.IsNotFound(err) {
			s.logger.DebugContext(ctx, "reading cached quote of the day",
				slog.Any("error", err),
			)
		}

		return cachedQuoteOfDay{}, false
	}

	var cached cachedQuoteOfDay
	if err := json.Unmarshal(raw, &cached); err != nil {
		s.logger.DebugContext(ctx, "decoding cached quote of the day",
			slog.Any("error", err),
		)

		return cachedQuoteOfDay{}, false
	}

	return cached, true
}

func (s *QuoteOfDayService) writeCache(ctx context.Context, cached cachedQuoteOfDay) {
	raw, err := json.Marshal(cached)
	if err != nil {
		return
	}

	if err := s.cache.Put(ctx, qotdCacheKey, raw); err != nil {
		s.logger.WarnContext(ctx, "caching quote of the day",
			slog.Any("error", err),
		)
	}
}
