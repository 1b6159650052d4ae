// Package widget exposes the quote of the day to the home-screen widget
// process. The widget cannot call the backend; it reads a small dated
// payload published through the shared local cache.
package widget

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/quotevault/quotevault/internal/domain"
	"github.com/quotevault/quotevault/internal/ports"
)

// payloadKey is the well-known cache key the widget process reads.
const payloadKey = "widget/qotd"

// Payload is the dated quote snapshot published for the widget.
type Payload struct {
	Quote domain.Quote `json:"quote"`

	// Day is the calendar day the payload was published, in days since
	// the Unix epoch. A mismatch with the current day means the payload
	// is stale.
	Day int64 `json:"day"`
}

// Bridge publishes quote-of-the-day payloads into the shared cache.
type Bridge struct {
	cache  ports.LocalCache
	logger *slog.Logger
}

// New creates a Bridge over the given cache.
func New(cache ports.LocalCache, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}

	return &Bridge{
		cache:  cache,
		logger: logger.With(slog.String("component", "widget.Bridge")),
	}
}

// Publish writes the quote as the payload for now's calendar day.
func (b *Bridge) Publish(ctx context.Context, quote domain.Quote, now time.Time) error {
	payload := Payload{
		Quote: quote,
		Day:   domain.DaysSinceEpoch(now),
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding widget payload: %w", err)
	}

	if err := b.cache.Put(ctx, payloadKey, raw); err != nil {
		return fmt.Errorf("publishing widget payload: %w", err)
	}

	b.logger.Debug("widget payload published",
		slog.String("quote_id", quote.ID),
		slog.Int64("day", payload.Day),
	)

	return nil
}

// Current returns the published payload.
// Returns domain.ErrNotFound if nothing has been published yet.
func (b *Bridge) Current(ctx context.Context) (Payload, error) {
	raw, err := b.cache.Get(ctx, payloadKey)
	if err != nil {
		return Payload{}, err
	}

	var payload Payload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Payload{}, fmt.Errorf("decoding widget payload: %w", err)
	}

	return payload, nil
}

// NeedsUpdate reports whether the published payload is missing or from an
// earlier calendar day than now.
func (b *Bridge) NeedsUpdate(ctx context.Context, now time.Time) bool {
	payload, err := b.Current(ctx)
	if err != nil {
		return true
	}

	return payload.Day != domain.DaysSinceEpoch(now)
}
