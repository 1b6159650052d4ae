// Package ports defines interfaces for external dependencies.
// Ports are contracts that adapters implement, allowing the application layer
// to depend on abstractions rather than concrete implementations.
//
// Port Design Principles:
//   - Context as first parameter (always) for cancellation and deadlines
//   - Return domain types, never external DTOs or infrastructure types
//   - Error returns use domain error types (ErrNotFound, ErrUnavailable, etc.)
//   - Keep interfaces small and focused (Interface Segregation Principle)
package ports

import (
	"context"

	"github.com/quotevault/quotevault/internal/domain"
)

// SearchMode selects which columns a quote search matches against.
type SearchMode string

const (
	// SearchModeKeyword matches the term against quote text and author,
	// case-insensitive substring.
	SearchModeKeyword SearchMode = "keyword"

	// SearchModeAuthor matches the term against the author only.
	SearchModeAuthor SearchMode = "author"
)

// QuoteStore provides read access to the remote quote catalog.
type QuoteStore interface {
	// FetchQuotes returns one page of quotes ordered by creation time,
	// newest first. Page numbering starts at zero. A nil category means
	// no filter. Returns domain.ErrUnavailable when the backend is
	// unreachable.
	FetchQuotes(ctx context.Context, page, pageSize int, category *domain.Category) ([]domain.Quote, error)

	// SearchQuotes returns quotes matching the term under the given mode,
	// capped at the store's configured result limit. Results are not
	// paginated.
	SearchQuotes(ctx context.Context, term string, mode SearchMode) ([]domain.Quote, error)

	// AllQuotes returns the entire catalog. Used by quote-of-the-day
	// selection, which needs the full candidate set.
	AllQuotes(ctx context.Context) ([]domain.Quote, error)

	// QuotesByIDs resolves quote IDs to quotes. IDs that no longer
	// resolve are silently omitted from the result.
	QuotesByIDs(ctx context.Context, ids []string) ([]domain.Quote, error)
}

// FavoriteStore persists per-user favorites remotely.
type FavoriteStore interface {
	// AddFavorite records a favorite for the user.
	AddFavorite(ctx context.Context, fav domain.Favorite) error

	// RemoveFavorite deletes the user's favorite of the given quote.
	// Removing a favorite that does not exist is not an error.
	RemoveFavorite(ctx context.Context, userID, quoteID string) error

	// ListFavoriteIDs returns the IDs of all quotes the user has
	// favorited.
	ListFavoriteIDs(ctx context.Context, userID string) ([]string, error)
}

// CollectionStore persists user collections and their memberships remotely.
type CollectionStore interface {
	// CreateCollection inserts a collection and returns the stored row,
	// including server-assigned fields.
	CreateCollection(ctx context.Context, name, ownerID string) (domain.Collection, error)

	// DeleteCollection removes a collection. The backend cascades the
	// delete to the collection's memberships.
	DeleteCollection(ctx context.Context, collectionID string) error

	// ListCollections returns all collections owned by the user.
	ListCollections(ctx context.Context, userID string) ([]domain.Collection, error)

	// AddMembership adds a quote to a collection.
	AddMembership(ctx context.Context, m domain.Membership) error

	// RemoveMembership removes a quote from a collection. Removing a
	// membership that does not exist is not an error.
	RemoveMembership(ctx context.Context, collectionID, quoteID string) error

	// QuotesInCollection returns the quotes belonging to a collection.
	// Membership rows whose quote no longer resolves are dropped.
	QuotesInCollection(ctx context.Context, collectionID string) ([]domain.Quote, error)
}

// LocalCache is durable local key-value storage. Entries have no TTL;
// they persist until overwritten or deleted.
type LocalCache interface {
	// Put stores a value under the key, replacing any existing value.
	Put(ctx context.Context, key string, value []byte) error

	// Get retrieves the value for the key.
	// Returns domain.ErrNotFound if the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes the key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// AuthEventKind identifies a change in authentication state.
type AuthEventKind string

const (
	// AuthSignedIn fires after a user session is established.
	AuthSignedIn AuthEventKind = "signed_in"

	// AuthSignedOut fires after the session ends.
	AuthSignedOut AuthEventKind = "signed_out"
)

// AuthEvent describes an authentication state change.
type AuthEvent struct {
	Kind   AuthEventKind
	UserID string
}

// Session exposes the current authentication state and its changes.
type Session interface {
	// UserID returns the signed-in user's ID, or false when signed out.
	UserID() (string, bool)

	// Subscribe registers a listener for auth state changes. The
	// returned function cancels the subscription.
	Subscribe(fn func(AuthEvent)) (cancel func())
}
