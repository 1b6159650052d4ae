package domain

import "time"

// Favorite marks a single quote as favorited by a single user.
type Favorite struct {
	// ID is the row identifier, generated client-side.
	ID string

	// UserID is the owner of the favorite.
	UserID string

	// QuoteID references the favorited quote.
	QuoteID string

	// CreatedAt is when the favorite was recorded.
	CreatedAt time.Time
}

// Collection is a user-created, named grouping of quotes.
type Collection struct {
	// ID is the row identifier.
	ID string

	// Name is the user-chosen display name. Never empty after creation.
	Name string

	// OwnerID is the user who owns the collection.
	OwnerID string

	// CreatedAt is when the collection was created.
	CreatedAt time.Time

	// QuoteCount is a cached member count. Nil when unknown; may be
	// stale until the next sync.
	QuoteCount *int
}

// Membership links one quote into one collection.
type Membership struct {
	// ID is the row identifier, generated client-side.
	ID string

	// CollectionID references the containing collection.
	CollectionID string

	// QuoteID references the member quote.
	QuoteID string

	// AddedAt is when the quote was added to the collection.
	AddedAt time.Time
}
