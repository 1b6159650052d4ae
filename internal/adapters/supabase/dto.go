package supabase

import (
	"time"

	"github.com/quotevault/quotevault/internal/domain"
)

// Row types mirror the PostgREST JSON shapes. They are internal to this
// package; everything crossing the port boundary is a domain type.

type quoteRow struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Author    string    `json:"author"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
}

func (r *quoteRow) toDomain() (domain.Quote, error) {
	if r.ID == "" {
		return domain.Quote{}, domain.NewValidationError("id", "is required")
	}

	if r.Text == "" {
		return domain.Quote{}, domain.NewValidationError("text", "is required")
	}

	category, err := domain.ParseCategory(r.Category)
	if err != nil {
		return domain.Quote{}, err
	}

	return domain.Quote{
		ID:        r.ID,
		Text:      r.Text,
		Author:    r.Author,
		Category:  category,
		CreatedAt: r.CreatedAt,
	}, nil
}

type favoriteRow struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	QuoteID   string    `json:"quote_id"`
	CreatedAt time.Time `json:"created_at"`
}

func favoriteToRow(f domain.Favorite) favoriteRow {
	return favoriteRow{
		ID:        f.ID,
		UserID:    f.UserID,
		QuoteID:   f.QuoteID,
		CreatedAt: f.CreatedAt,
	}
}

// favoriteIDRow is the projection used by ListFavoriteIDs.
type favoriteIDRow struct {
	QuoteID string `json:"quote_id"`
}

type collectionRow struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	OwnerID    string    `json:"owner_id"`
	CreatedAt  time.Time `json:"created_at"`
	QuoteCount *int      `json:"quote_count,omitempty"`
}

func (r *collectionRow) toDomain() (domain.Collection, error) {
	if r.ID == "" {
		return domain.Collection{}, domain.NewValidationError("id", "is required")
	}

	if r.Name == "" {
		return domain.Collection{}, domain.NewValidationError("name", "is required")
	}

	return domain.Collection{
		ID:         r.ID,
		Name:       r.Name,
		OwnerID:    r.OwnerID,
		CreatedAt:  r.CreatedAt,
		QuoteCount: r.QuoteCount,
	}, nil
}

type membershipRow struct {
	ID           string    `json:"id"`
	CollectionID string    `json:"collection_id"`
	QuoteID      string    `json:"quote_id"`
	AddedAt      time.Time `json:"added_at"`

	// Quote is populated by the quotes(*) embedding on join queries.
	// Nil when the referenced quote no longer exists.
	Quote *quoteRow `json:"quotes,omitempty"`
}

func membershipToRow(m domain.Membership) membershipRow {
	return membershipRow{
		ID:           m.ID,
		CollectionID: m.CollectionID,
		QuoteID:      m.QuoteID,
		AddedAt:      m.AddedAt,
	}
}
