// Package domain contains core business entities and rules.
package domain

import (
	"fmt"
	"time"
)

// Category classifies a quote. The set is closed; the backend rejects
// anything outside it.
type Category string

const (
	CategoryMotivation Category = "motivation"
	CategoryLove       Category = "love"
	CategorySuccess    Category = "success"
	CategoryWisdom     Category = "wisdom"
	CategoryHumor      Category = "humor"
)

// Categories returns all valid categories in display order.
func Categories() []Category {
	return []Category{
		CategoryMotivation,
		CategoryLove,
		CategorySuccess,
		CategoryWisdom,
		CategoryHumor,
	}
}

// ParseCategory converts a raw string into a Category.
// Returns a validation error for anything outside the closed set.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	for _, known := range Categories() {
		if c == known {
			return c, nil
		}
	}

	return "", NewValidationError("category", fmt.Sprintf("unknown category %q", s))
}

// Valid reports whether the category is a member of the closed set.
func (c Category) Valid() bool {
	_, err := ParseCategory(string(c))
	return err == nil
}

func (c Category) String() string {
	return string(c)
}

// Quote is an immutable quotation. Identity is by ID alone; two Quote
// values with the same ID refer to the same quote regardless of the
// other fields.
type Quote struct {
	// ID is the unique, stable identifier for this quote.
	ID string

	// Text is the body of the quote.
	Text string

	// Author is who said or wrote the quote.
	Author string

	// Category is the quote's classification.
	Category Category

	// CreatedAt is when the quote was added to the catalog.
	CreatedAt time.Time
}

// Same reports whether two quotes share an identity.
func (q Quote) Same(other Quote) bool {
	return q.ID == other.ID
}
