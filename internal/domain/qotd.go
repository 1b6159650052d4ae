package domain

import (
	"sort"
	"time"
)

const secondsPerDay = 86400

// StartOfDay truncates t to midnight in t's location.
func StartOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// DaysSinceEpoch returns the whole days elapsed between the Unix epoch
// and the start of t's calendar day, in t's location.
func DaysSinceEpoch(t time.Time) int64 {
	return StartOfDay(t).Unix() / secondsPerDay
}

// SelectQuoteOfDay deterministically picks one quote for the calendar day
// containing today. The selection is a pure function of the candidate set
// and the date: every device that sees the same catalog on the same day
// picks the same quote. Candidates are ordered by ID before indexing so
// the result does not depend on fetch order.
//
// Returns ErrNoQuotes when the candidate list is empty.
func SelectQuoteOfDay(quotes []Quote, today time.Time) (Quote, error) {
	if len(quotes) == 0 {
		return Quote{}, ErrNoQuotes
	}

	ordered := make([]Quote, len(quotes))
	copy(ordered, quotes)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].ID < ordered[j].ID
	})

	days := DaysSinceEpoch(today)

	idx := days % int64(len(ordered))
	if idx < 0 {
		idx += int64(len(ordered))
	}

	return ordered[idx], nil
}
