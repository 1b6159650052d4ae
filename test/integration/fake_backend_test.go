//go:build integration

package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"
)

// fakeBackend is a minimal in-memory stand-in for the hosted backend:
// enough of the PostgREST and auth APIs for the adapters under test.
type fakeBackend struct {
	mu          sync.Mutex
	quotes      []quoteDoc
	favorites   []favoriteDoc
	collections []collectionDoc
	memberships []membershipDoc

	users map[string]userDoc // email -> user

	server *httptest.Server
}

type quoteDoc struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Author    string    `json:"author"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
}

type favoriteDoc struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	QuoteID   string    `json:"quote_id"`
	CreatedAt time.Time `json:"created_at"`
}

type collectionDoc struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

type membershipDoc struct {
	ID           string    `json:"id"`
	CollectionID string    `json:"collection_id"`
	QuoteID      string    `json:"quote_id"`
	AddedAt      time.Time `json:"added_at"`
}

type userDoc struct {
	ID       string
	Email    string
	Password string
}

func newFakeBackend() *fakeBackend {
	b := &fakeBackend{users: make(map[string]userDoc)}

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/v1/token", b.handleToken)
	mux.HandleFunc("/auth/v1/logout", b.handleLogout)
	mux.HandleFunc("/rest/v1/quotes", b.handleQuotes)
	mux.HandleFunc("/rest/v1/favorites", b.handleFavorites)
	mux.HandleFunc("/rest/v1/collections", b.handleCollections)
	mux.HandleFunc("/rest/v1/collection_quotes", b.handleMemberships)

	b.server = httptest.NewServer(mux)

	return b
}

func (b *fakeBackend) close() {
	b.server.Close()
}

func (b *fakeBackend) url() string {
	return b.server.URL
}

// seedQuotes installs n quotes with predictable IDs, newest first by
// created_at.
func (b *fakeBackend) seedQuotes(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b.quotes = nil
	for i := range n {
		b.quotes = append(b.quotes, quoteDoc{
			ID:        fmt.Sprintf("q%03d", i),
			Text:      fmt.Sprintf("quote %d", i),
			Author:    fmt.Sprintf("author %d", i%7),
			Category:  "wisdom",
			CreatedAt: base.Add(-time.Duration(i) * time.Hour),
		})
	}
}

func (b *fakeBackend) addUser(id, email, password string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.users[email] = userDoc{ID: id, Email: email, Password: password}
}

func (b *fakeBackend) addFavorite(userID, quoteID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.favorites = append(b.favorites, favoriteDoc{
		ID:      fmt.Sprintf("f%d", len(b.favorites)+1),
		UserID:  userID,
		QuoteID: quoteID,
	})
}

func (b *fakeBackend) favoriteIDs(userID string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	var ids []string
	for _, favorite := range b.favorites {
		if favorite.UserID == userID {
			ids = append(ids, favorite.QuoteID)
		}
	}

	return ids
}

func (b *fakeBackend) handleToken(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email        string `json:"email"`
		Password     string `json:"password"`
		RefreshToken string `json:"refresh_token"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	b.mu.Lock()
	defer b.mu.Unlock()

	var user userDoc
	switch r.URL.Query().Get("grant_type") {
	case "password":
		candidate, ok := b.users[body.Email]
		if !ok || candidate.Password != body.Password {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error_description": "invalid login credentials",
			})
			return
		}
		user = candidate

	case "refresh_token":
		// Refresh tokens are "refresh-<userID>".
		id, ok := strings.CutPrefix(body.RefreshToken, "refresh-")
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"msg": "invalid refresh token",
			})
			return
		}
		user = userDoc{ID: id}

	default:
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token":  "access-" + user.ID,
		"refresh_token": "refresh-" + user.ID,
		"user":          map[string]string{"id": user.ID},
	})
}

func (b *fakeBackend) handleLogout(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (b *fakeBackend) handleQuotes(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	q := r.URL.Query()
	rows := make([]quoteDoc, 0, len(b.quotes))

	idFilter := parseInFilter(q.Get("id"))
	category, hasCategory := strings.CutPrefix(q.Get("category"), "eq.")
	orFilter := q.Get("or")
	authorFilter, hasAuthorFilter := strings.CutPrefix(q.Get("author"), "ilike.")

	for _, quote := range b.quotes {
		if idFilter != nil && !idFilter[quote.ID] {
			continue
		}
		if hasCategory && quote.Category != category {
			continue
		}
		if orFilter != "" {
			term := extractIlikeTerm(orFilter)
			if !containsFold(quote.Text, term) && !containsFold(quote.Author, term) {
				continue
			}
		}
		if hasAuthorFilter {
			term := strings.Trim(authorFilter, "*")
			if !containsFold(quote.Author, term) {
				continue
			}
		}

		rows = append(rows, quote)
	}

	rows = applyRangeAndLimit(rows, r.Header.Get("Range"), q.Get("limit"))
	writeJSON(w, http.StatusOK, rows)
}

func (b *fakeBackend) handleFavorites(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	q := r.URL.Query()
	userID, _ := strings.CutPrefix(q.Get("user_id"), "eq.")

	switch r.Method {
	case http.MethodGet:
		type idRow struct {
			QuoteID string `json:"quote_id"`
		}

		rows := make([]idRow, 0)
		for _, favorite := range b.favorites {
			if favorite.UserID == userID {
				rows = append(rows, idRow{QuoteID: favorite.QuoteID})
			}
		}
		writeJSON(w, http.StatusOK, rows)

	case http.MethodPost:
		var favorite favoriteDoc
		if err := json.NewDecoder(r.Body).Decode(&favorite); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		b.favorites = append(b.favorites, favorite)
		w.WriteHeader(http.StatusCreated)

	case http.MethodDelete:
		quoteID, _ := strings.CutPrefix(q.Get("quote_id"), "eq.")
		kept := b.favorites[:0]
		for _, favorite := range b.favorites {
			if favorite.UserID == userID && favorite.QuoteID == quoteID {
				continue
			}
			kept = append(kept, favorite)
		}
		b.favorites = kept
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (b *fakeBackend) handleCollections(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	q := r.URL.Query()

	switch r.Method {
	case http.MethodGet:
		ownerID, _ := strings.CutPrefix(q.Get("owner_id"), "eq.")
		rows := make([]collectionDoc, 0)
		for _, collection := range b.collections {
			if collection.OwnerID == ownerID {
				rows = append(rows, collection)
			}
		}
		writeJSON(w, http.StatusOK, rows)

	case http.MethodPost:
		var insert struct {
			Name    string `json:"name"`
			OwnerID string `json:"owner_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&insert); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		collection := collectionDoc{
			ID:        fmt.Sprintf("c%d", len(b.collections)+1),
			Name:      insert.Name,
			OwnerID:   insert.OwnerID,
			CreatedAt: time.Now().UTC(),
		}
		b.collections = append(b.collections, collection)
		writeJSON(w, http.StatusCreated, []collectionDoc{collection})

	case http.MethodDelete:
		collectionID, _ := strings.CutPrefix(q.Get("id"), "eq.")
		kept := b.collections[:0]
		for _, collection := range b.collections {
			if collection.ID == collectionID {
				continue
			}
			kept = append(kept, collection)
		}
		b.collections = kept

		// Cascade memberships like the real backend.
		keptMembers := b.memberships[:0]
		for _, membership := range b.memberships {
			if membership.CollectionID == collectionID {
				continue
			}
			keptMembers = append(keptMembers, membership)
		}
		b.memberships = keptMembers
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (b *fakeBackend) handleMemberships(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	q := r.URL.Query()
	collectionID, _ := strings.CutPrefix(q.Get("collection_id"), "eq.")

	switch r.Method {
	case http.MethodGet:
		type joinRow struct {
			membershipDoc
			Quote *quoteDoc `json:"quotes"`
		}

		rows := make([]joinRow, 0)
		for _, membership := range b.memberships {
			if membership.CollectionID != collectionID {
				continue
			}

			row := joinRow{membershipDoc: membership}
			for i := range b.quotes {
				if b.quotes[i].ID == membership.QuoteID {
					row.Quote = &b.quotes[i]
					break
				}
			}
			rows = append(rows, row)
		}
		writeJSON(w, http.StatusOK, rows)

	case http.MethodPost:
		var membership membershipDoc
		if err := json.NewDecoder(r.Body).Decode(&membership); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		b.memberships = append(b.memberships, membership)
		w.WriteHeader(http.StatusCreated)

	case http.MethodDelete:
		quoteID, _ := strings.CutPrefix(q.Get("quote_id"), "eq.")
		kept := b.memberships[:0]
		for _, membership := range b.memberships {
			if membership.CollectionID == collectionID && membership.QuoteID == quoteID {
				continue
			}
			kept = append(kept, membership)
		}
		b.memberships = kept
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// parseInFilter parses "in.(a,b,c)" into a set, or nil when absent.
func parseInFilter(raw string) map[string]bool {
	inner, ok := strings.CutPrefix(raw, "in.(")
	if !ok {
		return nil
	}

	inner = strings.TrimSuffix(inner, ")")
	set := make(map[string]bool)
	for _, id := range strings.Split(inner, ",") {
		set[id] = true
	}

	return set
}

// extractIlikeTerm pulls the term out of "(text.ilike.*term*,author.ilike.*term*)".
func extractIlikeTerm(or string) string {
	start := strings.Index(or, "ilike.")
	if start < 0 {
		return ""
	}

	rest := or[start+len("ilike."):]
	end := strings.IndexAny(rest, ",)")
	if end < 0 {
		end = len(rest)
	}

	return strings.Trim(rest[:end], "*")
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func applyRangeAndLimit(rows []quoteDoc, rangeHeader, limit string) []quoteDoc {
	if rangeHeader != "" {
		parts := strings.SplitN(rangeHeader, "-", 2)
		if len(parts) == 2 {
			start, err1 := strconv.Atoi(parts[0])
			end, err2 := strconv.Atoi(parts[1])
			if err1 == nil && err2 == nil {
				if start >= len(rows) {
					return nil
				}
				if end >= len(rows) {
					end = len(rows) - 1
				}
				return rows[start : end+1]
			}
		}
	}

	if limit != "" {
		n, err := strconv.Atoi(limit)
		if err == nil && n < len(rows) {
			return rows[:n]
		}
	}

	return rows
}
