package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/quotevault/quotevault/internal/adapters/clients"
	"github.com/quotevault/quotevault/internal/domain"
	"github.com/quotevault/quotevault/internal/ports"
)

const (
	restPrefix = "/rest/v1"

	quotesTable      = "quotes"
	favoritesTable   = "favorites"
	collectionsTable = "collections"
	membershipsTable = "collection_quotes"

	headerPrefer    = "Prefer"
	headerRange     = "Range"
	headerRangeUnit = "Range-Unit"

	preferRepresentation = "return=representation"
	preferMinimal        = "return=minimal"
)

// StoreConfig configures the PostgREST-backed store.
type StoreConfig struct {
	// SearchLimit caps the number of rows returned by SearchQuotes.
	SearchLimit int

	// Logger is an optional logger. If nil, the default logger is used.
	Logger *slog.Logger
}

// Store implements the quote, favorite, and collection store ports
// against the Supabase PostgREST API.
type Store struct {
	client      *clients.Client
	searchLimit int
	logger      *slog.Logger
}

var (
	_ ports.QuoteStore      = (*Store)(nil)
	_ ports.FavoriteStore   = (*Store)(nil)
	_ ports.CollectionStore = (*Store)(nil)
	_ ports.HealthChecker   = (*Store)(nil)
)

// NewStore creates a Store backed by the given HTTP client.
func NewStore(client *clients.Client, cfg StoreConfig) *Store {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{
		client:      client,
		searchLimit: cfg.SearchLimit,
		logger:      logger.With(slog.String("component", "supabase.Store")),
	}
}

// FetchQuotes returns one page of quotes ordered newest first, optionally
// filtered by category. Paging uses PostgREST Range headers.
func (s *Store) FetchQuotes(ctx context.Context, page, pageSize int, category *domain.Category) ([]domain.Quote, error) {
	query := url.Values{}
	query.Set("select", "*")
	query.Set("order", "created_at.desc")

	if category != nil {
		query.Set("category", "eq."+category.String())
	}

	start := page * pageSize
	headers := map[string]string{
		headerRangeUnit: "items",
		headerRange:     fmt.Sprintf("%d-%d", start, start+pageSize-1),
	}

	resp, err := s.client.GetWithHeaders(ctx, tablePath(quotesTable, query), headers)
	if mapped := mapHTTPError(resp, err, "fetch quotes"); mapped != nil {
		s.closeBody(resp)
		return nil, mapped
	}

	rows, err := decodeRows[quoteRow](resp, "fetch quotes")
	if err != nil {
		return nil, err
	}

	return s.translateQuotes(rows)
}

// SearchQuotes returns quotes matching the term, capped at the configured
// search limit. Keyword mode matches text or author; author mode matches
// author only. Matching is case-insensitive substring via ilike.
func (s *Store) SearchQuotes(ctx context.Context, term string, mode ports.SearchMode) ([]domain.Quote, error) {
	pattern := "*" + term + "*"

	query := url.Values{}
	query.Set("select", "*")
	query.Set("order", "created_at.desc")
	query.Set("limit", strconv.Itoa(s.searchLimit))

	if mode == ports.SearchModeAuthor {
		query.Set("author", "ilike."+pattern)
	} else {
		query.Set("or", fmt.Sprintf("(text.ilike.%s,author.ilike.%s)", pattern, pattern))
	}

	resp, err := s.client.Get(ctx, tablePath(quotesTable, query))
	if mapped := mapHTTPError(resp, err, "search quotes"); mapped != nil {
		s.closeBody(resp)
		return nil, mapped
	}

	rows, err := decodeRows[quoteRow](resp, "search quotes")
	if err != nil {
		return nil, err
	}

	return s.translateQuotes(rows)
}

// AllQuotes returns every quote ordered newest first.
func (s *Store) AllQuotes(ctx context.Context) ([]domain.Quote, error) {
	query := url.Values{}
	query.Set("select", "*")
	query.Set("order", "created_at.desc")

	resp, err := s.client.Get(ctx, tablePath(quotesTable, query))
	if mapped := mapHTTPError(resp, err, "list quotes"); mapped != nil {
		s.closeBody(resp)
		return nil, mapped
	}

	rows, err := decodeRows[quoteRow](resp, "list quotes")
	if err != nil {
		return nil, err
	}

	return s.translateQuotes(rows)
}

// QuotesByIDs returns the quotes with the given IDs. IDs that no longer
// resolve are simply absent from the result.
func (s *Store) QuotesByIDs(ctx context.Context, ids []string) ([]domain.Quote, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := url.Values{}
	query.Set("select", "*")
	query.Set("id", "in.("+strings.Join(ids, ",")+")")

	resp, err := s.client.Get(ctx, tablePath(quotesTable, query))
	if mapped := mapHTTPError(resp, err, "fetch quotes by id"); mapped != nil {
		s.closeBody(resp)
		return nil, mapped
	}

	rows, err := decodeRows[quoteRow](resp, "fetch quotes by id")
	if err != nil {
		return nil, err
	}

	return s.translateQuotes(rows)
}

// AddFavorite inserts a favorite row.
func (s *Store) AddFavorite(ctx context.Context, favorite domain.Favorite) error {
	body, err := json.Marshal(favoriteToRow(favorite))
	if err != nil {
		return fmt.Errorf("encoding favorite: %w", err)
	}

	headers := map[string]string{headerPrefer: preferMinimal}

	resp, err := s.client.PostWithHeaders(ctx, tablePath(favoritesTable, nil), bytes.NewReader(body), headers)
	if mapped := mapHTTPError(resp, err, "add favorite"); mapped != nil {
		s.closeBody(resp)
		return mapped
	}

	s.closeBody(resp)

	return nil
}

// RemoveFavorite deletes the favorite row for the user and quote.
// Deleting a row that does not exist is not an error.
func (s *Store) RemoveFavorite(ctx context.Context, userID, quoteID string) error {
	query := url.Values{}
	query.Set("user_id", "eq."+userID)
	query.Set("quote_id", "eq."+quoteID)

	resp, err := s.client.Delete(ctx, tablePath(favoritesTable, query))
	if mapped := mapHTTPError(resp, err, "remove favorite"); mapped != nil {
		s.closeBody(resp)
		return mapped
	}

	s.closeBody(resp)

	return nil
}

// ListFavoriteIDs returns the quote IDs the user has favorited.
func (s *Store) ListFavoriteIDs(ctx context.Context, userID string) ([]string, error) {
	query := url.Values{}
	query.Set("select", "quote_id")
	query.Set("user_id", "eq."+userID)

	resp, err := s.client.Get(ctx, tablePath(favoritesTable, query))
	if mapped := mapHTTPError(resp, err, "list favorites"); mapped != nil {
		s.closeBody(resp)
		return nil, mapped
	}

	rows, err := decodeRows[favoriteIDRow](resp, "list favorites")
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.QuoteID)
	}

	return ids, nil
}

// collectionInsert is the payload for creating a collection. The server
// assigns id and created_at.
type collectionInsert struct {
	Name    string `json:"name"`
	OwnerID string `json:"owner_id"`
}

// CreateCollection inserts a collection and returns the server-assigned row.
func (s *Store) CreateCollection(ctx context.Context, name, ownerID string) (domain.Collection, error) {
	body, err := json.Marshal(collectionInsert{Name: name, OwnerID: ownerID})
	if err != nil {
		return domain.Collection{}, fmt.Errorf("encoding collection: %w", err)
	}

	headers := map[string]string{headerPrefer: preferRepresentation}

	resp, err := s.client.PostWithHeaders(ctx, tablePath(collectionsTable, nil), bytes.NewReader(body), headers)
	if mapped := mapHTTPError(resp, err, "create collection"); mapped != nil {
		s.closeBody(resp)
		return domain.Collection{}, mapped
	}

	rows, err := decodeRows[collectionRow](resp, "create collection")
	if err != nil {
		return domain.Collection{}, err
	}

	if len(rows) == 0 {
		return domain.Collection{}, domain.NewUnavailableError(serviceName, "create collection returned no representation")
	}

	return rows[0].toDomain()
}

// DeleteCollection removes a collection. Memberships cascade server-side.
func (s *Store) DeleteCollection(ctx context.Context, collectionID string) error {
	query := url.Values{}
	query.Set("id", "eq."+collectionID)

	resp, err := s.client.Delete(ctx, tablePath(collectionsTable, query))
	if mapped := mapHTTPError(resp, err, "delete collection"); mapped != nil {
		s.closeBody(resp)
		return mapped
	}

	s.closeBody(resp)

	return nil
}

// ListCollections returns the user's collections ordered newest first.
func (s *Store) ListCollections(ctx context.Context, ownerID string) ([]domain.Collection, error) {
	query := url.Values{}
	query.Set("select", "*")
	query.Set("owner_id", "eq."+ownerID)
	query.Set("order", "created_at.desc")

	resp, err := s.client.Get(ctx, tablePath(collectionsTable, query))
	if mapped := mapHTTPError(resp, err, "list collections"); mapped != nil {
		s.closeBody(resp)
		return nil, mapped
	}

	rows, err := decodeRows[collectionRow](resp, "list collections")
	if err != nil {
		return nil, err
	}

	collections := make([]domain.Collection, 0, len(rows))
	for i := range rows {
		collection, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}

		collections = append(collections, collection)
	}

	return collections, nil
}

// AddMembership inserts a collection membership row.
func (s *Store) AddMembership(ctx context.Context, membership domain.Membership) error {
	body, err := json.Marshal(membershipToRow(membership))
	if err != nil {
		return fmt.Errorf("encoding membership: %w", err)
	}

	headers := map[string]string{headerPrefer: preferMinimal}

	resp, err := s.client.PostWithHeaders(ctx, tablePath(membershipsTable, nil), bytes.NewReader(body), headers)
	if mapped := mapHTTPError(resp, err, "add membership"); mapped != nil {
		s.closeBody(resp)
		return mapped
	}

	s.closeBody(resp)

	return nil
}

// RemoveMembership deletes the membership row for the collection and quote.
func (s *Store) RemoveMembership(ctx context.Context, collectionID, quoteID string) error {
	query := url.Values{}
	query.Set("collection_id", "eq."+collectionID)
	query.Set("quote_id", "eq."+quoteID)

	resp, err := s.client.Delete(ctx, tablePath(membershipsTable, query))
	if mapped := mapHTTPError(resp, err, "remove membership"); mapped != nil {
		s.closeBody(resp)
		return mapped
	}

	s.closeBody(resp)

	return nil
}

// QuotesInCollection returns the quotes in a collection via the quotes(*)
// embedding. Memberships whose quote has been deleted are skipped.
func (s *Store) QuotesInCollection(ctx context.Context, collectionID string) ([]domain.Quote, error) {
	query := url.Values{}
	query.Set("select", "*,quotes(*)")
	query.Set("collection_id", "eq."+collectionID)
	query.Set("order", "added_at.desc")

	resp, err := s.client.Get(ctx, tablePath(membershipsTable, query))
	if mapped := mapHTTPError(resp, err, "list collection quotes"); mapped != nil {
		s.closeBody(resp)
		return nil, mapped
	}

	rows, err := decodeRows[membershipRow](resp, "list collection quotes")
	if err != nil {
		return nil, err
	}

	quotes := make([]domain.Quote, 0, len(rows))
	for i := range rows {
		if rows[i].Quote == nil {
			s.logger.Debug("skipping membership with missing quote",
				slog.String("collection_id", collectionID),
				slog.String("quote_id", rows[i].QuoteID),
			)
			continue
		}

		quote, err := rows[i].Quote.toDomain()
		if err != nil {
			return nil, err
		}

		quotes = append(quotes, quote)
	}

	return quotes, nil
}

// Name implements ports.HealthChecker.
func (s *Store) Name() string {
	return serviceName
}

// Check implements ports.HealthChecker with a minimal probe query.
func (s *Store) Check(ctx context.Context) error {
	query := url.Values{}
	query.Set("select", "id")
	query.Set("limit", "1")

	resp, err := s.client.Get(ctx, tablePath(quotesTable, query))
	if mapped := mapHTTPError(resp, err, "health check"); mapped != nil {
		s.closeBody(resp)
		return mapped
	}

	s.closeBody(resp)

	return nil
}

// translateQuotes converts rows to domain quotes, preserving order.
func (s *Store) translateQuotes(rows []quoteRow) ([]domain.Quote, error) {
	quotes := make([]domain.Quote, 0, len(rows))
	for i := range rows {
		quote, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}

		quotes = append(quotes, quote)
	}

	return quotes, nil
}

// closeBody drains and closes a response body so the connection can be reused.
func (s *Store) closeBody(resp *http.Response) {
	drainClose(resp, s.logger)
}

func drainClose(resp *http.Response, logger *slog.Logger) {
	if resp == nil || resp.Body == nil {
		return
	}

	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		logger.Debug("draining response body", slog.Any("error", err))
	}

	if err := resp.Body.Close(); err != nil {
		logger.Debug("closing response body", slog.Any("error", err))
	}
}

// decodeRows decodes a JSON array response body and closes it.
func decodeRows[T any](resp *http.Response, operation string) ([]T, error) {
	defer resp.Body.Close() //nolint:errcheck // Read side already consumed

	var rows []T
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, domain.NewUnavailableError(serviceName,
			fmt.Sprintf("decoding %s response: %v", operation, err))
	}

	return rows, nil
}

// tablePath builds a /rest/v1 path with an encoded query string.
func tablePath(table string, query url.Values) string {
	path := restPrefix + "/" + table
	if len(query) == 0 {
		return path
	}

	return path + "?" + query.Encode()
}
