package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quotevault/quotevault/internal/domain"
	"github.com/quotevault/quotevault/internal/ports"
)

const (
	favoritesCacheKey   = "library/favorites"
	collectionsCacheKey = "library/collections"
	membershipsCacheKey = "library/memberships"

	defaultSyncTimeout = 30 * time.Second

	// membershipSyncConcurrency bounds parallel membership fetches during
	// a full sync.
	membershipSyncConcurrency = 4
)

// LibrarySnapshot is the view of the user's library pushed to subscribers.
type LibrarySnapshot struct {
	FavoriteIDs []string
	Collections []domain.Collection
}

// LibraryConfig contains dependencies for the library service.
type LibraryConfig struct {
	Favorites   ports.FavoriteStore
	Collections ports.CollectionStore
	Quotes      ports.QuoteStore
	Cache       ports.LocalCache
	Session     ports.Session

	// Now and NewID are optional overrides for tests.
	Now   func() time.Time
	NewID func() string

	// SyncTimeout bounds the background sync triggered by sign-in.
	SyncTimeout time.Duration

	Logger *slog.Logger
}

// LibraryService owns the user's favorites and collections. It keeps an
// in-memory mirror backed by the local cache so reads never block on the
// network, pushes mutations to the backend when signed in, and replaces
// the mirror wholesale from the backend on sign-in. Offline favorite
// toggles apply locally only; the backend copy wins on the next sync.
type LibraryService struct {
	favorites   ports.FavoriteStore
	collections ports.CollectionStore
	quotes      ports.QuoteStore
	cache       ports.LocalCache
	session     ports.Session
	now         func() time.Time
	newID       func() string
	syncTimeout time.Duration
	logger      *slog.Logger
	publisher   *Publisher[LibrarySnapshot]

	mu             sync.Mutex
	favoriteIDs    []string
	favoriteSet    map[string]struct{}
	collectionList []domain.Collection
	memberships    map[string][]string

	unsubscribe func()
	syncs       sync.WaitGroup
}

// NewLibrary creates the library service, seeds it from the local cache,
// and starts reacting to auth changes. Call Close to stop.
func NewLibrary(cfg LibraryConfig) *LibraryService {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	newID := cfg.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	syncTimeout := cfg.SyncTimeout
	if syncTimeout <= 0 {
		syncTimeout = defaultSyncTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &LibraryService{
		favorites:   cfg.Favorites,
		collections: cfg.Collections,
		quotes:      cfg.Quotes,
		cache:       cfg.Cache,
		session:     cfg.Session,
		now:         now,
		newID:       newID,
		syncTimeout: syncTimeout,
		logger:      logger.With(slog.String("component", "app.LibraryService")),
		publisher:   NewPublisher[LibrarySnapshot](),
		favoriteSet: make(map[string]struct{}),
		memberships: make(map[string][]string),
	}

	s.seedFromCache(context.Background())
	s.unsubscribe = cfg.Session.Subscribe(s.handleAuthEvent)

	return s
}

// Close stops auth event handling and waits for background syncs.
func (s *LibraryService) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}

	s.syncs.Wait()
}

// Subscribe registers a listener for library snapshots.
func (s *LibraryService) Subscribe(fn func(LibrarySnapshot)) (cancel func()) {
	return s.publisher.Subscribe(fn)
}

// IsFavorite reports whether the quote is currently favorited. Answered
// from memory; never blocks on the network.
func (s *LibraryService) IsFavorite(quoteID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.favoriteSet[quoteID]

	return ok
}

// FavoriteIDs returns the favorited quote IDs in toggle order.
func (s *LibraryService) FavoriteIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, len(s.favoriteIDs))
	copy(ids, s.favoriteIDs)

	return ids
}

// FavoriteQuotes resolves the favorited IDs to quotes. IDs that no longer
// exist in the catalog are absent from the result.
func (s *LibraryService) FavoriteQuotes(ctx context.Context) ([]domain.Quote, error) {
	return s.quotes.QuotesByIDs(ctx, s.FavoriteIDs())
}

// ToggleFavorite flips the favorite state of a quote and returns the new
// state. Signed in, the backend is updated first and the local state only
// after it confirms. Signed out, the change applies locally and will be
// overwritten by the backend copy on the next sync.
func (s *LibraryService) ToggleFavorite(ctx context.Context, quoteID string) (bool, error) {
	s.mu.Lock()
	_, isFavorite := s.favoriteSet[quoteID]
	s.mu.Unlock()

	userID, online := s.session.UserID()

	if isFavorite {
		if online {
			if err := s.favorites.RemoveFavorite(ctx, userID, quoteID); err != nil {
				return true, err
			}
		} else {
			s.logger.WarnContext(ctx, "favorite removed while signed out, change is local only",
				slog.String("quote_id", quoteID),
			)
		}

		s.mu.Lock()
		delete(s.favoriteSet, quoteID)
		for i, id := range s.favoriteIDs {
			if id == quoteID {
				s.favoriteIDs = append(s.favoriteIDs[:i], s.favoriteIDs[i+1:]...)
				break
			}
		}
		s.mu.Unlock()

		s.persistFavorites(ctx)
		s.publish()

		return false, nil
	}

	if online {
		favorite := domain.Favorite{
			ID:        s.newID(),
			UserID:    userID,
			QuoteID:   quoteID,
			CreatedAt: s.now(),
		}

		if err := s.favorites.AddFavorite(ctx, favorite); err != nil {
			return false, err
		}
	} else {
		s.logger.WarnContext(ctx, "favorite added while signed out, change is local only",
			slog.String("quote_id", quoteID),
		)
	}

	s.mu.Lock()
	// A racing add may have landed while the remote call was in flight.
	if _, dup := s.favoriteSet[quoteID]; !dup {
		s.favoriteSet[quoteID] = struct{}{}
		s.favoriteIDs = append(s.favoriteIDs, quoteID)
	}
	s.mu.Unlock()

	s.persistFavorites(ctx)
	s.publish()

	return true, nil
}

// Collections returns the user's collections.
func (s *LibraryService) Collections() []domain.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()

	collections := make([]domain.Collection, len(s.collectionList))
	copy(collections, s.collectionList)

	return collections
}

// CreateCollection creates a named collection. The name must be non-blank
// after trimming and the user must be signed in.
func (s *LibraryService) CreateCollection(ctx context.Context, name string) (domain.Collection, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Collection{}, domain.ErrEmptyName
	}

	userID, ok := s.session.UserID()
	if !ok {
		return domain.Collection{}, domain.NewNotAuthenticatedError("create collection")
	}

	collection, err := s.collections.CreateCollection(ctx, name, userID)
	if err != nil {
		return domain.Collection{}, err
	}

	s.mu.Lock()
	s.collectionList = append([]domain.Collection{collection}, s.collectionList...)
	s.mu.Unlock()

	s.persistCollections(ctx)
	s.publish()

	s.logger.InfoContext(ctx, "collection created",
		slog.String("collection_id", collection.ID),
		slog.String("name", collection.Name),
	)

	return collection, nil
}

// DeleteCollection removes a collection and its local memberships.
func (s *LibraryService) DeleteCollection(ctx context.Context, collectionID string) error {
	if _, ok := s.session.UserID(); !ok {
		return domain.NewNotAuthenticatedError("delete collection")
	}

	if err := s.collections.DeleteCollection(ctx, collectionID); err != nil {
		return err
	}

	s.mu.Lock()
	for i, collection := range s.collectionList {
		if collection.ID == collectionID {
			s.collectionList = append(s.collectionList[:i], s.collectionList[i+1:]...)
			break
		}
	}
	delete(s.memberships, collectionID)
	s.mu.Unlock()

	s.persistCollections(ctx)
	s.persistMemberships(ctx)
	s.publish()

	return nil
}

// AddToCollection adds a quote to a collection. Adding a quote that is
// already in the collection is a no-op.
func (s *LibraryService) AddToCollection(ctx context.Context, collectionID, quoteID string) error {
	if _, ok := s.session.UserID(); !ok {
		return domain.NewNotAuthenticatedError("add to collection")
	}

	s.mu.Lock()
	for _, id := range s.memberships[collectionID] {
		if id == quoteID {
			s.mu.Unlock()
			return nil
		}
	}
	s.mu.Unlock()

	membership := domain.Membership{
		ID:           s.newID(),
		CollectionID: collectionID,
		QuoteID:      quoteID,
		AddedAt:      s.now(),
	}

	if err := s.collections.AddMembership(ctx, membership); err != nil {
		return err
	}

	s.mu.Lock()
	s.memberships[collectionID] = append(s.memberships[collectionID], quoteID)
	s.mu.Unlock()

	s.persistMemberships(ctx)

	return nil
}

// RemoveFromCollection removes a quote from a collection.
func (s *LibraryService) RemoveFromCollection(ctx context.Context, collectionID, quoteID string) error {
	if _, ok := s.session.UserID(); !ok {
		return domain.NewNotAuthenticatedError("remove from collection")
	}

	if err := s.collections.RemoveMembership(ctx, collectionID, quoteID); err != nil {
		return err
	}

	s.mu.Lock()
	ids := s.memberships[collectionID]
	for i, id := range ids {
		if id == quoteID {
			s.memberships[collectionID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	s.persistMemberships(ctx)

	return nil
}

// QuotesInCollection returns the quotes in a collection. Quotes removed
// from the catalog are skipped.
func (s *LibraryService) QuotesInCollection(ctx context.Context, collectionID string) ([]domain.Quote, error) {
	return s.collections.QuotesInCollection(ctx, collectionID)
}

// SyncFromCloud replaces the local mirror with the backend state for the
// signed-in user. Favorites and collections are fetched in parallel, then
// each collection's memberships. The backend copy wins wholesale. Signed
// out there is nothing to sync and the call is a no-op.
func (s *LibraryService) SyncFromCloud(ctx context.Context) error {
	userID, ok := s.session.UserID()
	if !ok {
		s.logger.DebugContext(ctx, "skipping library sync while signed out")
		return nil
	}

	favoriteIDs, collections, err := Parallel2(ctx,
		func(ctx context.Context) ([]string, error) {
			return s.favorites.ListFavoriteIDs(ctx, userID)
		},
		func(ctx context.Context) ([]domain.Collection, error) {
			return s.collections.ListCollections(ctx, userID)
		},
	)
	if err != nil {
		return err
	}

	fns := make([]func(context.Context) ([]string, error), 0, len(collections))
	for _, collection := range collections {
		fns = append(fns, func(ctx context.Context) ([]string, error) {
			quotes, err := s.collections.QuotesInCollection(ctx, collection.ID)
			if err != nil {
				return nil, err
			}

			ids := make([]string, 0, len(quotes))
			for _, quote := range quotes {
				ids = append(ids, quote.ID)
			}

			return ids, nil
		})
	}

	membershipLists, err := ParallelLimit(ctx, membershipSyncConcurrency, fns...)
	if err != nil {
		return err
	}

	memberships := make(map[string][]string, len(collections))
	for i, collection := range collections {
		memberships[collection.ID] = membershipLists[i]
	}

	s.mu.Lock()
	s.favoriteIDs = favoriteIDs
	s.favoriteSet = make(map[string]struct{}, len(favoriteIDs))
	for _, id := range favoriteIDs {
		s.favoriteSet[id] = struct{}{}
	}
	s.collectionList = collections
	s.memberships = memberships
	s.mu.Unlock()

	s.persistFavorites(ctx)
	s.persistCollections(ctx)
	s.persistMemberships(ctx)
	s.publish()

	s.logger.InfoContext(ctx, "library synced",
		slog.Int("favorites", len(favoriteIDs)),
		slog.Int("collections", len(collections)),
	)

	return nil
}

func (s *LibraryService) handleAuthEvent(event ports.AuthEvent) {
	switch event.Kind {
	case ports.AuthSignedIn:
		s.syncs.Add(1)
		go func() {
			defer s.syncs.Done()

			ctx, cancel := context.WithTimeout(context.Background(), s.syncTimeout)
			defer cancel()

			if err := s.SyncFromCloud(ctx); err != nil {
				s.logger.Warn("post sign-in sync failed", slog.Any("error", err))
			}
		}()

	case ports.AuthSignedOut:
		s.clearLocal(context.Background())
	}
}

// clearLocal drops all local library state on sign-out.
func (s *LibraryService) clearLocal(ctx context.Context) {
	s.mu.Lock()
	s.favoriteIDs = nil
	s.favoriteSet = make(map[string]struct{})
	s.collectionList = nil
	s.memberships = make(map[string][]string)
	s.mu.Unlock()

	for _, key := range []string{favoritesCacheKey, collectionsCacheKey, membershipsCacheKey} {
		if err := s.cache.Delete(ctx, key); err != nil {
			s.logger.Warn("clearing cached library state",
				slog.String("key", key),
				slog.Any("error", err),
			)
		}
	}

	s.publish()
}

// seedFromCache restores the mirror from the local cache on cold start.
func (s *LibraryService) seedFromCache(ctx context.Context) {
	var favoriteIDs []string
	if s.readCached(ctx, favoritesCacheKey, &favoriteIDs) {
		s.mu.Lock()
		s.favoriteIDs = favoriteIDs
		s.favoriteSet = make(map[string]struct{}, len(favoriteIDs))
		for _, id := range favoriteIDs {
			s.favoriteSet[id] = struct{}{}
		}
		s.mu.Unlock()
	}

	var collections []domain.Collection
	if s.readCached(ctx, collectionsCacheKey, &collections) {
		s.mu.Lock()
		s.collectionList = collections
		s.mu.Unlock()
	}

	var memberships map[string][]string
	if s.readCached(ctx, membershipsCacheKey, &memberships) && memberships != nil {
		s.mu.Lock()
		s.memberships = memberships
		s.mu.Unlock()
	}
}

func (s *LibraryService) readCached(ctx context.Context, key string, out any) bool {
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		return false
	}

	if err := json.Unmarshal(raw, out); err != nil {
		s.logger.Debug("decoding cached library state",
			slog.String("key", key),
			slog.Any("error", err),
		)
		return false
	}

	return true
}

func (s *LibraryService) persistFavorites(ctx context.Context) {
	s.mu.Lock()
	ids := make([]string, len(s.favoriteIDs))
	copy(ids, s.favoriteIDs)
	s.mu.Unlock()

	s.writeCached(ctx, favoritesCacheKey, ids)
}

func (s *LibraryService) persistCollections(ctx context.Context) {
	s.mu.Lock()
	collections := make([]domain.Collection, len(s.collectionList))
	copy(collections, s.collectionList)
	s.mu.Unlock()

	s.writeCached(ctx, collectionsCacheKey, collections)
}

func (s *LibraryService) persistMemberships(ctx context.Context) {
	s.mu.Lock()
	memberships := make(map[string][]string, len(s.memberships))
	for id, quoteIDs := range s.memberships {
		ids := make([]string, len(quoteIDs))
		copy(ids, quoteIDs)
		memberships[id] = ids
	}
	s.mu.Unlock()

	s.writeCached(ctx, membershipsCacheKey, memberships)
}

func (s *LibraryService) writeCached(ctx context.Context, key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}

	if err := s.cache.Put(ctx, key, raw); err != nil {
		s.logger.Warn("persisting library state",
			slog.String("key", key),
			slog.Any("error", err),
		)
	}
}

func (s *LibraryService) publish() {
	s.mu.Lock()
	snapshot := LibrarySnapshot{
		FavoriteIDs: make([]string, len(s.favoriteIDs)),
		Collections: make([]domain.Collection, len(s.collectionList)),
	}
	copy(snapshot.FavoriteIDs, s.favoriteIDs)
	copy(snapshot.Collections, s.collectionList)
	s.mu.Unlock()

	s.publisher.Publish(snapshot)
}
