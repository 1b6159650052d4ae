package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/quotevault/quotevault/internal/domain"
	"github.com/quotevault/quotevault/internal/ports"
)

// stubQuoteStore is a function-backed ports.QuoteStore. Unset functions
// return empty results.
type stubQuoteStore struct {
	fetch  func(ctx context.Context, page, pageSize int, category *domain.Category) ([]domain.Quote, error)
	search func(ctx context.Context, term string, mode ports.SearchMode) ([]domain.Quote, error)
	all    func(ctx context.Context) ([]domain.Quote, error)
	byIDs  func(ctx context.Context, ids []string) ([]domain.Quote, error)
}

func (s *stubQuoteStore) FetchQuotes(ctx context.Context, page, pageSize int, category *domain.Category) ([]domain.Quote, error) {
	if s.fetch == nil {
		return nil, nil
	}

	return s.fetch(ctx, page, pageSize, category)
}

func (s *stubQuoteStore) SearchQuotes(ctx context.Context, term string, mode ports.SearchMode) ([]domain.Quote, error) {
	if s.search == nil {
		return nil, nil
	}

	return s.search(ctx, term, mode)
}

func (s *stubQuoteStore) AllQuotes(ctx context.Context) ([]domain.Quote, error) {
	if s.all == nil {
		return nil, nil
	}

	return s.all(ctx)
}

func (s *stubQuoteStore) QuotesByIDs(ctx context.Context, ids []string) ([]domain.Quote, error) {
	if s.byIDs == nil {
		return nil, nil
	}

	return s.byIDs(ctx, ids)
}

// memCache is an in-memory ports.LocalCache.
type memCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string][]byte)}
}

func (c *memCache) Put(_ context.Context, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = value

	return nil
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	value, ok := c.entries[key]
	if !ok {
		return nil, domain.NewNotFoundError("cache", key)
	}

	return value, nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)

	return nil
}

// stubSession is a controllable ports.Session.
type stubSession struct {
	mu     sync.Mutex
	userID string
	subs   map[int]func(ports.AuthEvent)
	nextID int
}

func newStubSession() *stubSession {
	return &stubSession{subs: make(map[int]func(ports.AuthEvent))}
}

func (s *stubSession) UserID() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.userID, s.userID != ""
}

func (s *stubSession) Subscribe(fn func(ports.AuthEvent)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *stubSession) signIn(userID string) {
	s.mu.Lock()
	s.userID = userID
	fns := s.listeners()
	s.mu.Unlock()

	for _, fn := range fns {
		fn(ports.AuthEvent{Kind: ports.AuthSignedIn, UserID: userID})
	}
}

func (s *stubSession) signOut() {
	s.mu.Lock()
	userID := s.userID
	s.userID = ""
	fns := s.listeners()
	s.mu.Unlock()

	for _, fn := range fns {
		fn(ports.AuthEvent{Kind: ports.AuthSignedOut, UserID: userID})
	}
}

func (s *stubSession) listeners() []func(ports.AuthEvent) {
	fns := make([]func(ports.AuthEvent), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}

	return fns
}

// stubFavoriteStore records favorites in memory with optional error
// injection. addHook, when set, runs at the start of AddFavorite before
// any state changes.
type stubFavoriteStore struct {
	mu        sync.Mutex
	favorites map[string][]string // userID -> quote IDs
	addErr    error
	removeErr error
	listErr   error
	addCalls  int
	addHook   func()
}

func newStubFavoriteStore() *stubFavoriteStore {
	return &stubFavoriteStore{favorites: make(map[string][]string)}
}

func (s *stubFavoriteStore) AddFavorite(_ context.Context, favorite domain.Favorite) error {
	if s.addHook != nil {
		s.addHook()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.addCalls++

	if s.addErr != nil {
		return s.addErr
	}

	s.favorites[favorite.UserID] = append(s.favorites[favorite.UserID], favorite.QuoteID)

	return nil
}

func (s *stubFavoriteStore) RemoveFavorite(_ context.Context, userID, quoteID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.removeErr != nil {
		return s.removeErr
	}

	ids := s.favorites[userID]
	for i, id := range ids {
		if id == quoteID {
			s.favorites[userID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}

	return nil
}

func (s *stubFavoriteStore) ListFavoriteIDs(_ context.Context, userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listErr != nil {
		return nil, s.listErr
	}

	ids := make([]string, len(s.favorites[userID]))
	copy(ids, s.favorites[userID])

	return ids, nil
}

// stubCollectionStore records collections and memberships in memory.
type stubCollectionStore struct {
	mu          sync.Mutex
	collections []domain.Collection
	members     map[string][]domain.Quote // collectionID -> quotes
	createErr   error
	nextID      int
}

func newStubCollectionStore() *stubCollectionStore {
	return &stubCollectionStore{members: make(map[string][]domain.Quote)}
}

func (s *stubCollectionStore) CreateCollection(_ context.Context, name, ownerID string) (domain.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.createErr != nil {
		return domain.Collection{}, s.createErr
	}

	s.nextID++
	collection := domain.Collection{
		ID:      fmt.Sprintf("c%d", s.nextID),
		Name:    name,
		OwnerID: ownerID,
	}
	s.collections = append(s.collections, collection)

	return collection, nil
}

func (s *stubCollectionStore) DeleteCollection(_ context.Context, collectionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, collection := range s.collections {
		if collection.ID == collectionID {
			s.collections = append(s.collections[:i], s.collections[i+1:]...)
			break
		}
	}
	delete(s.members, collectionID)

	return nil
}

func (s *stubCollectionStore) ListCollections(_ context.Context, ownerID string) ([]domain.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Collection
	for _, collection := range s.collections {
		if collection.OwnerID == ownerID {
			out = append(out, collection)
		}
	}

	return out, nil
}

func (s *stubCollectionStore) AddMembership(_ context.Context, membership domain.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.members[membership.CollectionID] = append(
		s.members[membership.CollectionID],
		domain.Quote{ID: membership.QuoteID},
	)

	return nil
}

func (s *stubCollectionStore) RemoveMembership(_ context.Context, collectionID, quoteID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	quotes := s.members[collectionID]
	for i, quote := range quotes {
		if quote.ID == quoteID {
			s.members[collectionID] = append(quotes[:i], quotes[i+1:]...)
			break
		}
	}

	return nil
}

func (s *stubCollectionStore) QuotesInCollection(_ context.Context, collectionID string) ([]domain.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	quotes := make([]domain.Quote, len(s.members[collectionID]))
	copy(quotes, s.members[collectionID])

	return quotes, nil
}
