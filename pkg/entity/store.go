package entity

import (
	"cmp"
	"fmt"
	"slices"
	"sync"
	"time"
)

// Store is a mutex-guarded, in-memory collection of entities keyed by ID.
type Store struct {
	mu       sync.RWMutex
	name     string
	items    map[int64]Entity
	seed     []Entity
	observer Observer
	feed     *Feed
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithObserver sets the observer notified after each operation.
func WithObserver(o Observer) StoreOption {
	return func(s *Store) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithFeed sets the feed that receives change events.
func WithFeed(f *Feed) StoreOption {
	return func(s *Store) {
		s.feed = f
	}
}

// WithSeed sets the entities the store starts with and returns to on Reset.
// Duplicate IDs keep the last occurrence; use Load to reject them instead.
func WithSeed(seed []Entity) StoreOption {
	return func(s *Store) {
		s.seed = cloneAll(seed)
	}
}

// NewStore creates a store for the named resource, populated from its seed.
func NewStore(name string, opts ...StoreOption) *Store {
	s := &Store{
		name:     name,
		items:    make(map[int64]Entity),
		observer: NoopObserver{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.items = seedItems(s.seed)
	return s
}

// Name returns the resource name.
func (s *Store) Name() string {
	return s.name
}

// Fork returns a new store with the same name, seed and observer but its own
// items and no feed.
func (s *Store) Fork() *Store {
	s.mu.RLock()
	seed := s.seed
	s.mu.RUnlock()
	return NewStore(s.name, WithSeed(seed), WithObserver(s.observer))
}

// Get returns the entity stored under id.
func (s *Store) Get(id int64) (Entity, bool) {
	start := time.Now()
	s.mu.RLock()
	e, ok := s.items[id]
	s.mu.RUnlock()

	s.observer.OnGet(s.name, id, ok, time.Since(start))
	if !ok {
		return Entity{}, false
	}
	return e.Clone(), true
}

// List returns every stored entity in ascending ID order.
func (s *Store) List() []Entity {
	start := time.Now()
	items := s.sorted()
	s.observer.OnList(s.name, len(items), time.Since(start))
	return items
}

// Put inserts or overwrites the entity keyed by e.ID and returns e unchanged.
func (s *Store) Put(e Entity) Entity {
	start := time.Now()
	stored := e.Clone()

	s.mu.Lock()
	s.items[e.ID] = stored
	if s.feed != nil {
		published := stored.Clone()
		s.publish(Event{Type: EventPut, ID: e.ID, Entity: &published})
	}
	s.mu.Unlock()

	s.observer.OnPut(s.name, e.ID, time.Since(start))
	return e
}

// Delete removes the entity stored under id. Deleting a missing ID is a
// no-op; the result reports whether anything was removed.
func (s *Store) Delete(id int64) bool {
	start := time.Now()

	s.mu.Lock()
	_, ok := s.items[id]
	if ok {
		delete(s.items, id)
		s.publish(Event{Type: EventDelete, ID: id})
	}
	s.mu.Unlock()

	s.observer.OnDelete(s.name, id, ok, time.Since(start))
	return ok
}

// Count returns the number of stored entities.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Reset restores the store to its seed data and returns the new item count.
func (s *Store) Reset() int {
	start := time.Now()

	s.mu.Lock()
	s.items = seedItems(s.seed)
	count := len(s.items)
	s.publish(Event{Type: EventReset, Count: count})
	s.mu.Unlock()

	s.observer.OnReset(s.name, count, time.Since(start))
	return count
}

// Clear removes all items without restoring seed data and returns how many
// were removed.
func (s *Store) Clear() int {
	start := time.Now()

	s.mu.Lock()
	removed := len(s.items)
	s.items = make(map[int64]Entity)
	s.publish(Event{Type: EventReset})
	s.mu.Unlock()

	s.observer.OnReset(s.name, 0, time.Since(start))
	return removed
}

// Load replaces the seed data and resets the store to it. Seed entities
// must have unique IDs.
func (s *Store) Load(seed []Entity) error {
	seen := make(map[int64]int, len(seed))
	for i, e := range seed {
		if prev, dup := seen[e.ID]; dup {
			err := fmt.Errorf("duplicate ID %d in seed data at index %d (first at %d)", e.ID, i, prev)
			s.observer.OnError(s.name, "load", err)
			return err
		}
		seen[e.ID] = i
	}

	s.mu.Lock()
	s.seed = cloneAll(seed)
	s.mu.Unlock()

	s.Reset()
	return nil
}

// SeedCount returns the number of seed entities.
func (s *Store) SeedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seed)
}

// Query returns the page of entities selected by q. A nil query returns the
// full collection as a single page.
func (s *Store) Query(q *Query) (*Page, error) {
	start := time.Now()
	page, err := q.Apply(s.sorted())
	if err != nil {
		s.observer.OnError(s.name, "query", err)
		return nil, err
	}
	s.observer.OnList(s.name, len(page.Items), time.Since(start))
	return page, nil
}

// sorted copies the items out under the read lock, ordered by ID.
func (s *Store) sorted() []Entity {
	s.mu.RLock()
	items := make([]Entity, 0, len(s.items))
	for _, e := range s.items {
		items = append(items, e.Clone())
	}
	s.mu.RUnlock()

	slices.SortFunc(items, func(a, b Entity) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return items
}

// publish sends ev to the feed, if any. Callers hold s.mu so that events
// reach subscribers in commit order; Feed.Publish never blocks.
func (s *Store) publish(ev Event) {
	if s.feed != nil {
		s.feed.Publish(ev)
	}
}

func seedItems(seed []Entity) map[int64]Entity {
	items := make(map[int64]Entity, len(seed))
	for _, e := range seed {
		items[e.ID] = e.Clone()
	}
	return items
}

func cloneAll(in []Entity) []Entity {
	out := make([]Entity, len(in))
	for i, e := range in {
		out[i] = e.Clone()
	}
	return out
}
