// Package entity provides the in-memory entity collection served by entityd.
//
// An Entity is a record identified by an integer ID plus arbitrary payload
// fields. A Store owns the mapping from ID to Entity and supports four core
// operations:
//
//   - Get: look up a single entity by ID
//   - List: return every stored entity
//   - Put: insert or overwrite the entity keyed by its ID
//   - Delete: remove an entity (a missing ID is not an error)
//
// Thread Safety:
//
// Every Store operation takes the store's sync.RWMutex, so a single Store can
// be shared by concurrent HTTP requests. Reads proceed concurrently; writes are
// serialized.
//
// Store Scope:
//
// A Provider decides which Store a request sees. In ScopeSingleton every
// request shares one Store. In ScopeRequest each request gets a fresh Store
// loaded from the seed data, and its writes are discarded afterwards.
//
// Usage:
//
//	store := entity.NewStore("entities")
//	store.Put(entity.New(1, map[string]any{"name": "a"}))
//	e, ok := store.Get(1)
//	page, err := store.Query(&entity.Query{Page: 1, PageSize: 20})
//	store.Delete(1)
package entity
