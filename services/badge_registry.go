package services

import (
	"context"
	"sort"
	"sync"

	"virtual-campus/models"
	"virtual-campus/storage"
)

// BadgeRegistry hands out one loaded BadgeStore per scope so that concurrent
// requests for the same user share a single working copy.
type BadgeRegistry struct {
	KV      storage.KV
	Catalog *models.Catalog

	opts   []BadgeStoreOption
	mu     sync.Mutex
	stores map[string]*BadgeStore
}

func NewBadgeRegistry(kv storage.KV, catalog *models.Catalog, opts ...BadgeStoreOption) *BadgeRegistry {
	return &BadgeRegistry{
		KV:      kv,
		Catalog: catalog,
		opts:    opts,
		stores:  make(map[string]*BadgeStore),
	}
}

// Store returns the store for scope, loading it on first use. The store is
// always usable; a non-nil error is the *PersistenceError of the read. A store
// whose read failed is read again on the next call.
//
// Only the map lookup holds the registry lock. The read itself runs under the
// store's own lock, so concurrent first calls for one scope share a single
// read and a slow scope does not hold up the others.
func (r *BadgeRegistry) Store(ctx context.Context, scope string) (*BadgeStore, error) {
	r.mu.Lock()
	store, ok := r.stores[scope]
	if !ok {
		store = NewBadgeStore(r.KV, r.Catalog, scope, r.opts...)
		r.stores[scope] = store
	}
	r.mu.Unlock()

	return store, store.EnsureLoaded(ctx)
}

// Scopes lists the loaded scopes, sorted.
func (r *BadgeRegistry) Scopes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	scopes := make([]string, 0, len(r.stores))
	for scope := range r.stores {
		scopes = append(scopes, scope)
	}
	sort.Strings(scopes)
	return scopes
}

// Forget drops the cached store so the next Store call reloads from storage.
func (r *BadgeRegistry) Forget(scope string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.stores, scope)
}
