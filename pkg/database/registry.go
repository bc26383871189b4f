package database

import (
	"fmt"
	"sync"

	"github.com/hww/data-terminal/pkg/apperrors"
)

// ConfigKey is the fixed registry key for the config store holding project
// metadata. Tenant stores use keys derived with TenantKey.
const ConfigKey = "config"

// TenantKey derives the registry key (and physical database name) for a
// project's isolated store.
func TenantKey(prefix, projectCode string) string {
	return fmt.Sprintf("%s_%s", prefix, projectCode)
}

// Registry maps tenant keys to live connection pools. It is the only
// process-wide shared mutable structure: reads vastly outnumber writes, so
// it is guarded by an RWMutex. A concurrent Resolve never observes a
// partially-inserted pool; registration races on the same key are resolved
// first-writer-wins.
type Registry struct {
	mu    sync.RWMutex
	pools map[string]*DB
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{pools: make(map[string]*DB)}
}

// Register adds a pool for a tenant key. The first registration for a key
// wins; later registrations for the same key are no-ops and the extra pool
// is reported back to the caller via the returned bool so it can be closed.
func (r *Registry) Register(key string, db *DB) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.pools[key]; exists {
		return false
	}
	r.pools[key] = db
	return true
}

// Resolve returns the pool for a tenant key. Calling Resolve for a key that
// was never registered is a hard error, never a silent default.
func (r *Registry) Resolve(key string) (*DB, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	db, ok := r.pools[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrTenantNotProvisioned, key)
	}
	return db, nil
}

// Has reports whether a pool is registered for the key.
func (r *Registry) Has(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.pools[key]
	return ok
}

// Keys returns the currently registered tenant keys.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.pools))
	for k := range r.pools {
		keys = append(keys, k)
	}
	return keys
}

// Close closes every registered pool and empties the registry.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, db := range r.pools {
		db.Close()
		delete(r.pools, key)
	}
}
