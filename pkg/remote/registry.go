package remote

import "sync"

// Registry is a small keyed store for client handles. Callers that used to
// lean on a module-level cached client hold one of these and pass it around
// explicitly instead.
type Registry[T any] struct {
	mu      sync.RWMutex
	entries map[string]T
}

// NewRegistry creates an empty registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{entries: make(map[string]T)}
}

// Put stores handle under key, replacing any previous entry.
func (r *Registry[T]) Put(key string, handle T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[key] = handle
}

// Get returns the handle stored under key.
func (r *Registry[T]) Get(key string) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	handle, ok := r.entries[key]
	return handle, ok
}

// Delete removes the entry under key, if present.
func (r *Registry[T]) Delete(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, key)
}

// Len returns the number of stored handles.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
