// Package cssregistry holds the most recently compiled CSS text for each
// style scope.
//
// The registry is the single source of truth for "what CSS does this scope
// currently have". The transform pipeline overwrites entries on every
// successful compile; the virtual module resolver reads them on every
// request. Entries are never deleted; the registry lives as long as the
// plugin instance that owns it.
//
// A Store is an explicit owned object passed by reference to both
// collaborators, not an ambient singleton, so tests can run independent
// instances side by side.
package cssregistry

import "sync"

// Store maps flat scope ids to CSS text. Safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	entries map[string]string

	// onResize, when set, observes the entry count after every Set.
	onResize func(n int)
}

// New creates an empty store.
func New() *Store {
	return &Store{
		entries: make(map[string]string),
	}
}

// OnResize registers an observer of the entry count, called after every
// Set that grows the store. Used for gauge instrumentation.
func (s *Store) OnResize(fn func(n int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onResize = fn
}

// Set unconditionally overwrites the CSS for a scope id.
func (s *Store) Set(id, css string) {
	s.mu.Lock()
	_, existed := s.entries[id]
	s.entries[id] = css
	fn, n := s.onResize, len(s.entries)
	s.mu.Unlock()

	if !existed && fn != nil {
		fn(n)
	}
}

// Get returns the current CSS for a scope id.
func (s *Store) Get(id string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	css, ok := s.entries[id]
	return css, ok
}

// Has reports whether the store holds CSS for a scope id.
func (s *Store) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[id]
	return ok
}

// Len returns the number of registered scopes.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// IDs returns a snapshot of all registered scope ids.
// Order is unspecified.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	return ids
}
