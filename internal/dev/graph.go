package dev

import "sync"

// Module is one cached entry in the graph: its serveable code and the
// Content-Type it is served with.
type Module struct {
	Code        string
	ContentType string
}

// Graph caches served modules by id. Transformed style files are keyed
// by URL path, virtual modules by their raw identifier. It implements
// the pipeline's ModuleGraph.
type Graph struct {
	mu      sync.RWMutex
	modules map[string]Module
}

// NewGraph creates an empty module graph.
func NewGraph() *Graph {
	return &Graph{modules: make(map[string]Module)}
}

// Get returns the cached module for id, if present.
func (g *Graph) Get(id string) (Module, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	m, ok := g.modules[id]
	return m, ok
}

// Put caches a module under id, replacing any previous entry.
func (g *Graph) Put(id string, m Module) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.modules[id] = m
}

// Invalidate drops the cached module for id so the next request
// recomputes it. It reports whether an entry was present.
func (g *Graph) Invalidate(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.modules[id]
	if ok {
		delete(g.modules, id)
	}
	return ok
}

// Len returns the number of cached modules.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.modules)
}
