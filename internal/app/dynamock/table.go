package dynamock

import (
	"sort"
	"strings"
	"sync"
)

// Table is the in-memory route table. It is safe for concurrent use; lookups
// from in-flight requests may run while a registration mutates it.
type Table struct {
	mu    sync.RWMutex
	mocks map[string]Mock
}

func NewTable() *Table {
	return &Table{mocks: make(map[string]Mock)}
}

// Put inserts or overwrites the definition for the mock's route key.
// Last write wins.
func (t *Table) Put(m Mock) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mocks[m.Key()] = m
}

// Get looks up an exact (method, path) match. The arguments are canonicalized
// the same way registrations are, so "get"/"foo" finds "GET"/"/foo".
func (t *Table) Get(method, path string) (Mock, bool) {
	key := strings.ToUpper(method) + " " + NormalizePath(path)

	t.mu.RLock()
	defer t.mu.RUnlock()
	m, ok := t.mocks[key]
	return m, ok
}

// All returns every definition sorted by route key, the order the snapshot
// file is written in.
func (t *Table) All() []Mock {
	t.mu.RLock()
	defer t.mu.RUnlock()

	all := make([]Mock, 0, len(t.mocks))
	for _, m := range t.mocks {
		all = append(all, m)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].Key() < all[j].Key()
	})
	return all
}

// Route is one entry of the introspection listing. It deliberately omits the
// response body and headers.
type Route struct {
	Path   string `json:"path"`
	Method string `json:"method"`
	Status int    `json:"status"`
}

// Routes returns the introspection view of the table, sorted by route key.
func (t *Table) Routes() []Route {
	all := t.All()
	routes := make([]Route, 0, len(all))
	for _, m := range all {
		routes = append(routes, Route{Path: m.Path, Method: m.Method, Status: m.Status})
	}
	return routes
}
