package migrate

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Registry holds migrations keyed by target version.
type Registry struct {
	mu         sync.RWMutex
	migrations map[int]Migration
}

func NewRegistry() *Registry {
	return &Registry{migrations: make(map[int]Migration)}
}

// Register adds a migration. Versions start at 1 and may be registered in any order.
func (r *Registry) Register(m Migration) error {
	if m.Version <= 0 {
		return errors.New("migrate: version must be positive")
	}
	if len(m.Steps) == 0 {
		return fmt.Errorf("migrate: version %d has no steps", m.Version)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.migrations[m.Version]; exists {
		return fmt.Errorf("%w: %d", ErrDuplicateVersion, m.Version)
	}
	r.migrations[m.Version] = m
	return nil
}

// MustRegister panics on registration errors; used from init functions.
func (r *Registry) MustRegister(m Migration) {
	if err := r.Register(m); err != nil {
		panic(err)
	}
}

// List returns the registered migrations ordered by version.
func (r *Registry) List() []Migration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Migration, 0, len(r.migrations))
	for _, m := range r.migrations {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out
}

// Get returns the migration that produces version v.
func (r *Registry) Get(v int) (Migration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.migrations[v]
	return m, ok
}

// Latest is the highest registered version, 0 when empty.
func (r *Registry) Latest() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	latest := 0
	for v := range r.migrations {
		if v > latest {
			latest = v
		}
	}
	return latest
}

// PathFrom returns the migrations from current+1 to Latest, or false when one is missing.
func (r *Registry) PathFrom(current int) ([]Migration, bool) {
	latest := r.Latest()
	if current > latest {
		return nil, false
	}
	path := make([]Migration, 0, latest-current)
	for v := current + 1; v <= latest; v++ {
		m, ok := r.Get(v)
		if !ok {
			return nil, false
		}
		path = append(path, m)
	}
	return path, true
}
