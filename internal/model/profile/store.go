package profile

import (
	"errors"

	"github.com/samber/lo"
)

var ErrProfileNotFound = errors.New("profile not found")

// Store exposes profile retrieval for handlers and services.
type Store interface {
	List() []Profile
	FindByID(id string) (Profile, bool)
}

// MemoryStore implements Store with an in-memory slice.
type MemoryStore struct {
	items []Profile
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied profiles.
func NewMemoryStore(items []Profile) *MemoryStore {
	return &MemoryStore{items: append([]Profile(nil), items...)}
}

// List returns the configured profiles.
func (s *MemoryStore) List() []Profile {
	return append([]Profile(nil), s.items...)
}

// FindByID looks up a profile by identifier.
func (s *MemoryStore) FindByID(id string) (Profile, bool) {
	return lo.Find(s.items, func(item Profile) bool {
		return item.ID == id
	})
}

// Available keeps only the profiles whose backend kind is served.
func Available(items []Profile, backends ...string) []Profile {
	return lo.Filter(items, func(item Profile, _ int) bool {
		return lo.Contains(backends, item.Backend)
	})
}
