// Package session keeps per-user view toggles between requests. The HTTP layer
// owns this state and turns it into filter criteria; the recipe services never
// see it.
package session

import (
	"context"
	"sync"
)

type View struct {
	FavoritesOnly bool   `json:"favorites_only"`
	VeganOnly     bool   `json:"vegan_only"`
	SelectedID    string `json:"selected_id,omitempty"`
}

type Store interface {
	// Get returns the zero View for users without stored state.
	Get(ctx context.Context, username string) (View, error)
	Save(ctx context.Context, username string, view View) error
	Clear(ctx context.Context, username string) error
	Close() error
}

type memoryStore struct {
	mu    sync.Mutex
	views map[string]View
}

func NewMemoryStore() Store {
	return &memoryStore{views: make(map[string]View)}
}

func (s *memoryStore) Get(_ context.Context, username string) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.views[username], nil
}

func (s *memoryStore) Save(_ context.Context, username string, view View) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.views[username] = view
	return nil
}

func (s *memoryStore) Clear(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.views, username)
	return nil
}

func (s *memoryStore) Close() error { return nil }
