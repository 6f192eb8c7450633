// Package snapshot defines the whole-collection persistence contract used by
// the in-memory registries: every mutation rewrites the full set.
package snapshot

import (
	"context"
	"errors"
	"sync"
)

// ErrAbsent is returned by Load when nothing has been persisted yet.
// Registries use it to decide whether to seed.
var ErrAbsent = errors.New("snapshot absent")

// Store loads and saves a full collection of T.
type Store[T any] interface {
	Load(ctx context.Context) ([]T, error)
	Save(ctx context.Context, items []T) error
}

// Memory is a Store held in memory. It is used by tests and as the backing
// store when persistence is disabled.
type Memory[T any] struct {
	mu      sync.Mutex
	items   []T
	present bool
	// SaveErr, when set, is returned by every Save.
	SaveErr error
	Saves   int
}

// NewMemory returns a Memory store that already holds items.
func NewMemory[T any](items ...T) *Memory[T] {
	return &Memory[T]{items: append([]T(nil), items...), present: len(items) > 0}
}

func (m *Memory[T]) Load(_ context.Context) ([]T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.present {
		return nil, ErrAbsent
	}
	return append([]T(nil), m.items...), nil
}

func (m *Memory[T]) Save(_ context.Context, items []T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.items = append([]T(nil), items...)
	m.present = true
	m.Saves++
	return nil
}

// Items returns the last saved collection.
func (m *Memory[T]) Items() []T {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]T(nil), m.items...)
}
