// internal/store/memory.go
//
// In-memory implementation of the Store interface.
// Holds live episodes for the HTTP and websocket surfaces.
//
// Characteristics:
//   - Episodes keyed by Episode.ID in a map guarded by an RWMutex.
//   - Each episode has its own mutex; Update serializes turns on one
//     episode without blocking other episodes.
//   - Get returns a snapshot copy, never the live value.
//   - Sweep drops episodes untouched for longer than a given idle time.
//   - State is lost when the process restarts.

package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robalobadob/connections/internal/game"
)

// ErrNotFound is returned for unknown episode IDs.
var ErrNotFound = errors.New("episode not found")

// Store defines the persistence interface for live episodes.
type Store interface {
	// Save adds or replaces an episode.
	Save(ctx context.Context, e *game.Episode) error

	// Get returns a snapshot of the episode.
	Get(ctx context.Context, id string) (*game.Episode, error)

	// Update runs fn with exclusive access to the live episode.
	Update(ctx context.Context, id string, fn func(e *game.Episode) error) error

	// Sweep removes episodes idle for longer than idle and returns their IDs.
	Sweep(ctx context.Context, idle time.Duration) []string
}

type entry struct {
	mu      sync.Mutex
	ep      *game.Episode
	touched time.Time // last Save or Update, guarded by mu
}

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu       sync.RWMutex      // guards episodes map
	episodes map[string]*entry // keyed by Episode.ID
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{episodes: make(map[string]*entry)}
}

func (m *memory) Save(ctx context.Context, e *game.Episode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.episodes[e.ID] = &entry{ep: e, touched: time.Now()}
	return nil
}

func (m *memory) Get(ctx context.Context, id string) (*game.Episode, error) {
	en, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	en.mu.Lock()
	defer en.mu.Unlock()
	return snapshot(en.ep), nil
}

func (m *memory) Update(ctx context.Context, id string, fn func(e *game.Episode) error) error {
	en, err := m.lookup(id)
	if err != nil {
		return err
	}
	en.mu.Lock()
	defer en.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	en.touched = time.Now()
	return fn(en.ep)
}

func (m *memory) Sweep(ctx context.Context, idle time.Duration) []string {
	cutoff := time.Now().Add(-idle)
	m.mu.Lock()
	defer m.mu.Unlock()
	var gone []string
	for id, en := range m.episodes {
		en.mu.Lock()
		stale := en.touched.Before(cutoff)
		en.mu.Unlock()
		if stale {
			delete(m.episodes, id)
			gone = append(gone, id)
		}
	}
	return gone
}

func (m *memory) lookup(id string) (*entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if en, ok := m.episodes[id]; ok {
		return en, nil
	}
	return nil, ErrNotFound
}

// snapshot copies the mutable slices; the puzzle is immutable and shared.
func snapshot(e *game.Episode) *game.Episode {
	cp := *e
	cp.State.RemainingWords = append([]string(nil), e.State.RemainingWords...)
	cp.State.FoundGroups = append([]game.FoundGroup{}, e.State.FoundGroups...)
	return &cp
}
