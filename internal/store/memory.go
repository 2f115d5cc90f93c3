// internal/store/memory.go
//
// In-memory registry of live sessions.
// The server keeps one entry per accepted connection from spawn until the
// session goroutine exits, which gives it a handle on outstanding work for
// capacity checks, drain at shutdown, and the status API.
//
// Characteristics:
//   - Entries are stored by value; callers never share memory with the map.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - Errors are returned for missing session IDs on Get().

package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrNotFound is returned by Get for unknown session IDs.
var ErrNotFound = errors.New("not found")

// Session describes one live connection. It never carries the target word.
type Session struct {
	ID        string    `json:"id"`
	Remote    string    `json:"remote"`
	State     string    `json:"state"`
	Guesses   int       `json:"guesses"`
	StartedAt time.Time `json:"startedAt"`
}

// Store tracks live sessions.
type Store interface {
	// Save adds or updates a session.
	Save(ctx context.Context, s Session) error

	// Get retrieves a session by ID.
	Get(ctx context.Context, id string) (Session, error)

	// Delete forgets a session; unknown IDs are ignored.
	Delete(ctx context.Context, id string) error

	// List returns all sessions, oldest first.
	List(ctx context.Context) ([]Session, error)

	// Len returns the number of live sessions.
	Len() int
}

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu       sync.RWMutex       // guards sessions map
	sessions map[string]Session // keyed by Session.ID
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{sessions: make(map[string]Session)}
}

func (m *memory) Save(ctx context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *memory) Get(ctx context.Context, id string) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	return Session{}, ErrNotFound
}

func (m *memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *memory) List(ctx context.Context) ([]Session, error) {
	m.mu.RLock()
	out := make([]Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}

func (m *memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
