package memory

import (
	"context"
	"sync"
	"time"

	"github.com/vbonduro/roastmail/internal/session"
)

type entry struct {
	state   session.ViewState
	expires time.Time
}

// MemoryStore keeps sessions in process. Entries expire ttl after their last
// write; a zero ttl keeps them forever.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (m *MemoryStore) Create(_ context.Context, v session.ViewState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweep()
	m.entries[v.ID] = m.wrap(v)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (session.ViewState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.lookup(id)
	if !ok {
		return session.ViewState{}, session.ErrNotFound
	}
	return e.state, nil
}

func (m *MemoryStore) Update(_ context.Context, id string, fn func(session.ViewState) (session.ViewState, error)) (session.ViewState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.lookup(id)
	if !ok {
		return session.ViewState{}, session.ErrNotFound
	}
	next, err := fn(e.state)
	if err != nil {
		return e.state, err
	}
	next.ID = id
	m.entries[id] = m.wrap(next)
	return next, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}

// Len reports the number of live sessions.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweep()
	return len(m.entries)
}

func (m *MemoryStore) wrap(v session.ViewState) entry {
	e := entry{state: v}
	if m.ttl > 0 {
		e.expires = m.now().Add(m.ttl)
	}
	return e
}

// lookup must be called with mu held.
func (m *MemoryStore) lookup(id string) (entry, bool) {
	e, ok := m.entries[id]
	if !ok {
		return entry{}, false
	}
	if !e.expires.IsZero() && !m.now().Before(e.expires) {
		delete(m.entries, id)
		return entry{}, false
	}
	return e, true
}

// sweep drops expired entries. Must be called with mu held.
func (m *MemoryStore) sweep() {
	if m.ttl <= 0 {
		return
	}
	now := m.now()
	for id, e := range m.entries {
		if !now.Before(e.expires) {
			delete(m.entries, id)
		}
	}
}
