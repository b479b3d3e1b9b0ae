package session

import (
	"context"
	"sync"
	"time"
)

// MemoryRepository is an in-memory Repository for tests. It mirrors the
// SQL repository's transition semantics, including the guarded
// active -> completed update and the one-active-session-per-user
// constraint. It is a test double, not a runtime fallback: production
// wiring always uses the SQL repository.
type MemoryRepository struct {
	mu       sync.Mutex
	sessions map[int64]*Session
	nextID   int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		sessions: make(map[int64]*Session),
		nextID:   1,
	}
}

func (m *MemoryRepository) Create(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.sessions {
		if existing.UserID == s.UserID && existing.Status == StatusActive {
			return ErrActiveSessionExists
		}
	}

	s.ID = m.nextID
	m.nextID++
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *MemoryRepository) GetByID(_ context.Context, id int64) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryRepository) GetActiveByUser(_ context.Context, userID int64) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.sessions {
		if s.UserID == userID && s.Status == StatusActive {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MemoryRepository) ListByUser(_ context.Context, userID int64) ([]*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*Session
	for _, s := range m.sessions {
		if s.UserID == userID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MemoryRepository) Complete(_ context.Context, id int64, checkOutTime time.Time, totalTime, totalCost int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	if s.Status != StatusActive {
		return ErrSessionNotActive
	}

	s.CheckOutTime = &checkOutTime
	s.TotalTime = &totalTime
	s.TotalCost = &totalCost
	s.Status = StatusCompleted
	return nil
}
