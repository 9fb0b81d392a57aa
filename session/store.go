package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned by a Store when no session exists for the
// given identifier.
var ErrNotFound = errors.New("session not found")

// Store is the server-side backing for session payloads. The redis
// client in the database package satisfies it in production; the
// in-memory implementation below backs tests.
type Store interface {
	SetSession(ctx context.Context, sessionID string, data []byte, ttl time.Duration) error
	GetSession(ctx context.Context, sessionID string) ([]byte, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryStore keeps sessions in a map. Used in tests and single-node
// development setups without redis.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) SetSession(_ context.Context, sessionID string, data []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	s.entries[sessionID] = memoryEntry{data: buf, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) GetSession(_ context.Context, sessionID string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[sessionID]
	if !ok || s.now().After(entry.expiresAt) {
		delete(s.entries, sessionID)
		return nil, ErrNotFound
	}
	return entry.data, nil
}

func (s *MemoryStore) DeleteSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, sessionID)
	return nil
}
