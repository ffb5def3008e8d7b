package cache

import (
	"context"
	"sync"
	"time"

	"github.com/storebridge/backend/internal/domain/shared"
)

// InMemoryLockService implements shared.LockService with process-local
// state. Single-process deployments and tests use it in place of Redis.
type InMemoryLockService struct {
	mu      sync.Mutex
	entries map[string]entry
	sets    map[string]map[string]struct{}
	now     func() time.Time
}

type entry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

// NewInMemoryLockService creates an empty in-memory lock service
func NewInMemoryLockService() *InMemoryLockService {
	return &InMemoryLockService{
		entries: make(map[string]entry),
		sets:    make(map[string]map[string]struct{}),
		now:     time.Now,
	}
}

// SetIfAbsent atomically sets key with a TTL, returning true when newly set
func (s *InMemoryLockService) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.alive(key) {
		return false, nil
	}
	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	s.entries[key] = e
	return true, nil
}

// Exists reports whether key is currently set
func (s *InMemoryLockService) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alive(key), nil
}

// Delete removes key
func (s *InMemoryLockService) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// AddToSet adds member to the set stored at setKey
func (s *InMemoryLockService) AddToSet(ctx context.Context, setKey, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sets[setKey] == nil {
		s.sets[setKey] = make(map[string]struct{})
	}
	s.sets[setKey][member] = struct{}{}
	return nil
}

// RemoveFromSet removes member from the set stored at setKey
func (s *InMemoryLockService) RemoveFromSet(ctx context.Context, setKey, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sets[setKey], member)
	return nil
}

// SetMembers returns all members of the set stored at setKey
func (s *InMemoryLockService) SetMembers(ctx context.Context, setKey string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	members := make([]string, 0, len(s.sets[setKey]))
	for member := range s.sets[setKey] {
		members = append(members, member)
	}
	return members, nil
}

// Close is a no-op
func (s *InMemoryLockService) Close() error {
	return nil
}

// alive reports whether key exists and has not expired; expired entries are
// reaped lazily. Caller holds the mutex.
func (s *InMemoryLockService) alive(key string) bool {
	e, ok := s.entries[key]
	if !ok {
		return false
	}
	if !e.expiresAt.IsZero() && s.now().After(e.expiresAt) {
		delete(s.entries, key)
		return false
	}
	return true
}

var _ shared.LockService = (*InMemoryLockService)(nil)
