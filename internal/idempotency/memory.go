package idempotency

import (
	"context"
	"sync"
	"time"
)

type result struct {
	orderID string
	expires time.Time
}

// MemoryStore is an in-process Store. Locks expire after lockTTL so a crashed
// placement cannot wedge a token. Results expire after resultTTL, zero keeps
// them forever; expired entries are dropped whenever a result is recorded.
type MemoryStore struct {
	mu        sync.Mutex
	lockTTL   time.Duration
	resultTTL time.Duration
	now       func() time.Time
	locks     map[string]time.Time
	orders    map[string]result
}

// NewMemoryStore returns an empty store.
func NewMemoryStore(lockTTL, resultTTL time.Duration) *MemoryStore {
	return &MemoryStore{
		lockTTL:   lockTTL,
		resultTTL: resultTTL,
		now:       time.Now,
		locks:     make(map[string]time.Time),
		orders:    make(map[string]result),
	}
}

func (s *MemoryStore) TryLock(_ context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if expires, ok := s.locks[token]; ok && s.now().Before(expires) {
		return false, nil
	}
	s.locks[token] = s.now().Add(s.lockTTL)
	return true, nil
}

func (s *MemoryStore) Release(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.locks, token)
	return nil
}

func (s *MemoryStore) Remember(_ context.Context, token, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweep(now)

	r := result{orderID: orderID}
	if s.resultTTL > 0 {
		r.expires = now.Add(s.resultTTL)
	}
	s.orders[token] = r
	delete(s.locks, token)
	return nil
}

func (s *MemoryStore) Recall(_ context.Context, token string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.orders[token]
	if !ok {
		return "", false, nil
	}
	if r.expired(s.now()) {
		delete(s.orders, token)
		return "", false, nil
	}
	return r.orderID, true, nil
}

// sweep drops expired results and locks. Callers hold s.mu.
func (s *MemoryStore) sweep(now time.Time) {
	for token, r := range s.orders {
		if r.expired(now) {
			delete(s.orders, token)
		}
	}
	for token, expires := range s.locks {
		if !now.Before(expires) {
			delete(s.locks, token)
		}
	}
}

func (s *MemoryStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

func (r result) expired(now time.Time) bool {
	return !r.expires.IsZero() && !now.Before(r.expires)
}
