package service

import (
	"sync"
)

// ShopperLocks serializes the operations of one shopper inside this process.
// Services that touch the same shopper documents must share one instance.
type ShopperLocks struct {
	mu    sync.Mutex
	locks map[string]*shopperLock
}

type shopperLock struct {
	mu   sync.Mutex
	refs int
}

// NewShopperLocks creates an empty lock table.
func NewShopperLocks() *ShopperLocks {
	return &ShopperLocks{locks: make(map[string]*shopperLock)}
}

// Lock acquires the shopper's mutex and returns its release function.
func (l *ShopperLocks) Lock(shopperID string) func() {
	l.mu.Lock()
	sl, ok := l.locks[shopperID]
	if !ok {
		sl = &shopperLock{}
		l.locks[shopperID] = sl
	}
	sl.refs++
	l.mu.Unlock()

	sl.mu.Lock()
	return func() {
		sl.mu.Unlock()
		l.mu.Lock()
		sl.refs--
		if sl.refs == 0 {
			delete(l.locks, shopperID)
		}
		l.mu.Unlock()
	}
}

func (l *ShopperLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
