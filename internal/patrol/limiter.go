package patrol

import (
	"sync"
)

// Limiter ensures that only one patrol per target is running at any given time.
type Limiter struct {
	mu      sync.Mutex
	running map[string]struct{}
}

func NewLimiter() *Limiter {
	return &Limiter{
		running: make(map[string]struct{}),
	}
}

// Acquire attempts to acquire a lock for the target.
// It returns false if another patrol of the same target is in flight.
func (l *Limiter) Acquire(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.running[id]; exists {
		return false
	}
	l.running[id] = struct{}{}
	return true
}

// Release releases the lock for the target.
func (l *Limiter) Release(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.running, id)
}
