package core

// session_limiter.go bounds how many sessions parse or submit at once.
//
// Parsing a workbook and writing an import are the expensive steps of a
// session. The limiter is a semaphore: when every slot is taken, callers
// wait up to maxWait and then fail with ErrTooManySessions. WaitForDrain
// blocks shutdown until in-flight work finishes.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManySessions is returned when no work slot frees up in time, or
// when the service already holds its maximum number of sessions.
var ErrTooManySessions = errors.New("too many sessions in progress, please try again later")

const (
	// DefaultMaxConcurrentWork is the default number of parallel parse or submit calls.
	DefaultMaxConcurrentWork = 5

	// DefaultMaxWaitTime is how long to wait for a slot before rejecting.
	DefaultMaxWaitTime = 30 * time.Second
)

// SessionLimiter caps concurrent heavy session work.
type SessionLimiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu     sync.RWMutex
	active int
}

// NewSessionLimiter allows at most maxConcurrent simultaneous holders.
func NewSessionLimiter(maxConcurrent int, maxWait time.Duration) *SessionLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentWork
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}

	return &SessionLimiter{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
	}
}

// Acquire waits for a slot. The caller must Release it.
func (l *SessionLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil

	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManySessions
	}
}

// TryAcquire takes a slot without blocking.
func (l *SessionLimiter) TryAcquire() bool {
	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return true
	default:
		return false
	}
}

// Release frees a slot taken by Acquire or TryAcquire.
func (l *SessionLimiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()

	<-l.semaphore
}

// ActiveCount returns the number of held slots.
func (l *SessionLimiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// MaxConcurrent returns the slot count.
func (l *SessionLimiter) MaxConcurrent() int {
	return cap(l.semaphore)
}

// Available returns the number of free slots.
func (l *SessionLimiter) Available() int {
	return cap(l.semaphore) - len(l.semaphore)
}

// WaitForDrain blocks until no slot is held or ctx is done.
func (l *SessionLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// LimiterStatus is a snapshot of the limiter.
type LimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current limiter state for monitoring.
func (l *SessionLimiter) Status() LimiterStatus {
	return LimiterStatus{
		Active:        l.ActiveCount(),
		Available:     l.Available(),
		MaxConcurrent: cap(l.semaphore),
	}
}
