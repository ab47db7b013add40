package ingest

// limiter.go implements concurrency control for parse processing.
//
// The limiter uses a semaphore pattern to restrict parallel parses to a
// configurable maximum, preventing memory exhaustion when many large files
// arrive at once. When all slots are occupied, new requests wait up to
// maxWait before failing with ErrTooManyParses.
//
// The limiter also supports graceful shutdown via WaitForDrain, which
// blocks until all active parses complete. Drain waiters are woken by the
// Release call that empties the limiter rather than by polling.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyParses is returned when all parse slots are occupied and the
// wait timeout expires. Clients should retry after a short delay.
var ErrTooManyParses = errors.New("too many concurrent parses, please try again later")

// DefaultMaxConcurrentParses is the default limit for parallel parses.
const DefaultMaxConcurrentParses = 5

// DefaultMaxWaitTime is how long to wait for a slot before rejecting.
const DefaultMaxWaitTime = 30 * time.Second

// ParseLimiter controls concurrent parse processing using a semaphore
// pattern.
type ParseLimiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu      sync.Mutex
	active  int
	waiters []chan struct{}
}

// NewParseLimiter creates a limiter that allows at most maxConcurrent
// simultaneous parses. Requests that cannot acquire a slot within maxWait
// receive ErrTooManyParses.
func NewParseLimiter(maxConcurrent int, maxWait time.Duration) *ParseLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentParses
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}
	return &ParseLimiter{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
	}
}

// Acquire attempts to acquire a parse slot. Returns nil on success,
// ErrTooManyParses if the timeout expires. The caller MUST call Release
// when the parse completes (use defer).
func (l *ParseLimiter) Acquire(ctx context.Context) error {
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
		return ErrTooManyParses

	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryAcquire attempts to acquire a slot without blocking.
func (l *ParseLimiter) TryAcquire() bool {
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

// Release releases a previously acquired slot. Must be called exactly once
// for each successful Acquire/TryAcquire. The release that brings the
// active count to zero wakes every drain waiter.
func (l *ParseLimiter) Release() {
	l.mu.Lock()
	l.active--
	if l.active == 0 {
		for _, ch := range l.waiters {
			close(ch)
		}
		l.waiters = nil
	}
	l.mu.Unlock()

	<-l.semaphore
}

// ActiveCount returns the number of currently active parses.
func (l *ParseLimiter) ActiveCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// MaxConcurrent returns the maximum allowed concurrent parses.
func (l *ParseLimiter) MaxConcurrent() int {
	return cap(l.semaphore)
}

// Available returns the number of available slots.
func (l *ParseLimiter) Available() int {
	return cap(l.semaphore) - len(l.semaphore)
}

// WaitForDrain blocks until all active parses complete or the context is
// cancelled. Used for graceful shutdown. Returns immediately when the
// limiter is already idle.
func (l *ParseLimiter) WaitForDrain(ctx context.Context) error {
	l.mu.Lock()
	if l.active == 0 {
		l.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	l.waiters = append(l.waiters, ch)
	l.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ch:
		return nil
	}
}
