package service

import (
	"errors"
	"sync"
	"time"
)

var ErrRateLimitExceeded = errors.New("rate limit exceeded")

// IntakeLimiter caps job submissions per client per minute
type IntakeLimiter struct {
	mu sync.Mutex

	maxSubmissionsPerMinute int
	submissionWindows       map[string]*submissionWindow
	now                     func() time.Time
}

type submissionWindow struct {
	count     int
	windowEnd time.Time
}

// NewIntakeLimiter creates a limiter. A non-positive max disables limiting.
func NewIntakeLimiter(maxSubmissionsPerMinute int) *IntakeLimiter {
	return &IntakeLimiter{
		maxSubmissionsPerMinute: maxSubmissionsPerMinute,
		submissionWindows:       make(map[string]*submissionWindow),
		now:                     time.Now,
	}
}

// Allow records one submission for client or returns ErrRateLimitExceeded
func (l *IntakeLimiter) Allow(client string) error {
	if l.maxSubmissionsPerMinute <= 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	window, exists := l.submissionWindows[client]

	if !exists || now.After(window.windowEnd) {
		l.submissionWindows[client] = &submissionWindow{
			count:     1,
			windowEnd: now.Add(1 * time.Minute),
		}
		return nil
	}

	if window.count >= l.maxSubmissionsPerMinute {
		return ErrRateLimitExceeded
	}

	window.count++
	return nil
}
