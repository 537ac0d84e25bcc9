// Package ratelimit provides a sliding-window request throttle keyed by
// logical action name. It is used to bound spend on paid AI APIs.
package ratelimit

import (
	"sync"
	"time"
)

// Action keys used across the application. Each key gets an independent
// window.
const (
	// KeySpeechSynthesis throttles the paid text-to-speech provider.
	KeySpeechSynthesis = "speech_synthesis"
	// KeyCategorySuggestion throttles free-text category suggestions.
	KeyCategorySuggestion = "category_suggestion"
)

// Default budgets for the action keys above.
const (
	SpeechSynthesisLimit     = 3
	SpeechSynthesisWindow    = 60 * time.Second
	CategorySuggestionLimit  = 5
	CategorySuggestionWindow = 10 * time.Second
)

// Limiter is a sliding-window rate limiter. Unlike a fixed bucket, only
// requests within the trailing window ending "now" count against the limit.
//
// Limiter instances are explicitly constructed and injected so tests can use
// independent instances instead of sharing process-wide state.
type Limiter struct {
	now     func() time.Time
	windows map[string][]time.Time
	mu      sync.Mutex
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the time source. Used by tests to advance virtual time.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New creates a Limiter with empty windows for all keys.
func New(opts ...Option) *Limiter {
	l := &Limiter{
		now:     time.Now,
		windows: make(map[string][]time.Time),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Check reports whether one more call under key is allowed right now.
// Timestamps older than the window are discarded first; if fewer than limit
// remain, the call is recorded and allowed. Check never fails: the answer is
// always a plain boolean.
func (l *Limiter) Check(key string, limit int, window time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-window)

	valid := l.windows[key][:0]
	for _, ts := range l.windows[key] {
		if ts.After(cutoff) {
			valid = append(valid, ts)
		}
	}

	if len(valid) >= limit {
		l.windows[key] = valid
		return false
	}

	l.windows[key] = append(valid, now)
	return true
}
