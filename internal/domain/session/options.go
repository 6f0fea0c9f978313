package session

import "time"

// Option applies a configuration option to the in-memory store.
type Option func(*inMemoryStore)

// WithMaxSize bounds the number of live sessions.
// If maxSize > 0: bounded mode, the oldest session is evicted when full.
// If maxSize <= 0: unbounded mode.
func WithMaxSize(maxSize int) Option {
	return func(s *inMemoryStore) {
		s.maxSize = maxSize
	}
}

// WithTTL expires sessions that have been idle for longer than ttl.
// Zero or negative disables expiry.
func WithTTL(ttl time.Duration) Option {
	return func(s *inMemoryStore) {
		s.ttl = ttl
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *inMemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithTokenSource overrides token generation.
func WithTokenSource(next func() string) Option {
	return func(s *inMemoryStore) {
		if next != nil {
			s.token = next
		}
	}
}
