package repository

import (
	"time"

	"github.com/okian/phonoecho/pkg/logger"
)

// Option applies a configuration option to the FileRepository.
type Option func(*FileRepository)

// WithBcryptCost sets the password hashing cost.
func WithBcryptCost(cost int) Option {
	return func(r *FileRepository) {
		if cost > 0 {
			r.bcryptCost = cost
		}
	}
}

// WithClock replaces time.Now; the practice day and artifact timestamps derive from it.
func WithClock(now func() time.Time) Option {
	return func(r *FileRepository) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLogger sets the repository logger.
func WithLogger(l logger.Logger) Option {
	return func(r *FileRepository) {
		if l != nil {
			r.log = l
		}
	}
}
