package service

import (
	"time"

	"github.com/okian/phonoecho/internal/adapters/repository"
	"github.com/okian/phonoecho/internal/domain/session"
	"github.com/okian/phonoecho/internal/i18n"
	"github.com/okian/phonoecho/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithRepository sets the file repository of users and history.
func WithRepository(r *repository.FileRepository) Option {
	return func(s *Service) {
		s.repo = r
	}
}

// WithAssessor sets the pronunciation assessment client. Without one,
// attempts are rejected with ErrAssessmentUnavailable.
func WithAssessor(a Assessor) Option {
	return func(s *Service) {
		s.assessor = a
	}
}

// WithCoach sets the coaching client.
func WithCoach(c Coach) Option {
	return func(s *Service) {
		s.coach = c
	}
}

// WithAttemptLog enables the asynchronous attempt audit log.
func WithAttemptLog(l AttemptLog) Option {
	return func(s *Service) {
		s.attempts = l
	}
}

// WithSessions sets the session table.
func WithSessions(st session.Store) Option {
	return func(s *Service) {
		s.sessions = st
	}
}

// WithTranslator sets the message catalog used for labels and messages.
func WithTranslator(tr *i18n.Translator) Option {
	return func(s *Service) {
		s.tr = tr
	}
}

// WithSampleRate sets the rate recordings are resampled to.
func WithSampleRate(rate int) Option {
	return func(s *Service) {
		if rate > 0 {
			s.sampleRate = rate
		}
	}
}

// WithCelebrationScore sets the PronScore at which an attempt is celebrated.
func WithCelebrationScore(score float64) Option {
	return func(s *Service) {
		s.celebrationScore = score
	}
}

// WithQueueSize sets the capacity of the audit queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithWorkerCount sets the number of audit writers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
