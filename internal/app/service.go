// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/phonoecho/internal/adapters/dataset"
	"github.com/okian/phonoecho/internal/adapters/feedback"
	auditqueue "github.com/okian/phonoecho/internal/adapters/mq/queue"
	workerpool "github.com/okian/phonoecho/internal/adapters/mq/worker"
	"github.com/okian/phonoecho/internal/adapters/repository"
	"github.com/okian/phonoecho/internal/domain/assessment"
	"github.com/okian/phonoecho/internal/domain/model"
	"github.com/okian/phonoecho/internal/domain/scoring"
	"github.com/okian/phonoecho/internal/domain/session"
	"github.com/okian/phonoecho/internal/domain/types"
	"github.com/okian/phonoecho/internal/i18n"
	"github.com/okian/phonoecho/pkg/logger"
	"github.com/okian/phonoecho/pkg/metrics"
)

const (
	defaultLanguage         = "ja"
	defaultSampleRate       = 16000
	defaultCelebrationScore = 90
	defaultQueueSize        = 1024
	defaultWorkerCount      = 2
	weakWordCount           = 5
	historyDayLayout        = "2006-01-02"
)

// Assessor scores a recording against a reference text. It returns the
// parsed result and the raw response body.
type Assessor interface {
	Assess(ctx context.Context, wav []byte, referenceText string) (*assessment.Result, []byte, error)
}

// Coach turns error buckets into coaching text.
type Coach interface {
	Summary(b scoring.Buckets) (string, bool)
	Stream(ctx context.Context, b scoring.Buckets) (<-chan feedback.Chunk, error)
}

// AttemptLog is the append-only audit log of assessed attempts.
type AttemptLog interface {
	Append(ctx context.Context, rec model.AttemptRecord) error
	List(ctx context.Context, user string, lesson, limit int) ([]model.AttemptRecord, error)
}

// Service implements the API dependencies of the practice application.
type Service struct {
	mu sync.RWMutex

	// Core components
	repo     *repository.FileRepository
	assessor Assessor
	coach    Coach
	attempts AttemptLog
	sessions session.Store
	tr       *i18n.Translator

	// Audit pipeline, only built when an attempt log is configured.
	auditQueue auditqueue.Queue
	workerPool *workerpool.Pool

	// Configuration
	sampleRate       int
	celebrationScore float64
	queueSize        int
	workerCount      int
	now              func() time.Time

	// State
	started bool

	// Logging
	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		sampleRate:       defaultSampleRate,
		celebrationScore: defaultCelebrationScore,
		queueSize:        defaultQueueSize,
		workerCount:      defaultWorkerCount,
		now:              time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.repo == nil {
		return errors.New("service: repository is required")
	}
	if s.tr == nil {
		tr, err := i18n.New(defaultLanguage)
		if err != nil {
			return err
		}
		s.tr = tr
	}
	if s.sessions == nil {
		s.sessions = session.NewInMemoryStore()
	}

	s.logger.Info(ctx, "starting practice service...")

	if s.attempts != nil {
		s.auditQueue = auditqueue.NewInMemoryQueue(auditqueue.WithCapacity(s.queueSize))
		s.workerPool = workerpool.NewPool(s.workerCount, s.auditQueue, s.attempts)
		s.workerPool.Start(ctx)
	}

	s.started = true
	s.logger.Info(ctx, "practice service started",
		logger.Bool("assessment", s.assessor != nil),
		logger.Bool("coaching", s.coach != nil),
		logger.Bool("audit", s.attempts != nil),
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
	)
	return nil
}

// Stop drains the audit queue and marks the service stopped.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(ctx, "stopping practice service...")

	if s.workerPool != nil {
		if err := s.workerPool.Shutdown(ctx); err != nil {
			s.logger.Warn(ctx, "audit workers did not drain", logger.Error(err))
		}
		s.workerPool = nil
		s.auditQueue = nil
	}

	s.started = false
	s.logger.Info(ctx, "practice service stopped")
}

// Register creates an account.
func (s *Service) Register(ctx context.Context, c types.Credentials) (model.User, error) {
	u, err := s.repo.Register(ctx, c.Name, c.Password)
	if err != nil {
		return model.User{}, err
	}
	metrics.RecordRegistration()
	return u, nil
}

// Login verifies credentials and opens a session. The returned token
// identifies the session in later calls.
func (s *Service) Login(ctx context.Context, c types.Credentials) (string, model.User, error) {
	u, err := s.repo.Authenticate(ctx, c.Name, c.Password)
	if err != nil {
		metrics.RecordLogin("failure")
		return "", model.User{}, err
	}
	tracker := scoring.NewTracker(s.repo.History(u.Name), scoring.WithLogger(s.logger.Named("tracker")))
	token := s.sessions.Create(ctx, session.NewAppState(u.Name, tracker))
	metrics.RecordLogin("success")
	s.logger.Info(ctx, "user logged in", logger.String("user", u.Name))
	return token, u, nil
}

// Logout drops the session. Unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, token string) {
	s.sessions.Delete(ctx, token)
}

// ResetPassword replaces a user's password.
func (s *Service) ResetPassword(ctx context.Context, name, password string) error {
	return s.repo.ResetPassword(ctx, name, password)
}

// Session resolves a token to its state.
func (s *Service) Session(ctx context.Context, token string) (*session.AppState, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}
	st, ok := s.sessions.Get(ctx, token)
	if !ok {
		return nil, ErrUnauthorized
	}
	return st, nil
}

// SweepSessions expires idle sessions and returns how many were dropped.
func (s *Service) SweepSessions(ctx context.Context) int {
	return s.sessions.Sweep(ctx)
}

func (s *Service) dataset(user string) (*dataset.Dataset, error) {
	return dataset.Load(s.repo.Layout().LearningDir(user))
}

func (s *Service) lesson(user string, index int) (model.Lesson, error) {
	d, err := s.dataset(user)
	if err != nil {
		return model.Lesson{}, err
	}
	return d.Lesson(index)
}

// Lessons lists the lessons of the session's user.
func (s *Service) Lessons(ctx context.Context, token string) ([]types.LessonInfo, error) {
	st, err := s.Session(ctx, token)
	if err != nil {
		return nil, err
	}
	d, err := s.dataset(st.User)
	if err != nil {
		return nil, err
	}
	out := make([]types.LessonInfo, d.Len())
	for i, l := range d.Lessons {
		out[i] = types.LessonInfo{Index: l.Index, Name: s.tr.LessonName(l.Index)}
	}
	return out, nil
}

// Lesson returns one lesson with its reference text.
func (s *Service) Lesson(ctx context.Context, token string, index int) (types.LessonDetail, error) {
	st, err := s.Session(ctx, token)
	if err != nil {
		return types.LessonDetail{}, err
	}
	l, err := s.lesson(st.User, index)
	if err != nil {
		return types.LessonDetail{}, err
	}
	text, err := l.Text()
	if err != nil {
		return types.LessonDetail{}, err
	}
	return types.LessonDetail{
		LessonInfo: types.LessonInfo{Index: index, Name: s.tr.LessonName(index)},
		Text:       text,
		VideoURL:   fmt.Sprintf("/api/lessons/%d/video", index),
	}, nil
}

// LessonVideo returns the path of a lesson's reference video.
func (s *Service) LessonVideo(ctx context.Context, token string, index int) (string, error) {
	st, err := s.Session(ctx, token)
	if err != nil {
		return "", err
	}
	l, err := s.lesson(st.User, index)
	if err != nil {
		return "", err
	}
	return l.VideoPath, nil
}

// SelectLesson makes index the session's current lesson, loading its
// persisted history, and returns its summary.
func (s *Service) SelectLesson(ctx context.Context, token string, index int) (types.Summary, error) {
	st, err := s.Session(ctx, token)
	if err != nil {
		return types.Summary{}, err
	}
	if _, err := s.lesson(st.User, index); err != nil {
		return types.Summary{}, err
	}
	var out types.Summary
	err = st.With(func(st *session.AppState) error {
		if err := s.selectLocked(ctx, st, index); err != nil {
			return err
		}
		out = s.summary(st, index)
		return nil
	})
	return out, err
}

func (s *Service) selectLocked(ctx context.Context, st *session.AppState, index int) error {
	if st.LessonIndex == index {
		return nil
	}
	if err := st.Tracker.Load(ctx, index); err != nil {
		return err
	}
	st.LessonIndex = index
	return nil
}

// Summary returns the progress view of a lesson.
func (s *Service) Summary(ctx context.Context, token string, index int) (types.Summary, error) {
	st, err := s.Session(ctx, token)
	if err != nil {
		return types.Summary{}, err
	}
	if _, err := s.lesson(st.User, index); err != nil {
		return types.Summary{}, err
	}
	var out types.Summary
	err = st.With(func(st *session.AppState) error {
		if err := s.selectLocked(ctx, st, index); err != nil {
			return err
		}
		out = s.summary(st, index)
		return nil
	})
	return out, err
}

// Attempts lists the audit log rows of a lesson, newest first.
func (s *Service) Attempts(ctx context.Context, token string, index, limit int) ([]model.AttemptRecord, error) {
	st, err := s.Session(ctx, token)
	if err != nil {
		return nil, err
	}
	if s.attempts == nil {
		return nil, ErrAuditDisabled
	}
	return s.attempts.List(ctx, st.User, index, limit)
}

// Translator exposes the active message catalog.
func (s *Service) Translator() *i18n.Translator { return s.tr }

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"assessment":  s.assessor != nil,
		"coaching":    s.coach != nil,
		"audit":       s.attempts != nil,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
	}

	if s.started {
		sessions := s.sessions.Size()
		stats["sessions"] = sessions
		metrics.UpdateActiveSessions(int(sessions))

		if s.auditQueue != nil {
			queueLen := s.auditQueue.Len(ctx)
			stats["queueLength"] = queueLen
			stats["auditWritten"] = s.workerPool.Written()
			metrics.UpdateAuditQueueSize(queueLen)
		}
	}

	return stats
}
