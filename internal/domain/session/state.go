// Package session keeps per-login application state.
package session

import (
	"sync"
	"time"

	"github.com/okian/phonoecho/internal/domain/assessment"
	"github.com/okian/phonoecho/internal/domain/scoring"
)

// NoLesson is the LessonIndex of a session that has not picked a lesson.
const NoLesson = -1

// Learning is what the session remembers about its latest attempt.
type Learning struct {
	AttemptID string
	Lesson    int
	Scores    assessment.Scores
	Current   scoring.Buckets
	AudioPath string
	At        time.Time
	// Feedback is the last completed coaching message for the attempt.
	Feedback string
}

// AppState is the typed state of one logged-in browser session. Requests of
// the same session serialize through With.
type AppState struct {
	mu sync.Mutex

	User        string
	LessonIndex int
	Tracker     *scoring.Tracker
	// Learning is nil until the first attempt of the session.
	Learning *Learning
}

// NewAppState returns the state of a fresh login.
func NewAppState(user string, tracker *scoring.Tracker) *AppState {
	return &AppState{User: user, LessonIndex: NoLesson, Tracker: tracker}
}

// With runs fn while holding the session lock.
func (s *AppState) With(fn func(*AppState) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s)
}

// HasLesson reports whether a lesson is selected.
func (s *AppState) HasLesson() bool { return s.LessonIndex != NoLesson }
