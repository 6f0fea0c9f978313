// Package types contains the request and response shapes shared by the
// service and the HTTP API.
package types

import (
	"time"

	"github.com/okian/phonoecho/internal/domain/assessment"
	"github.com/okian/phonoecho/internal/domain/scoring"
	"github.com/okian/phonoecho/internal/domain/visual"
)

// Credentials is the body of register and login requests.
type Credentials struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// LessonInfo is one entry of the lesson picker.
type LessonInfo struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
}

// LessonDetail is a lesson with its reference text.
type LessonDetail struct {
	LessonInfo
	Text     string `json:"text"`
	VideoURL string `json:"video_url"`
}

// Charts bundles every visualization of one attempt.
type Charts struct {
	Radar     visual.RadarChart    `json:"radar"`
	Waveform  visual.WaveformChart `json:"waveform"`
	Current   visual.DoughnutChart `json:"current"`
	Total     visual.DoughnutChart `json:"total"`
	Syllables string               `json:"syllables"`
}

// AttemptOutcome is the response to a submitted recording.
type AttemptOutcome struct {
	ID          string            `json:"id"`
	Lesson      int               `json:"lesson"`
	Attempt     int               `json:"attempt"`
	Scores      assessment.Scores `json:"scores"`
	Errors      scoring.Buckets   `json:"errors"`
	ErrorDetail string            `json:"error_detail"`
	Celebrate   bool              `json:"celebrate"`
	// Persisted is false when the score files could not be written; the
	// attempt still counts for the rest of the session.
	Persisted  bool      `json:"persisted"`
	RecordedAt time.Time `json:"recorded_at"`
	Charts     Charts    `json:"charts"`
	Summary    Summary   `json:"summary"`
}

// Summary is the per-lesson progress view.
type Summary struct {
	Lesson      int                   `json:"lesson"`
	Name        string                `json:"name"`
	Empty       bool                  `json:"empty"`
	Message     string                `json:"message,omitempty"`
	Progress    *scoring.Progress     `json:"progress,omitempty"`
	Chart       *visual.ProgressChart `json:"chart,omitempty"`
	Current     visual.DoughnutChart  `json:"current"`
	Total       visual.DoughnutChart  `json:"total"`
	WeakWords   []scoring.WordCount   `json:"weak_words"`
	Suggestions []string              `json:"suggestions"`
}

// FeedbackFrame is one message on the feedback stream.
type FeedbackFrame struct {
	// Type is "summary", "chunk", "done" or "warning".
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Feedback frame types.
const (
	FrameSummary = "summary"
	FrameChunk   = "chunk"
	FrameDone    = "done"
	FrameWarning = "warning"
)
