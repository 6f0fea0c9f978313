// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// User is a registered learner. PasswordHash is a bcrypt hash; History lists
// practiced lessons in the order they were first practiced each day.
type User struct {
	Name         string   `json:"-"`
	PasswordHash string   `json:"password"`
	History      []string `json:"history"`
}

// Lesson pairs a reference text with a reference video. Index is the
// position in the sorted dataset and is what history is keyed by.
type Lesson struct {
	Index     int    `json:"index"`
	Name      string `json:"name"`
	TextPath  string `json:"-"`
	VideoPath string `json:"-"`
}

// LessonName is the display name of lesson i.
func LessonName(i int) string { return fmt.Sprintf("Lesson %d", i+1) }

// LessonKey is the key of lesson i in the per-day score files.
func LessonKey(i int) string { return fmt.Sprintf("lesson_%d", i) }

// Text reads the reference text.
func (l Lesson) Text() (string, error) {
	b, err := os.ReadFile(l.TextPath)
	if err != nil {
		return "", fmt.Errorf("read lesson text %s: %w", l.Name, err)
	}
	return strings.TrimSpace(string(b)), nil
}

// AttemptRecord is one row of the append-only attempt log.
type AttemptRecord struct {
	ID                string    `json:"id" yaml:"id"`
	User              string    `json:"user" yaml:"user"`
	Lesson            int       `json:"lesson" yaml:"lesson"`
	Attempt           int       `json:"attempt" yaml:"attempt"`
	AccuracyScore     float64   `json:"accuracy" yaml:"accuracy"`
	FluencyScore      float64   `json:"fluency" yaml:"fluency"`
	CompletenessScore float64   `json:"completeness" yaml:"completeness"`
	ProsodyScore      float64   `json:"prosody" yaml:"prosody"`
	PronScore         float64   `json:"pron" yaml:"pron"`
	ErrorCount        int       `json:"error_count" yaml:"error_count"`
	Errors            string    `json:"errors" yaml:"errors"` // JSON of the current buckets
	AudioPath         string    `json:"audio_path" yaml:"audio_path"`
	ResultPath        string    `json:"result_path" yaml:"result_path"`
	RecordedAt        time.Time `json:"recorded_at" yaml:"recorded_at"`
}
