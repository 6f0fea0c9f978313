// Package assessment holds the pronunciation-assessment result schema returned
// by the cloud speech service. Results are immutable once parsed.
package assessment

import (
	"encoding/json"
	"fmt"
	"time"
)

// tick is the unit of Offset and Duration fields.
const tick = 100 * time.Nanosecond

// StatusSuccess is the RecognitionStatus of a usable result.
const StatusSuccess = "Success"

// Result mirrors the detailed-format JSON response.
type Result struct {
	RecognitionStatus string  `json:"RecognitionStatus"`
	Offset            int64   `json:"Offset,omitempty"`
	Duration          int64   `json:"Duration,omitempty"`
	DisplayText       string  `json:"DisplayText,omitempty"`
	NBest             []NBest `json:"NBest"`
}

// NBest is one recognition hypothesis. The first entry is the best.
type NBest struct {
	Confidence              float64 `json:"Confidence,omitempty"`
	Lexical                 string  `json:"Lexical,omitempty"`
	Display                 string  `json:"Display,omitempty"`
	PronunciationAssessment Scores  `json:"PronunciationAssessment"`
	Words                   []Word  `json:"Words"`
}

// Scores are the five overall dimensions, each 0-100.
type Scores struct {
	AccuracyScore     float64 `json:"AccuracyScore"`
	FluencyScore      float64 `json:"FluencyScore"`
	CompletenessScore float64 `json:"CompletenessScore"`
	ProsodyScore      float64 `json:"ProsodyScore"`
	PronScore         float64 `json:"PronScore"`
}

// Word is one recognized or expected word.
type Word struct {
	Word                    string         `json:"Word"`
	Offset                  int64          `json:"Offset"`
	Duration                int64          `json:"Duration"`
	PronunciationAssessment WordAssessment `json:"PronunciationAssessment"`
	Syllables               []Syllable     `json:"Syllables,omitempty"`
	Phonemes                []Phoneme      `json:"Phonemes,omitempty"`
}

// WordAssessment carries the word score and optional error tag.
type WordAssessment struct {
	AccuracyScore float64 `json:"AccuracyScore"`
	ErrorType     string  `json:"ErrorType,omitempty"`
}

// Syllable is a syllable-level score.
type Syllable struct {
	Syllable                string    `json:"Syllable"`
	Grapheme                string    `json:"Grapheme,omitempty"`
	Offset                  int64     `json:"Offset"`
	Duration                int64     `json:"Duration"`
	PronunciationAssessment UnitScore `json:"PronunciationAssessment"`
}

// Phoneme is a phoneme-level score. Phoneme is an SAPI symbol such as "dh" or "ax".
type Phoneme struct {
	Phoneme                 string    `json:"Phoneme"`
	Offset                  int64     `json:"Offset"`
	Duration                int64     `json:"Duration"`
	PronunciationAssessment UnitScore `json:"PronunciationAssessment"`
}

// UnitScore is the accuracy of a syllable or phoneme.
type UnitScore struct {
	AccuracyScore float64 `json:"AccuracyScore"`
}

// Parse decodes a raw service response.
func Parse(raw []byte) (*Result, error) {
	var r Result
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResult, err)
	}
	return &r, nil
}

// Best returns the first hypothesis. A result without NBest or without a
// Words list is malformed.
func (r *Result) Best() (NBest, error) {
	if r == nil || len(r.NBest) == 0 {
		return NBest{}, fmt.Errorf("%w: missing NBest", ErrMalformedResult)
	}
	if r.NBest[0].Words == nil {
		return NBest{}, fmt.Errorf("%w: missing NBest[0].Words", ErrMalformedResult)
	}
	return r.NBest[0], nil
}

// Start is the word offset from the beginning of the recording.
func (w Word) Start() time.Duration { return time.Duration(w.Offset) * tick }

// End is the offset at which the word stops.
func (w Word) End() time.Duration { return time.Duration(w.Offset+w.Duration) * tick }

// Start is the phoneme offset from the beginning of the recording.
func (p Phoneme) Start() time.Duration { return time.Duration(p.Offset) * tick }

// End is the offset at which the phoneme stops.
func (p Phoneme) End() time.Duration { return time.Duration(p.Offset+p.Duration) * tick }
