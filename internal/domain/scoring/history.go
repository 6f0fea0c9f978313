package scoring

import (
	"github.com/okian/phonoecho/internal/domain/assessment"
)

// History is five parallel score sequences indexed by attempt.
type History struct {
	Accuracy     []float64 `json:"AccuracyScore"`
	Fluency      []float64 `json:"FluencyScore"`
	Completeness []float64 `json:"CompletenessScore"`
	Prosody      []float64 `json:"ProsodyScore"`
	Pron         []float64 `json:"PronScore"`
}

// NewHistory returns an empty history whose sequences encode as [].
func NewHistory() History {
	return History{
		Accuracy:     []float64{},
		Fluency:      []float64{},
		Completeness: []float64{},
		Prosody:      []float64{},
		Pron:         []float64{},
	}
}

// Append pushes one attempt's scores. There is no cap.
func (h *History) Append(s assessment.Scores) {
	h.Accuracy = append(h.Accuracy, s.AccuracyScore)
	h.Fluency = append(h.Fluency, s.FluencyScore)
	h.Completeness = append(h.Completeness, s.CompletenessScore)
	h.Prosody = append(h.Prosody, s.ProsodyScore)
	h.Pron = append(h.Pron, s.PronScore)
}

// Len is the number of recorded attempts.
func (h History) Len() int { return len(h.Pron) }

// At returns the scores of attempt i (0-based).
func (h History) At(i int) assessment.Scores {
	return assessment.Scores{
		AccuracyScore:     at(h.Accuracy, i),
		FluencyScore:      at(h.Fluency, i),
		CompletenessScore: at(h.Completeness, i),
		ProsodyScore:      at(h.Prosody, i),
		PronScore:         at(h.Pron, i),
	}
}

// Clone returns a deep copy.
func (h History) Clone() History {
	return History{
		Accuracy:     append([]float64{}, h.Accuracy...),
		Fluency:      append([]float64{}, h.Fluency...),
		Completeness: append([]float64{}, h.Completeness...),
		Prosody:      append([]float64{}, h.Prosody...),
		Pron:         append([]float64{}, h.Pron...),
	}
}

func at(s []float64, i int) float64 {
	if i < 0 || i >= len(s) {
		return 0
	}
	return s[i]
}

// LessonState is everything tracked for one lesson.
type LessonState struct {
	History History `json:"history"`
	Current Buckets `json:"current"`
	Total   Buckets `json:"total"`
}

// NewLessonState returns the Empty state.
func NewLessonState() LessonState {
	return LessonState{History: NewHistory(), Current: NewBuckets(), Total: NewBuckets()}
}

// Empty reports whether no attempt has been recorded.
func (s LessonState) Empty() bool { return s.History.Len() == 0 }

// Clone returns a deep copy.
func (s LessonState) Clone() LessonState {
	return LessonState{History: s.History.Clone(), Current: s.Current.Clone(), Total: s.Total.Clone()}
}
