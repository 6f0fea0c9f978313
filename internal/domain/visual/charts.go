package visual

import (
	"math"
	"time"

	"github.com/okian/phonoecho/internal/domain/assessment"
	"github.com/okian/phonoecho/internal/domain/scoring"
)

// Labeler localizes chart text. *i18n.Translator satisfies it.
type Labeler interface {
	T(id string, data map[string]any) string
	Category(c scoring.Category) string
}

const (
	scoreMin        = 0
	scoreMax        = 100
	domainPadding   = 5
	defaultAttempts = 10
)

var doughnutPalette = [...]string{"#FF4B4B", "#FFC000", "#00B050", "#2F75B5", "#7030A0", "#000000"}

// DetailPalette colors Accuracy, Fluency, Completeness and Prosody lines.
var DetailPalette = [...]string{"#00C957", "#4169E1", "#FFD700", "#FF69B4"}

// Axis is one spoke of the radar chart.
type Axis struct {
	Key   string  `json:"key"`
	Label string  `json:"label"`
	Score float64 `json:"score"`
	Color string  `json:"color"`
}

// RadarChart is the five-dimension overview of one attempt.
type RadarChart struct {
	Title string  `json:"title"`
	Axes  []Axis  `json:"axes"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// Radar lays out the overall scores clockwise starting at Pron.
func Radar(s assessment.Scores, l Labeler) RadarChart {
	axes := []Axis{
		{Key: "PronScore", Label: l.T("score_pron", nil), Score: s.PronScore},
		{Key: "AccuracyScore", Label: l.T("score_accuracy", nil), Score: s.AccuracyScore},
		{Key: "FluencyScore", Label: l.T("score_fluency", nil), Score: s.FluencyScore},
		{Key: "CompletenessScore", Label: l.T("score_completeness", nil), Score: s.CompletenessScore},
		{Key: "ProsodyScore", Label: l.T("score_prosody", nil), Score: s.ProsodyScore},
	}
	for i := range axes {
		axes[i].Color = Color(axes[i].Score)
	}
	return RadarChart{Title: l.T("radar_title", nil), Axes: axes, Min: scoreMin, Max: scoreMax}
}

// Slice is one doughnut segment.
type Slice struct {
	Category scoring.Category `json:"category"`
	Label    string           `json:"label"`
	Count    int              `json:"count"`
	Words    []string         `json:"words"`
	Color    string           `json:"color"`
}

// DoughnutChart shows the error distribution. Empty is set when there are
// no errors to draw.
type DoughnutChart struct {
	Title  string  `json:"title"`
	Slices []Slice `json:"slices"`
	Empty  bool    `json:"empty"`
}

// Doughnut builds segments for categories with a non-zero count, in fixed
// category order. Colors are tied to the category, not the position.
func Doughnut(b scoring.Buckets, title string, l Labeler) DoughnutChart {
	chart := DoughnutChart{Title: title, Slices: []Slice{}}
	for _, c := range scoring.All() {
		bucket := b.Get(c)
		if bucket.Count == 0 {
			continue
		}
		chart.Slices = append(chart.Slices, Slice{
			Category: c,
			Label:    l.Category(c),
			Count:    bucket.Count,
			Words:    bucket.Words,
			Color:    doughnutPalette[c],
		})
	}
	chart.Empty = len(chart.Slices) == 0
	return chart
}

// Domain is an inclusive axis range.
type Domain struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// ProgressChart holds the attempt-indexed score series of a lesson.
type ProgressChart struct {
	Rows []scoring.AttemptRow `json:"rows"`
	// X spans attempts 1..10, growing with the history.
	X Domain `json:"x"`
	// Overall is the y domain of the Pron line.
	Overall Domain `json:"overall"`
	// Detail is the y domain shared by the four detail lines.
	Detail Domain `json:"detail"`
}

// ProgressSeries builds the two progress charts. ok is false for an empty history.
func ProgressSeries(h scoring.History) (ProgressChart, bool) {
	p, ok := scoring.Summarize(h)
	if !ok {
		return ProgressChart{}, false
	}
	xMax := defaultAttempts
	if p.Count > xMax {
		xMax = p.Count
	}
	detail := make([]float64, 0, 4*h.Len())
	detail = append(detail, h.Accuracy...)
	detail = append(detail, h.Fluency...)
	detail = append(detail, h.Completeness...)
	detail = append(detail, h.Prosody...)
	return ProgressChart{
		Rows:    p.Rows,
		X:       Domain{Min: 1, Max: float64(xMax)},
		Overall: padded(h.Pron),
		Detail:  padded(detail),
	}, true
}

func padded(vals []float64) Domain {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range vals {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if len(vals) == 0 {
		return Domain{Min: scoreMin, Max: scoreMax}
	}
	return Domain{
		Min: math.Max(scoreMin, lo-domainPadding),
		Max: math.Min(scoreMax, hi+domainPadding),
	}
}

// Peak is one min/max bin of the recording, in [-1, 1].
type Peak struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// PhonemeMark labels a phoneme start on the waveform.
type PhonemeMark struct {
	Phoneme string  `json:"phoneme"`
	Start   float64 `json:"start"`
	Color   string  `json:"color"`
}

// Segment is one scored word drawn over the waveform.
type Segment struct {
	Word     string        `json:"word"`
	Start    float64       `json:"start"`
	End      float64       `json:"end"`
	Score    float64       `json:"score"`
	Color    string        `json:"color"`
	Phonemes []PhonemeMark `json:"phonemes"`
}

// WaveformChart is the envelope of a recording with word overlays. Times are
// in seconds.
type WaveformChart struct {
	Title    string    `json:"title"`
	Duration float64   `json:"duration"`
	Peaks    []Peak    `json:"peaks"`
	Segments []Segment `json:"segments"`
}

// Waveform overlays the scored words of best on the recording envelope.
// Omitted words and words without an error tag are skipped.
func Waveform(peaks []Peak, duration time.Duration, best assessment.NBest, l Labeler) WaveformChart {
	chart := WaveformChart{
		Title:    l.T("waveform_title", nil),
		Duration: duration.Seconds(),
		Peaks:    peaks,
		Segments: []Segment{},
	}
	for _, w := range best.Words {
		tag := w.PronunciationAssessment.ErrorType
		if tag == "" || tag == scoring.Omission.String() {
			continue
		}
		seg := Segment{
			Word:     w.Word,
			Start:    w.Start().Seconds(),
			End:      w.End().Seconds(),
			Score:    w.PronunciationAssessment.AccuracyScore,
			Color:    Color(w.PronunciationAssessment.AccuracyScore),
			Phonemes: make([]PhonemeMark, 0, len(w.Phonemes)),
		}
		for _, p := range w.Phonemes {
			seg.Phonemes = append(seg.Phonemes, PhonemeMark{
				Phoneme: p.Phoneme,
				Start:   p.Start().Seconds(),
				Color:   Color(p.PronunciationAssessment.AccuracyScore),
			})
		}
		chart.Segments = append(chart.Segments, seg)
	}
	return chart
}
