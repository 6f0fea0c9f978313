package scoring

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/okian/phonoecho/internal/domain/assessment"
	"github.com/okian/phonoecho/pkg/logger"
)

// Store persists lesson state. Implementations decide the on-disk layout.
type Store interface {
	// LoadLesson returns the persisted state of lesson. found is false when
	// nothing has been persisted yet.
	LoadLesson(ctx context.Context, lesson int) (state LessonState, found bool, err error)
	// SaveLesson fully replaces the persisted entry of lesson.
	SaveLesson(ctx context.Context, lesson int, state LessonState) error
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the logger used by the tracker.
func WithLogger(l logger.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.log = l
		}
	}
}

// Outcome is what one recorded attempt produced.
type Outcome struct {
	Lesson  int
	Attempt int // 1-based
	Scores  assessment.Scores
	Current Buckets
}

// Tracker is the per-user score and error aggregator. Lessons move from
// Empty to HasHistory on their first recorded attempt and stay there; an
// attempt can never be removed.
type Tracker struct {
	mu      sync.RWMutex
	store   Store
	lessons map[int]*LessonState
	log     logger.Logger
}

// NewTracker creates a tracker persisting through store. A nil store keeps
// everything in memory.
func NewTracker(store Store, opts ...Option) *Tracker {
	t := &Tracker{
		store:   store,
		lessons: make(map[int]*LessonState),
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tracker) lesson(i int) *LessonState {
	s, ok := t.lessons[i]
	if !ok {
		ns := NewLessonState()
		s = &ns
		t.lessons[i] = s
	}
	return s
}

func checkLesson(i int) error {
	if i < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidLesson, i)
	}
	return nil
}

// Record classifies res, stores it as the lesson's current attempt, merges it
// into the cumulative buckets, appends the five scores and saves the lesson.
// A malformed result leaves the lesson untouched. A save failure is returned
// wrapped in ErrPersist after the in-memory state has been updated.
func (t *Tracker) Record(ctx context.Context, lesson int, res *assessment.Result) (Outcome, error) {
	if err := checkLesson(lesson); err != nil {
		return Outcome{}, err
	}
	current, err := Classify(res)
	if err != nil {
		return Outcome{}, err
	}
	best, _ := res.Best()
	scores := best.PronunciationAssessment

	t.mu.Lock()
	s := t.lesson(lesson)
	s.Current = current.Clone()
	s.Total.Merge(current)
	s.History.Append(scores)
	attempt := s.History.Len()
	t.mu.Unlock()

	t.log.Debug(ctx, "attempt recorded",
		logger.Int("lesson", lesson),
		logger.Int("attempt", attempt),
		logger.Float64("pron", scores.PronScore),
		logger.Int("errors", current.Total()),
	)

	out := Outcome{Lesson: lesson, Attempt: attempt, Scores: scores, Current: current}
	if err := t.Save(ctx, lesson); err != nil {
		return out, err
	}
	return out, nil
}

// MergeIntoTotal adds current into the cumulative buckets of lesson.
func (t *Tracker) MergeIntoTotal(current Buckets, lesson int) error {
	if err := checkLesson(lesson); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lesson(lesson).Total.Merge(current)
	return nil
}

// AppendScore pushes one attempt's scores onto the lesson history.
func (t *Tracker) AppendScore(lesson int, scores assessment.Scores) error {
	if err := checkLesson(lesson); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lesson(lesson).History.Append(scores)
	return nil
}

// SetCurrent replaces the current-attempt buckets of lesson.
func (t *Tracker) SetCurrent(lesson int, current Buckets) error {
	if err := checkLesson(lesson); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lesson(lesson).Current = current.Clone()
	return nil
}

// Save writes the full accumulated state of lesson to the store.
func (t *Tracker) Save(ctx context.Context, lesson int) error {
	if t.store == nil {
		return nil
	}
	snapshot := t.Lesson(lesson)
	if err := t.store.SaveLesson(ctx, lesson, snapshot); err != nil {
		t.log.Error(ctx, "save lesson failed", logger.Int("lesson", lesson), logger.Error(err))
		return fmt.Errorf("%w: lesson %d: %w", ErrPersist, lesson, err)
	}
	return nil
}

// Load replaces the in-memory state of lesson with the persisted one. The
// in-memory state is kept when nothing is persisted or when it holds more
// attempts than the store, as after a failed save.
func (t *Tracker) Load(ctx context.Context, lesson int) error {
	if err := checkLesson(lesson); err != nil {
		return err
	}
	if t.store == nil {
		return nil
	}
	state, found, err := t.store.LoadLesson(ctx, lesson)
	if err != nil {
		return fmt.Errorf("load lesson %d: %w", lesson, err)
	}
	if !found {
		t.log.Debug(ctx, "no persisted history", logger.Int("lesson", lesson))
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if cur, ok := t.lessons[lesson]; ok && cur.History.Len() > state.History.Len() {
		t.log.Warn(ctx, "keeping unsaved attempts over persisted history",
			logger.Int("lesson", lesson),
			logger.Int("inMemory", cur.History.Len()),
			logger.Int("persisted", state.History.Len()),
		)
		return nil
	}
	s := state.Clone()
	t.lessons[lesson] = &s
	return nil
}

// Lesson returns a copy of the state of lesson.
func (t *Tracker) Lesson(lesson int) LessonState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.lessons[lesson]
	if !ok {
		return NewLessonState()
	}
	return s.Clone()
}

// ErrorStats returns the current-attempt counts of lesson, non-zero categories only.
func (t *Tracker) ErrorStats(lesson int) map[Category]int {
	return t.Lesson(lesson).Current.Stats()
}

// TotalErrorStats returns the cumulative counts of lesson, non-zero categories only.
func (t *Tracker) TotalErrorStats(lesson int) map[Category]int {
	return t.Lesson(lesson).Total.Stats()
}

// AttemptRow is one row of the progress table.
type AttemptRow struct {
	Attempt int `json:"attempt"`
	assessment.Scores
}

// Progress summarises the Pron history of a lesson.
type Progress struct {
	Rows    []AttemptRow `json:"rows"`
	Count   int          `json:"count"`
	Average float64      `json:"average"`
	Best    float64      `json:"best"`
	Last    float64      `json:"last"`
	// Delta is the last attempt minus the average.
	Delta float64 `json:"delta"`
}

// Progress returns the summary of lesson; ok is false while the lesson is Empty.
func (t *Tracker) Progress(lesson int) (Progress, bool) {
	return Summarize(t.Lesson(lesson).History)
}

// Summarize builds a Progress from a history.
func Summarize(h History) (Progress, bool) {
	n := h.Len()
	if n == 0 {
		return Progress{}, false
	}
	p := Progress{Rows: make([]AttemptRow, n), Count: n, Best: h.Pron[0]}
	sum := 0.0
	for i := 0; i < n; i++ {
		p.Rows[i] = AttemptRow{Attempt: i + 1, Scores: h.At(i)}
		sum += h.Pron[i]
		if h.Pron[i] > p.Best {
			p.Best = h.Pron[i]
		}
	}
	p.Average = sum / float64(n)
	p.Last = h.Pron[n-1]
	p.Delta = p.Last - p.Average
	return p, true
}

// WordCount is how often a word was flagged.
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// WeakWords returns the most frequently flagged words of lesson across all
// categories, most frequent first. top <= 0 returns all of them.
func (t *Tracker) WeakWords(lesson, top int) []WordCount {
	total := t.Lesson(lesson).Total
	counts := map[string]int{}
	for _, b := range total {
		for _, w := range b.Words {
			counts[w]++
		}
	}
	out := make([]WordCount, 0, len(counts))
	for w, n := range counts {
		out = append(out, WordCount{Word: w, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Word < out[j].Word
		}
		return out[i].Count > out[j].Count
	})
	if top > 0 && top < len(out) {
		out = out[:top]
	}
	return out
}
