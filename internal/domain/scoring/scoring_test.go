package scoring_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/okian/phonoecho/internal/domain/assessment"
	"github.com/okian/phonoecho/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

// memStore is an in-memory scoring.Store that round-trips through JSON.
type memStore struct {
	mu      sync.Mutex
	entries map[int][]byte
	failErr error
}

func newMemStore() *memStore { return &memStore{entries: map[int][]byte{}} }

func (m *memStore) LoadLesson(_ context.Context, lesson int) (scoring.LessonState, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.entries[lesson]
	if !ok {
		return scoring.LessonState{}, false, nil
	}
	var s scoring.LessonState
	if err := json.Unmarshal(raw, &s); err != nil {
		return scoring.LessonState{}, false, err
	}
	return s, true, nil
}

func (m *memStore) SaveLesson(_ context.Context, lesson int, s scoring.LessonState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	m.entries[lesson] = raw
	return nil
}

type word struct {
	text      string
	errorType string
}

func result(pron float64, words ...word) *assessment.Result {
	best := assessment.NBest{
		PronunciationAssessment: assessment.Scores{
			AccuracyScore: pron + 1, FluencyScore: pron + 2, CompletenessScore: pron + 3, ProsodyScore: pron + 4, PronScore: pron,
		},
		Words: []assessment.Word{},
	}
	for _, w := range words {
		best.Words = append(best.Words, assessment.Word{
			Word:                    w.text,
			PronunciationAssessment: assessment.WordAssessment{AccuracyScore: 50, ErrorType: w.errorType},
		})
	}
	return &assessment.Result{RecognitionStatus: assessment.StatusSuccess, NBest: []assessment.NBest{best}}
}

func TestParseCategory(t *testing.T) {
	Convey("Given service error tags", t, func() {
		Convey("Then the six known tags should map in display order", func() {
			for i, tag := range []string{"Omission", "Insertion", "Mispronunciation", "UnexpectedBreak", "MissingBreak", "Monotone"} {
				c, ok := scoring.ParseCategory(tag)
				So(ok, ShouldBeTrue)
				So(int(c), ShouldEqual, i)
				So(c.String(), ShouldEqual, tag)
			}
			So(scoring.All(), ShouldHaveLength, 6)
		})

		Convey("Then None, empty and unknown tags should be skipped", func() {
			for _, tag := range []string{"None", "", "omission", "Stutter"} {
				_, ok := scoring.ParseCategory(tag)
				So(ok, ShouldBeFalse)
			}
		})

		Convey("Then an out-of-range category should not marshal", func() {
			_, err := scoring.Category(9).MarshalText()
			So(errors.Is(err, scoring.ErrUnknownCategory), ShouldBeTrue)
			So(scoring.Category(9).String(), ShouldEqual, "Category(9)")
		})
	})
}

func TestClassify(t *testing.T) {
	Convey("Given the words the, the, quick with Insertion on the first and Mispronunciation on the third", t, func() {
		res := result(70, word{"the", "Insertion"}, word{"the", "None"}, word{"quick", "Mispronunciation"})

		buckets, err := scoring.Classify(res)

		Convey("Then only those two buckets should be filled", func() {
			So(err, ShouldBeNil)
			So(buckets.Get(scoring.Insertion), ShouldResemble, scoring.Bucket{Count: 1, Words: []string{"the"}})
			So(buckets.Get(scoring.Mispronunciation), ShouldResemble, scoring.Bucket{Count: 1, Words: []string{"quick"}})
			for _, c := range []scoring.Category{scoring.Omission, scoring.UnexpectedBreak, scoring.MissingBreak, scoring.Monotone} {
				So(buckets.Get(c).Count, ShouldEqual, 0)
				So(buckets.Get(c).Words, ShouldBeEmpty)
			}
		})

		Convey("Then every bucket count should equal its word count", func() {
			for _, c := range scoring.All() {
				b := buckets.Get(c)
				So(b.Count, ShouldEqual, len(b.Words))
			}
		})

		Convey("Then JSON should carry all six keys", func() {
			raw, err := json.Marshal(buckets)
			So(err, ShouldBeNil)
			var m map[string]scoring.Bucket
			So(json.Unmarshal(raw, &m), ShouldBeNil)
			So(m, ShouldHaveLength, 6)
			So(m["Insertion"].Words, ShouldResemble, []string{"the"})
			So(m["Omission"].Words, ShouldResemble, []string{})
		})
	})

	Convey("Given a result without any error tags", t, func() {
		res := result(95, word{"hello", ""}, word{"world", "None"})

		buckets, err := scoring.Classify(res)

		Convey("Then all six categories should be zero", func() {
			So(err, ShouldBeNil)
			So(buckets.Total(), ShouldEqual, 0)
			So(buckets.Stats(), ShouldBeEmpty)
			for _, c := range scoring.All() {
				So(buckets.Get(c).Count, ShouldEqual, 0)
			}
		})
	})

	Convey("Given a result without NBest", t, func() {
		_, err := scoring.Classify(&assessment.Result{RecognitionStatus: "NoMatch"})

		Convey("Then it should fail fast", func() {
			So(errors.Is(err, assessment.ErrMalformedResult), ShouldBeTrue)
		})
	})
}

func TestBucketsJSON(t *testing.T) {
	Convey("Given a partial buckets object", t, func() {
		var b scoring.Buckets
		err := json.Unmarshal([]byte(`{"Monotone":{"count":2,"words":["a","b"]}}`), &b)

		Convey("Then the missing categories should be zero-filled", func() {
			So(err, ShouldBeNil)
			So(b.Get(scoring.Monotone).Count, ShouldEqual, 2)
			So(b.Get(scoring.Omission).Words, ShouldResemble, []string{})
		})
	})

	Convey("Given labelled category keys", t, func() {
		var b scoring.Buckets
		err := json.Unmarshal([]byte(`{"発音ミス (Mispronunciation)":{"count":1,"words":["quick"]},"単調 (Monotone)":{"count":0,"words":[]}}`), &b)

		Convey("Then the parenthesised tag should select the category", func() {
			So(err, ShouldBeNil)
			So(b.Get(scoring.Mispronunciation).Words, ShouldResemble, []string{"quick"})
		})
	})

	Convey("Given an unknown category key", t, func() {
		var b scoring.Buckets
		err := json.Unmarshal([]byte(`{"Stutter":{"count":1,"words":["a"]}}`), &b)

		Convey("Then decoding should fail", func() {
			So(err, ShouldNotBeNil)
		})
	})

	Convey("Given a count that disagrees with its words", t, func() {
		var b scoring.Buckets
		err := json.Unmarshal([]byte(`{"Omission":{"count":3,"words":["a"]}}`), &b)

		Convey("Then decoding should fail", func() {
			So(err, ShouldNotBeNil)
		})
	})
}

func TestMergeMonotonic(t *testing.T) {
	Convey("Given a tracker and several attempts on the same lesson", t, func() {
		tr := scoring.NewTracker(nil)
		attempts := []*assessment.Result{
			result(60, word{"cat", "Omission"}, word{"dog", "Mispronunciation"}),
			result(70, word{"cat", "Omission"}),
			result(80, word{"dog", "Monotone"}, word{"dog", "Mispronunciation"}, word{"owl", "MissingBreak"}),
		}
		sums := map[scoring.Category]int{}

		for _, a := range attempts {
			current, err := scoring.Classify(a)
			So(err, ShouldBeNil)
			before := tr.Lesson(0).Total
			So(tr.MergeIntoTotal(current, 0), ShouldBeNil)
			after := tr.Lesson(0).Total
			for _, c := range scoring.All() {
				So(after.Get(c).Count, ShouldBeGreaterThanOrEqualTo, before.Get(c).Count)
				sums[c] += current.Get(c).Count
			}
		}

		Convey("Then each cumulative count should be the sum of the per-attempt counts", func() {
			total := tr.Lesson(0).Total
			for _, c := range scoring.All() {
				So(total.Get(c).Count, ShouldEqual, sums[c])
			}
			So(total.Get(scoring.Omission).Words, ShouldResemble, []string{"cat", "cat"})
		})

		Convey("Then other lessons should stay untouched", func() {
			So(tr.Lesson(1).Total.Total(), ShouldEqual, 0)
		})
	})
}

func TestTrackerRecord(t *testing.T) {
	Convey("Given a tracker backed by a store", t, func() {
		ctx := context.Background()
		store := newMemStore()
		tr := scoring.NewTracker(store)

		Convey("When lesson 0 receives PronScore 60 then 85", func() {
			So(tr.Lesson(0).Empty(), ShouldBeTrue)
			first, err := tr.Record(ctx, 0, result(60, word{"the", "Insertion"}))
			So(err, ShouldBeNil)
			So(first.Attempt, ShouldEqual, 1)
			So(tr.Lesson(0).Empty(), ShouldBeFalse)
			second, err := tr.Record(ctx, 0, result(85, word{"quick", "Mispronunciation"}))
			So(err, ShouldBeNil)
			So(second.Attempt, ShouldEqual, 2)

			Convey("Then a fresh tracker should load [60, 85] and the same totals", func() {
				fresh := scoring.NewTracker(store)
				So(fresh.Load(ctx, 0), ShouldBeNil)
				loaded := fresh.Lesson(0)
				So(loaded.History.Pron, ShouldResemble, []float64{60, 85})
				So(loaded.History.Accuracy, ShouldResemble, []float64{61, 86})
				So(loaded.History.Prosody, ShouldResemble, []float64{64, 89})
				So(loaded.Total.Get(scoring.Insertion).Count, ShouldEqual, 1)
				So(loaded.Total.Get(scoring.Mispronunciation).Count, ShouldEqual, 1)
				So(loaded.Current.Get(scoring.Mispronunciation).Words, ShouldResemble, []string{"quick"})
				So(loaded.Current.Get(scoring.Insertion).Count, ShouldEqual, 0)
			})

			Convey("Then the current stats should only hold the last attempt", func() {
				So(tr.ErrorStats(0), ShouldResemble, map[scoring.Category]int{scoring.Mispronunciation: 1})
				So(tr.TotalErrorStats(0), ShouldResemble, map[scoring.Category]int{
					scoring.Insertion:        1,
					scoring.Mispronunciation: 1,
				})
			})

			Convey("Then the progress summary should describe both attempts", func() {
				p, ok := tr.Progress(0)
				So(ok, ShouldBeTrue)
				So(p.Count, ShouldEqual, 2)
				So(p.Average, ShouldEqual, 72.5)
				So(p.Best, ShouldEqual, 85)
				So(p.Last, ShouldEqual, 85)
				So(p.Delta, ShouldEqual, 12.5)
				So(p.Rows[0].Attempt, ShouldEqual, 1)
				So(p.Rows[1].PronScore, ShouldEqual, 85)
			})
		})

		Convey("When the result is malformed", func() {
			_, err := tr.Record(ctx, 0, &assessment.Result{})

			Convey("Then the lesson should stay Empty and nothing should be saved", func() {
				So(errors.Is(err, assessment.ErrMalformedResult), ShouldBeTrue)
				So(tr.Lesson(0).Empty(), ShouldBeTrue)
				So(store.entries, ShouldBeEmpty)
			})
		})

		Convey("When the store fails", func() {
			store.failErr = errors.New("disk full")
			out, err := tr.Record(ctx, 2, result(50))

			Convey("Then ErrPersist should be returned with the in-memory attempt kept", func() {
				So(errors.Is(err, scoring.ErrPersist), ShouldBeTrue)
				So(out.Attempt, ShouldEqual, 1)
				So(tr.Lesson(2).History.Pron, ShouldResemble, []float64{50})
			})
		})

		Convey("When the lesson index is negative", func() {
			_, err := tr.Record(ctx, -1, result(50))
			So(errors.Is(err, scoring.ErrInvalidLesson), ShouldBeTrue)
			So(errors.Is(tr.Load(ctx, -1), scoring.ErrInvalidLesson), ShouldBeTrue)
			So(errors.Is(tr.MergeIntoTotal(scoring.NewBuckets(), -1), scoring.ErrInvalidLesson), ShouldBeTrue)
			So(errors.Is(tr.AppendScore(-1, assessment.Scores{}), scoring.ErrInvalidLesson), ShouldBeTrue)
			So(errors.Is(tr.SetCurrent(-1, scoring.NewBuckets()), scoring.ErrInvalidLesson), ShouldBeTrue)

			Convey("Then no state should be created for it", func() {
				So(tr.Lesson(-1).Empty(), ShouldBeTrue)
				So(tr.Lesson(-1).Total.Total(), ShouldEqual, 0)
			})
		})

		Convey("When a save fails after an earlier attempt was persisted", func() {
			_, err := tr.Record(ctx, 5, result(60))
			So(err, ShouldBeNil)
			store.failErr = errors.New("disk full")
			_, err = tr.Record(ctx, 5, result(70))
			So(errors.Is(err, scoring.ErrPersist), ShouldBeTrue)
			store.failErr = nil

			Convey("Then reloading the lesson should keep the unsaved attempt", func() {
				So(tr.Load(ctx, 5), ShouldBeNil)
				So(tr.Lesson(5).History.Pron, ShouldResemble, []float64{60, 70})
			})

			Convey("Then a fresh tracker should only see the persisted attempt", func() {
				fresh := scoring.NewTracker(store)
				So(fresh.Load(ctx, 5), ShouldBeNil)
				So(fresh.Lesson(5).History.Pron, ShouldResemble, []float64{60})
			})
		})

		Convey("When loading a lesson that was never saved", func() {
			So(tr.AppendScore(3, assessment.Scores{PronScore: 42}), ShouldBeNil)
			So(tr.Load(ctx, 3), ShouldBeNil)

			Convey("Then the in-memory state should be kept", func() {
				So(tr.Lesson(3).History.Pron, ShouldResemble, []float64{42})
			})
		})
	})
}

func TestSummarizeEmpty(t *testing.T) {
	Convey("Given an empty history", t, func() {
		_, ok := scoring.Summarize(scoring.NewHistory())

		Convey("Then there should be no progress", func() {
			So(ok, ShouldBeFalse)
		})
	})
}

func TestWeakWords(t *testing.T) {
	Convey("Given cumulative errors with repeated words", t, func() {
		tr := scoring.NewTracker(nil)
		for _, r := range []*assessment.Result{
			result(50, word{"three", "Mispronunciation"}, word{"the", "Insertion"}),
			result(55, word{"three", "Mispronunciation"}, word{"rural", "Omission"}),
			result(60, word{"three", "Monotone"}, word{"the", "Insertion"}),
		} {
			b, err := scoring.Classify(r)
			So(err, ShouldBeNil)
			So(tr.MergeIntoTotal(b, 4), ShouldBeNil)
		}

		Convey("Then words should rank by frequency then alphabetically", func() {
			So(tr.WeakWords(4, 0), ShouldResemble, []scoring.WordCount{
				{Word: "three", Count: 3},
				{Word: "the", Count: 2},
				{Word: "rural", Count: 1},
			})
			So(tr.WeakWords(4, 1), ShouldHaveLength, 1)
		})
	})
}
