package types_test

import (
	"encoding/json"
	"testing"

	"github.com/okian/phonoecho/internal/domain/scoring"
	types "github.com/okian/phonoecho/internal/domain/types"
	"github.com/okian/phonoecho/internal/domain/visual"
	. "github.com/smartystreets/goconvey/convey"
)

func TestAttemptOutcomeJSON(t *testing.T) {
	Convey("Given an attempt outcome with one doughnut slice", t, func() {
		out := types.AttemptOutcome{
			ID:     "a-1",
			Errors: scoring.NewBuckets(),
			Charts: types.Charts{
				Current: visual.DoughnutChart{Slices: []visual.Slice{{Category: scoring.Monotone, Count: 1}}},
			},
		}

		Convey("When it is encoded", func() {
			b, err := json.Marshal(out)
			So(err, ShouldBeNil)

			var decoded map[string]any
			So(json.Unmarshal(b, &decoded), ShouldBeNil)

			Convey("Then every error category should be present", func() {
				errs, ok := decoded["errors"].(map[string]any)
				So(ok, ShouldBeTrue)
				So(errs, ShouldHaveLength, 6)
				So(errs, ShouldContainKey, "UnexpectedBreak")
			})

			Convey("Then categories should be encoded by tag", func() {
				charts := decoded["charts"].(map[string]any)
				slice := charts["current"].(map[string]any)["slices"].([]any)[0].(map[string]any)
				So(slice["category"], ShouldEqual, "Monotone")
			})

			Convey("Then an empty summary should omit its progress", func() {
				summary := decoded["summary"].(map[string]any)
				So(summary, ShouldNotContainKey, "progress")
			})
		})
	})
}

func TestLessonDetailJSON(t *testing.T) {
	Convey("Given a lesson detail", t, func() {
		d := types.LessonDetail{LessonInfo: types.LessonInfo{Index: 2, Name: "Lesson 3"}, Text: "Hello."}

		Convey("Then the embedded info should flatten into the object", func() {
			b, err := json.Marshal(d)
			So(err, ShouldBeNil)
			So(string(b), ShouldContainSubstring, `"index":2`)
			So(string(b), ShouldContainSubstring, `"name":"Lesson 3"`)
		})
	})
}
