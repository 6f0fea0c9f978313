package i18n_test

import (
	"testing"

	"github.com/okian/phonoecho/internal/domain/assessment"
	"github.com/okian/phonoecho/internal/domain/scoring"
	"github.com/okian/phonoecho/internal/i18n"
	. "github.com/smartystreets/goconvey/convey"
	"golang.org/x/text/language"
)

func mispronounced(words ...string) scoring.Buckets {
	res := &assessment.Result{NBest: []assessment.NBest{{Words: []assessment.Word{}}}}
	for _, w := range words {
		res.NBest[0].Words = append(res.NBest[0].Words, assessment.Word{
			Word:                    w,
			PronunciationAssessment: assessment.WordAssessment{ErrorType: "Mispronunciation"},
		})
	}
	b, _ := scoring.Classify(res)
	return b
}

func TestJapanese(t *testing.T) {
	Convey("Given the Japanese translator", t, func() {
		tr, err := i18n.New("ja")
		So(err, ShouldBeNil)
		So(tr.Tag(), ShouldEqual, language.Japanese)

		Convey("Then category labels should carry both names", func() {
			So(tr.Category(scoring.Mispronunciation), ShouldEqual, "発音ミス (Mispronunciation)")
			So(tr.Category(scoring.UnexpectedBreak), ShouldEqual, "不適切な間 (UnexpectedBreak)")
		})

		Convey("Then lesson names should be one-based", func() {
			So(tr.LessonName(0), ShouldEqual, "レッソン1")
		})

		Convey("Then the error detail should list non-empty categories", func() {
			d := tr.ErrorDetail(mispronounced("quick", "fox"))
			So(d, ShouldStartWith, "発音エラーの詳細：")
			So(d, ShouldContainSubstring, "- 発音ミス (Mispronunciation)：2回 (発生した単語: quick, fox)")
			So(d, ShouldNotContainSubstring, "Omission")
		})

		Convey("Then an empty attempt should read as no errors", func() {
			So(tr.ErrorDetail(scoring.NewBuckets()), ShouldEqual, "エラーはありません。")
		})

		Convey("Then three suggestions should be offered", func() {
			So(tr.Suggestions(), ShouldHaveLength, 3)
		})

		Convey("Then unknown IDs should come back unchanged", func() {
			So(tr.T("no_such_message", nil), ShouldEqual, "no_such_message")
		})
	})
}

func TestEnglish(t *testing.T) {
	Convey("Given the English translator", t, func() {
		tr, err := i18n.New("en")
		So(err, ShouldBeNil)

		Convey("Then labels and names should be English", func() {
			So(tr.Tag(), ShouldEqual, language.English)
			So(tr.Category(scoring.MissingBreak), ShouldEqual, "Missing break")
			So(tr.LessonName(2), ShouldEqual, "Lesson 3")
			So(tr.ErrorDetail(mispronounced("a")), ShouldContainSubstring, "Mispronunciation: 1 times (words: a)")
		})
	})
}
