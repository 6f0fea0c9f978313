package model_test

import (
	"os"
	"path/filepath"
	"testing"

	model "github.com/okian/phonoecho/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestLessonNaming(t *testing.T) {
	convey.Convey("Given lesson indices", t, func() {
		convey.Convey("Then names should be 1-based and keys 0-based", func() {
			convey.So(model.LessonName(0), convey.ShouldEqual, "Lesson 1")
			convey.So(model.LessonName(9), convey.ShouldEqual, "Lesson 10")
			convey.So(model.LessonKey(0), convey.ShouldEqual, "lesson_0")
			convey.So(model.LessonKey(12), convey.ShouldEqual, "lesson_12")
		})
	})
}

func TestLessonText(t *testing.T) {
	convey.Convey("Given a lesson with a text file", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "01.txt")
		convey.So(os.WriteFile(path, []byte("  The quick brown fox.\n"), 0o600), convey.ShouldBeNil)
		l := model.Lesson{Index: 0, Name: model.LessonName(0), TextPath: path}

		convey.Convey("Then Text should return the trimmed reference", func() {
			text, err := l.Text()
			convey.So(err, convey.ShouldBeNil)
			convey.So(text, convey.ShouldEqual, "The quick brown fox.")
		})

		convey.Convey("When the file is gone", func() {
			l.TextPath = filepath.Join(dir, "missing.txt")
			_, err := l.Text()

			convey.Convey("Then it should return an error naming the lesson", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "Lesson 1")
			})
		})
	})
}
