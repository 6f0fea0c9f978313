package dataset_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/phonoecho/internal/adapters/dataset"
	. "github.com/smartystreets/goconvey/convey"
)

func touch(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestLoad(t *testing.T) {
	Convey("Given a lesson folder with paired files written out of order", t, func() {
		dir := t.TempDir()
		touch(t, dir, "02_fox.txt", "The quick brown fox.")
		touch(t, dir, "01_hello.txt", "Hello world.")
		touch(t, dir, "02_fox.mp4", "video")
		touch(t, dir, "01_hello.mp4", "video")
		touch(t, dir, "notes.md", "ignored")

		d, err := dataset.Load(dir)

		Convey("Then lessons should be paired in file name order", func() {
			So(err, ShouldBeNil)
			So(d.Len(), ShouldEqual, 2)
			So(d.Lessons[0].Name, ShouldEqual, "Lesson 1")
			So(filepath.Base(d.Lessons[0].TextPath), ShouldEqual, "01_hello.txt")
			So(filepath.Base(d.Lessons[0].VideoPath), ShouldEqual, "01_hello.mp4")
			So(d.Lessons[1].Index, ShouldEqual, 1)

			text, err := d.Lessons[1].Text()
			So(err, ShouldBeNil)
			So(text, ShouldEqual, "The quick brown fox.")
		})

		Convey("Then out-of-range lookups should fail", func() {
			_, err := d.Lesson(2)
			So(errors.Is(err, dataset.ErrLessonNotFound), ShouldBeTrue)
			_, err = d.Lesson(-1)
			So(errors.Is(err, dataset.ErrLessonNotFound), ShouldBeTrue)
			l, err := d.Lesson(0)
			So(err, ShouldBeNil)
			So(l.Index, ShouldEqual, 0)
		})
	})

	Convey("Given a folder with a text but no video", t, func() {
		dir := t.TempDir()
		touch(t, dir, "01.txt", "Hello.")

		_, err := dataset.Load(dir)

		Convey("Then loading should report the mismatch", func() {
			So(errors.Is(err, dataset.ErrMismatchedLessons), ShouldBeTrue)
		})
	})

	Convey("Given a folder that does not exist yet", t, func() {
		dir := filepath.Join(t.TempDir(), "learning_database", "hana")

		d, err := dataset.Load(dir)

		Convey("Then it should be created and empty", func() {
			So(err, ShouldBeNil)
			So(d.Len(), ShouldEqual, 0)
			_, statErr := os.Stat(dir)
			So(statErr, ShouldBeNil)
		})
	})
}
