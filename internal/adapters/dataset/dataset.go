// Package dataset loads a user's lessons: sorted *.txt reference texts paired
// with sorted *.mp4 reference videos.
package dataset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/okian/phonoecho/internal/domain/model"
)

// Sentinel errors.
var (
	ErrMismatchedLessons = errors.New("number of text and video files don't match")
	ErrLessonNotFound    = errors.New("lesson not found")
)

// Dataset is an ordered, immutable list of lessons.
type Dataset struct {
	Dir     string
	Lessons []model.Lesson
}

// Load reads dir, creating it when missing. Ordering is by file name, so
// indices stay stable as long as files are not renamed.
func Load(dir string) (*Dataset, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create dataset dir: %w", err)
	}
	texts, err := glob(dir, "*.txt")
	if err != nil {
		return nil, err
	}
	videos, err := glob(dir, "*.mp4")
	if err != nil {
		return nil, err
	}
	if len(texts) != len(videos) {
		return nil, fmt.Errorf("%w: %d texts, %d videos in %s", ErrMismatchedLessons, len(texts), len(videos), dir)
	}
	d := &Dataset{Dir: dir, Lessons: make([]model.Lesson, len(texts))}
	for i := range texts {
		d.Lessons[i] = model.Lesson{
			Index:     i,
			Name:      model.LessonName(i),
			TextPath:  texts[i],
			VideoPath: videos[i],
		}
	}
	return d, nil
}

func glob(dir, pattern string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

// Lesson returns the lesson at index.
func (d *Dataset) Lesson(index int) (model.Lesson, error) {
	if index < 0 || index >= len(d.Lessons) {
		return model.Lesson{}, fmt.Errorf("%w: %d of %d", ErrLessonNotFound, index, len(d.Lessons))
	}
	return d.Lessons[index], nil
}

// Len is the number of lessons.
func (d *Dataset) Len() int { return len(d.Lessons) }
