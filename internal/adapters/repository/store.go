// Package repository persists users, per-lesson practice history, raw
// recordings and the attempt audit log under the data directory.
package repository

import (
	"path/filepath"
	"strings"
	"time"
)

// Directory and file names of the on-disk layout.
const (
	usersDir          = "all_users"
	usersFile         = "users_info.json"
	practiceDir       = "practice_history"
	scoresDir         = "scores"
	lessonScoresFile  = "lesson_scores.json"
	errorHistoryFile  = "error_history.json"
	learningDir       = "learning_database"
	dayLayout         = "2006-01-02"
	artifactTimestamp = "2006-01-02_15-04-05"
)

// Layout resolves paths below the data directory:
//
//	<root>/all_users/users_info.json
//	<root>/<user>/practice_history/<YYYY-MM-DD>/scores/{lesson_scores,error_history}.json
//	<root>/<user>/practice_history/<YYYY-MM-DD>/<lesson>-<timestamp>.{wav,json}
//	<root>/learning_database/<user>/*.{txt,mp4}
type Layout struct {
	Root string
}

// UsersFile is the credential registry.
func (l Layout) UsersFile() string { return filepath.Join(l.Root, usersDir, usersFile) }

// UserDir is the root of a user's tree.
func (l Layout) UserDir(user string) string { return filepath.Join(l.Root, user) }

// PracticeDir holds one directory per practice day.
func (l Layout) PracticeDir(user string) string {
	return filepath.Join(l.UserDir(user), practiceDir)
}

// DayDir is the directory of one practice day.
func (l Layout) DayDir(user string, day time.Time) string {
	return filepath.Join(l.PracticeDir(user), day.Format(dayLayout))
}

// ScoresDir holds the two per-day JSON files.
func (l Layout) ScoresDir(user string, day time.Time) string {
	return filepath.Join(l.DayDir(user, day), scoresDir)
}

// LessonScoresFile maps lesson keys to five score sequences.
func (l Layout) LessonScoresFile(user string, day time.Time) string {
	return filepath.Join(l.ScoresDir(user, day), lessonScoresFile)
}

// ErrorHistoryFile maps lesson keys to current and cumulative buckets.
func (l Layout) ErrorHistoryFile(user string, day time.Time) string {
	return filepath.Join(l.ScoresDir(user, day), errorHistoryFile)
}

// LearningDir holds the user's lesson dataset.
func (l Layout) LearningDir(user string) string {
	return filepath.Join(l.Root, learningDir, user)
}

// ArtifactBase is the path without extension of a raw recording or result.
func (l Layout) ArtifactBase(user, selection string, at time.Time) string {
	return filepath.Join(l.DayDir(user, at), selection+"-"+at.Format(artifactTimestamp))
}

// validName rejects names that would escape the data directory.
func validName(name string) bool {
	if strings.TrimSpace(name) == "" || name == "." || name == ".." || name == usersDir || name == learningDir {
		return false
	}
	return !strings.ContainsAny(name, `/\`+"\x00")
}
