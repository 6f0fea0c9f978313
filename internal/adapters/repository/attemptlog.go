package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/okian/phonoecho/internal/domain/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// recordedAtLayout has fixed width so text order matches time order.
const recordedAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// AttemptLog is an append-only SQLite log of assessed attempts. It keeps an
// audit trail next to the overwrite-on-save JSON files.
type AttemptLog struct {
	db     *sql.DB
	closed atomic.Bool
}

// OpenAttemptLog opens or creates the SQLite database and applies migrations.
func OpenAttemptLog(ctx context.Context, path string) (*AttemptLog, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// one writer; sqlite serializes anyway and :memory: is per connection
	db.SetMaxOpenConns(1)
	l := &AttemptLog{db: db}
	if err := l.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate attempt log: %w", err)
	}
	return l, nil
}

// Close closes the underlying database.
func (l *AttemptLog) Close() error {
	if l.closed.Swap(true) {
		return nil
	}
	return l.db.Close()
}

func (l *AttemptLog) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS attempts (
			id TEXT PRIMARY KEY,
			user TEXT NOT NULL,
			lesson INTEGER NOT NULL,
			attempt INTEGER NOT NULL,
			accuracy REAL NOT NULL,
			fluency REAL NOT NULL,
			completeness REAL NOT NULL,
			prosody REAL NOT NULL,
			pron REAL NOT NULL,
			error_count INTEGER NOT NULL,
			errors TEXT NOT NULL,
			audio_path TEXT NOT NULL,
			result_path TEXT NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_user_lesson ON attempts(user, lesson, recorded_at);`,
	}
	for _, stmt := range stmts {
		if _, err := l.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Append stores one attempt. Rows are never updated or deleted.
func (l *AttemptLog) Append(ctx context.Context, rec model.AttemptRecord) error {
	if l.closed.Load() {
		return ErrAttemptLogClosed
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO attempts (id, user, lesson, attempt, accuracy, fluency, completeness, prosody, pron, error_count, errors, audio_path, result_path, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.User,
		rec.Lesson,
		rec.Attempt,
		rec.AccuracyScore,
		rec.FluencyScore,
		rec.CompletenessScore,
		rec.ProsodyScore,
		rec.PronScore,
		rec.ErrorCount,
		rec.Errors,
		rec.AudioPath,
		rec.ResultPath,
		rec.RecordedAt.UTC().Format(recordedAtLayout),
	)
	if err != nil {
		return fmt.Errorf("append attempt %s: %w", rec.ID, err)
	}
	return nil
}

// List returns the attempts of user, newest first. A negative lesson
// matches every lesson; limit <= 0 means no limit.
func (l *AttemptLog) List(ctx context.Context, user string, lesson, limit int) ([]model.AttemptRecord, error) {
	if l.closed.Load() {
		return nil, ErrAttemptLogClosed
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, user, lesson, attempt, accuracy, fluency, completeness, prosody, pron, error_count, errors, audio_path, result_path, recorded_at
		 FROM attempts
		 WHERE user = ? AND (? < 0 OR lesson = ?)
		 ORDER BY recorded_at DESC, attempt DESC
		 LIMIT ?`,
		user, lesson, lesson, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	out := []model.AttemptRecord{}
	for rows.Next() {
		var rec model.AttemptRecord
		var recordedAt string
		if err := rows.Scan(&rec.ID, &rec.User, &rec.Lesson, &rec.Attempt,
			&rec.AccuracyScore, &rec.FluencyScore, &rec.CompletenessScore, &rec.ProsodyScore, &rec.PronScore,
			&rec.ErrorCount, &rec.Errors, &rec.AudioPath, &rec.ResultPath, &recordedAt); err != nil {
			return nil, err
		}
		if rec.RecordedAt, err = time.Parse(recordedAtLayout, recordedAt); err != nil {
			return nil, fmt.Errorf("%w: attempt %s recorded_at: %w", ErrCorruptFile, rec.ID, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns the number of logged attempts.
func (l *AttemptLog) Count(ctx context.Context) (int, error) {
	if l.closed.Load() {
		return 0, ErrAttemptLogClosed
	}
	var n int
	if err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM attempts`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
