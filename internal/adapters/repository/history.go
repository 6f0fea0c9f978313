package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/okian/phonoecho/internal/domain/model"
	"github.com/okian/phonoecho/internal/domain/scoring"
	"github.com/okian/phonoecho/pkg/logger"
)

// errorEntry is one lesson's value in error_history.json.
type errorEntry struct {
	Current scoring.Buckets `json:"current"`
	Total   scoring.Buckets `json:"total"`
}

// HistoryStore persists one user's lesson state into the two per-day JSON
// files. It implements scoring.Store.
type HistoryStore struct {
	repo *FileRepository
	user string
}

var _ scoring.Store = (*HistoryStore)(nil)

// History returns the score store of user.
func (r *FileRepository) History(user string) *HistoryStore {
	return &HistoryStore{repo: r, user: user}
}

func (r *FileRepository) historyLock(user string) *sync.Mutex {
	mu, _ := r.historyMu.LoadOrStore(user, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// LoadLesson reads the lesson's entries for today. found is false when
// neither file has an entry for the lesson.
func (h *HistoryStore) LoadLesson(_ context.Context, lesson int) (scoring.LessonState, bool, error) {
	mu := h.repo.historyLock(h.user)
	mu.Lock()
	defer mu.Unlock()

	day := h.repo.now()
	key := model.LessonKey(lesson)
	state := scoring.NewLessonState()

	scores := map[string]json.RawMessage{}
	if _, err := readJSON(h.repo.layout.LessonScoresFile(h.user, day), &scores); err != nil {
		return state, false, err
	}
	errs := map[string]json.RawMessage{}
	if _, err := readJSON(h.repo.layout.ErrorHistoryFile(h.user, day), &errs); err != nil {
		return state, false, err
	}

	rawScores, haveScores := scores[key]
	rawErrs, haveErrs := errs[key]
	if haveScores {
		hist := scoring.NewHistory()
		if err := json.Unmarshal(rawScores, &hist); err != nil {
			return state, false, fmt.Errorf("%w: %s in %s: %w", ErrCorruptFile, key, lessonScoresFile, err)
		}
		state.History = hist
	}
	if haveErrs {
		entry := errorEntry{Current: scoring.NewBuckets(), Total: scoring.NewBuckets()}
		if err := json.Unmarshal(rawErrs, &entry); err != nil {
			return state, false, fmt.Errorf("%w: %s in %s: %w", ErrCorruptFile, key, errorHistoryFile, err)
		}
		state.Current = entry.Current
		state.Total = entry.Total
	}
	return state, haveScores || haveErrs, nil
}

// SaveLesson replaces the lesson's entries in today's files. Entries of other
// lessons are preserved as they are.
func (h *HistoryStore) SaveLesson(ctx context.Context, lesson int, state scoring.LessonState) error {
	mu := h.repo.historyLock(h.user)
	mu.Lock()
	defer mu.Unlock()

	day := h.repo.now()
	key := model.LessonKey(lesson)

	scoresPath := h.repo.layout.LessonScoresFile(h.user, day)
	scores := map[string]json.RawMessage{}
	if _, err := readJSON(scoresPath, &scores); err != nil {
		return err
	}
	rawScores, err := json.Marshal(state.History)
	if err != nil {
		return err
	}
	scores[key] = rawScores
	if err := writeJSON(scoresPath, scores); err != nil {
		return fmt.Errorf("write %s: %w", scoresPath, err)
	}

	errsPath := h.repo.layout.ErrorHistoryFile(h.user, day)
	errs := map[string]json.RawMessage{}
	if _, err := readJSON(errsPath, &errs); err != nil {
		return err
	}
	rawErrs, err := json.Marshal(errorEntry{Current: state.Current, Total: state.Total})
	if err != nil {
		return err
	}
	errs[key] = rawErrs
	if err := writeJSON(errsPath, errs); err != nil {
		return fmt.Errorf("write %s: %w", errsPath, err)
	}

	h.repo.log.Debug(ctx, "lesson saved",
		logger.String("user", h.user),
		logger.String("lesson", key),
		logger.Int("attempts", state.History.Len()),
	)
	return nil
}
