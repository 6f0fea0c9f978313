package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/google/uuid"

	"github.com/okian/phonoecho/internal/adapters/audio"
	"github.com/okian/phonoecho/internal/adapters/repository"
	"github.com/okian/phonoecho/internal/adapters/speech"
	"github.com/okian/phonoecho/internal/domain/assessment"
	"github.com/okian/phonoecho/internal/domain/model"
	"github.com/okian/phonoecho/internal/domain/scoring"
	"github.com/okian/phonoecho/internal/domain/session"
	"github.com/okian/phonoecho/internal/domain/types"
	"github.com/okian/phonoecho/internal/domain/visual"
	"github.com/okian/phonoecho/pkg/logger"
	"github.com/okian/phonoecho/pkg/metrics"
)

const waveformBins = 400

// SubmitAttempt assesses one recording of lesson index and records it.
// Assessment failures discard the attempt; a failure to write the score
// files keeps it in the session with Persisted set to false.
func (s *Service) SubmitAttempt(ctx context.Context, token string, index int, recording io.ReadSeeker) (types.AttemptOutcome, error) {
	st, err := s.Session(ctx, token)
	if err != nil {
		return types.AttemptOutcome{}, err
	}
	if s.assessor == nil {
		return types.AttemptOutcome{}, ErrAssessmentUnavailable
	}
	lesson, err := s.lesson(st.User, index)
	if err != nil {
		return types.AttemptOutcome{}, err
	}
	reference, err := lesson.Text()
	if err != nil {
		return types.AttemptOutcome{}, err
	}

	var out types.AttemptOutcome
	err = st.With(func(st *session.AppState) error {
		if err := s.selectLocked(ctx, st, index); err != nil {
			return err
		}
		out, err = s.submitLocked(ctx, st, index, reference, recording)
		return err
	})
	return out, err
}

func (s *Service) submitLocked(ctx context.Context, st *session.AppState, index int, reference string, recording io.ReadSeeker) (types.AttemptOutcome, error) {
	wav, info, err := audio.Normalize(recording, s.sampleRate)
	if err != nil {
		return types.AttemptOutcome{}, err
	}
	art, err := s.repo.SaveRecording(ctx, st.User, model.LessonKey(index), wav)
	if err != nil {
		return types.AttemptOutcome{}, err
	}

	start := s.now()
	res, raw, err := s.assessor.Assess(ctx, wav, reference)
	metrics.RecordAssessmentLatency(float64(s.now().Sub(start).Milliseconds()))
	if err != nil {
		metrics.RecordAssessmentError(assessmentErrorKind(err))
		s.logger.Warn(ctx, "assessment failed",
			logger.String("user", st.User),
			logger.Int("lesson", index),
			logger.Error(err),
		)
		return types.AttemptOutcome{}, err
	}
	if err := s.repo.SaveResult(ctx, art, raw); err != nil {
		s.logger.Warn(ctx, "result not saved", logger.String("path", art.ResultPath), logger.Error(err))
	}

	rec, err := st.Tracker.Record(ctx, index, res)
	persisted := true
	switch {
	case errors.Is(err, scoring.ErrPersist):
		persisted = false
		s.logger.Warn(ctx, "lesson history not saved", logger.String("user", st.User), logger.Error(err))
	case err != nil:
		metrics.RecordAssessmentError(assessmentErrorKind(err))
		return types.AttemptOutcome{}, err
	}
	if persisted {
		entry := art.At.Format(historyDayLayout) + "/" + model.LessonKey(index)
		if err := s.repo.AppendHistory(ctx, st.User, entry); err != nil {
			s.logger.Warn(ctx, "user history not updated", logger.String("user", st.User), logger.Error(err))
		}
	}

	best, _ := res.Best()
	charts, err := s.charts(wav, best, rec.Current, st.Tracker.Lesson(index).Total, rec.Scores)
	if err != nil {
		return types.AttemptOutcome{}, err
	}

	id := uuid.NewString()
	st.Learning = &session.Learning{
		AttemptID: id,
		Lesson:    index,
		Scores:    rec.Scores,
		Current:   rec.Current.Clone(),
		AudioPath: art.AudioPath,
		At:        art.At,
	}
	s.audit(ctx, st.User, id, rec, art)

	metrics.RecordAttemptAssessed(model.LessonKey(index))
	metrics.RecordPronScore(rec.Scores.PronScore)
	for c, n := range rec.Current.Stats() {
		metrics.RecordErrorCategory(c.String(), n)
	}
	celebrate := rec.Scores.PronScore >= s.celebrationScore
	if celebrate {
		metrics.RecordCelebration()
	}

	s.logger.Info(ctx, "attempt assessed",
		logger.String("user", st.User),
		logger.Int("lesson", index),
		logger.Int("attempt", rec.Attempt),
		logger.Float64("pron", rec.Scores.PronScore),
		logger.Duration("duration", info.Duration),
	)

	return types.AttemptOutcome{
		ID:          id,
		Lesson:      index,
		Attempt:     rec.Attempt,
		Scores:      rec.Scores,
		Errors:      rec.Current,
		ErrorDetail: s.tr.ErrorDetail(rec.Current),
		Celebrate:   celebrate,
		Persisted:   persisted,
		RecordedAt:  art.At,
		Charts:      charts,
		Summary:     s.summary(st, index),
	}, nil
}

func (s *Service) charts(wav []byte, best assessment.NBest, current, total scoring.Buckets, scores assessment.Scores) (types.Charts, error) {
	envelope, duration, err := audio.Envelope(wav, waveformBins)
	if err != nil {
		return types.Charts{}, err
	}
	peaks := make([]visual.Peak, len(envelope))
	for i, p := range envelope {
		peaks[i] = visual.Peak{Min: p.Min, Max: p.Max}
	}
	table, err := visual.SyllableTable(best)
	if err != nil {
		return types.Charts{}, err
	}
	return types.Charts{
		Radar:     visual.Radar(scores, s.tr),
		Waveform:  visual.Waveform(peaks, duration, best, s.tr),
		Current:   visual.Doughnut(current, s.tr.T("current_errors_title", nil), s.tr),
		Total:     visual.Doughnut(total, s.tr.T("total_errors_title", nil), s.tr),
		Syllables: string(table),
	}, nil
}

// summary must be called with the session locked.
func (s *Service) summary(st *session.AppState, index int) types.Summary {
	state := st.Tracker.Lesson(index)
	out := types.Summary{
		Lesson:      index,
		Name:        s.tr.LessonName(index),
		Empty:       state.Empty(),
		Current:     visual.Doughnut(state.Current, s.tr.T("current_errors_title", nil), s.tr),
		Total:       visual.Doughnut(state.Total, s.tr.T("total_errors_title", nil), s.tr),
		WeakWords:   st.Tracker.WeakWords(index, weakWordCount),
		Suggestions: []string{},
	}
	p, ok := scoring.Summarize(state.History)
	if !ok {
		out.Message = s.tr.T("start_practice", nil)
		return out
	}
	chart, _ := visual.ProgressSeries(state.History)
	out.Progress = &p
	out.Chart = &chart
	out.Suggestions = s.tr.Suggestions()
	return out
}

func (s *Service) audit(ctx context.Context, user, id string, rec scoring.Outcome, art repository.Artifacts) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.auditQueue == nil {
		return
	}
	errs, err := json.Marshal(rec.Current)
	if err != nil {
		errs = []byte("{}")
	}
	r := model.AttemptRecord{
		ID:                id,
		User:              user,
		Lesson:            rec.Lesson,
		Attempt:           rec.Attempt,
		AccuracyScore:     rec.Scores.AccuracyScore,
		FluencyScore:      rec.Scores.FluencyScore,
		CompletenessScore: rec.Scores.CompletenessScore,
		ProsodyScore:      rec.Scores.ProsodyScore,
		PronScore:         rec.Scores.PronScore,
		ErrorCount:        rec.Current.Total(),
		Errors:            string(errs),
		AudioPath:         art.AudioPath,
		ResultPath:        art.ResultPath,
		RecordedAt:        art.At,
	}
	if err := s.auditQueue.Enqueue(ctx, r); err != nil {
		metrics.RecordAuditEnqueueError()
		s.logger.Warn(ctx, "attempt not queued for audit", logger.String("id", id), logger.Error(err))
		return
	}
	metrics.UpdateAuditQueueSize(s.auditQueue.Len(ctx))
}

func assessmentErrorKind(err error) string {
	switch {
	case errors.Is(err, speech.ErrNoMatch):
		return "no_match"
	case errors.Is(err, assessment.ErrMalformedResult):
		return "malformed_result"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout"
	default:
		return "service"
	}
}
