package service

import (
	"context"
	"errors"
	"strings"

	"github.com/okian/phonoecho/internal/adapters/feedback"
	"github.com/okian/phonoecho/internal/domain/scoring"
	"github.com/okian/phonoecho/internal/domain/session"
	"github.com/okian/phonoecho/pkg/logger"
)

// FeedbackStream is the coaching reply to the session's latest attempt.
// Summary is available at once; Chunks is closed when the reply ends and
// carries at most one error, as its last element.
type FeedbackStream struct {
	Summary string
	Chunks  <-chan feedback.Chunk
}

// Feedback starts coaching on the session's latest attempt. A clean
// attempt yields a summary and an already closed stream. The completed
// reply is remembered on the attempt.
func (s *Service) Feedback(ctx context.Context, token string) (FeedbackStream, error) {
	st, err := s.Session(ctx, token)
	if err != nil {
		return FeedbackStream{}, err
	}

	var (
		current scoring.Buckets
		id      string
	)
	err = st.With(func(st *session.AppState) error {
		if st.Learning == nil {
			return ErrNoAttempt
		}
		current = st.Learning.Current.Clone()
		id = st.Learning.AttemptID
		return nil
	})
	if err != nil {
		return FeedbackStream{}, err
	}

	if current.Total() == 0 {
		return FeedbackStream{Summary: s.tr.T("no_current_errors", nil), Chunks: closed()}, nil
	}
	if s.coach == nil {
		return FeedbackStream{}, ErrFeedbackUnavailable
	}
	summary, _ := s.coach.Summary(current)

	upstream, err := s.coach.Stream(ctx, current)
	if errors.Is(err, feedback.ErrNothingToDiscuss) {
		return FeedbackStream{Summary: s.tr.T("no_current_errors", nil), Chunks: closed()}, nil
	}
	if err != nil {
		return FeedbackStream{}, err
	}

	out := make(chan feedback.Chunk)
	go func() {
		defer close(out)
		var (
			b      strings.Builder
			failed bool
		)
		for c := range upstream {
			if c.Err != nil {
				failed = true
			} else {
				b.WriteString(c.Text)
			}
			select {
			case out <- c:
			case <-ctx.Done():
				failed = true
			}
		}
		if failed {
			return
		}
		_ = st.With(func(st *session.AppState) error {
			if st.Learning != nil && st.Learning.AttemptID == id {
				st.Learning.Feedback = b.String()
			}
			return nil
		})
		s.logger.Debug(ctx, "feedback stored", logger.String("attempt", id), logger.Int("length", b.Len()))
	}()

	return FeedbackStream{Summary: summary, Chunks: out}, nil
}

func closed() <-chan feedback.Chunk {
	ch := make(chan feedback.Chunk)
	close(ch)
	return ch
}
