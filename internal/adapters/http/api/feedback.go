package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"

	service "github.com/okian/phonoecho/internal/app"
	"github.com/okian/phonoecho/internal/domain/types"
	"github.com/okian/phonoecho/pkg/logger"
)

const frameWriteTimeout = 10 * time.Second

// FeedbackDependencies defines the interface for coaching.
type FeedbackDependencies interface {
	Feedback(ctx context.Context, token string) (service.FeedbackStream, error)
}

// FeedbackHandler streams coaching text over a websocket.
type FeedbackHandler struct {
	deps    FeedbackDependencies
	warning string
	log     logger.Logger
}

// NewFeedbackHandler creates a new feedback handler. warning is the text
// sent when the stream fails part way.
func NewFeedbackHandler(deps FeedbackDependencies, warning string, log logger.Logger) *FeedbackHandler {
	return &FeedbackHandler{deps: deps, warning: warning, log: log}
}

// HandleFeedback handles GET /api/feedback. Errors known before the upgrade
// are plain JSON responses; afterwards the socket carries a summary frame,
// chunk frames, then a done or warning frame.
func (h *FeedbackHandler) HandleFeedback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	fs, err := h.deps.Feedback(ctx, sessionToken(r))
	if err != nil {
		writeFailure(w, err)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.log.Warn(ctx, "feedback upgrade failed", logger.Error(err))
		return
	}
	defer func() { _ = conn.CloseNow() }()
	ctx = conn.CloseRead(ctx)

	if err := h.send(ctx, conn, types.FeedbackFrame{Type: types.FrameSummary, Text: fs.Summary}); err != nil {
		return
	}
	for c := range fs.Chunks {
		if c.Err != nil {
			h.log.Warn(ctx, "feedback stream failed", logger.Error(WrapKind("api.feedback", ErrStream, c.Err)))
			_ = h.send(ctx, conn, types.FeedbackFrame{Type: types.FrameWarning, Text: h.warning})
			_ = conn.Close(websocket.StatusNormalClosure, "")
			return
		}
		if err := h.send(ctx, conn, types.FeedbackFrame{Type: types.FrameChunk, Text: c.Text}); err != nil {
			return
		}
	}
	if err := h.send(ctx, conn, types.FeedbackFrame{Type: types.FrameDone}); err != nil {
		return
	}
	_ = conn.Close(websocket.StatusNormalClosure, "")
}

func (h *FeedbackHandler) send(ctx context.Context, conn *websocket.Conn, f types.FeedbackFrame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, frameWriteTimeout)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		h.log.Debug(ctx, "feedback client gone", logger.Error(err))
		return err
	}
	return nil
}
