package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/okian/phonoecho/internal/domain/model"
	"github.com/okian/phonoecho/internal/domain/types"
)

const (
	uploadField       = "audio"
	defaultListLimit  = 50
	maxListLimit      = 500
	multipartMemLimit = 8 << 20
)

// LessonDependencies defines the interface for lesson and attempt operations.
type LessonDependencies interface {
	Lessons(ctx context.Context, token string) ([]types.LessonInfo, error)
	Lesson(ctx context.Context, token string, index int) (types.LessonDetail, error)
	LessonVideo(ctx context.Context, token string, index int) (string, error)
	SelectLesson(ctx context.Context, token string, index int) (types.Summary, error)
	Summary(ctx context.Context, token string, index int) (types.Summary, error)
	SubmitAttempt(ctx context.Context, token string, index int, recording io.ReadSeeker) (types.AttemptOutcome, error)
	Attempts(ctx context.Context, token string, index, limit int) ([]model.AttemptRecord, error)
}

// LessonsHandler handles the lesson picker, lesson media and attempts.
type LessonsHandler struct {
	deps           LessonDependencies
	maxUploadBytes int64
}

// NewLessonsHandler creates a new lessons handler.
func NewLessonsHandler(deps LessonDependencies, maxUploadBytes int64) *LessonsHandler {
	return &LessonsHandler{deps: deps, maxUploadBytes: maxUploadBytes}
}

func lessonIndex(r *http.Request, op string) (int, error) {
	raw := r.PathValue("index")
	i, err := strconv.Atoi(raw)
	if err != nil {
		return 0, WrapKind(op, ErrBadRequest, err)
	}
	if i < 0 {
		return 0, WrapKind(op, ErrBadRequest, errors.New("negative lesson index"))
	}
	return i, nil
}

// HandleList handles GET /api/lessons.
func (h *LessonsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	lessons, err := h.deps.Lessons(r.Context(), sessionToken(r))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lessons)
}

// HandleGet handles GET /api/lessons/{index}.
func (h *LessonsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	i, err := lessonIndex(r, "api.lesson")
	if err != nil {
		writeFailure(w, err)
		return
	}
	l, err := h.deps.Lesson(r.Context(), sessionToken(r), i)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// HandleVideo handles GET /api/lessons/{index}/video. Range requests are
// served so the browser can seek.
func (h *LessonsHandler) HandleVideo(w http.ResponseWriter, r *http.Request) {
	i, err := lessonIndex(r, "api.lesson_video")
	if err != nil {
		writeFailure(w, err)
		return
	}
	path, err := h.deps.LessonVideo(r.Context(), sessionToken(r), i)
	if err != nil {
		writeFailure(w, err)
		return
	}
	w.Header().Set("Content-Type", "video/mp4")
	http.ServeFile(w, r, path)
}

// HandleSelect handles POST /api/lessons/{index}/select.
func (h *LessonsHandler) HandleSelect(w http.ResponseWriter, r *http.Request) {
	i, err := lessonIndex(r, "api.lesson_select")
	if err != nil {
		writeFailure(w, err)
		return
	}
	sum, err := h.deps.SelectLesson(r.Context(), sessionToken(r), i)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// HandleSummary handles GET /api/lessons/{index}/summary.
func (h *LessonsHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	i, err := lessonIndex(r, "api.lesson_summary")
	if err != nil {
		writeFailure(w, err)
		return
	}
	sum, err := h.deps.Summary(r.Context(), sessionToken(r), i)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// HandleSubmit handles POST /api/lessons/{index}/attempts with the recording
// in the multipart field "audio".
func (h *LessonsHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.attempt_submit"
	i, err := lessonIndex(r, op)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if r.ContentLength > h.maxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "too_large", NewKind(op, ErrUpload))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemLimit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "too_large", WrapKind(op, ErrUpload, err))
			return
		}
		writeFailure(w, WrapKind(op, ErrUpload, err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()
	file, _, err := r.FormFile(uploadField)
	if err != nil {
		writeFailure(w, WrapKind(op, ErrUpload, err))
		return
	}
	defer func() { _ = file.Close() }()

	out, err := h.deps.SubmitAttempt(r.Context(), sessionToken(r), i, file)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleAttempts handles GET /api/lessons/{index}/attempts?limit=N.
func (h *LessonsHandler) HandleAttempts(w http.ResponseWriter, r *http.Request) {
	const op = "api.attempt_list"
	i, err := lessonIndex(r, op)
	if err != nil {
		writeFailure(w, err)
		return
	}
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeFailure(w, NewKind(op, ErrBadRequest))
			return
		}
		limit = min(n, maxListLimit)
	}
	rows, err := h.deps.Attempts(r.Context(), sessionToken(r), i, limit)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if rows == nil {
		rows = []model.AttemptRecord{}
	}
	writeJSON(w, http.StatusOK, rows)
}
