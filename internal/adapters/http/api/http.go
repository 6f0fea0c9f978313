// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/phonoecho/internal/adapters/audio"
	"github.com/okian/phonoecho/internal/adapters/dataset"
	"github.com/okian/phonoecho/internal/adapters/repository"
	"github.com/okian/phonoecho/internal/adapters/speech"
	service "github.com/okian/phonoecho/internal/app"
	"github.com/okian/phonoecho/internal/domain/assessment"
	"github.com/okian/phonoecho/pkg/logger"
)

const (
	// SessionCookie carries the session token.
	SessionCookie = "phonoecho_session"

	defaultMaxUploadBytes = 32 << 20
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	AccountDependencies
	LessonDependencies
	FeedbackDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	authHandler     *AuthHandler
	lessonsHandler  *LessonsHandler
	feedbackHandler *FeedbackHandler
}

// Option configures the Server.
type Option func(*serverConfig)

type serverConfig struct {
	maxUploadBytes int64
	secureCookies  bool
	warning        string
	log            logger.Logger
}

// WithMaxUploadBytes caps the size of a recording upload.
func WithMaxUploadBytes(n int64) Option {
	return func(c *serverConfig) {
		if n > 0 {
			c.maxUploadBytes = n
		}
	}
}

// WithSecureCookies marks the session cookie Secure.
func WithSecureCookies(secure bool) Option {
	return func(c *serverConfig) {
		c.secureCookies = secure
	}
}

// WithFeedbackWarning sets the text sent when a feedback stream fails.
func WithFeedbackWarning(msg string) Option {
	return func(c *serverConfig) {
		if msg != "" {
			c.warning = msg
		}
	}
}

// WithLogger sets the handler logger.
func WithLogger(l logger.Logger) Option {
	return func(c *serverConfig) {
		if l != nil {
			c.log = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	cfg := serverConfig{
		maxUploadBytes: defaultMaxUploadBytes,
		warning:        "feedback failed",
		log:            logger.Nop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		authHandler:     NewAuthHandler(deps, cfg.secureCookies),
		lessonsHandler:  NewLessonsHandler(deps, cfg.maxUploadBytes),
		feedbackHandler: NewFeedbackHandler(deps, cfg.warning, cfg.log),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("POST /api/register", MetricsMiddleware(s.authHandler.HandleRegister, "register"))
	mux.HandleFunc("POST /api/login", MetricsMiddleware(s.authHandler.HandleLogin, "login"))
	mux.HandleFunc("POST /api/logout", MetricsMiddleware(s.authHandler.HandleLogout, "logout"))
	mux.HandleFunc("GET /api/session", MetricsMiddleware(s.authHandler.HandleSession, "session"))

	mux.HandleFunc("GET /api/lessons", MetricsMiddleware(s.lessonsHandler.HandleList, "lessons"))
	mux.HandleFunc("GET /api/lessons/{index}", MetricsMiddleware(s.lessonsHandler.HandleGet, "lesson"))
	mux.HandleFunc("GET /api/lessons/{index}/video", MetricsMiddleware(s.lessonsHandler.HandleVideo, "lesson_video"))
	mux.HandleFunc("POST /api/lessons/{index}/select", MetricsMiddleware(s.lessonsHandler.HandleSelect, "lesson_select"))
	mux.HandleFunc("GET /api/lessons/{index}/summary", MetricsMiddleware(s.lessonsHandler.HandleSummary, "lesson_summary"))
	mux.HandleFunc("POST /api/lessons/{index}/attempts", MetricsMiddleware(s.lessonsHandler.HandleSubmit, "attempt_submit"))
	mux.HandleFunc("GET /api/lessons/{index}/attempts", MetricsMiddleware(s.lessonsHandler.HandleAttempts, "attempt_list"))

	mux.HandleFunc("GET /api/feedback", MetricsMiddleware(s.feedbackHandler.HandleFeedback, "feedback"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure maps a service error to its status and code. Dataset errors
// carry filesystem paths, so only the sentinel text is sent.
func writeFailure(w http.ResponseWriter, err error) {
	status, code := classify(err)
	if errors.Is(err, dataset.ErrMismatchedLessons) {
		err = dataset.ErrMismatchedLessons
	}
	writeError(w, status, code, err)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, repository.ErrUserNotFound), errors.Is(err, repository.ErrWrongPassword):
		return http.StatusUnauthorized, "invalid_credentials"
	case errors.Is(err, repository.ErrUserExists):
		return http.StatusConflict, "user_exists"
	case errors.Is(err, repository.ErrInvalidName), errors.Is(err, repository.ErrInvalidPassword),
		errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, ErrUpload), errors.Is(err, audio.ErrUnsupportedFormat), errors.Is(err, audio.ErrEmptyRecording):
		return http.StatusBadRequest, "invalid_recording"
	case errors.Is(err, dataset.ErrLessonNotFound):
		return http.StatusNotFound, "lesson_not_found"
	case errors.Is(err, dataset.ErrMismatchedLessons):
		return http.StatusConflict, "dataset_mismatch"
	case errors.Is(err, service.ErrNoAttempt):
		return http.StatusConflict, "no_attempt"
	case errors.Is(err, service.ErrAuditDisabled):
		return http.StatusNotFound, "audit_disabled"
	case errors.Is(err, service.ErrAssessmentUnavailable), errors.Is(err, service.ErrFeedbackUnavailable):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, assessment.ErrMalformedResult):
		return http.StatusBadGateway, "malformed_result"
	case errors.Is(err, speech.ErrAssessment):
		return http.StatusBadGateway, "assessment_failed"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// sessionToken reads the session cookie, falling back to a bearer token.
func sessionToken(r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}
