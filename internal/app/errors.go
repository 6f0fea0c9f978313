package service

import "errors"

// Sentinel errors returned by Service operations.
var (
	ErrUnauthorized          = errors.New("not logged in")
	ErrNoAttempt             = errors.New("no attempt recorded in this session")
	ErrAssessmentUnavailable = errors.New("pronunciation assessment is not configured")
	ErrFeedbackUnavailable   = errors.New("coaching is not configured")
	ErrAuditDisabled         = errors.New("attempt log is disabled")
	ErrNotStarted            = errors.New("service not started")
)
