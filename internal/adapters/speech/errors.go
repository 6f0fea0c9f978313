package speech

import "errors"

var (
	// ErrAssessment wraps every failure talking to the speech service.
	ErrAssessment = errors.New("pronunciation assessment failed")
	// ErrNotConfigured is returned when no subscription key is set.
	ErrNotConfigured = errors.New("speech service not configured")
	// ErrNoMatch is returned when the service did not recognise speech.
	ErrNoMatch = errors.New("speech not recognised")
)
