package feedback

import "errors"

var (
	// ErrNothingToDiscuss is returned when no error category has a count.
	ErrNothingToDiscuss = errors.New("no pronunciation errors to discuss")
	// ErrNotConfigured is returned when no chat API key is set.
	ErrNotConfigured = errors.New("chat service not configured")
	// ErrChat wraps failures of the chat completion service.
	ErrChat = errors.New("chat completion failed")
)
