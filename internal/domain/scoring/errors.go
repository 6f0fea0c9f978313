package scoring

import (
	"errors"
)

// Sentinel errors for scoring.
var (
	ErrUnknownCategory = errors.New("unknown error category")
	ErrInvalidLesson   = errors.New("invalid lesson index")
	ErrPersist         = errors.New("persist lesson history")
)
