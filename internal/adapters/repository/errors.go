package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrUserExists       = errors.New("user already exists")
	ErrUserNotFound     = errors.New("user not found")
	ErrWrongPassword    = errors.New("wrong password")
	ErrInvalidName      = errors.New("invalid user name")
	ErrInvalidPassword  = errors.New("invalid password")
	ErrCorruptFile      = errors.New("corrupt data file")
	ErrAttemptLogClosed = errors.New("attempt log closed")
)
