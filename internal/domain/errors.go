package domain

import "errors"

// Domain errors
var (
	ErrEventNotFound   = errors.New("event not found")
	ErrWinNotFound     = errors.New("win record not found")
	ErrStudentNotFound = errors.New("student not found in rankings")
	ErrInvalidEvent    = errors.New("invalid event")
	ErrInvalidWin      = errors.New("invalid win record")
	ErrInvalidRequest  = errors.New("invalid request")
	ErrInternalError   = errors.New("internal server error")
)

// IsNotFoundError checks if an error is a not-found type error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrEventNotFound) ||
		errors.Is(err, ErrWinNotFound) ||
		errors.Is(err, ErrStudentNotFound)
}
