// Package errors defines the sentinel errors shared across the engine and a
// status-carrying AppError for the HTTP layer.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrMissingCorpus means the engine has no source text to build from.
	ErrMissingCorpus = errors.New("corpus not found")
	// ErrSnapshotWrite means the index snapshot could not be persisted. The
	// in-memory engine remains usable.
	ErrSnapshotWrite = errors.New("snapshot write failed")
	// ErrInternalConsistency means the index references a passage that does
	// not exist. It indicates a build bug and is never recovered from.
	ErrInternalConsistency = errors.New("index internal consistency violation")
	ErrInvalidInput        = errors.New("invalid input")
	ErrIndexNotReady       = errors.New("index not ready")
	ErrTimeout             = errors.New("operation timed out")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// HTTPStatusCode maps an error to the status the HTTP layer responds with.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrIndexNotReady), errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
