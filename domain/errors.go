package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("validation error")
	ErrNotFound          = errors.New("not found")
	ErrExternalService   = errors.New("external service error")
	ErrIncompleteScene   = errors.New("incomplete scene")
	ErrEmptyInput        = errors.New("empty input")
	ErrIO                = errors.New("io error")
	ErrConflict          = errors.New("conflict")
	ErrInvalidTransition = errors.New("invalid status transition")
)

type ExternalServiceError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *ExternalServiceError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %s", e.Service, e.Body)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Service, e.StatusCode, e.Body)
}

func (e *ExternalServiceError) Unwrap() error {
	return ErrExternalService
}

// ClientError reports a 4xx answer, which callers treat as terminal.
func (e *ExternalServiceError) ClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

type IncompleteSceneError struct {
	SceneID string
	Reason  string
}

func (e *IncompleteSceneError) Error() string {
	return fmt.Sprintf("scene %s is incomplete: %s", e.SceneID, e.Reason)
}

func (e *IncompleteSceneError) Unwrap() error {
	return ErrIncompleteScene
}

func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func IOErrorf(err error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s: %w", ErrIO, fmt.Sprintf(format, args...), err)
}
