package worker

import (
	"context"
	"errors"
)

// JobHandler is a unit of periodic work.
type JobHandler interface {
	// Type returns the job type identifier used in logs and metrics.
	Type() string

	// Run executes one pass of the job. Return NewPermanentError to stop
	// scheduling the job entirely.
	Run(ctx context.Context) error
}

// PermanentError wraps an error to indicate the job should not run again.
type PermanentError struct {
	Err error
}

// Error implements the error interface.
func (e *PermanentError) Error() string {
	return e.Err.Error()
}

// Unwrap allows errors.Is and errors.As to work with PermanentError.
func (e *PermanentError) Unwrap() error {
	return e.Err
}

// NewPermanentError creates a new PermanentError that wraps the given error.
func NewPermanentError(err error) error {
	return &PermanentError{Err: err}
}

// IsPermanent checks if an error is a PermanentError.
func IsPermanent(err error) bool {
	var permErr *PermanentError
	return errors.As(err, &permErr)
}
