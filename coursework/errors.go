package coursework

import (
	"errors"
	"fmt"

	"github.com/warp/coursework/penalty"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrTaskNotFound       = errors.New("task not found")
	ErrSubmissionNotFound = errors.New("submission not found")

	// ErrInvalidInput is wrapped by ValidationError.
	ErrInvalidInput = errors.New("invalid input")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// TaskConfigError reports a task whose late penalty string is malformed.
// Callers must surface it rather than assess the task as penalty-free.
type TaskConfigError struct {
	TaskID TaskID
	Err    error
}

func (e *TaskConfigError) Error() string {
	return fmt.Sprintf("task %s: %v", e.TaskID, e.Err)
}

func (e *TaskConfigError) Unwrap() error {
	return e.Err
}

// ParseError returns the underlying penalty parse error, if any.
func (e *TaskConfigError) ParseError() *penalty.ParseError {
	var perr *penalty.ParseError
	if errors.As(e.Err, &perr) {
		return perr
	}
	return nil
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTaskNotFound) ||
		errors.Is(err, ErrSubmissionNotFound)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		penalty.IsMalformed(err)
}
