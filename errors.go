package fullsweep

import (
	"errors"
	"fmt"
)

// RuntimeError represents an infrastructure error that should lead to exit
// code 2: cache guard IO failures, discovery failures, a test harness that
// cannot be spawned, invalid configuration.
type RuntimeError struct {
	Err error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error: %v", e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// NewRuntimeError creates a new RuntimeError
func NewRuntimeError(err error) *RuntimeError {
	return &RuntimeError{Err: err}
}

// IsRuntimeError checks if the error is or wraps a RuntimeError
func IsRuntimeError(err error) bool {
	var runtimeErr *RuntimeError
	return err != nil && errors.As(err, &runtimeErr)
}

// TestFailureError represents a completed run with failing targets (exit code 1)
type TestFailureError struct {
	Message string
}

func (e *TestFailureError) Error() string {
	return fmt.Sprintf("test failure: %s", e.Message)
}

// NewTestFailureError creates a new TestFailureError
func NewTestFailureError(message string) *TestFailureError {
	return &TestFailureError{Message: message}
}

// IsTestFailureError checks if the error is or wraps a TestFailureError
func IsTestFailureError(err error) bool {
	var testErr *TestFailureError
	return err != nil && errors.As(err, &testErr)
}

// CancelledError represents an invocation cut short before the run could
// complete (exit code 3). Distinct from TestFailureError: a cancelled run
// says nothing about the code under test.
type CancelledError struct {
	Err error
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("run cancelled: %v", e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *CancelledError) Unwrap() error {
	return e.Err
}

// NewCancelledError creates a new CancelledError
func NewCancelledError(err error) *CancelledError {
	return &CancelledError{Err: err}
}

// IsCancelledError checks if the error is or wraps a CancelledError
func IsCancelledError(err error) bool {
	var cancelledErr *CancelledError
	return err != nil && errors.As(err, &cancelledErr)
}
