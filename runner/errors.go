package runner

import (
	"errors"
	"fmt"
)

// ExecutionError means the test harness itself could not run: the go binary
// is missing, a process could not be spawned, or similar infrastructure
// failure. It is distinct from failing tests, which are ordinary result
// data.
type ExecutionError struct {
	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution error: %v", e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

func NewExecutionError(err error) *ExecutionError {
	return &ExecutionError{Err: err}
}

func IsExecutionError(err error) bool {
	var executionErr *ExecutionError
	return err != nil && errors.As(err, &executionErr)
}
