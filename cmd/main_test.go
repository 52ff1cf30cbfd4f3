package main

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fullsweep/fullsweep"
	"github.com/fullsweep/fullsweep/exitcodes"
)

func TestExitCodeForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{
			name: "nil error is success",
			err:  nil,
			want: exitcodes.Success,
		},
		{
			name: "test failure",
			err:  fullsweep.NewTestFailureError("2 of 5 targets failed"),
			want: exitcodes.TestFailure,
		},
		{
			name: "wrapped test failure",
			err:  fmt.Errorf("run: %w", fullsweep.NewTestFailureError("1 of 1 targets failed")),
			want: exitcodes.TestFailure,
		},
		{
			name: "cancelled",
			err:  fullsweep.NewCancelledError(context.Canceled),
			want: exitcodes.Cancelled,
		},
		{
			name: "runtime error",
			err:  fullsweep.NewRuntimeError(errors.New("cache guard failed")),
			want: exitcodes.RuntimeErr,
		},
		{
			name: "untyped error defaults to runtime",
			err:  errors.New("something unexpected"),
			want: exitcodes.RuntimeErr,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCodeForError(tt.err))
		})
	}
}
