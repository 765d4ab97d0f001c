// Package jsvm embeds the rendering runtime: a goja VM that loads the
// renderer script, exposes window.document, localStorage and the published
// definition to it, and hands its renderPreview function to the frame as the
// runtime entry point.
package jsvm

import (
	"errors"
	"fmt"
)

// Sentinel errors for runtime operations.
var (
	// ErrTimeout indicates script execution exceeded the timeout limit.
	ErrTimeout = errors.New("jsvm: execution timeout")

	// ErrClosed indicates the runtime was closed.
	ErrClosed = errors.New("jsvm: runtime closed")
)

// ScriptSyntaxError indicates a JavaScript syntax error.
type ScriptSyntaxError struct {
	File    string
	Message string
}

func (e *ScriptSyntaxError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("jsvm: syntax error in %s: %s", e.File, e.Message)
	}
	return fmt.Sprintf("jsvm: syntax error: %s", e.Message)
}

// Is implements errors.Is for ScriptSyntaxError.
func (e *ScriptSyntaxError) Is(target error) bool {
	_, ok := target.(*ScriptSyntaxError)
	return ok
}

// ErrScriptSyntax is a sentinel for errors.Is matching.
var ErrScriptSyntax = &ScriptSyntaxError{}

// ExecutionError wraps runtime errors during script execution.
type ExecutionError struct {
	Script string
	Cause  error
}

func (e *ExecutionError) Error() string {
	if e.Script != "" {
		return fmt.Sprintf("jsvm: execution error in %s: %v", e.Script, e.Cause)
	}
	return fmt.Sprintf("jsvm: execution error: %v", e.Cause)
}

func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for ExecutionError.
func (e *ExecutionError) Is(target error) bool {
	_, ok := target.(*ExecutionError)
	return ok
}

// ErrExecution is a sentinel for errors.Is matching.
var ErrExecution = &ExecutionError{}
