package jsvm

import (
	"errors"
	"fmt"
	"testing"
)

func TestExecutionErrorUnwrap(t *testing.T) {
	err := fmt.Errorf("render: %w", &ExecutionError{Script: "a.js", Cause: ErrTimeout})

	if !errors.Is(err, ErrExecution) {
		t.Error("should match ErrExecution")
	}
	if !errors.Is(err, ErrTimeout) {
		t.Error("should unwrap to ErrTimeout")
	}
	if errors.Is(err, ErrScriptSyntax) {
		t.Error("should not match ErrScriptSyntax")
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&ScriptSyntaxError{File: "a.js", Message: "unexpected token"}, "jsvm: syntax error in a.js: unexpected token"},
		{&ScriptSyntaxError{Message: "unexpected token"}, "jsvm: syntax error: unexpected token"},
		{&ExecutionError{Script: "a.js", Cause: errors.New("x")}, "jsvm: execution error in a.js: x"},
		{&ExecutionError{Cause: errors.New("x")}, "jsvm: execution error: x"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}
