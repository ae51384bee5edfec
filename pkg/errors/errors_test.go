package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeInvalidGraph, "graph has %d vertices", 0)

	if err.Code != ErrCodeInvalidGraph {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidGraph)
	}

	if err.Message != "graph has 0 vertices" {
		t.Errorf("Message = %v, want %v", err.Message, "graph has 0 vertices")
	}

	expected := "INVALID_GRAPH: graph has 0 vertices"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeStrategyFailed, cause, "bipartition job %d", 3)

	if err.Code != ErrCodeStrategyFailed {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeStrategyFailed)
	}

	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}

	if unwrapped := errors.Unwrap(err); unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     Code
		expected bool
	}{
		{
			name:     "matching code",
			err:      New(ErrCodeResourceExhausted, "test"),
			code:     ErrCodeResourceExhausted,
			expected: true,
		},
		{
			name:     "non-matching code",
			err:      New(ErrCodeResourceExhausted, "test"),
			code:     ErrCodeStrategyFailed,
			expected: false,
		},
		{
			name:     "outer code wins",
			err:      Wrap(ErrCodeStrategyFailed, New(ErrCodeInvalidInput, "inner"), "outer"),
			code:     ErrCodeStrategyFailed,
			expected: true,
		},
		{
			name:     "fmt wrapped",
			err:      fmt.Errorf("context: %w", New(ErrCodeCanceled, "stop")),
			code:     ErrCodeCanceled,
			expected: true,
		},
		{
			name:     "non-Error type",
			err:      errors.New("plain error"),
			code:     ErrCodeInvalidInput,
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			code:     ErrCodeInvalidInput,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.expected {
				t.Errorf("Is() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGetCode(t *testing.T) {
	if got := GetCode(New(ErrCodeInvalidArch, "x")); got != ErrCodeInvalidArch {
		t.Errorf("GetCode() = %v, want %v", got, ErrCodeInvalidArch)
	}
	if got := GetCode(errors.New("plain")); got != "" {
		t.Errorf("GetCode(plain) = %q, want empty", got)
	}
}

func TestUserMessage(t *testing.T) {
	if got := UserMessage(New(ErrCodeInvalidArch, "bad arch")); got != "bad arch" {
		t.Errorf("UserMessage() = %q, want %q", got, "bad arch")
	}
	if got := UserMessage(errors.New("plain")); got != "plain" {
		t.Errorf("UserMessage(plain) = %q, want %q", got, "plain")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{New(ErrCodeInvalidGraph, "x"), 400},
		{New(ErrCodeNotFound, "x"), 404},
		{New(ErrCodeResourceExhausted, "x"), 507},
		{New(ErrCodeStrategyFailed, "x"), 422},
		{errors.New("plain"), 500},
	}

	for _, tt := range tests {
		if got := HTTPStatus(tt.err); got != tt.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
