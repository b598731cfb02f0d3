package device

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable is returned when a backend cannot be opened.
	ErrUnavailable = errors.New("device: backend unavailable")

	// ErrCompile is matched by every *CompileError.
	ErrCompile = errors.New("device: kernel compilation failed")

	// ErrReleased is returned when launching a released program.
	ErrReleased = errors.New("device: program released")

	// ErrDomain is returned when a launch has an empty index domain.
	ErrDomain = errors.New("device: empty index domain")
)

// A CompileError carries the backend's diagnostic for a program that could not be built.
// Compilation failures are not transient and are never retried.
type CompileError struct {
	Backend    string
	Diagnostic string

	Err error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("device: %s: compile kernel: %s", e.Backend, e.Diagnostic)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

func (e *CompileError) Is(target error) bool {
	return target == ErrCompile
}
