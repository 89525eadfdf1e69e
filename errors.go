package bintest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum-optimism/infra/op-bintest/types"
)

// SpawnFailedError means the build tool could not be started at all
type SpawnFailedError struct {
	Tool string
	Err  error
}

func (e *SpawnFailedError) Error() string {
	return fmt.Sprintf("failed to spawn build tool %q: %v", e.Tool, e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *SpawnFailedError) Unwrap() error {
	return e.Err
}

// IsSpawnFailedError checks if the error is or wraps a SpawnFailedError
func IsSpawnFailedError(err error) bool {
	var spawnErr *SpawnFailedError
	return err != nil && errors.As(err, &spawnErr)
}

// BuildFailedError means the build ran and exited unsuccessfully. Diagnostics holds the
// compiler errors followed by the captured stderr.
type BuildFailedError struct {
	ExitCode    int
	Diagnostics []string
}

func (e *BuildFailedError) Error() string {
	msg := fmt.Sprintf("build failed with exit code %d", e.ExitCode)
	if len(e.Diagnostics) == 0 {
		return msg
	}
	return msg + ":\n" + strings.Join(e.Diagnostics, "\n")
}

// IsBuildFailedError checks if the error is or wraps a BuildFailedError
func IsBuildFailedError(err error) bool {
	var buildErr *BuildFailedError
	return err != nil && errors.As(err, &buildErr)
}

// NotFoundError means no built executable matches the requested name and kind
type NotFoundError struct {
	Name      string
	Kind      types.Kind
	Available []string // every indexed entry as kind:name
}

func (e *NotFoundError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "no executable named %q", e.Name)
	if e.Kind != types.KindAny {
		fmt.Fprintf(&b, " of kind %s", e.Kind)
	}
	if len(e.Available) > 0 {
		fmt.Fprintf(&b, " (available: %s)", strings.Join(e.Available, ", "))
	}
	return b.String()
}

// IsNotFoundError checks if the error is or wraps a NotFoundError
func IsNotFoundError(err error) bool {
	var notFound *NotFoundError
	return err != nil && errors.As(err, &notFound)
}

// AmbiguousError means several executables of different kinds share the requested name
type AmbiguousError struct {
	Name       string
	Candidates []types.ArtifactEntry
}

func (e *AmbiguousError) Error() string {
	names := make([]string, len(e.Candidates))
	for i, c := range e.Candidates {
		names[i] = c.String()
	}
	return fmt.Sprintf("executable name %q is ambiguous between %s, pass a kind to choose one",
		e.Name, strings.Join(names, ", "))
}

// IsAmbiguousError checks if the error is or wraps an AmbiguousError
func IsAmbiguousError(err error) bool {
	var ambiguous *AmbiguousError
	return err != nil && errors.As(err, &ambiguous)
}

// RuntimeError represents an operational error that should lead to exit code 2,
// such as an invalid configuration
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
