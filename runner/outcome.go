package runner

import (
	"time"

	"github.com/ethereum-optimism/infra/op-bintest/index"
)

// State is the terminal state of one build invocation
type State string

const (
	StateSucceeded   State = "succeeded"
	StateFailed      State = "failed"
	StateSpawnFailed State = "spawn-failed"
)

// Stats counts what was read from the build output
type Stats struct {
	StdoutLines  int
	StderrLines  int
	Artifacts    int // ArtifactProduced records
	Messages     int // CompilerMessage records
	Unrecognized int
	Indexed      int
	Dropped      int
	SkippedLines int // lines longer than the configured limit
}

// Outcome is the result of a build. It is written once by the coordinator and is
// read-only afterwards, so it can be shared between goroutines without locking.
type Outcome struct {
	SessionID string
	State     State
	Command   []string
	Dir       string

	// Index is set when State is StateSucceeded
	Index *index.Index

	// ExitCode and Diagnostics are set when State is StateFailed. Diagnostics holds the
	// text of every error diagnostic, in order, followed by the captured stderr.
	ExitCode    int
	Diagnostics []string

	// SpawnErr is set when State is StateSpawnFailed
	SpawnErr error

	// ToolSuccess is the tool's own end-of-build verdict, if it printed one
	ToolSuccess *bool

	Duration time.Duration
	Stats    Stats
}

// Succeeded reports whether the build exited successfully
func (o *Outcome) Succeeded() bool {
	return o != nil && o.State == StateSucceeded
}
