package runner

import "os"

// Arguments understood by `cargo build`
const (
	DefaultCargoBinary = "cargo"
	CargoEnvVar        = "CARGO"
	BuildCommand       = "build"
	MessageFormatFlag  = "--message-format"
	MessageFormatJSON  = "json"
	ReleaseFlag        = "--release"
	WorkspaceFlag      = "--workspace"
	BinFlag            = "--bin"
	QuietFlag          = "--quiet"
)

// BuildOptions selects what the cargo preset builds
type BuildOptions struct {
	Release    bool     // build with the release profile
	Workspace  bool     // build every package in the workspace
	Executable string   // only build this binary
	Quiet      bool     // silence cargo's progress output
	Extra      []string // appended verbatim
}

// DefaultCargoTool returns $CARGO when set (cargo exports it to the processes it runs,
// including tests) and "cargo" otherwise
func DefaultCargoTool() string {
	if v := os.Getenv(CargoEnvVar); v != "" {
		return v
	}
	return DefaultCargoBinary
}

// CargoArgs returns the `cargo build` arguments that select JSON message output
func CargoArgs(opts BuildOptions) []string {
	args := []string{BuildCommand, MessageFormatFlag, MessageFormatJSON}
	if opts.Release {
		args = append(args, ReleaseFlag)
	}
	if opts.Workspace {
		args = append(args, WorkspaceFlag)
	}
	if opts.Executable != "" {
		args = append(args, BinFlag, opts.Executable)
	}
	if opts.Quiet {
		args = append(args, QuietFlag)
	}
	return append(args, opts.Extra...)
}
