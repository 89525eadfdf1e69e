package flags

import (
	"github.com/urfave/cli/v2"

	opservice "github.com/ethereum-optimism/optimism/op-service"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
)

const EnvVarPrefix = "OP_BINTEST"

var (
	ConfigFile = &cli.StringFlag{
		Name:    "config",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "CONFIG"),
		Usage:   "Path to a YAML config file (eg. 'bintest.yaml')",
	}
	Dir = &cli.StringFlag{
		Name:    "dir",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "DIR"),
		Usage:   "Project root to build in. Defaults to the enclosing Cargo workspace",
	}
	Tool = &cli.StringFlag{
		Name:    "tool",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "TOOL"),
		Usage:   "Build tool to run. Defaults to $CARGO, then 'cargo'",
	}
	Release = &cli.BoolFlag{
		Name:    "release",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "RELEASE"),
		Usage:   "Build with the release profile",
	}
	Workspace = &cli.BoolFlag{
		Name:    "workspace",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "WORKSPACE"),
		Usage:   "Build every package in the workspace",
	}
	Executable = &cli.StringFlag{
		Name:    "bin",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "BIN"),
		Usage:   "Only build this binary",
	}
	Quiet = &cli.BoolFlag{
		Name:    "quiet",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "QUIET"),
		Usage:   "Silence the build tool's progress output",
	}
	BuildArgs = &cli.StringSliceFlag{
		Name:    "build-arg",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "BUILD_ARGS"),
		Usage:   "Extra argument passed to the build tool (repeatable)",
	}
	LogDir = &cli.StringFlag{
		Name:    "logdir",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "LOGDIR"),
		Usage:   "Directory to keep the raw build output in",
	}

	// Kind is a command flag of `which` and `exec`
	Kind = &cli.StringFlag{
		Name:    "kind",
		Aliases: []string{"k"},
		Value:   "",
		Usage:   "Executable kind: bin, example, test or bench. Required when a name exists under several kinds",
	}
	ShowBuild = &cli.BoolFlag{
		Name:  "show-build",
		Value: false,
		Usage: "Print a summary of the build before the executable list",
	}
)

var Flags = []cli.Flag{
	ConfigFile,
	Dir,
	Tool,
	Release,
	Workspace,
	Executable,
	Quiet,
	BuildArgs,
	LogDir,
}

func init() {
	Flags = append(Flags, oplog.CLIFlags(EnvVarPrefix)...)
}
