package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/honeycombio/otel-config-go/otelconfig"
	"github.com/urfave/cli/v2"

	bintest "github.com/ethereum-optimism/infra/op-bintest"
	"github.com/ethereum-optimism/infra/op-bintest/exitcodes"
	"github.com/ethereum-optimism/infra/op-bintest/flags"
	"github.com/ethereum-optimism/infra/op-bintest/reporting"
	"github.com/ethereum-optimism/infra/op-bintest/types"
	"github.com/ethereum-optimism/optimism/devnet-sdk/telemetry"
	"github.com/ethereum-optimism/optimism/op-service/cliapp"
	"github.com/ethereum-optimism/optimism/op-service/ctxinterrupt"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
)

var (
	Version   = "v0.1.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	app := newApp()

	// Start telemetry
	ctx, shutdown, err := telemetry.SetupOpenTelemetry(
		context.Background(),
		otelconfig.WithServiceName(app.Name),
		otelconfig.WithServiceVersion(app.Version),
	)
	if err != nil {
		log.Crit("Failed to setup open telemetry", "message", err)
	}
	defer shutdown()

	// Start CLI
	ctx = ctxinterrupt.WithSignalWaiterMain(ctx)
	err = app.RunContext(ctx, os.Args)
	if err != nil {
		log.Crit("Application failed", "message", err)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = "op-bintest"
	app.Usage = "Build a project once and run its executables by name"
	app.Description = "op-bintest builds a cargo project, indexes the executables the build " +
		"reports and resolves them by name and kind"
	app.Flags = cliapp.ProtectFlags(flags.Flags)
	app.Commands = []*cli.Command{
		{
			Name:   "list",
			Usage:  "Build and list every executable",
			Flags:  []cli.Flag{flags.ShowBuild},
			Action: list,
		},
		{
			Name:      "which",
			Usage:     "Build and print the path of an executable",
			ArgsUsage: "[--kind KIND] NAME",
			Flags:     []cli.Flag{flags.Kind},
			Action:    which,
		},
		{
			Name:      "exec",
			Usage:     "Build and run an executable from the project root",
			ArgsUsage: "[--kind KIND] NAME [-- ARGS...]",
			Flags:     []cli.Flag{flags.Kind},
			Action:    execute,
		},
	}
	app.ExitErrHandler = func(c *cli.Context, err error) {
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			// Use the exit code from the ExitCoder
			cli.HandleExitCoder(exitErr)
		} else if err != nil {
			cli.HandleExitCoder(cli.Exit(err.Error(), exitCodeFor(err)))
		}
	}
	return app
}

// exitCodeFor maps typed errors onto exit codes
func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return exitcodes.Success
	case bintest.IsBuildFailedError(err), bintest.IsSpawnFailedError(err), bintest.IsRuntimeError(err):
		return exitcodes.RuntimeErr
	default:
		// Lookup failures and unspecified errors
		return exitcodes.LookupFailure
	}
}

func newBinTest(ctx *cli.Context) (*bintest.BinTest, error) {
	logCfg := oplog.ReadCLIConfig(ctx)
	logger := oplog.NewLogger(os.Stderr, logCfg)
	oplog.SetGlobalLogHandler(logger.Handler())
	oplog.SetupDefaults()

	cfg, err := bintest.NewConfig(ctx, logger)
	if err != nil {
		// Wrap in RuntimeError to signal this should exit with code 2
		return nil, bintest.NewRuntimeError(fmt.Errorf("failed to create config: %w", err))
	}
	logger.Debug("Config", "tool", cfg.Tool, "dir", cfg.Dir, "args", cfg.BuildArgs())

	bt, err := bintest.New(cfg)
	if err != nil {
		return nil, bintest.NewRuntimeError(fmt.Errorf("failed to create bintest: %w", err))
	}
	return bt, nil
}

func list(ctx *cli.Context) error {
	bt, err := newBinTest(ctx)
	if err != nil {
		return err
	}

	outcome := bt.Outcome(ctx.Context)
	if ctx.Bool(flags.ShowBuild.Name) {
		fmt.Fprintln(ctx.App.ErrWriter, reporting.FormatOutcome(outcome))
	}
	entries, err := bt.ListExecutables()
	if err != nil {
		return err
	}
	fmt.Fprint(ctx.App.Writer, reporting.FormatExecutables(entries, outcome.Index.Dropped()))
	return nil
}

func which(ctx *cli.Context) error {
	name, kind, args, err := parseTarget(ctx)
	if err != nil {
		return err
	}
	if len(args) > 0 {
		return bintest.NewRuntimeError(fmt.Errorf("unexpected arguments after %s: %v", name, args))
	}
	bt, err := newBinTest(ctx)
	if err != nil {
		return err
	}

	desc, err := bt.CommandForContext(ctx.Context, name, kind)
	if err != nil {
		return err
	}
	fmt.Fprintln(ctx.App.Writer, desc.Path)
	return nil
}

func execute(ctx *cli.Context) error {
	name, kind, args, err := parseTarget(ctx)
	if err != nil {
		return err
	}
	bt, err := newBinTest(ctx)
	if err != nil {
		return err
	}

	desc, err := bt.CommandForContext(ctx.Context, name, kind)
	if err != nil {
		return err
	}

	cmd := desc.CommandContext(ctx.Context, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = ctx.App.Writer
	cmd.Stderr = ctx.App.ErrWriter
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return cli.Exit("", exitErr.ExitCode())
		}
		return bintest.NewRuntimeError(fmt.Errorf("failed to run %s: %w", desc.Path, err))
	}
	return nil
}

// parseTarget reads NAME, the --kind flag and the arguments following NAME. Flag
// parsing stops at NAME, so a --kind after it is rejected rather than passed on.
func parseTarget(ctx *cli.Context) (string, types.Kind, []string, error) {
	args := ctx.Args().Slice()
	if len(args) == 0 || args[0] == "" {
		return "", types.KindAny, nil, bintest.NewRuntimeError(errors.New("executable name is required"))
	}
	kind, err := types.ParseKind(ctx.String(flags.Kind.Name))
	if err != nil {
		return "", types.KindAny, nil, bintest.NewRuntimeError(err)
	}
	rest := args[1:]
	if len(rest) > 0 && rest[0] == "--" {
		return args[0], kind, rest[1:], nil
	}
	if len(rest) > 0 && isKindFlag(rest[0]) {
		return "", types.KindAny, nil, bintest.NewRuntimeError(
			fmt.Errorf("%s must come before the executable name %q; use -- to pass it to the executable", rest[0], args[0]))
	}
	return args[0], kind, rest, nil
}

func isKindFlag(arg string) bool {
	name, _, _ := strings.Cut(strings.TrimLeft(arg, "-"), "=")
	if !strings.HasPrefix(arg, "-") || strings.HasPrefix(arg, "---") {
		return false
	}
	for _, n := range flags.Kind.Names() {
		if name == n {
			return true
		}
	}
	return false
}
