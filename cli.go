package bintest

import (
	"github.com/ethereum/go-ethereum/log"
	"github.com/sethvargo/go-envconfig"
	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/infra/op-bintest/flags"
)

// NewConfig creates a Config from cli context. The config file and BINTEST_* variables
// are read first; flags that are set take precedence over both.
func NewConfig(ctx *cli.Context, log log.Logger) (Config, error) {
	cfg, err := loadConfig(ctx.Context, ctx.String(flags.ConfigFile.Name), envconfig.OsLookuper(), withFlags(ctx))
	if err != nil {
		return Config{}, err
	}
	cfg.Log = log
	return cfg, nil
}

func withFlags(ctx *cli.Context) func(*Settings) {
	return func(s *Settings) {
		if ctx.IsSet(flags.Dir.Name) {
			s.Dir = ctx.String(flags.Dir.Name)
		}
		if ctx.IsSet(flags.Tool.Name) {
			s.Tool = ctx.String(flags.Tool.Name)
		}
		if ctx.IsSet(flags.Release.Name) {
			s.Release = ctx.Bool(flags.Release.Name)
		}
		if ctx.IsSet(flags.Workspace.Name) {
			s.Workspace = ctx.Bool(flags.Workspace.Name)
		}
		if ctx.IsSet(flags.Executable.Name) {
			s.Executable = ctx.String(flags.Executable.Name)
		}
		if ctx.IsSet(flags.Quiet.Name) {
			s.Quiet = ctx.Bool(flags.Quiet.Name)
		}
		if ctx.IsSet(flags.BuildArgs.Name) {
			s.ExtraArgs = ctx.StringSlice(flags.BuildArgs.Name)
		}
		if ctx.IsSet(flags.LogDir.Name) {
			s.LogDir = ctx.String(flags.LogDir.Name)
		}
	}
}
