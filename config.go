package bintest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/log"
	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"

	"github.com/ethereum-optimism/infra/op-bintest/runner"
	"github.com/ethereum-optimism/infra/op-bintest/workspace"
)

// ConfigFileEnv names an optional YAML config file read by Default
const ConfigFileEnv = "BINTEST_CONFIG"

// Settings are the serializable parts of Config. They are read from YAML and can be
// overridden with BINTEST_* environment variables.
type Settings struct {
	Tool       string   `yaml:"tool" env:"BINTEST_TOOL, overwrite"`
	Args       []string `yaml:"args" env:"BINTEST_ARGS, overwrite"` // replaces the cargo preset
	Dir        string   `yaml:"dir" env:"BINTEST_DIR, overwrite"`
	Release    bool     `yaml:"release" env:"BINTEST_RELEASE, overwrite"`
	Workspace  bool     `yaml:"workspace" env:"BINTEST_WORKSPACE, overwrite"`
	Executable string   `yaml:"executable" env:"BINTEST_EXECUTABLE, overwrite"`
	Quiet      bool     `yaml:"quiet" env:"BINTEST_QUIET, overwrite"`
	ExtraArgs  []string `yaml:"extra_args" env:"BINTEST_EXTRA_ARGS, overwrite"`
	Env        []string `yaml:"env"`
	LogDir     string   `yaml:"log_dir" env:"BINTEST_LOG_DIR, overwrite"`
}

// Config holds configuration for creating a BinTest
type Config struct {
	Settings

	Log        log.Logger
	CmdBuilder runner.CmdBuilder // nil runs the tool directly
}

// LoadConfig reads the YAML file at path (skipped when path is empty), applies
// environment overrides and fills in defaults
func LoadConfig(path string) (Config, error) {
	return loadConfig(context.Background(), path, envconfig.OsLookuper())
}

func loadConfig(ctx context.Context, path string, lookuper envconfig.Lookuper, overrides ...func(*Settings)) (Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg.Settings); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg.Settings,
		Lookuper: lookuper,
	}); err != nil {
		return Config{}, fmt.Errorf("failed to apply environment overrides: %w", err)
	}
	for _, override := range overrides {
		override(&cfg.Settings)
	}

	if err := cfg.applyDefaults(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyDefaults fills the tool from $CARGO and the directory from the enclosing project
func (c *Config) applyDefaults() error {
	if c.Tool == "" {
		c.Tool = runner.DefaultCargoTool()
	}
	if c.Dir == "" {
		project, err := workspace.FromEnv()
		if err != nil {
			if errors.Is(err, workspace.ErrNoManifest) {
				return fmt.Errorf("no build directory configured and %w", err)
			}
			return fmt.Errorf("failed to locate project root: %w", err)
		}
		c.Dir = project.Root
	}
	dir, err := filepath.Abs(c.Dir)
	if err != nil {
		return fmt.Errorf("failed to resolve build directory %q: %w", c.Dir, err)
	}
	c.Dir = dir
	if c.Log == nil {
		c.Log = log.New()
	}
	return nil
}

// BuildArgs returns Args when set and the cargo preset for the other settings otherwise
func (s Settings) BuildArgs() []string {
	if len(s.Args) > 0 {
		return append([]string(nil), s.Args...)
	}
	return runner.CargoArgs(runner.BuildOptions{
		Release:    s.Release,
		Workspace:  s.Workspace,
		Executable: s.Executable,
		Quiet:      s.Quiet,
		Extra:      s.ExtraArgs,
	})
}
