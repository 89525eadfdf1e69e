// Package bintest lets tests run the executables of the project they belong to. The
// project is built once per process, the build tool's JSON output is indexed, and
// executables are then handed out by name as ready-to-run commands.
package bintest

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-bintest/index"
	"github.com/ethereum-optimism/infra/op-bintest/metrics"
	"github.com/ethereum-optimism/infra/op-bintest/runner"
	"github.com/ethereum-optimism/infra/op-bintest/types"
)

// BinTest resolves executable names against the output of a single build. It is safe
// for concurrent use.
type BinTest struct {
	log         log.Logger
	tool        string
	dir         string
	coordinator *runner.Coordinator
}

// New creates a BinTest. The build does not start until the first lookup.
func New(cfg Config) (*BinTest, error) {
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}

	coordinator, err := runner.NewCoordinator(runner.Config{
		Tool:       cfg.Tool,
		Args:       cfg.BuildArgs(),
		Dir:        cfg.Dir,
		Env:        cfg.Env,
		LogDir:     cfg.LogDir,
		Log:        cfg.Log,
		CmdBuilder: cfg.CmdBuilder,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create build coordinator: %w", err)
	}

	return &BinTest{
		log:         cfg.Log,
		tool:        cfg.Tool,
		dir:         cfg.Dir,
		coordinator: coordinator,
	}, nil
}

var (
	defaultOnce sync.Once
	defaultBT   *BinTest
	defaultErr  error
)

// Default returns the process-wide BinTest, configured by LoadConfig from the file
// named by $BINTEST_CONFIG. Every test in a test binary shares its build.
func Default() (*BinTest, error) {
	defaultOnce.Do(func() {
		cfg, err := LoadConfig(os.Getenv(ConfigFileEnv))
		if err != nil {
			defaultErr = fmt.Errorf("failed to load config: %w", err)
			return
		}
		defaultBT, defaultErr = New(cfg)
	})
	return defaultBT, defaultErr
}

// Dir returns the project root the build runs in and executables are launched from
func (b *BinTest) Dir() string {
	return b.dir
}

// Outcome builds the project if that has not happened yet and returns the result
func (b *BinTest) Outcome(ctx context.Context) *runner.Outcome {
	return b.coordinator.EnsureBuilt(ctx)
}

func (b *BinTest) index(ctx context.Context) (*index.Index, error) {
	outcome := b.coordinator.EnsureBuilt(ctx)
	switch outcome.State {
	case runner.StateSucceeded:
		return outcome.Index, nil
	case runner.StateSpawnFailed:
		return nil, &SpawnFailedError{Tool: b.tool, Err: outcome.SpawnErr}
	default:
		return nil, &BuildFailedError{ExitCode: outcome.ExitCode, Diagnostics: outcome.Diagnostics}
	}
}

// CommandForContext builds the project if needed and resolves name. A non-empty kind
// only matches executables of that kind; an empty kind matches any kind and fails with
// an AmbiguousError when the name exists under several.
func (b *BinTest) CommandForContext(ctx context.Context, name string, kind types.Kind) (*types.LaunchDescriptor, error) {
	idx, err := b.index(ctx)
	if err != nil {
		metrics.RecordLookup("build_failed")
		return nil, err
	}

	res := idx.Resolve(name, kind)
	metrics.RecordLookup(res.Status.String())
	switch res.Status {
	case index.Unique:
		return &types.LaunchDescriptor{
			Name:    res.Entry.Name,
			Kind:    res.Entry.Kind,
			Path:    res.Entry.Path,
			WorkDir: b.dir,
		}, nil
	case index.Ambiguous:
		b.log.Debug("Ambiguous executable name", "name", name, "candidates", len(res.Candidates))
		return nil, &AmbiguousError{Name: name, Candidates: res.Candidates}
	default:
		entries := idx.Entries()
		available := make([]string, len(entries))
		for i, e := range entries {
			available[i] = e.String()
		}
		return nil, &NotFoundError{Name: name, Kind: kind, Available: available}
	}
}

// CommandFor is CommandForContext with a background context
func (b *BinTest) CommandFor(name string, kind types.Kind) (*types.LaunchDescriptor, error) {
	return b.CommandForContext(context.Background(), name, kind)
}

// Command returns a command running the executable called name, of any kind, with args
func (b *BinTest) Command(name string, args ...string) (*exec.Cmd, error) {
	desc, err := b.CommandFor(name, types.KindAny)
	if err != nil {
		return nil, err
	}
	return desc.Command(args...), nil
}

// ListExecutables returns every indexed executable, sorted by kind then name
func (b *BinTest) ListExecutables() ([]types.ArtifactEntry, error) {
	idx, err := b.index(context.Background())
	if err != nil {
		return nil, err
	}
	return idx.Entries(), nil
}

// Command resolves name with the process-wide BinTest
func Command(name string, args ...string) (*exec.Cmd, error) {
	bt, err := Default()
	if err != nil {
		return nil, err
	}
	return bt.Command(name, args...)
}

// CommandFor resolves name and kind with the process-wide BinTest
func CommandFor(name string, kind types.Kind) (*types.LaunchDescriptor, error) {
	bt, err := Default()
	if err != nil {
		return nil, err
	}
	return bt.CommandFor(name, kind)
}
