package runner

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/acarl005/stripansi"
	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ethereum-optimism/infra/op-bintest/index"
	"github.com/ethereum-optimism/infra/op-bintest/logging"
	"github.com/ethereum-optimism/infra/op-bintest/metrics"
	"github.com/ethereum-optimism/infra/op-bintest/parser"
	"github.com/ethereum-optimism/infra/op-bintest/types"
)

const (
	defaultMaxLineBytes  = 16 * 1024 * 1024
	initialLineBuffer    = 64 * 1024
	oversizedPrefixBytes = 256
)

// CmdBuilder creates the build command. The returned func is called once the command
// has exited.
type CmdBuilder func(ctx context.Context, name string, arg ...string) (*exec.Cmd, func())

// DefaultCmdBuilder runs name directly
func DefaultCmdBuilder(ctx context.Context, name string, arg ...string) (*exec.Cmd, func()) {
	return exec.CommandContext(ctx, name, arg...), func() {}
}

// Config holds configuration for creating a Coordinator
type Config struct {
	Tool         string   // build tool executable
	Args         []string // build tool arguments, selecting JSON line output
	Dir          string   // project root the build runs in
	Env          []string // KEY=VALUE pairs added to the inherited environment
	LogDir       string   // when set, raw build output is kept here
	MaxLineBytes int      // longest accepted output line, defaults to 16MB
	Log          log.Logger
	CmdBuilder   CmdBuilder
	Parse        parser.ParseFunc
}

// Coordinator runs the build at most once and shares its Outcome with every caller
type Coordinator struct {
	tool         string
	args         []string
	dir          string
	env          []string
	maxLineBytes int
	log          log.Logger
	cmdBuilder   CmdBuilder
	parse        parser.ParseFunc
	rawSink      *logging.RawOutputSink
	tracer       trace.Tracer

	once    sync.Once
	outcome *Outcome
	spawns  atomic.Int32
}

// NewCoordinator creates a new build coordinator
func NewCoordinator(cfg Config) (*Coordinator, error) {
	if cfg.Tool == "" {
		return nil, fmt.Errorf("tool cannot be empty")
	}
	if cfg.Dir == "" {
		return nil, fmt.Errorf("dir cannot be empty")
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
	}
	if cfg.CmdBuilder == nil {
		cfg.CmdBuilder = DefaultCmdBuilder
	}
	if cfg.Parse == nil {
		cfg.Parse = parser.ParseLine
	}
	if cfg.MaxLineBytes <= 0 {
		cfg.MaxLineBytes = defaultMaxLineBytes
	}

	var rawSink *logging.RawOutputSink
	if cfg.LogDir != "" {
		var err error
		rawSink, err = logging.NewRawOutputSink(cfg.LogDir)
		if err != nil {
			return nil, fmt.Errorf("failed to create raw output sink: %w", err)
		}
	}

	return &Coordinator{
		tool:         cfg.Tool,
		args:         append([]string(nil), cfg.Args...),
		dir:          cfg.Dir,
		env:          append([]string(nil), cfg.Env...),
		maxLineBytes: cfg.MaxLineBytes,
		log:          cfg.Log,
		cmdBuilder:   cfg.CmdBuilder,
		parse:        cfg.Parse,
		rawSink:      rawSink,
		tracer:       otel.Tracer("bintest"),
	}, nil
}

// EnsureBuilt runs the build on the first call and returns its Outcome. Concurrent
// callers block until that build has finished; later callers get the same Outcome
// without a new build. The build is detached from ctx's cancellation and a failed
// build is never retried.
func (c *Coordinator) EnsureBuilt(ctx context.Context) *Outcome {
	c.once.Do(func() {
		c.outcome = c.build(context.WithoutCancel(ctx))
	})
	return c.outcome
}

// Spawns returns how many times the build tool was started
func (c *Coordinator) Spawns() int {
	return int(c.spawns.Load())
}

// Dir returns the directory the build runs in
func (c *Coordinator) Dir() string {
	return c.dir
}

type streamSource int

const (
	sourceStdout streamSource = iota
	sourceStderr
)

type streamLine struct {
	source streamSource
	text   string

	// oversized lines were longer than maxLineBytes; text holds only their prefix
	oversized bool
}

func (c *Coordinator) build(ctx context.Context) (outcome *Outcome) {
	sessionID := uuid.New().String()
	ctx, span := c.tracer.Start(ctx, "build", trace.WithAttributes(
		attribute.String("session_id", sessionID),
		attribute.String("tool", c.tool),
	))
	defer span.End()

	logger := c.log.New("session", sessionID)
	start := time.Now()
	outcome = &Outcome{
		SessionID: sessionID,
		Command:   append([]string{c.tool}, c.args...),
		Dir:       c.dir,
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic during build", "error", r)
			outcome.State = StateFailed
			outcome.ExitCode = -1
			outcome.Index = nil
			outcome.Diagnostics = append(outcome.Diagnostics, fmt.Sprintf("panic during build: %v", r))
		}
		outcome.Duration = time.Since(start)
		metrics.RecordBuild(string(outcome.State), outcome.Duration)
		span.SetAttributes(attribute.String("state", string(outcome.State)))
		if outcome.State != StateSucceeded {
			span.SetStatus(codes.Error, string(outcome.State))
		}
	}()

	logger.Info("Starting build", "tool", c.tool, "args", strings.Join(c.args, " "), "dir", c.dir)

	cmd, cleanup := c.cmdBuilder(ctx, c.tool, c.args...)
	defer cleanup()
	if cmd.Dir == "" {
		cmd.Dir = c.dir
	}
	if len(c.env) > 0 {
		base := cmd.Env
		if base == nil {
			base = os.Environ()
		}
		cmd.Env = append(base, c.env...)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return c.spawnFailed(logger, outcome, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return c.spawnFailed(logger, outcome, err)
	}

	c.spawns.Add(1)
	if err := cmd.Start(); err != nil {
		return c.spawnFailed(logger, outcome, err)
	}

	var raw *logging.RawOutput
	if c.rawSink != nil {
		raw, err = c.rawSink.Open(sessionID)
		if err != nil {
			logger.Warn("Failed to open raw output files", "error", err)
			metrics.RecordErrorDetails("raw_output", err)
		} else {
			defer func() {
				if err := raw.Close(); err != nil {
					logger.Warn("Failed to close raw output files", "error", err)
				}
			}()
			logger.Debug("Storing raw build output", "dir", c.rawSink.DirectoryForSession(sessionID))
		}
	}

	// Both pipes are drained concurrently: a tool blocked writing to a full stderr pipe
	// would otherwise never finish its stdout.
	lines := make(chan streamLine, 256)
	var readErr error
	var g errgroup.Group
	g.Go(func() error { return c.scan(logger, stdout, sourceStdout, lines) })
	g.Go(func() error { return c.scan(logger, stderr, sourceStderr, lines) })
	go func() {
		readErr = g.Wait()
		close(lines)
	}()
	waited := false
	defer func() {
		if !waited {
			for range lines {
			}
			_ = cmd.Wait()
		}
	}()

	builder := index.NewBuilder(logger, c.dir)
	stderrTail := newTailBuffer(defaultStderrTailBytes)
	var errorTexts []string

	for line := range lines {
		switch {
		case line.oversized:
			outcome.Stats.SkippedLines++
			logger.Warn("Skipped oversized build output line", "stream", line.source.String(), "limit", c.maxLineBytes)
			metrics.RecordError("oversized_line")
			if line.source == sourceStdout {
				outcome.Stats.StdoutLines++
				c.fold(logger, types.Unrecognized{
					Raw:    line.text,
					Reason: fmt.Sprintf("line longer than %d bytes", c.maxLineBytes),
				}, builder, outcome, &errorTexts)
			} else {
				outcome.Stats.StderrLines++
			}
		case line.source == sourceStdout:
			outcome.Stats.StdoutLines++
			if raw != nil {
				_ = raw.WriteStdoutLine(line.text)
			}
			c.fold(logger, c.parseLine(logger, line.text), builder, outcome, &errorTexts)
		default:
			outcome.Stats.StderrLines++
			if raw != nil {
				_ = raw.WriteStderrLine(line.text)
			}
			stderrTail.WriteLine(strings.TrimRight(stripansi.Strip(line.text), "\r"))
		}
	}
	if readErr != nil {
		logger.Warn("Build output was not fully read", "error", readErr)
		metrics.RecordErrorDetails("read_output", readErr)
	}

	waitErr := cmd.Wait()
	waited = true
	idx := builder.Finish()
	outcome.Stats.Indexed = idx.Len()
	outcome.Stats.Dropped = len(idx.Dropped())

	if waitErr == nil {
		outcome.State = StateSucceeded
		outcome.Index = idx
		for _, e := range idx.Entries() {
			metrics.RecordArtifactIndexed(e.Kind)
		}
		if outcome.ToolSuccess != nil && !*outcome.ToolSuccess {
			logger.Warn("Build tool exited successfully but reported a failed build")
		}
		logger.Info("Build finished", "artifacts", idx.Len(), "dropped", outcome.Stats.Dropped,
			"duration", time.Since(start))
		return outcome
	}

	outcome.State = StateFailed
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		outcome.ExitCode = exitErr.ExitCode()
	} else {
		outcome.ExitCode = -1
		errorTexts = append(errorTexts, fmt.Sprintf("failed to wait for build: %v", waitErr))
	}
	outcome.Diagnostics = errorTexts
	if text := strings.TrimSpace(stderrTail.String()); text != "" {
		if stderrTail.Truncated() {
			text = fmt.Sprintf("[stderr truncated, showing last %d of %d bytes]\n%s",
				len(text), stderrTail.TotalBytes(), text)
		}
		outcome.Diagnostics = append(outcome.Diagnostics, text)
	}
	logger.Error("Build failed", "exit_code", outcome.ExitCode, "errors", len(errorTexts),
		"duration", time.Since(start))
	return outcome
}

func (c *Coordinator) spawnFailed(logger log.Logger, outcome *Outcome, err error) *Outcome {
	logger.Error("Failed to start build tool", "tool", c.tool, "error", err)
	metrics.RecordErrorDetails("spawn", err)
	outcome.State = StateSpawnFailed
	outcome.ExitCode = -1
	outcome.SpawnErr = err
	return outcome
}

// scan forwards every line of r to lines. A line longer than maxLineBytes is skipped
// up to its newline and forwarded as oversized; scanning continues with the next line.
func (c *Coordinator) scan(logger log.Logger, r io.Reader, source streamSource, lines chan<- streamLine) error {
	br := bufio.NewReaderSize(r, min(initialLineBuffer, c.maxLineBytes))
	var line []byte
	skipping := false
	for {
		chunk, err := br.ReadSlice('\n')
		if !skipping {
			line = append(line, chunk...)
			if len(bytes.TrimSuffix(line, []byte("\n"))) > c.maxLineBytes {
				skipping = true
				lines <- streamLine{source: source, text: trimLineEnding(line[:min(len(line), oversizedPrefixBytes)]), oversized: true}
				line = line[:0]
			}
		}

		switch {
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case err == nil:
			if !skipping {
				lines <- streamLine{source: source, text: trimLineEnding(line)}
			}
			line = line[:0]
			skipping = false
		case errors.Is(err, io.EOF):
			if !skipping && len(line) > 0 {
				lines <- streamLine{source: source, text: trimLineEnding(line)}
			}
			return nil
		default:
			logger.Warn("Stopped reading build output", "stream", source.String(), "error", err)
			_, _ = io.Copy(io.Discard, r)
			return fmt.Errorf("reading %s: %w", source, err)
		}
	}
}

func trimLineEnding(line []byte) string {
	line = bytes.TrimSuffix(line, []byte("\n"))
	return string(bytes.TrimSuffix(line, []byte("\r")))
}

// parseLine runs the configured parser. A parser panic yields an Unrecognized record.
func (c *Coordinator) parseLine(logger log.Logger, text string) (rec types.BuildRecord) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("Parser panicked", "error", r, "line", text)
			metrics.RecordError("parser_panic")
			rec = types.Unrecognized{Raw: text, Reason: fmt.Sprintf("parser panic: %v", r)}
		}
	}()
	return c.parse(text)
}

func (s streamSource) String() string {
	if s == sourceStderr {
		return "stderr"
	}
	return "stdout"
}

func (c *Coordinator) fold(logger log.Logger, rec types.BuildRecord, builder *index.Builder, outcome *Outcome, errorTexts *[]string) {
	metrics.RecordBuildRecord(rec.RecordKind())

	switch r := rec.(type) {
	case types.ArtifactProduced:
		outcome.Stats.Artifacts++
		if _, dropped := builder.Add(r); dropped != nil {
			metrics.RecordArtifactDropped(string(dropped.Reason))
		}
	case types.CompilerMessage:
		outcome.Stats.Messages++
		if r.IsError() {
			*errorTexts = append(*errorTexts, r.Text)
		} else {
			logger.Debug("Build diagnostic", "severity", r.Severity, "target", r.Target, "text", r.Text)
		}
	case types.BuildFinished:
		success := r.Success
		outcome.ToolSuccess = &success
	case types.Unrecognized:
		outcome.Stats.Unrecognized++
		logger.Trace("Ignoring build output", "reason", r.Reason, "line", r.Raw)
	}
}
