package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

const (
	RawStdoutLog = "build_stdout.jsonl"
	RawStderrLog = "build_stderr.log"
)

// RawOutputSink stores the unparsed stdout and stderr of a build under
// <baseDir>/<sessionID>/ so a failing session can be inspected after the fact.
type RawOutputSink struct {
	baseDir string
}

// NewRawOutputSink creates a sink rooted at baseDir. The directory is created lazily.
func NewRawOutputSink(baseDir string) (*RawOutputSink, error) {
	if baseDir == "" {
		return nil, errors.New("log directory cannot be empty")
	}
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for log directory '%s': %w", baseDir, err)
	}
	return &RawOutputSink{baseDir: abs}, nil
}

// DirectoryForSession returns the directory raw output for sessionID is written to
func (s *RawOutputSink) DirectoryForSession(sessionID string) string {
	return filepath.Join(s.baseDir, sessionID)
}

// Open creates the raw output files for one build session
func (s *RawOutputSink) Open(sessionID string) (*RawOutput, error) {
	if sessionID == "" {
		return nil, errors.New("session ID cannot be empty")
	}
	dir := s.DirectoryForSession(sessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create raw output directory: %w", err)
	}

	stdout, err := os.Create(filepath.Join(dir, RawStdoutLog))
	if err != nil {
		return nil, fmt.Errorf("failed to create raw stdout file: %w", err)
	}
	stderr, err := os.Create(filepath.Join(dir, RawStderrLog))
	if err != nil {
		_ = stdout.Close()
		return nil, fmt.Errorf("failed to create raw stderr file: %w", err)
	}
	return &RawOutput{stdout: stdout, stderr: stderr}, nil
}

// RawOutput is a pair of raw output files. Writes are line oriented and safe for
// concurrent use.
type RawOutput struct {
	mu     sync.Mutex
	stdout *os.File
	stderr *os.File
	closed bool
}

// WriteStdoutLine appends line and a newline to the stdout file
func (o *RawOutput) WriteStdoutLine(line string) error {
	return o.writeLine(o.stdout, line)
}

// WriteStderrLine appends line and a newline to the stderr file
func (o *RawOutput) WriteStderrLine(line string) error {
	return o.writeLine(o.stderr, line)
}

func (o *RawOutput) writeLine(w io.Writer, line string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return errors.New("raw output already closed")
	}
	_, err := io.WriteString(w, line+"\n")
	return err
}

// Close flushes and closes both files
func (o *RawOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	o.closed = true
	return errors.Join(o.stdout.Close(), o.stderr.Close())
}
