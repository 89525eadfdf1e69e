package logging

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRawOutputSink(t *testing.T) {
	_, err := NewRawOutputSink("")
	assert.EqualError(t, err, "log directory cannot be empty")

	dir := t.TempDir()
	sink, err := NewRawOutputSink(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "session-1"), sink.DirectoryForSession("session-1"))
}

func TestRawOutput_WritesBothStreams(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewRawOutputSink(dir)
	require.NoError(t, err)

	out, err := sink.Open("abc")
	require.NoError(t, err)

	require.NoError(t, out.WriteStdoutLine(`{"reason":"build-finished","success":true}`))
	require.NoError(t, out.WriteStderrLine("   Compiling tool v0.1.0"))
	require.NoError(t, out.WriteStderrLine("    Finished dev profile"))
	require.NoError(t, out.Close())
	require.NoError(t, out.Close(), "close is idempotent")

	stdout, err := os.ReadFile(filepath.Join(dir, "abc", RawStdoutLog))
	require.NoError(t, err)
	assert.Equal(t, "{\"reason\":\"build-finished\",\"success\":true}\n", string(stdout))

	stderr, err := os.ReadFile(filepath.Join(dir, "abc", RawStderrLog))
	require.NoError(t, err)
	assert.Equal(t, "   Compiling tool v0.1.0\n    Finished dev profile\n", string(stderr))

	assert.Error(t, out.WriteStdoutLine("late"), "writes after close fail")
}

func TestRawOutput_ConcurrentWrites(t *testing.T) {
	sink, err := NewRawOutputSink(t.TempDir())
	require.NoError(t, err)
	out, err := sink.Open("concurrent")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(stdout bool) {
			defer wg.Done()
			for n := 0; n < 100; n++ {
				if stdout {
					assert.NoError(t, out.WriteStdoutLine("out"))
				} else {
					assert.NoError(t, out.WriteStderrLine("err"))
				}
			}
		}(i == 0)
	}
	wg.Wait()
	require.NoError(t, out.Close())
}

func TestRawOutputSink_OpenRequiresSession(t *testing.T) {
	sink, err := NewRawOutputSink(t.TempDir())
	require.NoError(t, err)
	_, err = sink.Open("")
	assert.Error(t, err)
}
