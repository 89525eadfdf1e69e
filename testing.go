package bintest

import (
	"os/exec"
	"testing"
)

// RequireCommand returns a command for the executable called name with args, failing
// the test immediately when it cannot be resolved
func (b *BinTest) RequireCommand(t testing.TB, name string, args ...string) *exec.Cmd {
	t.Helper()
	cmd, err := b.Command(name, args...)
	if err != nil {
		t.Fatalf("bintest: %v", err)
	}
	return cmd
}

// RequireCommand is BinTest.RequireCommand on the process-wide BinTest
func RequireCommand(t testing.TB, name string, args ...string) *exec.Cmd {
	t.Helper()
	bt, err := Default()
	if err != nil {
		t.Fatalf("bintest: %v", err)
	}
	return bt.RequireCommand(t, name, args...)
}
