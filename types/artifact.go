package types

import (
	"context"
	"fmt"
	"os/exec"
)

// ArtifactEntry is one resolved executable in the artifact index
type ArtifactEntry struct {
	Name       string
	Kind       Kind
	Path       string   // absolute path selected for the host platform
	Package    string   // owning package, if the tool reported one
	Version    string   // package version, only when valid semver
	Alternates []string // other existing paths reported for the same target
	Exists     bool     // validated when the index was populated
}

// String returns "kind:name"
func (e ArtifactEntry) String() string {
	return fmt.Sprintf("%s:%s", e.Kind, e.Name)
}

// LaunchDescriptor describes how to start a built executable.
// It is a plain value: arguments, stdio and environment are left to the caller.
type LaunchDescriptor struct {
	Name    string
	Kind    Kind
	Path    string
	WorkDir string
}

// Command returns an *exec.Cmd for the executable, running in WorkDir
func (d LaunchDescriptor) Command(args ...string) *exec.Cmd {
	cmd := exec.Command(d.Path, args...)
	cmd.Dir = d.WorkDir
	return cmd
}

// CommandContext is like Command but the process is killed when ctx is done
func (d LaunchDescriptor) CommandContext(ctx context.Context, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, d.Path, args...)
	cmd.Dir = d.WorkDir
	return cmd
}
