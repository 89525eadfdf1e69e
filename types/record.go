package types

import "strings"

// Severity is the level of a compiler diagnostic
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityNote    Severity = "note"
	SeverityHelp    Severity = "help"
)

// ParseSeverity maps a tool reported level onto a Severity.
// Levels that start with "error" (e.g. "error: internal compiler error") are errors,
// "failure-note" is a note and anything unknown is treated as a note.
func ParseSeverity(level string) Severity {
	level = strings.ToLower(strings.TrimSpace(level))
	switch {
	case strings.HasPrefix(level, "error"):
		return SeverityError
	case strings.HasPrefix(level, "warning"):
		return SeverityWarning
	case level == "help":
		return SeverityHelp
	default:
		return SeverityNote
	}
}

// RecordKind discriminates the BuildRecord variants
type RecordKind string

const (
	RecordArtifact     RecordKind = "artifact"
	RecordMessage      RecordKind = "message"
	RecordFinished     RecordKind = "finished"
	RecordUnrecognized RecordKind = "unrecognized"
)

// BuildRecord is one parsed line of build tool output. It is one of
// ArtifactProduced, CompilerMessage, BuildFinished or Unrecognized.
type BuildRecord interface {
	RecordKind() RecordKind
}

// ArtifactProduced reports an executable target written by the build.
// Paths holds every executable path reported for the target, in reported order.
type ArtifactProduced struct {
	TargetName string
	Package    string
	Version    string
	Kind       Kind
	Paths      []string
	Fresh      bool
}

// CompilerMessage is a diagnostic emitted while building
type CompilerMessage struct {
	Severity Severity
	Text     string
	Target   string
}

// BuildFinished is the tool's own end-of-build marker
type BuildFinished struct {
	Success bool
}

// Unrecognized carries a line that could not be mapped onto any other record
type Unrecognized struct {
	Raw    string
	Reason string
}

func (ArtifactProduced) RecordKind() RecordKind { return RecordArtifact }
func (CompilerMessage) RecordKind() RecordKind  { return RecordMessage }
func (BuildFinished) RecordKind() RecordKind    { return RecordFinished }
func (Unrecognized) RecordKind() RecordKind     { return RecordUnrecognized }

// IsError reports whether the message is an error diagnostic
func (m CompilerMessage) IsError() bool {
	return m.Severity == SeverityError
}
