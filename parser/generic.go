package parser

import (
	"encoding/json"
	"fmt"

	"golang.org/x/mod/semver"

	"github.com/ethereum-optimism/infra/op-bintest/types"
)

// Message types of the generic line format. Build wrappers that are not cargo can print
// these to expose their executables, e.g.
//
//	{"type":"artifact","name":"tool","kind":"bin","paths":["/abs/bin/tool"]}
//	{"type":"diagnostic","severity":"error","text":"cannot find type X"}
//	{"type":"finished","success":true}
const (
	TypeArtifact   = "artifact"
	TypeDiagnostic = "diagnostic"
	TypeFinished   = "finished"
)

type genericLine struct {
	Type     string   `json:"type"`
	Name     string   `json:"name"`
	Kind     string   `json:"kind"`
	Package  string   `json:"package"`
	Version  string   `json:"version"`
	Path     string   `json:"path"`
	Paths    []string `json:"paths"`
	Severity string   `json:"severity"`
	Text     string   `json:"text"`
	Success  bool     `json:"success"`
}

func parseGeneric(data []byte, line string) types.BuildRecord {
	var rec genericLine
	if err := json.Unmarshal(data, &rec); err != nil {
		return types.Unrecognized{Raw: line, Reason: fmt.Sprintf("malformed %s record: %v", rec.Type, err)}
	}

	switch rec.Type {
	case TypeArtifact:
		kind, err := types.ParseKind(rec.Kind)
		if err != nil {
			return types.Unrecognized{Raw: line, Reason: err.Error()}
		}
		if kind == types.KindAny {
			return types.Unrecognized{Raw: line, Reason: "artifact without kind"}
		}
		paths := rec.Paths
		if rec.Path != "" {
			paths = append([]string{rec.Path}, paths...)
		}
		if rec.Name == "" || len(paths) == 0 {
			return types.Unrecognized{Raw: line, Reason: "artifact without name or paths"}
		}
		version := rec.Version
		if !semver.IsValid("v" + version) {
			version = ""
		}
		return types.ArtifactProduced{
			TargetName: rec.Name,
			Package:    rec.Package,
			Version:    version,
			Kind:       kind,
			Paths:      paths,
		}
	case TypeDiagnostic:
		if rec.Text == "" {
			return types.Unrecognized{Raw: line, Reason: "diagnostic without text"}
		}
		return types.CompilerMessage{Severity: types.ParseSeverity(rec.Severity), Text: rec.Text, Target: rec.Name}
	case TypeFinished:
		return types.BuildFinished{Success: rec.Success}
	default:
		return types.Unrecognized{Raw: line, Reason: fmt.Sprintf("unhandled record type %q", rec.Type)}
	}
}
