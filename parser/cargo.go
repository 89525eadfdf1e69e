package parser

import (
	"encoding/json"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/acarl005/stripansi"
	"golang.org/x/mod/semver"

	"github.com/ethereum-optimism/infra/op-bintest/types"
)

// Cargo message reasons, see `cargo build --message-format json`
const (
	ReasonCompilerArtifact = "compiler-artifact"
	ReasonCompilerMessage  = "compiler-message"
	ReasonBuildFinished    = "build-finished"
)

type cargoMessage struct {
	Reason     string           `json:"reason"`
	PackageID  string           `json:"package_id"`
	Target     *cargoTarget     `json:"target"`
	Profile    *cargoProfile    `json:"profile"`
	Filenames  []string         `json:"filenames"`
	Executable *string          `json:"executable"`
	Fresh      bool             `json:"fresh"`
	Message    *cargoDiagnostic `json:"message"`
	Success    *bool            `json:"success"`
}

type cargoTarget struct {
	Name string   `json:"name"`
	Kind []string `json:"kind"`
}

type cargoProfile struct {
	Test bool `json:"test"`
}

type cargoDiagnostic struct {
	Message  string  `json:"message"`
	Level    string  `json:"level"`
	Rendered *string `json:"rendered"`
}

// nonExecutableExts are by-products cargo lists in "filenames" next to executables
var nonExecutableExts = map[string]bool{
	".d":     true,
	".rlib":  true,
	".rmeta": true,
	".pdb":   true,
	".dwp":   true,
	".dsym":  true,
	".so":    true,
	".dylib": true,
	".dll":   true,
	".a":     true,
	".lib":   true,
	".exp":   true,
}

func parseCargo(reason string, data []byte, line string) types.BuildRecord {
	var msg cargoMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return types.Unrecognized{Raw: line, Reason: fmt.Sprintf("malformed %s message: %v", reason, err)}
	}

	switch reason {
	case ReasonCompilerArtifact:
		return parseCargoArtifact(msg, line)
	case ReasonCompilerMessage:
		return parseCargoMessage(msg, line)
	case ReasonBuildFinished:
		if msg.Success == nil {
			return types.Unrecognized{Raw: line, Reason: "build-finished without success flag"}
		}
		return types.BuildFinished{Success: *msg.Success}
	default:
		return types.Unrecognized{Raw: line, Reason: fmt.Sprintf("unhandled cargo message %q", reason)}
	}
}

func parseCargoArtifact(msg cargoMessage, line string) types.BuildRecord {
	if msg.Target == nil || msg.Target.Name == "" {
		return types.Unrecognized{Raw: line, Reason: "artifact without target"}
	}
	kind, ok := cargoKind(msg.Target, msg.Profile)
	if !ok {
		return types.Unrecognized{Raw: line, Reason: "non-executable artifact"}
	}

	var paths []string
	if msg.Executable != nil && *msg.Executable != "" {
		paths = append(paths, *msg.Executable)
	}
	for _, f := range msg.Filenames {
		if len(paths) > 0 && f == paths[0] {
			continue
		}
		if nonExecutableExts[strings.ToLower(filepath.Ext(f))] {
			continue
		}
		paths = append(paths, f)
	}
	if len(paths) == 0 {
		return types.Unrecognized{Raw: line, Reason: "non-executable artifact"}
	}

	pkg, version := parsePackageID(msg.PackageID)
	return types.ArtifactProduced{
		TargetName: msg.Target.Name,
		Package:    pkg,
		Version:    version,
		Kind:       kind,
		Paths:      paths,
		Fresh:      msg.Fresh,
	}
}

// cargoKind maps a cargo target onto a Kind. Anything compiled with the test profile is
// a test harness, whatever the target kind, except benches.
func cargoKind(target *cargoTarget, profile *cargoProfile) (types.Kind, bool) {
	for _, k := range target.Kind {
		if k == "bench" {
			return types.KindBench, true
		}
	}
	if profile != nil && profile.Test {
		return types.KindTest, true
	}
	for _, k := range target.Kind {
		switch k {
		case "bin":
			return types.KindBin, true
		case "example":
			return types.KindExample, true
		case "test":
			return types.KindTest, true
		}
	}
	return types.KindAny, false
}

func parseCargoMessage(msg cargoMessage, line string) types.BuildRecord {
	if msg.Message == nil {
		return types.Unrecognized{Raw: line, Reason: "compiler-message without message"}
	}

	var text string
	if msg.Message.Rendered != nil {
		text = strings.TrimRight(stripansi.Strip(*msg.Message.Rendered), "\r\n")
	}
	if strings.TrimSpace(text) == "" {
		text = fmt.Sprintf("%s: %s", msg.Message.Level, msg.Message.Message)
	}

	var target string
	if msg.Target != nil {
		target = msg.Target.Name
	}
	return types.CompilerMessage{
		Severity: types.ParseSeverity(msg.Message.Level),
		Text:     text,
		Target:   target,
	}
}

// parsePackageID extracts the package name and version from a cargo package id.
// Older cargo prints "name 1.2.3 (source)", newer cargo "source#name@1.2.3", or
// "source#1.2.3" when the name is the last path segment of source.
func parsePackageID(id string) (name, version string) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", ""
	}

	if i := strings.Index(id, " ("); i > 0 {
		fields := strings.Fields(id[:i])
		if len(fields) == 2 {
			name, version = fields[0], fields[1]
		}
	} else if i := strings.LastIndex(id, "#"); i >= 0 {
		source, frag := id[:i], id[i+1:]
		if at := strings.LastIndex(frag, "@"); at >= 0 {
			name, version = frag[:at], frag[at+1:]
		} else {
			version = frag
			if q := strings.Index(source, "?"); q >= 0 {
				source = source[:q]
			}
			name = path.Base(strings.TrimRight(source, "/"))
		}
	}

	if !semver.IsValid("v" + version) {
		version = ""
	}
	return name, version
}
