package parser

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum-optimism/infra/op-bintest/types"
)

// Go toolchain build event actions, emitted by `go build -json` and `go test -json`
const (
	ActionBuildOutput = "build-output"
	ActionBuildFail   = "build-fail"
)

type goBuildEvent struct {
	ImportPath string
	Action     string
	Output     string
}

func parseGoEvent(data []byte, line string) types.BuildRecord {
	var event goBuildEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return types.Unrecognized{Raw: line, Reason: fmt.Sprintf("malformed go event: %v", err)}
	}

	switch event.Action {
	case ActionBuildOutput:
		text := strings.TrimRight(event.Output, "\r\n")
		if strings.TrimSpace(text) == "" {
			return types.Unrecognized{Raw: line, Reason: "empty build output"}
		}
		severity := types.SeverityNote
		if goDiagnosticRe.MatchString(strings.TrimSpace(text)) {
			severity = types.SeverityError
		}
		return types.CompilerMessage{Severity: severity, Text: text, Target: event.ImportPath}
	case ActionBuildFail:
		return types.CompilerMessage{
			Severity: types.SeverityError,
			Text:     fmt.Sprintf("build failed: %s", event.ImportPath),
			Target:   event.ImportPath,
		}
	default:
		return types.Unrecognized{Raw: line, Reason: fmt.Sprintf("unhandled go event action %q", event.Action)}
	}
}
