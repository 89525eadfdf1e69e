package parser

import (
	"regexp"
	"strings"

	"github.com/acarl005/stripansi"

	"github.com/ethereum-optimism/infra/op-bintest/types"
)

var (
	// "error: ...", "warning: ...", "error[E0412]: ..."
	diagnosticLineRe = regexp.MustCompile(`^(error|warning|note|help)(\[[A-Za-z0-9]+\])?: `)
	// "./main.go:3:2: undefined: x"
	goDiagnosticRe = regexp.MustCompile(`^\S+\.go:\d+(:\d+)?: `)
)

// parseText handles human readable lines interleaved with the structured stream
func parseText(line string) types.BuildRecord {
	clean := strings.TrimSpace(stripansi.Strip(line))

	if m := diagnosticLineRe.FindStringSubmatch(clean); m != nil {
		return types.CompilerMessage{Severity: types.ParseSeverity(m[1]), Text: clean}
	}
	if goDiagnosticRe.MatchString(clean) {
		return types.CompilerMessage{Severity: types.SeverityError, Text: clean}
	}
	return types.Unrecognized{Raw: line, Reason: "human-readable output"}
}
