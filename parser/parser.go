// Package parser turns single lines of build tool output into types.BuildRecord values.
//
// Parsing never fails: anything that cannot be mapped onto an artifact, a diagnostic or an
// end-of-build marker is returned as types.Unrecognized with a short reason, so newer tool
// versions that add message types keep working.
package parser

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum-optimism/infra/op-bintest/types"
)

// ParseFunc is the signature shared by ParseLine and test doubles
type ParseFunc func(line string) types.BuildRecord

// discriminator picks out the message-type field of each supported JSON format.
// Cargo uses "reason", the Go toolchain "Action" and the generic line format "type".
type discriminator struct {
	Reason string `json:"reason"`
	Action string `json:"Action"`
	Type   string `json:"type"`
}

// ParseLine parses one line of build output
func ParseLine(line string) types.BuildRecord {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return types.Unrecognized{Raw: line, Reason: "empty line"}
	}
	if !strings.HasPrefix(trimmed, "{") {
		return parseText(line)
	}

	data := []byte(trimmed)
	var d discriminator
	if err := json.Unmarshal(data, &d); err != nil {
		return types.Unrecognized{Raw: line, Reason: fmt.Sprintf("malformed json: %v", err)}
	}

	switch {
	case d.Reason != "":
		return parseCargo(d.Reason, data, line)
	case d.Action != "":
		return parseGoEvent(data, line)
	case d.Type != "":
		return parseGeneric(data, line)
	default:
		return types.Unrecognized{Raw: line, Reason: "json object without message type"}
	}
}
