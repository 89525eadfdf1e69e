package types

import (
	"fmt"
	"runtime"
	"strings"
)

// Kind is the category of an executable target produced by a build
type Kind string

const (
	// KindAny is the empty hint: match across all kinds
	KindAny     Kind = ""
	KindBin     Kind = "bin"
	KindExample Kind = "example"
	KindTest    Kind = "test"
	KindBench   Kind = "bench"
)

// AllKinds lists the valid kinds in lookup order
var AllKinds = []Kind{KindBin, KindExample, KindTest, KindBench}

// IsValid reports whether k is one of the concrete kinds. KindAny is not valid.
func (k Kind) IsValid() bool {
	switch k {
	case KindBin, KindExample, KindTest, KindBench:
		return true
	default:
		return false
	}
}

func (k Kind) String() string {
	if k == KindAny {
		return "any"
	}
	return string(k)
}

// ParseKind converts a user or tool supplied kind name into a Kind.
// The empty string and "any" map to KindAny.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "any":
		return KindAny, nil
	case "bin", "binary":
		return KindBin, nil
	case "example":
		return KindExample, nil
	case "test":
		return KindTest, nil
	case "bench", "benchmark":
		return KindBench, nil
	}
	return KindAny, fmt.Errorf("unknown artifact kind %q, must be one of: %s, %s, %s, %s",
		s, KindBin, KindExample, KindTest, KindBench)
}

// HostExecutableSuffix returns the file extension executables carry on the host platform
func HostExecutableSuffix() string {
	if runtime.GOOS == "windows" {
		return ".exe"
	}
	return ""
}
