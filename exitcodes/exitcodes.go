// Package exitcodes defines the standard exit codes used by op-bintest.
package exitcodes

// Exit code constants used by op-bintest
// These constants define the exit codes that the application uses to indicate
// various states when it exits:
//
// * Success (0): Used when the command completed
// * LookupFailure (1): Used when an executable name is unknown or ambiguous
// * RuntimeErr (2): Used when the build failed, the build tool could not be started,
// or the configuration is invalid
const (
	Success       = 0 // Command completed
	LookupFailure = 1 // Unknown or ambiguous executable
	RuntimeErr    = 2 // Build, spawn or configuration failures
)
