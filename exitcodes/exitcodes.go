// Package exitcodes defines the standard exit codes used by fullsweep.
package exitcodes

// Exit code constants used by fullsweep
// These constants define the exit codes that the application uses to indicate
// various states when it exits:
//
// * Success (0): Used when all test targets pass
// * TestFailure (1): Used when one or more test targets fail
// * RuntimeErr (2): Used for infrastructure errors: cache guard IO failures,
//   discovery failures, a harness that cannot be spawned, invalid configuration
// * Cancelled (3): Used when the invocation is cancelled before the run completes
const (
	Success     = 0 // All targets pass
	TestFailure = 1 // Target failures
	RuntimeErr  = 2 // Infrastructure errors
	Cancelled   = 3 // Run cancelled
)
