package runner

import "time"

const (
	// DefaultGoBinary is used when no explicit toolchain path is configured.
	DefaultGoBinary = "go"

	// MaxAutoConcurrency caps auto-determined concurrency to avoid resource
	// exhaustion on large CI hosts.
	MaxAutoConcurrency = 32

	// timeoutGrace pads the parent-side deadline so the child's own -timeout
	// can fire first and produce a goroutine dump.
	timeoutGrace = 200 * time.Millisecond
)

// go test argument constants.
const (
	TestCommand       = "test"
	CountFlag         = "-count"
	DisableCacheCount = "1"
	TimeoutFlag       = "-timeout"
	VerboseFlag       = "-v"
	JSONFlag          = "-json"
)
