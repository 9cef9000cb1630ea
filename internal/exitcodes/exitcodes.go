package exitcodes

// Exit codes for the stale-sweep tools
// These codes form the operational contract with CI/CD and operators
const (
	Success         = 0 // Successful execution
	InvalidConfig   = 2 // Configuration or root path invalid
	SafetyViolation = 3 // Safety validator blocked an operation
	RuntimeError    = 4 // Runtime error during execution
	RemovalFailures = 5 // One or more removals failed (only with fail_on_error)
)
