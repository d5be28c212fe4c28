package defaults

// Exit codes for the CLI.
const (
	ExitSuccess       = 0 // Clean exit, no violations found
	ExitViolations    = 1 // Audit completed with violations (--fail-on-violations)
	ExitUserError     = 2 // Invalid arguments or configuration
	ExitAuditError    = 3 // Browser launch, navigation or engine failure
	ExitInternalError = 4 // Unexpected internal error
)
