// Package defaults provides canonical default values for the entire codebase.
// This is the SINGLE SOURCE OF TRUTH for all runtime configuration defaults.
//
// Usage:
//
//	cfg.Viewport.Width = defaults.ViewportWidth
//	req.Header.Set("Content-Type", defaults.ContentTypeJSON)
//
// DO NOT use hardcoded values like `Width: 1280` anywhere.
// Instead, reference the appropriate constant from this package.
package defaults

// Version is the current a11y-tester version
const Version = "1.2.0"

// ToolName is the binary and service name.
const ToolName = "a11y-tester"

// ServerName is the MCP implementation name reported during initialization.
const ServerName = "a11y-accessibility"

// ============================================================================
// BROWSER SETTINGS
// ============================================================================
//
// Every audit opens its own browser with a fixed viewport so that results
// do not depend on the host's screen.
// ============================================================================

const (
	// ViewportWidth is the emulated viewport width in CSS pixels (1280)
	ViewportWidth = 1280

	// ViewportHeight is the emulated viewport height in CSS pixels (800)
	ViewportHeight = 800

	// IdleConnections is the in-flight connection ceiling for "network idle" (2)
	IdleConnections = 2
)

// ============================================================================
// AXE-CORE
// ============================================================================

const (
	// AxeVersion is the axe-core release fetched when no local script is configured
	AxeVersion = "4.10.2"

	// AxeScriptURL is the default location of the minified axe-core bundle
	AxeScriptURL = "https://cdn.jsdelivr.net/npm/axe-core@" + AxeVersion + "/axe.min.js"

	// AxeScriptMaxBytes caps the downloaded engine size (4MB)
	AxeScriptMaxBytes = 4 * 1024 * 1024
)

// ============================================================================
// REPORTING
// ============================================================================

const (
	// TopIssuesLimit is the number of violations listed in a summary (5)
	TopIssuesLimit = 5

	// TimestampLayout matches ISO-8601 with millisecond precision in UTC
	TimestampLayout = "2006-01-02T15:04:05.000Z07:00"
)

// ============================================================================
// SERVER
// ============================================================================

const (
	// HTTPAddr is the listen address used when --http is given without a value
	HTTPAddr = ":8080"

	// RateLimitBurst is the token-bucket burst for the HTTP transport (10)
	RateLimitBurst = 10

	// MaxHeaderBytes bounds request headers on the HTTP transport (1MB)
	MaxHeaderBytes = 1 << 20
)

// ============================================================================
// HTTP CONTENT TYPES
// ============================================================================

const (
	// ContentTypeJSON is application/json
	ContentTypeJSON = "application/json"

	// ContentTypeHTML is text/html
	ContentTypeHTML = "text/html"

	// ContentTypeJavaScript is application/javascript
	ContentTypeJavaScript = "application/javascript"
)

// ============================================================================
// USER AGENTS
// ============================================================================

const (
	// UAMinimal identifies the tool when fetching the rule engine
	UAMinimal = "a11y-tester/" + Version
)
