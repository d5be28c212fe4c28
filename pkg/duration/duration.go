// Package duration provides canonical time constants for the entire codebase.
// This is the SINGLE SOURCE OF TRUTH for all time-based configuration.
//
// Usage:
//
//	navCtx, cancel := context.WithTimeout(ctx, duration.Navigation)
//	ReadHeaderTimeout: duration.HTTPReadHeader,
//
// DO NOT use hardcoded time.Duration values like `30 * time.Second` anywhere.
// Instead, reference the appropriate constant from this package.
package duration

import "time"

// ============================================================================
// BROWSER TIMEOUTS
// ============================================================================

const (
	// Navigation bounds page load plus the network-idle wait (30s)
	Navigation = 30 * time.Second

	// NetworkIdleWindow is how long the page must stay at or below the
	// in-flight connection ceiling before it counts as idle (500ms)
	NetworkIdleWindow = 500 * time.Millisecond

	// BrowserCleanup is how long Close waits for Chrome to exit before
	// killing the process tree (5s)
	BrowserCleanup = 5 * time.Second
)

// ============================================================================
// HTTP CLIENT TIMEOUTS
// ============================================================================

const (
	// ScriptFetch bounds downloading the rule engine bundle (30s)
	ScriptFetch = 30 * time.Second

	// HealthProbe bounds one /health poll by the smoke client (2s)
	HealthProbe = 2 * time.Second
)

// ============================================================================
// HTTP SERVER TIMEOUTS
// ============================================================================

const (
	// HTTPReadHeader protects the HTTP transport against slowloris (10s)
	HTTPReadHeader = 10 * time.Second

	// HTTPRead bounds reading a full request body (30s)
	HTTPRead = 30 * time.Second

	// HTTPIdle releases idle keep-alive connections (30s)
	HTTPIdle = 30 * time.Second

	// HTTPShutdown is the graceful drain window on SIGINT/SIGTERM (15s)
	HTTPShutdown = 15 * time.Second

	// SSEKeepAlive is the interval between SSE comment frames (15s)
	SSEKeepAlive = 15 * time.Second

	// RateLimitIdle evicts per-client buckets not used for this long (10m)
	RateLimitIdle = 10 * time.Minute
)

// ============================================================================
// TERMINAL UI
// ============================================================================

const (
	// SpinnerFrame is the delay between spinner animation frames (100ms)
	SpinnerFrame = 100 * time.Millisecond

	// InterruptGrace is how long a second interrupt forces an immediate
	// exit after the first one started a graceful shutdown (10s)
	InterruptGrace = 10 * time.Second
)

// ============================================================================
// TELEMETRY
// ============================================================================

const (
	// TelemetryConnect bounds connecting the OTLP exporter (10s)
	TelemetryConnect = 10 * time.Second

	// TelemetryShutdown bounds flushing spans at exit (5s)
	TelemetryShutdown = 5 * time.Second
)
