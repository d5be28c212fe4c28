package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/a11ytester/a11ytester/pkg/audit"
	"github.com/a11ytester/a11ytester/pkg/axe"
	"github.com/a11ytester/a11ytester/pkg/browser"
	"github.com/a11ytester/a11ytester/pkg/defaults"
	"github.com/a11ytester/a11ytester/pkg/duration"
	"github.com/a11ytester/a11ytester/pkg/jsonutil"
	"github.com/a11ytester/a11ytester/pkg/logging"
	"github.com/a11ytester/a11ytester/pkg/metrics"
	"github.com/a11ytester/a11ytester/pkg/ratelimit"
)

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

// Typed logging level constants: the MCP SDK defines LoggingLevel as a raw
// string type without exported constants.
const (
	logInfo    mcp.LoggingLevel = "info"
	logWarning mcp.LoggingLevel = "warning"
)

// Config holds MCP server configuration.
type Config struct {
	// Auditor runs audits. Nil gets a Chrome-backed auditor that loads
	// axe-core from the default CDN.
	Auditor *audit.Auditor

	// Logger receives call logs. Nil uses slog.Default().
	Logger *slog.Logger

	// Metrics is optional; when set the HTTP handler mounts /metrics.
	Metrics *metrics.Metrics

	// RateLimiter throttles the HTTP transports. Nil disables limiting.
	RateLimiter *ratelimit.Limiter
}

// ---------------------------------------------------------------------------
// Server
// ---------------------------------------------------------------------------

// Server wraps the MCP server with the accessibility tools.
type Server struct {
	mcp    *mcp.Server
	config *Config
	log    *slog.Logger
	tools  map[string]struct{} // registered tool names, read-only after New
	ready  atomic.Bool         // tracks whether startup validation passed
}

// MCPServer returns the underlying MCP server for direct access (e.g., testing).
func (s *Server) MCPServer() *mcp.Server { return s.mcp }

// MarkReady signals that startup checks passed.
// Until MarkReady is called, the /health endpoint returns 503 Service Unavailable.
func (s *Server) MarkReady() { s.ready.Store(true) }

// IsReady returns true if the server has completed startup validation.
func (s *Server) IsReady() bool { return s.ready.Load() }

// New creates a new MCP server with all tools, resources, and prompts registered.
func New(cfg *Config) *Server {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Auditor == nil {
		cfg.Auditor = audit.New(&audit.ChromeAnalyzer{
			Browser: browser.DefaultConfig(),
			Script:  axe.NewSource("", ""),
			Metrics: cfg.Metrics,
		})
	}

	s := &Server{
		config: cfg,
		log:    logging.OrDefault(cfg.Logger),
		tools:  make(map[string]struct{}),
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    defaults.ServerName,
			Title:   "Accessibility Tester MCP Server",
			Version: defaults.Version,
		},
		&mcp.ServerOptions{
			Instructions: serverInstructions,
		},
	)
	s.mcp.AddReceivingMiddleware(s.unknownToolMiddleware)

	s.registerTools()
	s.registerResources()
	s.registerPrompts()

	return s
}

// RunStdio runs the MCP server over stdio transport.
// This is the primary mode for IDE integrations (VS Code, Claude Desktop, Cursor).
// Requests are read in order; each tool call owns its own browser.
func (s *Server) RunStdio(ctx context.Context) error {
	s.log.Info("mcp server listening", "transport", "stdio", "version", defaults.Version)
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

// HTTPHandler returns an http.Handler for the streamable HTTP transport with
// CORS support and a /health endpoint. This is the primary handler for remote
// and Docker deployments.
//
// The handler mounts:
//   - /health      → readiness/liveness probe (GET only)
//   - /metrics     → Prometheus scrape endpoint (when metrics are enabled)
//   - /sse         → legacy SSE transport for older MCP clients
//   - /mcp         → streamable HTTP transport
//   - /            → streamable HTTP transport (default mount)
//
// Only the MCP transports are rate limited.
func (s *Server) HTTPHandler() http.Handler {
	streamable := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return s.mcp },
		&mcp.StreamableHTTPOptions{Stateless: false},
	)

	sse := mcp.NewSSEHandler(
		func(_ *http.Request) *mcp.Server { return s.mcp },
		nil, // default SSE options
	)

	limit := s.config.RateLimiter.Middleware

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	if s.config.Metrics != nil {
		mux.Handle("/metrics", s.config.Metrics.Handler())
	}
	mux.Handle("/sse", limit(sseKeepAlive(sse)))
	mux.Handle("/mcp", limit(streamable))
	mux.Handle("/", limit(streamable))

	return corsMiddleware(s.recoveryMiddleware(securityHeaders(mux)))
}

type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

// handleHealth serves a readiness/liveness probe.
// Returns 200 when the server is ready, 503 Service Unavailable before
// MarkReady() is called.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	resp := healthResponse{Status: "ok", Service: defaults.ServerName, Version: defaults.Version}
	status := http.StatusOK
	if !s.IsReady() {
		resp.Status = "starting"
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", defaults.ContentTypeJSON)
	w.WriteHeader(status)
	_ = jsonutil.WriteIndent(w, resp)
}

// corsMiddleware wraps an http.Handler with permissive CORS headers required
// by browser-based MCP clients and cross-origin integrations.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		// Vary: Origin so caches keep CORS and non-CORS responses apart.
		w.Header().Add("Vary", "Origin")

		if origin == "" {
			// Non-browser client. "*" with Allow-Credentials violates Fetch.
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers",
			strings.Join([]string{
				"Content-Type",
				"Authorization",
				"Mcp-Session-Id",
				"MCP-Protocol-Version",
				"Last-Event-ID",
				"Accept",
			}, ", "))
		w.Header().Set("Access-Control-Expose-Headers", "Mcp-Session-Id, MCP-Protocol-Version")
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// recoveryMiddleware catches panics in HTTP handlers and returns a 500 error
// instead of killing the connection.
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.log.Error("panic in HTTP handler",
					"panic", fmt.Sprint(err),
					"path", r.URL.Path,
					"stack", string(debug.Stack()))

				// If headers were already sent (SSE streaming), WriteHeader is a no-op.
				w.Header().Set("Content-Type", defaults.ContentTypeJSON)
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":"internal server error"}`))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// securityHeaders adds standard defense-in-depth headers.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// sseKeepAlive sends periodic SSE comments so reverse proxies (nginx, ALB,
// Cloudflare) do not close idle streams. Audits can run for tens of seconds
// with nothing else on the wire.
func sseKeepAlive(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
			next.ServeHTTP(w, r)
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		kw := &keepAliveWriter{
			ResponseWriter: w,
			flusher:        flusher,
			interval:       duration.SSEKeepAlive,
			done:           make(chan struct{}),
		}

		go kw.keepAliveLoop()
		defer close(kw.done)

		next.ServeHTTP(kw, r)
	})
}

// keepAliveWriter serializes writes from the handler and the keep-alive
// goroutine.
type keepAliveWriter struct {
	mu sync.Mutex
	http.ResponseWriter
	flusher  http.Flusher
	interval time.Duration
	done     chan struct{}
}

func (kw *keepAliveWriter) Write(p []byte) (int, error) {
	kw.mu.Lock()
	defer kw.mu.Unlock()
	return kw.ResponseWriter.Write(p)
}

// Flush implements http.Flusher. Without it the SDK's SSE handler cannot
// flush through the wrapper and events buffer forever.
func (kw *keepAliveWriter) Flush() {
	kw.mu.Lock()
	defer kw.mu.Unlock()
	kw.flusher.Flush()
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (kw *keepAliveWriter) Unwrap() http.ResponseWriter {
	return kw.ResponseWriter
}

func (kw *keepAliveWriter) keepAliveLoop() {
	ticker := time.NewTicker(kw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-kw.done:
			return
		case <-ticker.C:
			kw.mu.Lock()
			_, err := kw.ResponseWriter.Write([]byte(": keepalive\n\n"))
			if err != nil {
				kw.mu.Unlock()
				return // Connection closed.
			}
			kw.flusher.Flush()
			kw.mu.Unlock()
		}
	}
}

// ---------------------------------------------------------------------------
// Helpers: result builders
// ---------------------------------------------------------------------------

// notifyProgress sends a progress notification to the client if a progress
// token was provided in the request. Safe to call when session/token is nil.
func notifyProgress(ctx context.Context, req *mcp.CallToolRequest, progress, total float64, message string) {
	if req.Params == nil || req.Session == nil {
		return
	}
	token := req.Params.GetProgressToken()
	if token == nil {
		return
	}
	// Progress is advisory; a failed notification does not affect the call.
	_ = req.Session.NotifyProgress(ctx, &mcp.ProgressNotificationParams{
		ProgressToken: token,
		Progress:      progress,
		Total:         total,
		Message:       message,
	})
}

// logToSession sends a structured log message to the MCP client.
func logToSession(ctx context.Context, req *mcp.CallToolRequest, level mcp.LoggingLevel, data any) {
	if req.Session == nil {
		return
	}
	_ = req.Session.Log(ctx, &mcp.LoggingMessageParams{
		Level:  level,
		Logger: defaults.ToolName,
		Data:   data,
	})
}

// textResult creates a CallToolResult with a single text content block.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

// jsonResult marshals v to indented JSON and wraps it in a CallToolResult.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := jsonutil.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling result: %w", err)
	}
	return textResult(string(data)), nil
}

// errorResult creates an IsError CallToolResult so the client sees the
// failure as tool output rather than a protocol-level exception.
func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
		IsError: true,
	}
}

// boolPtr returns a pointer to b. Used for optional bool fields in the SDK.
func boolPtr(b bool) *bool { return &b }

// parseArgs unmarshals the raw JSON arguments from a tool call into dst.
// Absent or null arguments leave dst untouched.
func parseArgs(req *mcp.CallToolRequest, dst any) error {
	if req.Params == nil || len(req.Params.Arguments) == 0 {
		return nil
	}
	if err := jsonutil.Unmarshal(req.Params.Arguments, dst); err != nil {
		return fmt.Errorf("parsing tool arguments: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Server Instructions
// ---------------------------------------------------------------------------

const serverInstructions = `You are operating an accessibility testing server. It loads web pages in a headless Chrome browser and checks them with the axe-core rule engine.

## TOOLS

| User Intent | Tool | Why |
|---|---|---|
| "How accessible is this page?" | get_summary | Severity counts and the five worst issues |
| "Audit this page" / "List every issue" | audit_webpage | Every violation with affected elements |
| "Check WCAG 2.1 AA only" | audit_webpage with tags | Restricts the rule set by tag |

## RECOMMENDED WORKFLOW

1. get_summary → see how many issues exist and how severe they are
2. audit_webpage → fetch the full list, optionally with {"tags": ["wcag2aa"]}
3. audit_webpage with {"includeHtml": true} → see the offending markup when fixing

## TAGS

Common rule tags: wcag2a, wcag2aa, wcag2aaa, wcag21a, wcag21aa, wcag22aa, best-practice, section508. Read a11y://tags for the full catalog.

## SEVERITY

critical > serious > moderate > minor. Fix critical and serious issues first: they block users of assistive technology.

## ERRORS

- "invalid parameters" → the url argument is missing; ask the user for it
- "Error auditing webpage: invalid URL" → the url must be absolute http(s)
- "navigation timeout of 30000 ms exceeded" → the page did not finish loading; it may be down or very slow
- "browser launch failed" → Chrome is not available on the server

Each call launches a fresh browser, so results reflect the page as an anonymous first-time visitor sees it.`
