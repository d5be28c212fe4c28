package mcpserver_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a11ytester/a11ytester/pkg/audit"
	"github.com/a11ytester/a11ytester/pkg/axe"
	"github.com/a11ytester/a11ytester/pkg/browser"
	"github.com/a11ytester/a11ytester/pkg/jsonutil"
	"github.com/a11ytester/a11ytester/pkg/logging"
	"github.com/a11ytester/a11ytester/pkg/mcpserver"
	"github.com/a11ytester/a11ytester/pkg/metrics"
	"github.com/a11ytester/a11ytester/pkg/ratelimit"
	"github.com/a11ytester/a11ytester/pkg/testutil"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// fakeAnalyzer records every call and returns canned results. With tags set
// it keeps only rules carrying one of them.
type fakeAnalyzer struct {
	mu    sync.Mutex
	calls []fakeCall
	res   *axe.Results
	err   error
}

type fakeCall struct {
	target string
	tags   []string
}

func (f *fakeAnalyzer) Analyze(_ context.Context, target string, tags []string) (*axe.Results, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fakeCall{target: target, tags: tags})
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := *f.res
	if len(tags) > 0 {
		out.Violations = nil
		for _, r := range f.res.Violations {
			for _, tag := range tags {
				if r.HasTag(tag) {
					out.Violations = append(out.Violations, r)
					break
				}
			}
		}
	}
	return &out, nil
}

func (f *fakeAnalyzer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func sampleResults() *axe.Results {
	return &axe.Results{
		URL: "https://example.com/",
		Violations: []axe.Rule{
			{
				ID: "image-alt", Impact: "critical", Description: "Ensures <img> elements have alternate text",
				Help: "Images must have alternate text", HelpURL: "https://dequeuniversity.com/rules/axe/4.10/image-alt",
				Tags: []string{"wcag2a", "section508"},
				Nodes: []axe.Node{{HTML: `<img src="logo.png">`, Impact: "critical", Target: []any{"img"}, FailureSummary: "Fix any of the following"}},
			},
			{
				ID: "color-contrast", Impact: "serious", Description: "Ensures the contrast between foreground and background colors meets WCAG 2 AA",
				Help: "Elements must meet minimum color contrast ratio thresholds", HelpURL: "https://dequeuniversity.com/rules/axe/4.10/color-contrast",
				Tags: []string{"wcag2aa"},
				Nodes: []axe.Node{
					{HTML: `<p class="muted">a</p>`, Impact: "serious", Target: []any{"p.muted"}},
					{HTML: `<span>b</span>`, Impact: "serious", Target: []any{"span"}},
				},
			},
			{
				ID: "region", Impact: "moderate", Description: "Ensures all page content is contained by landmarks",
				Help: "All page content should be contained by landmarks", HelpURL: "https://dequeuniversity.com/rules/axe/4.10/region",
				Tags:  []string{"best-practice"},
				Nodes: []axe.Node{{HTML: `<div>c</div>`, Impact: "moderate", Target: []any{"div"}}},
			},
		},
		Passes:     make([]axe.Rule, 12),
		Incomplete: make([]axe.Rule, 2),
	}
}

type harness struct {
	srv      *mcpserver.Server
	analyzer *fakeAnalyzer
	metrics  *metrics.Metrics
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	m, err := metrics.New()
	require.NoError(t, err)
	fa := &fakeAnalyzer{res: sampleResults()}
	srv := mcpserver.New(&mcpserver.Config{
		Auditor: audit.New(fa, audit.WithClock(func() time.Time { return fixedNow })),
		Logger:  logging.Discard(),
		Metrics: m,
	})
	return &harness{srv: srv, analyzer: fa, metrics: m}
}

// connect creates a connected client↔server session over in-memory transports.
func (h *harness) connect(t *testing.T) *mcp.ClientSession {
	t.Helper()
	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "0.0.1"}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() {
		_ = h.srv.MCPServer().Run(ctx, serverTransport)
	}()

	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func callTool(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) (*mcp.CallToolResult, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return cs.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
}

func extractText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	tc, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok, "expected TextContent, got %T", result.Content[0])
	return tc.Text
}

func requireRPCCode(t *testing.T, err error, code int64, prefix string) {
	t.Helper()
	require.Error(t, err)
	var rpcErr *jsonrpc.Error
	require.True(t, errors.As(err, &rpcErr), "expected *jsonrpc.Error, got %T: %v", err, err)
	assert.Equal(t, code, rpcErr.Code)
	assert.True(t, strings.HasPrefix(rpcErr.Message, prefix), "message %q lacks prefix %q", rpcErr.Message, prefix)
}

// ═══════════════════════════════════════════════════════════════════════════
// Discovery
// ═══════════════════════════════════════════════════════════════════════════

func TestNewWithNilConfig(t *testing.T) {
	srv := mcpserver.New(nil)
	require.NotNil(t, srv)
	assert.NotNil(t, srv.MCPServer())
	assert.False(t, srv.IsReady())
	srv.MarkReady()
	assert.True(t, srv.IsReady())
}

func TestListToolsExactlyTwo(t *testing.T) {
	cs := newHarness(t).connect(t)

	result, err := cs.ListTools(context.Background(), &mcp.ListToolsParams{})
	require.NoError(t, err)
	require.Len(t, result.Tools, 2)

	names := []string{result.Tools[0].Name, result.Tools[1].Name}
	assert.ElementsMatch(t, []string{"audit_webpage", "get_summary"}, names)
}

func TestToolSchemas(t *testing.T) {
	cs := newHarness(t).connect(t)

	result, err := cs.ListTools(context.Background(), &mcp.ListToolsParams{})
	require.NoError(t, err)

	want := map[string]struct {
		description string
		schema      string
	}{
		"audit_webpage": {
			description: "Perform an accessibility audit on a webpage",
			schema: `{
				"type": "object",
				"properties": {
					"url": {"type": "string", "description": "URL of the webpage to audit"},
					"includeHtml": {"type": "boolean", "description": "Whether to include HTML snippets in the results", "default": false},
					"tags": {"type": "array", "items": {"type": "string"}, "description": "Specific accessibility tags to check (e.g., wcag2a, wcag2aa, wcag21a, best-practice)"}
				},
				"required": ["url"]
			}`,
		},
		"get_summary": {
			description: "Get a summary of accessibility issues for a webpage",
			schema: `{
				"type": "object",
				"properties": {
					"url": {"type": "string", "description": "URL of the webpage to audit"}
				},
				"required": ["url"]
			}`,
		},
	}

	for _, tool := range result.Tools {
		w, ok := want[tool.Name]
		require.True(t, ok, "unexpected tool %q", tool.Name)
		assert.Equal(t, w.description, tool.Description)

		got, err := jsonutil.Marshal(tool.InputSchema)
		require.NoError(t, err)
		assert.JSONEq(t, w.schema, string(got), "schema of %s", tool.Name)

		require.NotNil(t, tool.Annotations, "tool %s has no annotations", tool.Name)
		assert.True(t, tool.Annotations.ReadOnlyHint)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Protocol faults
// ═══════════════════════════════════════════════════════════════════════════

func TestUnknownToolIsMethodNotFound(t *testing.T) {
	h := newHarness(t)
	cs := h.connect(t)

	_, err := callTool(t, cs, "scan_website", map[string]any{"url": "https://example.com"})
	requireRPCCode(t, err, -32601, "method not found")
	assert.Zero(t, h.analyzer.callCount())
}

func TestMissingURLIsInvalidParams(t *testing.T) {
	for _, tool := range []string{"audit_webpage", "get_summary"} {
		for name, args := range map[string]map[string]any{
			"absent":     {},
			"empty":      {"url": ""},
			"whitespace": {"url": "   "},
		} {
			t.Run(tool+"/"+name, func(t *testing.T) {
				h := newHarness(t)
				cs := h.connect(t)

				_, err := callTool(t, cs, tool, args)
				requireRPCCode(t, err, -32602, "invalid parameters")
				assert.Zero(t, h.analyzer.callCount(), "analyzer must not run")
			})
		}
	}
}

func TestWrongArgumentTypesAreInvalidParams(t *testing.T) {
	h := newHarness(t)
	cs := h.connect(t)

	_, err := callTool(t, cs, "audit_webpage", map[string]any{"url": 42})
	requireRPCCode(t, err, -32602, "invalid parameters")

	_, err = callTool(t, cs, "audit_webpage", map[string]any{"url": "https://example.com", "includeHtml": "yes"})
	requireRPCCode(t, err, -32602, "invalid parameters")

	_, err = callTool(t, cs, "audit_webpage", map[string]any{"url": "https://example.com", "tags": "wcag2a"})
	requireRPCCode(t, err, -32602, "invalid parameters")

	assert.Zero(t, h.analyzer.callCount())
}

// ═══════════════════════════════════════════════════════════════════════════
// Operational results
// ═══════════════════════════════════════════════════════════════════════════

func TestMalformedURLIsErrorResult(t *testing.T) {
	h := newHarness(t)
	cs := h.connect(t)

	res, err := callTool(t, cs, "audit_webpage", map[string]any{"url": "not a url"})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.True(t, strings.HasPrefix(extractText(t, res), "Error auditing webpage: "))

	res, err = callTool(t, cs, "get_summary", map[string]any{"url": "ftp://example.com/file"})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.True(t, strings.HasPrefix(extractText(t, res), "Error getting summary: "))

	assert.Zero(t, h.analyzer.callCount())
}

func TestAuditWebpageReport(t *testing.T) {
	h := newHarness(t)
	cs := h.connect(t)

	res, err := callTool(t, cs, "audit_webpage", map[string]any{"url": "https://example.com/"})
	require.NoError(t, err)
	require.False(t, res.IsError, extractText(t, res))

	var report audit.Report
	require.NoError(t, jsonutil.Unmarshal([]byte(extractText(t, res)), &report))

	assert.Equal(t, "https://example.com/", report.URL)
	assert.Equal(t, "2025-06-01T12:00:00.000Z", report.Timestamp)
	require.Len(t, report.Violations, 3)
	assert.Equal(t, []string{"image-alt", "color-contrast", "region"},
		[]string{report.Violations[0].ID, report.Violations[1].ID, report.Violations[2].ID})
	assert.Len(t, report.Violations[1].AffectedNodes, 2)
	assert.Equal(t, 12, report.Passes)
	assert.Equal(t, 2, report.Incomplete)
	for _, v := range report.Violations {
		for _, n := range v.AffectedNodes {
			assert.Empty(t, n.HTML, "html must be omitted without includeHtml")
		}
	}
	assert.NotContains(t, extractText(t, res), `"html"`)
}

func TestConcurrentToolCalls(t *testing.T) {
	h := newHarness(t)
	cs := h.connect(t)

	const calls = 8
	testutil.AssertTimeout(t, "concurrent calls", 10*time.Second, func() {
		testutil.RunConcurrently(calls, func(i int) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			name := "audit_webpage"
			if i%2 == 1 {
				name = "get_summary"
			}
			res, err := cs.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: map[string]any{"url": "https://example.com/"}})
			if assert.NoError(t, err) {
				assert.False(t, res.IsError)
			}
		})
	})
	assert.Equal(t, calls, h.analyzer.callCount())
}

func TestAuditWebpageIncludeHTML(t *testing.T) {
	h := newHarness(t)
	cs := h.connect(t)

	res, err := callTool(t, cs, "audit_webpage", map[string]any{"url": "https://example.com/", "includeHtml": true})
	require.NoError(t, err)

	var report audit.Report
	require.NoError(t, jsonutil.Unmarshal([]byte(extractText(t, res)), &report))
	assert.Equal(t, `<img src="logo.png">`, report.Violations[0].AffectedNodes[0].HTML)
}

func TestAuditWebpageTagsPassThrough(t *testing.T) {
	h := newHarness(t)
	cs := h.connect(t)

	res, err := callTool(t, cs, "audit_webpage", map[string]any{
		"url":  "https://example.com/",
		"tags": []string{"wcag2aa"},
	})
	require.NoError(t, err)

	require.Equal(t, 1, h.analyzer.callCount())
	assert.Equal(t, []string{"wcag2aa"}, h.analyzer.calls[0].tags)

	var report audit.Report
	require.NoError(t, jsonutil.Unmarshal([]byte(extractText(t, res)), &report))
	require.Len(t, report.Violations, 1)
	assert.Equal(t, "color-contrast", report.Violations[0].ID)
}

func TestGetSummary(t *testing.T) {
	h := newHarness(t)
	cs := h.connect(t)

	res, err := callTool(t, cs, "get_summary", map[string]any{"url": "https://example.com/"})
	require.NoError(t, err)
	require.False(t, res.IsError)

	var summary audit.Summary
	require.NoError(t, jsonutil.Unmarshal([]byte(extractText(t, res)), &summary))
	assert.Equal(t, 3, summary.TotalIssues)
	assert.Equal(t, audit.SeverityCounts{Critical: 1, Serious: 1, Moderate: 1}, summary.IssuesBySeverity)
	require.Len(t, summary.TopIssues, 3)
	assert.Equal(t, "image-alt", summary.TopIssues[0].ID)
	assert.Equal(t, 2, summary.TopIssues[1].AffectedNodes)
	assert.Equal(t, 12, summary.PassedChecks)
	assert.Equal(t, 2, summary.IncompleteChecks)

	require.Equal(t, 1, h.analyzer.callCount())
	assert.Empty(t, h.analyzer.calls[0].tags)
}

func TestAnalyzerFailuresBecomeErrorResults(t *testing.T) {
	tests := []struct {
		tool   string
		err    error
		prefix string
		detail string
	}{
		{"audit_webpage", &browser.NavigationTimeoutError{Timeout: 30 * time.Second}, "Error auditing webpage: ", "navigation timeout of 30000 ms exceeded"},
		{"get_summary", &browser.NavigationTimeoutError{Timeout: 30 * time.Second}, "Error getting summary: ", "navigation timeout of 30000 ms exceeded"},
		{"audit_webpage", browser.ErrLaunch, "Error auditing webpage: ", "browser launch failed"},
		{"get_summary", axe.ErrEvaluation, "Error getting summary: ", axe.ErrEvaluation.Error()},
	}
	for _, tt := range tests {
		t.Run(tt.tool+"/"+tt.detail, func(t *testing.T) {
			h := newHarness(t)
			h.analyzer.err = tt.err
			cs := h.connect(t)

			res, err := callTool(t, cs, tt.tool, map[string]any{"url": "https://example.com/"})
			require.NoError(t, err, "operational failures are results, not faults")
			assert.True(t, res.IsError)
			text := extractText(t, res)
			assert.True(t, strings.HasPrefix(text, tt.prefix), text)
			assert.Contains(t, text, tt.detail)
		})
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Resources and prompts
// ═══════════════════════════════════════════════════════════════════════════

func TestReadResources(t *testing.T) {
	cs := newHarness(t).connect(t)
	ctx := context.Background()

	res, err := cs.ReadResource(ctx, &mcp.ReadResourceParams{URI: "a11y://version"})
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	assert.Contains(t, res.Contents[0].Text, `"audit_webpage"`)
	assert.Contains(t, res.Contents[0].Text, `"axeVersion"`)

	res, err = cs.ReadResource(ctx, &mcp.ReadResourceParams{URI: "a11y://tags"})
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	assert.Contains(t, res.Contents[0].Text, `"wcag2aa"`)

	_, err = cs.ReadResource(ctx, &mcp.ReadResourceParams{URI: "a11y://nonexistent"})
	assert.Error(t, err)
}

func TestAccessibilityReviewPrompt(t *testing.T) {
	cs := newHarness(t).connect(t)
	ctx := context.Background()

	res, err := cs.GetPrompt(ctx, &mcp.GetPromptParams{
		Name:      "accessibility_review",
		Arguments: map[string]string{"url": "https://example.com", "standard": "wcag21aa"},
	})
	require.NoError(t, err)
	require.Len(t, res.Messages, 1)
	text := res.Messages[0].Content.(*mcp.TextContent).Text
	assert.Contains(t, text, "get_summary")
	assert.Contains(t, text, `"tags": ["wcag21aa"]`)

	_, err = cs.GetPrompt(ctx, &mcp.GetPromptParams{Name: "accessibility_review", Arguments: map[string]string{}})
	assert.Error(t, err)
}

// ═══════════════════════════════════════════════════════════════════════════
// HTTP transport
// ═══════════════════════════════════════════════════════════════════════════

func TestHealthEndpoint(t *testing.T) {
	srv := newHarness(t).srv
	ts := httptest.NewServer(srv.HTTPHandler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	srv.MarkReady()
	resp, err = http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))

	var body map[string]string
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, jsonutil.Unmarshal(data, &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "a11y-accessibility", body["service"])
}

func TestHealthEndpointMethodNotAllowed(t *testing.T) {
	ts := httptest.NewServer(newHarness(t).srv.HTTPHandler())
	defer ts.Close()

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/health", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestMetricsEndpointCountsCalls(t *testing.T) {
	h := newHarness(t)
	cs := h.connect(t)

	_, err := callTool(t, cs, "audit_webpage", map[string]any{"url": "https://example.com/"})
	require.NoError(t, err)
	_, err = callTool(t, cs, "get_summary", map[string]any{})
	require.Error(t, err)

	ts := httptest.NewServer(h.srv.HTTPHandler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(body)
	assert.Contains(t, text, `a11y_tool_calls_total{outcome="success",tool="audit_webpage"} 1`)
	assert.Contains(t, text, `a11y_tool_calls_total{outcome="invalid_params",tool="get_summary"} 1`)
	assert.Contains(t, text, `a11y_violations_total{impact="critical"} 1`)
}

func TestMetricsEndpointAbsentWithoutMetrics(t *testing.T) {
	srv := mcpserver.New(&mcpserver.Config{Logger: logging.Discard()})
	ts := httptest.NewServer(srv.HTTPHandler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.NotEqual(t, http.StatusOK, resp.StatusCode)
}

func TestCORSHeaders(t *testing.T) {
	ts := httptest.NewServer(newHarness(t).srv.HTTPHandler())
	defer ts.Close()

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://inspector.example.com")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "https://inspector.example.com", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST, DELETE, OPTIONS", resp.Header.Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
	for _, h := range []string{"Content-Type", "Mcp-Session-Id", "Last-Event-ID"} {
		assert.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), h)
	}
}

func TestCORSPreflight(t *testing.T) {
	ts := httptest.NewServer(newHarness(t).srv.HTTPHandler())
	defer ts.Close()

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/mcp", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://inspector.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "86400", resp.Header.Get("Access-Control-Max-Age"))
}

func TestNoCORSWithoutOrigin(t *testing.T) {
	ts := httptest.NewServer(newHarness(t).srv.HTTPHandler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestRateLimitOnTransport(t *testing.T) {
	srv := mcpserver.New(&mcpserver.Config{
		Auditor:     audit.New(&fakeAnalyzer{res: sampleResults()}),
		Logger:      logging.Discard(),
		RateLimiter: ratelimit.New(ratelimit.Config{RequestsPerSecond: 0.01, Burst: 1}),
	})
	srv.MarkReady()
	ts := httptest.NewServer(srv.HTTPHandler())
	defer ts.Close()

	post := func() *http.Response {
		resp, err := http.Post(ts.URL+"/mcp", "application/json", strings.NewReader(`{}`))
		require.NoError(t, err)
		resp.Body.Close()
		return resp
	}

	assert.NotEqual(t, http.StatusTooManyRequests, post().StatusCode)
	second := post()
	assert.Equal(t, http.StatusTooManyRequests, second.StatusCode)
	assert.NotEmpty(t, second.Header.Get("Retry-After"))

	// Health probes are never limited.
	for range 3 {
		resp, err := http.Get(ts.URL + "/health")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}
}
