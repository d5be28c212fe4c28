// Command mcp-smoke starts the MCP server over HTTP and drives it with a
// real client, checking discovery, protocol faults and tool results.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/a11ytester/a11ytester/pkg/duration"
	"github.com/a11ytester/a11ytester/pkg/jsonutil"
)

const modulePath = "github.com/a11ytester/a11ytester"

// JSON-RPC 2.0 error codes the server uses for protocol faults.
const (
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
)

// scenarioResult tracks the outcome of a single scenario.
type scenarioResult struct {
	name    string
	passed  bool
	skipped bool
	err     error
}

// scenario is a named check that runs against a live MCP session.
type scenario struct {
	name string
	live bool // requires Chrome and a reachable target (skipped without -live)
	fn   func(ctx context.Context, s *mcp.ClientSession, target string) error
}

func main() {
	var (
		port    = flag.Int("port", 18080, "MCP HTTP port")
		target  = flag.String("target", "https://example.com", "Target URL for live scenarios")
		timeout = flag.Duration("timeout", 2*time.Minute, "Overall timeout")
		live    = flag.Bool("live", false, "Enable live scenarios that launch Chrome against -target")
		runOnly = flag.String("scenario", "", "Run only this named scenario")
	)
	flag.Parse()
	log.SetFlags(0)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	serverCmd, err := startServer(ctx, *port)
	if err != nil {
		log.Fatalf("FATAL start_server: %v", err)
	}
	defer stopServer(serverCmd)

	if err := waitForHealth(ctx, *port); err != nil {
		log.Fatalf("FATAL health_check: %v", err)
	}
	fmt.Println("server: healthy")

	client := mcp.NewClient(&mcp.Implementation{Name: "mcp-smoke", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, &mcp.StreamableClientTransport{
		Endpoint: fmt.Sprintf("http://127.0.0.1:%d/mcp", *port),
	}, nil)
	if err != nil {
		log.Fatalf("FATAL connect: %v", err)
	}
	defer session.Close()

	var results []scenarioResult
	for _, sc := range allScenarios() {
		if *runOnly != "" && sc.name != *runOnly {
			continue
		}
		if sc.live && !*live {
			results = append(results, scenarioResult{name: sc.name, skipped: true})
			fmt.Printf("SKIP  %s\n", sc.name)
			continue
		}

		err := sc.fn(ctx, session, *target)
		results = append(results, scenarioResult{name: sc.name, passed: err == nil, err: err})
		if err == nil {
			fmt.Printf("PASS  %s\n", sc.name)
		} else {
			fmt.Printf("FAIL  %s: %v\n", sc.name, err)
		}
	}

	passed, failed, skipped := 0, 0, 0
	for _, r := range results {
		switch {
		case r.skipped:
			skipped++
		case r.passed:
			passed++
		default:
			failed++
		}
	}

	fmt.Printf("\n--- %d passed, %d failed, %d skipped ---\n", passed, failed, skipped)
	if failed > 0 {
		os.Exit(1)
	}
}

// allScenarios returns every smoke scenario in execution order.
func allScenarios() []scenario {
	return []scenario{
		{"tool_discovery", false, scenarioToolDiscovery},
		{"resource_exploration", false, scenarioResourceExploration},
		{"prompt_catalog", false, scenarioPromptCatalog},
		{"protocol_faults", false, scenarioProtocolFaults},
		{"malformed_url", false, scenarioMalformedURL},

		{"audit_live", true, scenarioAuditLive},
		{"summary_live", true, scenarioSummaryLive},
		{"unreachable_host", true, scenarioUnreachableHost},
	}
}

// ---------------------------------------------------------------------------
// tool_discovery: exactly two tools, each with a description and schema.
// ---------------------------------------------------------------------------

func scenarioToolDiscovery(ctx context.Context, s *mcp.ClientSession, _ string) error {
	tools, err := s.ListTools(ctx, &mcp.ListToolsParams{})
	if err != nil {
		return fmt.Errorf("ListTools: %w", err)
	}

	want := map[string][]string{
		"audit_webpage": {"url", "includeHtml", "tags"},
		"get_summary":   {"url"},
	}
	if len(tools.Tools) != len(want) {
		return fmt.Errorf("tool count mismatch: want %d, got %d", len(want), len(tools.Tools))
	}

	for _, t := range tools.Tools {
		props, ok := want[t.Name]
		if !ok {
			return fmt.Errorf("unexpected tool %q", t.Name)
		}
		if t.Description == "" {
			return fmt.Errorf("tool %q has empty description", t.Name)
		}
		schema, err := schemaMap(t.InputSchema)
		if err != nil {
			return fmt.Errorf("tool %q: %w", t.Name, err)
		}
		properties, _ := schema["properties"].(map[string]any)
		if len(properties) != len(props) {
			return fmt.Errorf("tool %q: want %d properties, got %d", t.Name, len(props), len(properties))
		}
		for _, p := range props {
			if _, ok := properties[p]; !ok {
				return fmt.Errorf("tool %q: schema missing %q", t.Name, p)
			}
		}
		required, _ := schema["required"].([]any)
		if len(required) != 1 || required[0] != "url" {
			return fmt.Errorf("tool %q: required = %v, want [url]", t.Name, required)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// resource_exploration: static resources parse as JSON.
// ---------------------------------------------------------------------------

func scenarioResourceExploration(ctx context.Context, s *mcp.ClientSession, _ string) error {
	versionRes, err := s.ReadResource(ctx, &mcp.ReadResourceParams{URI: "a11y://version"})
	if err != nil {
		return fmt.Errorf("ReadResource(version): %w", err)
	}
	versionData, err := resourceJSON(versionRes)
	if err != nil {
		return fmt.Errorf("parse version: %w", err)
	}
	for _, field := range []string{"name", "version", "axeVersion", "tools", "impactLevels"} {
		if _, ok := versionData[field]; !ok {
			return fmt.Errorf("version resource missing %q field", field)
		}
	}

	tagsRes, err := s.ReadResource(ctx, &mcp.ReadResourceParams{URI: "a11y://tags"})
	if err != nil {
		return fmt.Errorf("ReadResource(tags): %w", err)
	}
	text := resourceText(tagsRes)
	for _, tag := range []string{"wcag2a", "wcag2aa", "best-practice"} {
		if !strings.Contains(text, `"`+tag+`"`) {
			return fmt.Errorf("tags resource missing %q", tag)
		}
	}

	if _, err := s.ReadResource(ctx, &mcp.ReadResourceParams{URI: "a11y://does-not-exist"}); err == nil {
		return fmt.Errorf("NEG nonexistent resource: expected error, got nil")
	}
	return nil
}

// ---------------------------------------------------------------------------
// prompt_catalog: parameter substitution and the required url argument.
// ---------------------------------------------------------------------------

func scenarioPromptCatalog(ctx context.Context, s *mcp.ClientSession, _ string) error {
	const page = "https://smoke-test.example.com"

	result, err := s.GetPrompt(ctx, &mcp.GetPromptParams{
		Name:      "accessibility_review",
		Arguments: map[string]string{"url": page, "standard": "wcag21aa"},
	})
	if err != nil {
		return fmt.Errorf("GetPrompt: %w", err)
	}
	if len(result.Messages) == 0 {
		return fmt.Errorf("GetPrompt: no messages")
	}
	blob := promptText(result)
	for _, want := range []string{page, "wcag21aa", "get_summary", "audit_webpage"} {
		if !strings.Contains(blob, want) {
			return fmt.Errorf("GetPrompt: expected %q in response", want)
		}
	}

	if _, err := s.GetPrompt(ctx, &mcp.GetPromptParams{Name: "accessibility_review", Arguments: map[string]string{}}); err == nil {
		return fmt.Errorf("NEG accessibility_review(no url): expected error, got nil")
	}
	if _, err := s.GetPrompt(ctx, &mcp.GetPromptParams{Name: "nonexistent_prompt_xyz"}); err == nil {
		return fmt.Errorf("NEG nonexistent prompt: expected error, got nil")
	}
	return nil
}

// ---------------------------------------------------------------------------
// protocol_faults: unknown tools and bad arguments are JSON-RPC errors,
// not tool results.
// ---------------------------------------------------------------------------

func scenarioProtocolFaults(ctx context.Context, s *mcp.ClientSession, _ string) error {
	if err := requireRPCError(ctx, s, "nonexistent_tool", map[string]any{"url": "https://example.com"}, codeMethodNotFound); err != nil {
		return err
	}

	cases := []struct {
		tool string
		args map[string]any
	}{
		{"audit_webpage", map[string]any{}},
		{"audit_webpage", map[string]any{"url": ""}},
		{"audit_webpage", map[string]any{"url": 42}},
		{"audit_webpage", map[string]any{"url": "https://example.com", "tags": "wcag2a"}},
		{"audit_webpage", map[string]any{"url": "https://example.com", "includeHtml": "yes"}},
		{"get_summary", map[string]any{}},
		{"get_summary", map[string]any{"url": "   "}},
	}
	for _, tc := range cases {
		if err := requireRPCError(ctx, s, tc.tool, tc.args, codeInvalidParams); err != nil {
			return err
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// malformed_url: present but unusable urls fail before Chrome starts.
// ---------------------------------------------------------------------------

func scenarioMalformedURL(ctx context.Context, s *mcp.ClientSession, _ string) error {
	cases := []struct {
		tool   string
		url    string
		prefix string
	}{
		{"audit_webpage", "ftp://example.com/file", "Error auditing webpage: "},
		{"audit_webpage", "not a url", "Error auditing webpage: "},
		{"get_summary", "example.com", "Error getting summary: "},
	}
	for _, tc := range cases {
		if err := requireToolError(ctx, s, tc.tool, map[string]any{"url": tc.url}, tc.prefix); err != nil {
			return err
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Live scenarios
// ---------------------------------------------------------------------------

func scenarioAuditLive(ctx context.Context, s *mcp.ClientSession, target string) error {
	data, err := callToolJSON(ctx, s, "audit_webpage", map[string]any{
		"url": target, "includeHtml": true, "tags": []string{"wcag2a", "wcag2aa"},
	})
	if err != nil {
		return err
	}
	for _, field := range []string{"url", "timestamp", "includeHtml", "violations", "passes", "incomplete", "inapplicable"} {
		if _, ok := data[field]; !ok {
			return fmt.Errorf("audit report missing %q", field)
		}
	}
	if _, ok := data["violations"].([]any); !ok {
		return fmt.Errorf("audit report violations is %T, want array", data["violations"])
	}
	return nil
}

func scenarioSummaryLive(ctx context.Context, s *mcp.ClientSession, target string) error {
	data, err := callToolJSON(ctx, s, "get_summary", map[string]any{"url": target})
	if err != nil {
		return err
	}
	total, _ := data["totalIssues"].(float64)
	buckets, ok := data["issuesBySeverity"].(map[string]any)
	if !ok {
		return fmt.Errorf("summary missing issuesBySeverity")
	}
	var bucketSum float64
	for _, bucket := range []string{"critical", "serious", "moderate", "minor"} {
		v, ok := buckets[bucket].(float64)
		if !ok {
			return fmt.Errorf("summary missing %q", bucket)
		}
		bucketSum += v
	}
	if bucketSum > total {
		return fmt.Errorf("summary buckets %v exceed totalIssues %v", bucketSum, total)
	}
	top, _ := data["topIssues"].([]any)
	if len(top) > 5 {
		return fmt.Errorf("summary has %d top issues, want at most 5", len(top))
	}
	return nil
}

func scenarioUnreachableHost(ctx context.Context, s *mcp.ClientSession, _ string) error {
	return requireToolError(ctx, s, "get_summary",
		map[string]any{"url": "https://this-domain-does-not-exist-zzz123.example.invalid"},
		"Error getting summary: ")
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// requireRPCError asserts the call fails at the protocol level with code.
func requireRPCError(ctx context.Context, s *mcp.ClientSession, name string, args map[string]any, code int64) error {
	result, err := s.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	if err == nil {
		return fmt.Errorf("NEG %s(%v): expected JSON-RPC error %d, got result (IsError=%v: %s)",
			name, args, code, result.IsError, truncate(extractText(result), 120))
	}
	var rpcErr *jsonrpc.Error
	if !errors.As(err, &rpcErr) {
		return fmt.Errorf("NEG %s(%v): expected JSON-RPC error %d, got %v", name, args, code, err)
	}
	if rpcErr.Code != code {
		return fmt.Errorf("NEG %s(%v): code = %d, want %d (%s)", name, args, rpcErr.Code, code, rpcErr.Message)
	}
	return nil
}

// requireToolError asserts the call returns IsError with the given prefix.
func requireToolError(ctx context.Context, s *mcp.ClientSession, name string, args map[string]any, prefix string) error {
	result, err := s.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return fmt.Errorf("NEG %s(%v): protocol error: %w", name, args, err)
	}
	if !result.IsError {
		return fmt.Errorf("NEG %s(%v): expected IsError=true (response: %s)", name, args, truncate(extractText(result), 120))
	}
	if text := extractText(result); !strings.HasPrefix(text, prefix) {
		return fmt.Errorf("NEG %s(%v): text %q lacks prefix %q", name, args, truncate(text, 120), prefix)
	}
	return nil
}

// callToolJSON calls a tool, asserts success, and parses the text as JSON.
func callToolJSON(ctx context.Context, s *mcp.ClientSession, name string, args map[string]any) (map[string]any, error) {
	result, err := s.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", name, err)
	}
	if result.IsError {
		return nil, fmt.Errorf("call %s: tool error: %s", name, truncate(extractText(result), 200))
	}
	text := extractText(result)
	var data map[string]any
	if err := jsonutil.Unmarshal([]byte(text), &data); err != nil {
		return nil, fmt.Errorf("call %s: parse JSON: %w (text: %s)", name, err, truncate(text, 100))
	}
	return data, nil
}

func schemaMap(schema any) (map[string]any, error) {
	raw, err := jsonutil.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	var m map[string]any
	if err := jsonutil.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	return m, nil
}

func extractText(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}
	if tc, ok := result.Content[0].(*mcp.TextContent); ok {
		return tc.Text
	}
	return fmt.Sprintf("%T", result.Content[0])
}

func resourceText(res *mcp.ReadResourceResult) string {
	if len(res.Contents) == 0 {
		return ""
	}
	return res.Contents[0].Text
}

func resourceJSON(res *mcp.ReadResourceResult) (map[string]any, error) {
	text := resourceText(res)
	if text == "" {
		return nil, fmt.Errorf("empty resource content")
	}
	var data map[string]any
	if err := jsonutil.Unmarshal([]byte(text), &data); err != nil {
		return nil, fmt.Errorf("parse JSON: %w", err)
	}
	return data, nil
}

func promptText(result *mcp.GetPromptResult) string {
	data, err := jsonutil.Marshal(result)
	if err != nil {
		return ""
	}
	return string(data)
}

func truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}

// ---------------------------------------------------------------------------
// Server lifecycle
// ---------------------------------------------------------------------------

func startServer(ctx context.Context, port int) (*exec.Cmd, error) {
	root, err := findRepoRoot()
	if err != nil {
		return nil, fmt.Errorf("find repo root: %w", err)
	}

	cmd := exec.CommandContext(ctx, "go", "run", "./cmd/a11y-tester", "mcp", "--http", fmt.Sprintf("127.0.0.1:%d", port))
	cmd.Dir = root
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return cmd, nil
}

func stopServer(cmd *exec.Cmd) {
	if cmd == nil || cmd.Process == nil {
		return
	}
	_ = cmd.Process.Kill()
	_, _ = cmd.Process.Wait()
}

func findRepoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		modPath := dir + string(os.PathSeparator) + "go.mod"
		if data, err := os.ReadFile(modPath); err == nil {
			if strings.Contains(string(data), "module "+modulePath+"\n") ||
				strings.Contains(string(data), "module "+modulePath+"\r\n") {
				return dir, nil
			}
		}

		parent := dir[:max(strings.LastIndex(dir, string(os.PathSeparator)), 0)]
		if parent == dir || parent == "" {
			return "", fmt.Errorf("repo root not found walking up from %s", dir)
		}
		dir = parent
	}
}

func waitForHealth(ctx context.Context, port int) error {
	client := &http.Client{Timeout: duration.HealthProbe}
	url := fmt.Sprintf("http://127.0.0.1:%d/health", port)

	ticker := time.NewTicker(300 * time.Millisecond)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
