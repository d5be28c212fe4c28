package mcpserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/a11ytester/a11ytester/pkg/audit"
)

// Tool names.
const (
	toolAuditWebpage = "audit_webpage"
	toolGetSummary   = "get_summary"
)

// Error result prefixes.
const (
	auditFailurePrefix   = "Error auditing webpage: "
	summaryFailurePrefix = "Error getting summary: "
)

// registerTools adds the accessibility tools to the MCP server.
func (s *Server) registerTools() {
	s.addAuditWebpageTool()
	s.addGetSummaryTool()
}

// ═══════════════════════════════════════════════════════════════════════════
// audit_webpage: Full rule engine report
// ═══════════════════════════════════════════════════════════════════════════

func (s *Server) addAuditWebpageTool() {
	s.addTool(
		&mcp.Tool{
			Name:        toolAuditWebpage,
			Title:       "Audit Webpage",
			Description: "Perform an accessibility audit on a webpage",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"url": map[string]any{
						"type":        "string",
						"description": "URL of the webpage to audit",
					},
					"includeHtml": map[string]any{
						"type":        "boolean",
						"description": "Whether to include HTML snippets in the results",
						"default":     false,
					},
					"tags": map[string]any{
						"type":        "array",
						"items":       map[string]any{"type": "string"},
						"description": "Specific accessibility tags to check (e.g., wcag2a, wcag2aa, wcag21a, best-practice)",
					},
				},
				"required": []string{"url"},
			},
			Annotations: &mcp.ToolAnnotations{
				ReadOnlyHint:  true,
				OpenWorldHint: boolPtr(true),
				Title:         "Audit Webpage",
			},
		},
		s.handleAuditWebpage,
	)
}

func (s *Server) handleAuditWebpage(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args audit.AuditRequest
	if err := parseArgs(req, &args); err != nil {
		return nil, invalidParams(err)
	}
	if err := args.Validate(); err != nil {
		return nil, invalidParams(err)
	}

	notifyProgress(ctx, req, 0, 2, "Auditing "+args.URL)

	report, err := s.config.Auditor.Audit(ctx, args)
	if err != nil {
		if errors.Is(err, audit.ErrInvalidParams) {
			return nil, invalidParams(err)
		}
		logToSession(ctx, req, logWarning, fmt.Sprintf("audit of %s failed: %v", args.URL, err))
		return errorResult(auditFailurePrefix + err.Error()), nil
	}

	s.config.Metrics.ObserveViolations(report.Impacts())
	notifyProgress(ctx, req, 2, 2, fmt.Sprintf("Found %d violations", len(report.Violations)))
	logToSession(ctx, req, logInfo, fmt.Sprintf("audit of %s found %d violations", args.URL, len(report.Violations)))

	return jsonResult(report)
}

// ═══════════════════════════════════════════════════════════════════════════
// get_summary: Severity buckets and top issues
// ═══════════════════════════════════════════════════════════════════════════

func (s *Server) addGetSummaryTool() {
	s.addTool(
		&mcp.Tool{
			Name:        toolGetSummary,
			Title:       "Accessibility Summary",
			Description: "Get a summary of accessibility issues for a webpage",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"url": map[string]any{
						"type":        "string",
						"description": "URL of the webpage to audit",
					},
				},
				"required": []string{"url"},
			},
			Annotations: &mcp.ToolAnnotations{
				ReadOnlyHint:  true,
				OpenWorldHint: boolPtr(true),
				Title:         "Accessibility Summary",
			},
		},
		s.handleGetSummary,
	)
}

func (s *Server) handleGetSummary(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args audit.SummaryRequest
	if err := parseArgs(req, &args); err != nil {
		return nil, invalidParams(err)
	}
	if err := args.Validate(); err != nil {
		return nil, invalidParams(err)
	}

	notifyProgress(ctx, req, 0, 2, "Summarizing "+args.URL)

	summary, err := s.config.Auditor.Summarize(ctx, args)
	if err != nil {
		if errors.Is(err, audit.ErrInvalidParams) {
			return nil, invalidParams(err)
		}
		logToSession(ctx, req, logWarning, fmt.Sprintf("summary of %s failed: %v", args.URL, err))
		return errorResult(summaryFailurePrefix + err.Error()), nil
	}

	notifyProgress(ctx, req, 2, 2, fmt.Sprintf("Found %d issues", summary.TotalIssues))
	return jsonResult(summary)
}
