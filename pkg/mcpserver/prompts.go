package mcpserver

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// registerPrompts adds the guided workflow prompts to the MCP server.
func (s *Server) registerPrompts() {
	s.addAccessibilityReviewPrompt()
}

// ═══════════════════════════════════════════════════════════════════════════
// accessibility_review: summary, full audit, remediation plan
// ═══════════════════════════════════════════════════════════════════════════

func (s *Server) addAccessibilityReviewPrompt() {
	s.mcp.AddPrompt(
		&mcp.Prompt{
			Name:        "accessibility_review",
			Description: "Review a webpage for accessibility issues and produce a prioritized remediation plan.",
			Arguments: []*mcp.PromptArgument{
				{Name: "url", Description: "URL of the webpage to review (e.g. https://example.com)", Required: true},
				{Name: "standard", Description: "Rule tag to focus on, e.g. 'wcag2aa' or 'wcag21aa'. Defaults to all rules.", Required: false},
			},
		},
		func(_ context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
			target := req.Params.Arguments["url"]
			if target == "" {
				return nil, fmt.Errorf("'url' argument is required")
			}

			auditCall := fmt.Sprintf(`audit_webpage with {"url": %q, "includeHtml": true}`, target)
			if std := req.Params.Arguments["standard"]; std != "" {
				auditCall = fmt.Sprintf(`audit_webpage with {"url": %q, "includeHtml": true, "tags": [%q]}`, target, std)
			}

			return &mcp.GetPromptResult{
				Description: fmt.Sprintf("Accessibility review: %s", target),
				Messages: []*mcp.PromptMessage{
					{
						Role: "user",
						Content: &mcp.TextContent{
							Text: fmt.Sprintf(`Review the accessibility of %s.

## Step 1: Overview
Run get_summary on %s. Report the total issue count and the severity breakdown.

## Step 2: Details
Run %s.
Group the violations by rule. For each rule list the number of affected elements and one example selector.

## Step 3: Remediation plan
Order fixes by impact: critical, then serious, then moderate, then minor.
For each rule give a concrete code change based on the HTML snippets, and link its helpUrl.

## Step 4: Caveats
Automated checks cover only part of WCAG. Note the incomplete checks from the summary as items that need manual review.`, target, target, auditCall),
						},
					},
				},
			}, nil
		},
	)
}
