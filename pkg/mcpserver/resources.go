package mcpserver

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/a11ytester/a11ytester/pkg/axe"
	"github.com/a11ytester/a11ytester/pkg/defaults"
	"github.com/a11ytester/a11ytester/pkg/jsonutil"
)

const (
	versionURI = "a11y://version"
	tagsURI    = "a11y://tags"
)

// registerResources adds the reference resources to the MCP server.
func (s *Server) registerResources() {
	s.addVersionResource()
	s.addTagsResource()
}

// ═══════════════════════════════════════════════════════════════════════════
// a11y://version: Server and rule engine version
// ═══════════════════════════════════════════════════════════════════════════

type versionInfo struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	AxeVersion   string   `json:"axeVersion"`
	Tools        []string `json:"tools"`
	ImpactLevels []string `json:"impactLevels"`
}

func (s *Server) addVersionResource() {
	s.mcp.AddResource(
		&mcp.Resource{
			URI:         versionURI,
			Name:        "Accessibility Tester Version",
			Description: "Server version, bundled axe-core version, and tool inventory.",
			MIMEType:    defaults.ContentTypeJSON,
		},
		func(_ context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
			return jsonResource(versionURI, versionInfo{
				Name:         defaults.ToolName,
				Version:      defaults.Version,
				AxeVersion:   defaults.AxeVersion,
				Tools:        []string{toolAuditWebpage, toolGetSummary},
				ImpactLevels: axe.Impacts,
			})
		},
	)
}

// ═══════════════════════════════════════════════════════════════════════════
// a11y://tags: Rule tags accepted by audit_webpage
// ═══════════════════════════════════════════════════════════════════════════

func (s *Server) addTagsResource() {
	s.mcp.AddResource(
		&mcp.Resource{
			URI:         tagsURI,
			Name:        "Accessibility Rule Tags",
			Description: "Rule tags that can be passed to audit_webpage to restrict the checks.",
			MIMEType:    defaults.ContentTypeJSON,
		},
		func(_ context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
			return jsonResource(tagsURI, map[string]any{"tags": axe.KnownTags})
		},
	)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := jsonutil.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{URI: uri, MIMEType: defaults.ContentTypeJSON, Text: string(data)},
		},
	}, nil
}
