package audit

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/a11ytester/a11ytester/pkg/axe"
	"github.com/a11ytester/a11ytester/pkg/defaults"
)

// Report is the detailed audit response.
type Report struct {
	URL          string      `json:"url"`
	Timestamp    string      `json:"timestamp"`
	IncludeHTML  bool        `json:"includeHtml"`
	Tags         []string    `json:"tags,omitempty"`
	Violations   []Violation `json:"violations"`
	Passes       int         `json:"passes"`
	Incomplete   int         `json:"incomplete"`
	Inapplicable int         `json:"inapplicable"`
}

// Violation is one failing rule and the elements it matched.
type Violation struct {
	ID            string         `json:"id"`
	Impact        string         `json:"impact"`
	Description   string         `json:"description"`
	Help          string         `json:"help"`
	HelpURL       string         `json:"helpUrl"`
	AffectedNodes []AffectedNode `json:"affectedNodes"`
}

// AffectedNode is a matched element. HTML is only set when requested.
type AffectedNode struct {
	Impact         string `json:"impact"`
	Target         []any  `json:"target"`
	FailureSummary string `json:"failureSummary"`
	HTML           string `json:"html,omitempty"`
}

// Summary is the condensed response.
type Summary struct {
	URL              string         `json:"url"`
	Timestamp        string         `json:"timestamp"`
	TotalIssues      int            `json:"totalIssues"`
	IssuesBySeverity SeverityCounts `json:"issuesBySeverity"`
	TopIssues        []TopIssue     `json:"topIssues"`
	PassedChecks     int            `json:"passedChecks"`
	IncompleteChecks int            `json:"incompleteChecks"`
}

// SeverityCounts buckets violations by exact impact match.
type SeverityCounts struct {
	Critical int `json:"critical"`
	Serious  int `json:"serious"`
	Moderate int `json:"moderate"`
	Minor    int `json:"minor"`
}

// Total is the number of bucketed violations. It is less than
// Summary.TotalIssues when some violations carry no recognised impact.
func (c SeverityCounts) Total() int {
	return c.Critical + c.Serious + c.Moderate + c.Minor
}

// TopIssue is a violation with its nodes reduced to a count.
type TopIssue struct {
	ID            string `json:"id"`
	Impact        string `json:"impact"`
	Description   string `json:"description"`
	Help          string `json:"help"`
	HelpURL       string `json:"helpUrl"`
	AffectedNodes int    `json:"affectedNodes"`
}

// unrankedSeverity sorts violations with unknown or missing impact last.
const unrankedSeverity = 4

// SeverityRank orders impacts from critical (0) to minor (3).
func SeverityRank(impact string) int {
	switch impact {
	case axe.ImpactCritical:
		return 0
	case axe.ImpactSerious:
		return 1
	case axe.ImpactModerate:
		return 2
	case axe.ImpactMinor:
		return 3
	}
	return unrankedSeverity
}

// Timestamp formats t the way reports carry it.
func Timestamp(t time.Time) string {
	return t.UTC().Format(defaults.TimestampLayout)
}

// FormatReport reshapes raw results. Every violation and node is kept, in
// engine order; passes, incomplete and inapplicable become counts.
func FormatReport(req AuditRequest, res *axe.Results, now time.Time) *Report {
	r := &Report{
		URL:          req.URL,
		Timestamp:    Timestamp(now),
		IncludeHTML:  req.IncludeHTML,
		Tags:         req.Tags,
		Violations:   make([]Violation, 0, len(res.Violations)),
		Passes:       len(res.Passes),
		Incomplete:   len(res.Incomplete),
		Inapplicable: len(res.Inapplicable),
	}

	for _, v := range res.Violations {
		nodes := make([]AffectedNode, 0, len(v.Nodes))
		for _, n := range v.Nodes {
			node := AffectedNode{
				Impact:         n.Impact,
				Target:         n.Target,
				FailureSummary: n.FailureSummary,
			}
			if req.IncludeHTML {
				node.HTML = n.HTML
			}
			nodes = append(nodes, node)
		}
		r.Violations = append(r.Violations, Violation{
			ID:            v.ID,
			Impact:        v.Impact,
			Description:   v.Description,
			Help:          v.Help,
			HelpURL:       v.HelpURL,
			AffectedNodes: nodes,
		})
	}
	return r
}

// BuildSummary counts violations per severity and picks the worst few.
func BuildSummary(target string, res *axe.Results, now time.Time) *Summary {
	s := &Summary{
		URL:              target,
		Timestamp:        Timestamp(now),
		TotalIssues:      len(res.Violations),
		PassedChecks:     len(res.Passes),
		IncompleteChecks: len(res.Incomplete),
	}

	for _, v := range res.Violations {
		switch v.Impact {
		case axe.ImpactCritical:
			s.IssuesBySeverity.Critical++
		case axe.ImpactSerious:
			s.IssuesBySeverity.Serious++
		case axe.ImpactModerate:
			s.IssuesBySeverity.Moderate++
		case axe.ImpactMinor:
			s.IssuesBySeverity.Minor++
		}
	}

	ranked := slices.Clone(res.Violations)
	slices.SortStableFunc(ranked, func(a, b axe.Rule) int {
		return SeverityRank(a.Impact) - SeverityRank(b.Impact)
	})
	if len(ranked) > defaults.TopIssuesLimit {
		ranked = ranked[:defaults.TopIssuesLimit]
	}

	s.TopIssues = make([]TopIssue, 0, len(ranked))
	for _, v := range ranked {
		s.TopIssues = append(s.TopIssues, TopIssue{
			ID:            v.ID,
			Impact:        v.Impact,
			Description:   v.Description,
			Help:          v.Help,
			HelpURL:       v.HelpURL,
			AffectedNodes: len(v.Nodes),
		})
	}
	return s
}

// Impacts lists each violation's impact in engine order.
func (r *Report) Impacts() []string {
	out := make([]string, 0, len(r.Violations))
	for _, v := range r.Violations {
		out = append(out, v.Impact)
	}
	return out
}

// TargetString renders a node's selector path for display. Each entry is
// one frame; a nested list is a path through shadow roots.
func TargetString(target []any) string {
	parts := make([]string, 0, len(target))
	for _, t := range target {
		switch v := t.(type) {
		case string:
			parts = append(parts, v)
		case []any:
			parts = append(parts, TargetString(v))
		default:
			parts = append(parts, fmt.Sprint(v))
		}
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return strings.Join(parts, " >>> ")
}
