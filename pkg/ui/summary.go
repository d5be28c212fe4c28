package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/a11ytester/a11ytester/pkg/audit"
	"github.com/a11ytester/a11ytester/pkg/axe"
)

// maxNodesShown caps the affected elements listed per rule in PrintReport.
const maxNodesShown = 3

// PrintSummary renders a summary with one coloured bucket per impact level.
func PrintSummary(w io.Writer, s *audit.Summary) {
	fmt.Fprintf(w, "%s %s\n", TitleStyle.Render("Accessibility summary"), URLStyle.Render(s.URL))
	fmt.Fprintln(w, MutedStyle.Render("  "+s.Timestamp))

	PrintSection(w, "Issues by severity")
	counts := map[string]int{
		axe.ImpactCritical: s.IssuesBySeverity.Critical,
		axe.ImpactSerious:  s.IssuesBySeverity.Serious,
		axe.ImpactModerate: s.IssuesBySeverity.Moderate,
		axe.ImpactMinor:    s.IssuesBySeverity.Minor,
	}
	for _, impact := range axe.Impacts {
		badge := lipgloss.NewStyle().Width(12).Render(ImpactStyle(impact).Render(impact))
		fmt.Fprintf(w, "  %s %s\n", badge, StatValueStyle.Render(fmt.Sprint(counts[impact])))
	}
	if other := s.TotalIssues - s.IssuesBySeverity.Total(); other > 0 {
		fmt.Fprintf(w, "  %s %s\n", lipgloss.NewStyle().Width(12).Render(ImpactStyle("").Render("other")),
			StatValueStyle.Render(fmt.Sprint(other)))
	}
	PrintConfigLine(w, "Total issues", fmt.Sprint(s.TotalIssues))
	PrintConfigLine(w, "Passed checks", fmt.Sprint(s.PassedChecks))
	PrintConfigLine(w, "Needs review", fmt.Sprint(s.IncompleteChecks))

	if len(s.TopIssues) == 0 {
		fmt.Fprintln(w)
		PrintSuccess(w, "No violations found")
		return
	}

	PrintSection(w, "Top issues")
	for i, issue := range s.TopIssues {
		fmt.Fprintf(w, "  %d. %s %s %s\n", i+1,
			ImpactStyle(issue.Impact).Render(impactLabel(issue.Impact)),
			StatValueStyle.Render(issue.ID),
			MutedStyle.Render(fmt.Sprintf("(%d elements)", issue.AffectedNodes)))
		fmt.Fprintf(w, "     %s\n", issue.Help)
		fmt.Fprintf(w, "     %s\n", URLStyle.Render(issue.HelpURL))
	}
}

// PrintReport renders every violation of a report.
func PrintReport(w io.Writer, r *audit.Report) {
	fmt.Fprintf(w, "%s %s\n", TitleStyle.Render("Accessibility audit"), URLStyle.Render(r.URL))
	fmt.Fprintln(w, MutedStyle.Render("  "+r.Timestamp))
	if len(r.Tags) > 0 {
		PrintConfigLine(w, "Tags", strings.Join(r.Tags, ", "))
	}
	PrintConfigLine(w, "Violations", fmt.Sprint(len(r.Violations)))
	PrintConfigLine(w, "Passed checks", fmt.Sprint(r.Passes))
	PrintConfigLine(w, "Needs review", fmt.Sprint(r.Incomplete))

	if len(r.Violations) == 0 {
		fmt.Fprintln(w)
		PrintSuccess(w, "No violations found")
		return
	}

	PrintSection(w, "Violations")
	for _, v := range r.Violations {
		fmt.Fprintf(w, "%s %s\n", ImpactStyle(v.Impact).Render(impactLabel(v.Impact)), StatValueStyle.Render(v.ID))
		fmt.Fprintf(w, "  %s\n", v.Help)
		fmt.Fprintf(w, "  %s\n", URLStyle.Render(v.HelpURL))
		for i, n := range v.AffectedNodes {
			if i == maxNodesShown {
				fmt.Fprintln(w, MutedStyle.Render(fmt.Sprintf("    ... and %d more", len(v.AffectedNodes)-maxNodesShown)))
				break
			}
			fmt.Fprintf(w, "    - %s\n", audit.TargetString(n.Target))
			if n.HTML != "" {
				fmt.Fprintf(w, "      %s\n", MutedStyle.Render(n.HTML))
			}
		}
		fmt.Fprintln(w)
	}
}

func impactLabel(impact string) string {
	if impact == "" {
		return "unknown"
	}
	return impact
}
