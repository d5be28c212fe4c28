package report

import (
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"github.com/a11ytester/a11ytester/pkg/audit"
)

const reportMarkdown = `# Accessibility Audit: {{ .URL }}

Generated {{ .Timestamp }}{{ with .Tags }}, tags: {{ join ", " . }}{{ end }}

| Result | Count |
|---|---|
| Violations | {{ len .Violations }} |
| Passed checks | {{ .Passes }} |
| Needs review | {{ .Incomplete }} |
| Not applicable | {{ .Inapplicable }} |
{{ if not .Violations }}
No violations found.
{{ else }}
## Violations
{{ range $i, $v := .Violations }}
### {{ add1 $i }}. {{ impactIcon $v.Impact }} {{ $v.ID }} ({{ $v.Impact | default "unknown" }})

**{{ $v.Help }}**

{{ $v.Description }}

[Rule documentation]({{ $v.HelpURL }})

| Element | Failure |
|---|---|
{{- range $v.AffectedNodes }}
| ` + "`" + `{{ target .Target | cell }}` + "`" + ` | {{ .FailureSummary | cell }} |
{{- end }}
{{- range $v.AffectedNodes }}{{ if .HTML }}

~~~html
{{ .HTML }}
~~~
{{- end }}{{ end }}
{{ end }}{{ end }}`

const summaryMarkdown = `# Accessibility Summary: {{ .URL }}

Generated {{ .Timestamp }}

**{{ .TotalIssues }}** issues, {{ .PassedChecks }} passed checks, {{ .IncompleteChecks }} need review

| Severity | Issues |
|---|---|
| {{ impactIcon "critical" }} Critical | {{ .IssuesBySeverity.Critical }} |
| {{ impactIcon "serious" }} Serious | {{ .IssuesBySeverity.Serious }} |
| {{ impactIcon "moderate" }} Moderate | {{ .IssuesBySeverity.Moderate }} |
| {{ impactIcon "minor" }} Minor | {{ .IssuesBySeverity.Minor }} |
{{ with .TopIssues }}
## Top Issues

| # | Rule | Impact | Elements | Help |
|---|---|---|---|---|
{{- range $i, $t := . }}
| {{ add1 $i }} | [{{ $t.ID }}]({{ $t.HelpURL }}) | {{ $t.Impact | default "unknown" }} | {{ $t.AffectedNodes }} | {{ $t.Help | cell }} |
{{- end }}
{{ end }}`

var (
	reportTemplate  = newTemplate("report", reportMarkdown)
	summaryTemplate = newTemplate("summary", summaryMarkdown)
)

func newTemplate(name, text string) *template.Template {
	funcMap := sprig.TxtFuncMap()
	funcMap["impactIcon"] = tmplImpactIcon
	funcMap["target"] = audit.TargetString
	funcMap["cell"] = tmplEscapeCell
	return template.Must(template.New(name).Funcs(funcMap).Parse(text))
}

func tmplImpactIcon(impact string) string {
	switch impact {
	case "critical":
		return "🔴"
	case "serious":
		return "🟠"
	case "moderate":
		return "🟡"
	case "minor":
		return "🔵"
	default:
		return "⚪"
	}
}

// tmplEscapeCell keeps a value inside one Markdown table cell.
func tmplEscapeCell(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "|", `\|`), "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "<br>")
}
