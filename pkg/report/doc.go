// Package report renders audit reports and summaries for people.
//
// # Formats (report.go)
//
// Format, ParseFormat, WriteReport, WriteSummary. JSON is the same shape the
// MCP tools return; console output delegates to pkg/ui.
//
// # Markdown (markdown.go)
//
// text/template with Sprig functions. Suitable for pull request comments
// and issue trackers.
//
// # PDF (pdf.go)
//
// Paginated report with a severity table and one section per violated rule.
// Summaries have no PDF form.
package report
