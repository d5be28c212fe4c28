package report

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/a11ytester/a11ytester/pkg/audit"
	"github.com/a11ytester/a11ytester/pkg/jsonutil"
	"github.com/a11ytester/a11ytester/pkg/ui"
)

// Format names an output format.
type Format string

const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatPDF      Format = "pdf"
	FormatConsole  Format = "console"
)

// Formats lists every supported format.
var Formats = []Format{FormatJSON, FormatMarkdown, FormatPDF, FormatConsole}

// ErrUnsupportedFormat is returned for unknown formats and for formats that
// do not apply to the requested document.
var ErrUnsupportedFormat = errors.New("unsupported format")

// ParseFormat accepts a format name, case-insensitively. "md" is an alias
// for markdown and "text" for console.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "pdf":
		return FormatPDF, nil
	case "console", "text", "":
		return FormatConsole, nil
	}
	return "", fmt.Errorf("%w: %q (available: json, markdown, pdf, console)", ErrUnsupportedFormat, s)
}

// Binary reports whether the format produces non-text output.
func (f Format) Binary() bool { return f == FormatPDF }

// WriteReport renders a full audit report.
func WriteReport(w io.Writer, f Format, r *audit.Report) error {
	switch f {
	case FormatJSON:
		return jsonutil.WriteIndent(w, r)
	case FormatMarkdown:
		return reportTemplate.Execute(w, r)
	case FormatPDF:
		return WritePDF(w, r)
	case FormatConsole:
		ui.PrintReport(w, r)
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
}

// WriteSummary renders a summary. PDF is not available for summaries.
func WriteSummary(w io.Writer, f Format, s *audit.Summary) error {
	switch f {
	case FormatJSON:
		return jsonutil.WriteIndent(w, s)
	case FormatMarkdown:
		return summaryTemplate.Execute(w, s)
	case FormatConsole:
		ui.PrintSummary(w, s)
		return nil
	}
	return fmt.Errorf("%w: %q for summaries", ErrUnsupportedFormat, f)
}
