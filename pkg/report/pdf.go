package report

import (
	"fmt"
	"io"
	"strings"

	gofpdf "github.com/go-pdf/fpdf"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/a11ytester/a11ytester/pkg/audit"
	"github.com/a11ytester/a11ytester/pkg/axe"
	"github.com/a11ytester/a11ytester/pkg/defaults"
)

// pdfImpactColors maps impact levels to RGB triples.
var pdfImpactColors = map[string][]int{
	"critical": {220, 38, 38},
	"serious":  {234, 88, 12},
	"moderate": {202, 138, 4},
	"minor":    {37, 99, 235},
}

var pdfUnknownColor = []int{128, 128, 128}

const (
	pdfMargin      = 15.0
	pdfMaxNodes    = 25
	pdfMaxHTMLRune = 400
)

// pdfWriter holds the state of one PDF rendering.
type pdfWriter struct {
	report     *audit.Report
	noCompress bool
	tr         func(string) string
	titleCase  cases.Caser
}

// WritePDF renders r as an A4 PDF document.
func WritePDF(w io.Writer, r *audit.Report) error {
	pw := &pdfWriter{report: r}
	return pw.write(w)
}

func (pw *pdfWriter) write(w io.Writer) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin+5)
	pdf.SetCompression(!pw.noCompress)
	pdf.SetTitle("Accessibility Audit: "+pw.report.URL, true)
	pdf.SetAuthor(defaults.ToolName, true)
	pdf.SetCreator(defaults.ToolName+" "+defaults.Version, true)
	pdf.AliasNbPages("")

	pw.tr = pdf.UnicodeTranslatorFromDescriptor("")
	pw.titleCase = cases.Title(language.English)

	pdf.SetFooterFunc(func() {
		pdf.SetY(-pdfMargin)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(128, 128, 128)
		pageW, _ := pdf.GetPageSize()
		half := (pageW - 2*pdfMargin) / 2
		pdf.CellFormat(half, 10, fmt.Sprintf("%s v%s", defaults.ToolName, defaults.Version), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "R", false, 0, "")
	})

	pw.addCover(pdf)
	pw.addSeverityTable(pdf)
	pw.addViolations(pdf)

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func (pw *pdfWriter) addCover(pdf *gofpdf.Fpdf) {
	r := pw.report
	pdf.AddPage()

	pdf.SetFillColor(30, 41, 59)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 16, "Accessibility Audit Report", "", 1, "C", true, 0, "")
	pdf.Ln(6)

	pdf.SetTextColor(60, 60, 60)
	pw.labelValue(pdf, "URL", r.URL)
	pw.labelValue(pdf, "Generated", r.Timestamp)
	if len(r.Tags) > 0 {
		pw.labelValue(pdf, "Tags", strings.Join(r.Tags, ", "))
	}
	pw.labelValue(pdf, "Engine", "axe-core "+defaults.AxeVersion)
	pdf.Ln(4)

	pw.labelValue(pdf, "Violations", fmt.Sprint(len(r.Violations)))
	pw.labelValue(pdf, "Passed checks", fmt.Sprint(r.Passes))
	pw.labelValue(pdf, "Needs review", fmt.Sprint(r.Incomplete))
	pw.labelValue(pdf, "Not applicable", fmt.Sprint(r.Inapplicable))
	pdf.Ln(6)
}

func (pw *pdfWriter) labelValue(pdf *gofpdf.Fpdf, label, value string) {
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(40, 7, pw.tr(label), "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(0, 7, pw.tr(value), "", "L", false)
}

func (pw *pdfWriter) addSectionHeader(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetTextColor(30, 41, 59)
	pdf.CellFormat(0, 10, pw.tr(title), "B", 1, "L", false, 0, "")
	pdf.Ln(3)
}

// addSeverityTable renders rule and element counts per impact level.
func (pw *pdfWriter) addSeverityTable(pdf *gofpdf.Fpdf) {
	type row struct{ rules, nodes int }
	counts := make(map[string]*row)
	for _, impact := range axe.Impacts {
		counts[impact] = &row{}
	}
	other := &row{}
	for _, v := range pw.report.Violations {
		c, ok := counts[v.Impact]
		if !ok {
			c = other
		}
		c.rules++
		c.nodes += len(v.AffectedNodes)
	}

	pw.addSectionHeader(pdf, "Issues by Severity")

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(30, 41, 59)
	pdf.SetTextColor(255, 255, 255)
	pdf.CellFormat(50, 8, "Severity", "1", 0, "C", true, 0, "")
	pdf.CellFormat(40, 8, "Rules", "1", 0, "C", true, 0, "")
	pdf.CellFormat(40, 8, "Elements", "1", 1, "C", true, 0, "")

	writeRow := func(label string, color []int, c *row) {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetTextColor(color[0], color[1], color[2])
		pdf.CellFormat(50, 7, label, "1", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(40, 7, fmt.Sprint(c.rules), "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 7, fmt.Sprint(c.nodes), "1", 1, "C", false, 0, "")
	}
	for _, impact := range axe.Impacts {
		writeRow(pw.titleCase.String(impact), pdfImpactColors[impact], counts[impact])
	}
	if other.rules > 0 {
		writeRow("Unknown", pdfUnknownColor, other)
	}
	pdf.Ln(6)
}

func (pw *pdfWriter) addViolations(pdf *gofpdf.Fpdf) {
	if len(pw.report.Violations) == 0 {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.SetTextColor(22, 163, 74)
		pdf.CellFormat(0, 10, "No violations found.", "", 1, "L", false, 0, "")
		return
	}

	pdf.AddPage()
	pw.addSectionHeader(pdf, "Violations")
	for i, v := range pw.report.Violations {
		pw.addViolation(pdf, i+1, v)
	}
}

func (pw *pdfWriter) addViolation(pdf *gofpdf.Fpdf, n int, v audit.Violation) {
	color, ok := pdfImpactColors[v.Impact]
	if !ok {
		color = pdfUnknownColor
	}
	impact := v.Impact
	if impact == "" {
		impact = "unknown"
	}

	pdf.SetFillColor(color[0], color[1], color[2])
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 8, pw.tr(fmt.Sprintf("%d. %s (%s)", n, v.ID, impact)), "", 1, "L", true, 0, "")
	pdf.Ln(1)

	pdf.SetTextColor(40, 40, 40)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.MultiCell(0, 5, pw.tr(v.Help), "", "L", false)
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, 5, pw.tr(v.Description), "", "L", false)

	if v.HelpURL != "" {
		pdf.SetTextColor(37, 99, 235)
		pdf.SetFont("Helvetica", "U", 9)
		pdf.CellFormat(0, 6, pw.tr(v.HelpURL), "", 1, "L", false, 0, v.HelpURL)
	}
	pdf.Ln(1)

	for i, node := range v.AffectedNodes {
		if i == pdfMaxNodes {
			pdf.SetFont("Helvetica", "I", 9)
			pdf.SetTextColor(128, 128, 128)
			pdf.CellFormat(0, 5, fmt.Sprintf("... and %d more elements", len(v.AffectedNodes)-pdfMaxNodes), "", 1, "L", false, 0, "")
			break
		}
		pw.addNode(pdf, node)
	}
	pdf.Ln(4)
}

func (pw *pdfWriter) addNode(pdf *gofpdf.Fpdf, node audit.AffectedNode) {
	pdf.SetTextColor(60, 60, 60)
	pdf.SetFont("Courier", "B", 9)
	pdf.MultiCell(0, 4.5, pw.tr("- "+audit.TargetString(node.Target)), "", "L", false)

	if node.FailureSummary != "" {
		pdf.SetFont("Helvetica", "", 9)
		pdf.SetX(pdfMargin + 4)
		pdf.MultiCell(0, 4.5, pw.tr(node.FailureSummary), "", "L", false)
	}
	if node.HTML != "" {
		pdf.SetFont("Courier", "", 8)
		pdf.SetFillColor(243, 244, 246)
		pdf.SetX(pdfMargin + 4)
		pdf.MultiCell(0, 4, pw.tr(truncateRunes(node.HTML, pdfMaxHTMLRune)), "", "L", true)
	}
	pdf.Ln(1)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
