package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/a11ytester/a11ytester/pkg/defaults"
)

// Minimalist banner (ffuf-style box)
const miniBanner = `________________________________________________

 %s v%s
________________________________________________`

const dividerWidth = 60

// PrintBanner writes the version banner to w.
func PrintBanner(w io.Writer) {
	fmt.Fprintln(w, SectionStyle.Render(fmt.Sprintf(miniBanner, defaults.ToolName, defaults.Version)))
	fmt.Fprintln(w)
}

// PrintDivider writes a horizontal rule.
func PrintDivider(w io.Writer) {
	fmt.Fprintln(w, DividerStyle.Render(strings.Repeat("-", dividerWidth)))
}

// PrintSection writes a section header followed by a divider.
func PrintSection(w io.Writer, title string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, SectionStyle.Render("> "+title))
	PrintDivider(w)
}

// PrintConfigLine writes one "label: value" line.
func PrintConfigLine(w io.Writer, key, value string) {
	fmt.Fprintf(w, "  %s %s\n", LabelStyle.Render(key+":"), ValueStyle.Render(value))
}

// PrintSuccess writes a success message.
func PrintSuccess(w io.Writer, message string) {
	fmt.Fprintln(w, PassStyle.Render("  [+] "+message))
}

// PrintError writes an error message.
func PrintError(w io.Writer, message string) {
	fmt.Fprintln(w, FailStyle.Render("  [X] "+message))
}

// PrintWarning writes a warning message.
func PrintWarning(w io.Writer, message string) {
	fmt.Fprintln(w, WarnStyle.Render("  [!] "+message))
}
