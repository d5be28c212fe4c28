package ui

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	Primary   = lipgloss.Color("#7D56F4") // Purple - brand color
	Secondary = lipgloss.Color("#00D4AA") // Cyan/Teal

	// Impact colors, worst first
	Critical = lipgloss.Color("#FF0000") // Bright red
	Serious  = lipgloss.Color("#FF6B6B") // Red/Orange
	Moderate = lipgloss.Color("#FFD93D") // Yellow
	Minor    = lipgloss.Color("#4D96FF") // Blue

	Success = lipgloss.Color("#00D26A") // Bright green
	Warning = lipgloss.Color("#FFB800") // Amber
	Error   = lipgloss.Color("#FF3838") // Red
	Muted   = lipgloss.Color("#6B7280") // Gray
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(Primary).
			Padding(0, 1)

	SectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Bold(true)

	LabelStyle = lipgloss.NewStyle().
			Foreground(Secondary)

	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA"))

	StatValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Bold(true)

	URLStyle = lipgloss.NewStyle().
			Foreground(Secondary).
			Underline(true)

	MutedStyle = lipgloss.NewStyle().
			Foreground(Muted)

	PassStyle = lipgloss.NewStyle().
			Foreground(Success).
			Bold(true)

	FailStyle = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	WarnStyle = lipgloss.NewStyle().
			Foreground(Warning)

	DividerStyle = lipgloss.NewStyle().
			Foreground(Muted)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(Primary)
)

// ImpactStyle returns the badge style for an impact level.
func ImpactStyle(impact string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	switch impact {
	case "critical":
		return base.Foreground(lipgloss.Color("#FFFFFF")).Background(Critical)
	case "serious":
		return base.Foreground(lipgloss.Color("#FFFFFF")).Background(Serious)
	case "moderate":
		return base.Foreground(lipgloss.Color("#000000")).Background(Moderate)
	case "minor":
		return base.Foreground(lipgloss.Color("#FFFFFF")).Background(Minor)
	default:
		return base.Foreground(Muted)
	}
}
