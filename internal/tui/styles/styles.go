package styles

import (
	"github.com/charmbracelet/lipgloss"
)

// --- Color Palette ---
var (
	ColorPrimary   = lipgloss.Color("#7D56F4") // Indigo/Purple
	ColorSecondary = lipgloss.Color("#04B575") // Green
	ColorError     = lipgloss.Color("#FF5F87") // Pink/Red
	ColorWarning   = lipgloss.Color("#FFAF00") // Gold
	ColorSubtle    = lipgloss.Color("#767676") // Gray
	ColorBorder    = lipgloss.Color("#3C3C3C") // Dark Gray border
	ColorBanner    = lipgloss.Color("#F5C518") // Honey
)

var (
	Title = lipgloss.NewStyle().
		Foreground(ColorPrimary).
		Bold(true).
		Padding(0, 1).
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(ColorSubtle)

	Subtle = lipgloss.NewStyle().Foreground(ColorSubtle)
	Active = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)

	// Alerts
	Error   = lipgloss.NewStyle().Foreground(ColorError)
	Warn    = lipgloss.NewStyle().Foreground(ColorWarning)
	Success = lipgloss.NewStyle().Foreground(ColorSecondary).Bold(true)

	// Box/Card container
	Box = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Padding(0, 1).
		Margin(0, 1)

	KeyKey  = lipgloss.NewStyle().Bold(true)
	KeyDesc = lipgloss.NewStyle().Foreground(ColorSubtle)
)

func RenderKey(key, desc string) string {
	return lipgloss.JoinHorizontal(lipgloss.Center,
		KeyKey.Render("<"+key+">"),
		" ",
		KeyDesc.Render(desc),
	)
}

// ErrorRateStyle picks a color for an error percentage.
func ErrorRateStyle(pct float64) lipgloss.Style {
	switch {
	case pct > 5.0:
		return Error
	case pct > 1.0:
		return Warn
	default:
		return Active
	}
}
