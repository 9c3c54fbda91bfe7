package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Semantic colors use ANSI codes so they follow the terminal's theme.
const (
	ColorSuccess lipgloss.Color = "2" // Green
	ColorError   lipgloss.Color = "1" // Red
	ColorWarning lipgloss.Color = "3" // Yellow
	ColorInfo    lipgloss.Color = "6" // Cyan
)

// Text colors for content hierarchy
const (
	ColorPrimary   lipgloss.Color = "7" // White/default
	ColorSecondary lipgloss.Color = "4" // Blue
	ColorMuted     lipgloss.Color = "8" // Gray (bright black)
)

var (
	// TargetNameStyle renders target names in the dashboard and listings.
	TargetNameStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorSecondary)
	// FailedStyle renders failed status lines.
	FailedStyle = lipgloss.NewStyle().Foreground(ColorError)
	// MutedStyle renders secondary text such as hints and placeholders.
	MutedStyle = lipgloss.NewStyle().Foreground(ColorMuted)
	// SpinnerStyle renders the per-target liveness glyph.
	SpinnerStyle = lipgloss.NewStyle().Foreground(ColorInfo)
)

// DisableColors switches all rendering to plain ASCII output.
func DisableColors() {
	lipgloss.SetColorProfile(termenv.Ascii)
}
