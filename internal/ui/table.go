package ui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// TargetRow is one line of the targets listing.
type TargetRow struct {
	Index  int    // 1-based position in the configured target list
	Name   string // Canonical target name
	Params string // Resolved user@host:port, empty on error
	Err    string // Resolution error, single line
}

// RenderTargetsTable renders configured targets with their index and
// resolved connection, or the reason they can't be polled.
func RenderTargetsTable(rows []TargetRow) string {
	if len(rows) == 0 {
		return "No targets configured"
	}

	successStyle := lipgloss.NewStyle().Foreground(ColorSuccess)
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorPrimary).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(ColorMuted)

	nameWidth := len("TARGET")
	for _, r := range rows {
		nameWidth = max(nameWidth, lipgloss.Width(r.Name))
	}
	nameWidth += 2

	var b strings.Builder
	b.WriteString(headerStyle.Render("       #  " + padRight("TARGET", nameWidth) + "CONNECTION"))
	b.WriteString("\n")

	for _, r := range rows {
		icon := successStyle.Render(SymbolSuccess)
		detail := MutedStyle.Render(r.Params)
		if r.Err != "" {
			icon = FailedStyle.Render(SymbolFail)
			detail = FailedStyle.Render(r.Err)
		}

		b.WriteString("  " + icon + "  ")
		b.WriteString(padLeft(strconv.Itoa(r.Index), 3) + "  ")
		b.WriteString(padRight(TargetNameStyle.Render(r.Name), nameWidth))
		b.WriteString(detail)
		b.WriteString("\n")
	}

	return b.String()
}

// padRight pads a string to the specified width.
func padRight(s string, width int) string {
	// Account for ANSI codes when calculating visible length
	visibleLen := lipgloss.Width(s)
	if visibleLen >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visibleLen)
}

func padLeft(s string, width int) string {
	visibleLen := lipgloss.Width(s)
	if visibleLen >= width {
		return s
	}
	return strings.Repeat(" ", width-visibleLen) + s
}
