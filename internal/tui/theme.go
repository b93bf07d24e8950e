// Package tui provides shared theme and styles for the operator console.
package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Colors.
var (
	ColorPrimary   = lipgloss.Color("#0EA5E9") // sky
	ColorSecondary = lipgloss.Color("#6366F1") // indigo

	ColorSuccess = lipgloss.Color("#10B981") // emerald
	ColorWarning = lipgloss.Color("#F59E0B") // amber
	ColorError   = lipgloss.Color("#EF4444") // red
	ColorMuted   = lipgloss.Color("#6B7280") // gray-500
	ColorText    = lipgloss.Color("#E5E7EB") // gray-200
)

var (
	// Title is the header style.
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorPrimary)

	// Subtitle for secondary headings.
	Subtitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorSecondary)

	// Dimmed for echoed commands and metadata.
	Dimmed = lipgloss.NewStyle().
		Foreground(ColorMuted)

	Success = lipgloss.NewStyle().
		Foreground(ColorSuccess)

	// ErrorStyle for error messages (avoiding collision with builtin error).
	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorError)

	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	// Help for keybind hints at the bottom.
	Help = lipgloss.NewStyle().
		Foreground(ColorMuted)

	// Debug marks visualizer output.
	Debug = lipgloss.NewStyle().
		Foreground(ColorSecondary)

	ActiveDot = lipgloss.NewStyle().
			Foreground(ColorSuccess).
			Render("●")

	InactiveDot = lipgloss.NewStyle().
			Foreground(ColorError).
			Render("●")
)

// StatusDot returns a colored dot for the connection state.
func StatusDot(connected bool) string {
	if connected {
		return ActiveDot
	}
	return InactiveDot
}

// StatusText returns a colored status label.
func StatusText(connected bool) string {
	if connected {
		return Success.Render("connected")
	}
	return ErrorStyle.Render("disconnected")
}

// LineStyle picks a style for one operator log line by its leading word.
func LineStyle(line string) lipgloss.Style {
	word, _, _ := strings.Cut(strings.TrimSpace(line), " ")
	switch strings.TrimSuffix(word, ":") {
	case "DEBUG":
		return Dimmed
	case "WARN", "WARNING":
		return WarningStyle
	case "ERROR":
		return ErrorStyle
	}
	if strings.HasPrefix(line, "[") {
		return Debug
	}
	return lipgloss.NewStyle().Foreground(ColorText)
}
