package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Color palette
var (
	PrimaryColor = lipgloss.Color("#7D56F4") // Purple - borders
	SuccessColor = lipgloss.Color("#43BF6D") // Green - success
	ErrorColor   = lipgloss.Color("#FF5555") // Red - failures
	WarningColor = lipgloss.Color("#FFA500") // Orange - warnings
	MutedColor   = lipgloss.Color("#626262") // Gray - keys, secondary info
	TextColor    = lipgloss.Color("#FFFFFF") // White - values
)

// Layout constants
const (
	MinTerminalWidth = 60
	MaxContentWidth  = 100
)

var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(TextColor).
			Bold(true).
			PaddingLeft(2)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			PaddingLeft(2)

	KeyStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			PaddingLeft(2)

	ValueStyle = lipgloss.NewStyle().
			Foreground(TextColor)

	WarningStyle = lipgloss.NewStyle().
			Foreground(WarningColor).
			PaddingLeft(2)

	SuccessTitleStyle = lipgloss.NewStyle().
				Foreground(SuccessColor).
				Bold(true)

	ErrorTitleStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)
)

const (
	SuccessMarker = "✓"
	FailureMarker = "✗"
	WarningMarker = "!"
)

// IsTerminal reports whether stdout is an interactive terminal. Styled output
// is only rendered when it is.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// GetTerminalWidth returns the current terminal width clamped to the supported
// range.
func GetTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width < MinTerminalWidth {
		return MinTerminalWidth
	}
	if width > MaxContentWidth {
		return MaxContentWidth
	}
	return width
}

// boxStyle is the rounded frame shared by banners and reports.
func boxStyle(width int, color lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Width(width - 2)
}
