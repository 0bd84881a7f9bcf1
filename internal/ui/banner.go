package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Field is one key/value line. Fields keep their order, unlike a map.
type Field struct {
	Key   string
	Value string
}

// Banner is the block printed when a command starts.
type Banner struct {
	Title    string
	Subtitle string
	Fields   []Field
	Warnings []string

	// Width is the render width. Plain disables styling for pipes and logs.
	Width int
	Plain bool
}

// NewBanner creates a banner sized and styled for the current stdout.
func NewBanner(title, subtitle string) *Banner {
	return &Banner{
		Title:    title,
		Subtitle: subtitle,
		Width:    GetTerminalWidth(),
		Plain:    !IsTerminal(),
	}
}

// Add appends a field
func (b *Banner) Add(key, value string) *Banner {
	b.Fields = append(b.Fields, Field{Key: key, Value: value})
	return b
}

// Warn appends a warning line
func (b *Banner) Warn(msg string) *Banner {
	b.Warnings = append(b.Warnings, msg)
	return b
}

// Render returns the banner as a string.
func (b *Banner) Render() string {
	if b.Plain {
		return b.renderPlain()
	}

	width := b.Width
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	sections := []string{TitleStyle.Render(strings.ToUpper(b.Title))}
	if b.Subtitle != "" {
		sections = append(sections, SubtitleStyle.Render(b.Subtitle))
	}

	if len(b.Fields) > 0 || len(b.Warnings) > 0 {
		dividerWidth := width - 6
		if dividerWidth < 10 {
			dividerWidth = 10
		}
		sections = append(sections, lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Render(strings.Repeat("─", dividerWidth)))
	}

	keyWidth := fieldKeyWidth(b.Fields)
	for _, f := range b.Fields {
		key := KeyStyle.Render(fmt.Sprintf("%-*s", keyWidth, f.Key+":"))
		sections = append(sections, key+" "+ValueStyle.Render(f.Value))
	}
	for _, w := range b.Warnings {
		sections = append(sections, WarningStyle.Render(WarningMarker+" "+w))
	}

	return boxStyle(width, PrimaryColor).Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (b *Banner) renderPlain() string {
	var sb strings.Builder
	sb.WriteString(b.Title)
	if b.Subtitle != "" {
		sb.WriteString(" - " + b.Subtitle)
	}
	sb.WriteString("\n")

	keyWidth := fieldKeyWidth(b.Fields)
	for _, f := range b.Fields {
		fmt.Fprintf(&sb, "  %-*s %s\n", keyWidth, f.Key+":", f.Value)
	}
	for _, w := range b.Warnings {
		fmt.Fprintf(&sb, "  %s %s\n", WarningMarker, w)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// String implements fmt.Stringer
func (b *Banner) String() string {
	return b.Render()
}

func fieldKeyWidth(fields []Field) int {
	width := 0
	for _, f := range fields {
		if n := len(f.Key) + 1; n > width {
			width = n
		}
	}
	return width
}
