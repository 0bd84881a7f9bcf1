package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Result is the outcome box printed when a command finishes.
type Result struct {
	Title  string
	Fields []Field
	Err    error

	Width int
	Plain bool
}

// NewSuccessResult creates a result for a completed run
func NewSuccessResult(title string) *Result {
	return &Result{Title: title, Width: GetTerminalWidth(), Plain: !IsTerminal()}
}

// NewFailureResult creates a result for a failed run
func NewFailureResult(title string, err error) *Result {
	return &Result{Title: title, Err: err, Width: GetTerminalWidth(), Plain: !IsTerminal()}
}

// Add appends a detail field
func (r *Result) Add(key, value string) *Result {
	r.Fields = append(r.Fields, Field{Key: key, Value: value})
	return r
}

// Render returns the result as a string.
func (r *Result) Render() string {
	marker, label := SuccessMarker, "SUCCESS"
	titleStyle, color := SuccessTitleStyle, SuccessColor
	if r.Err != nil {
		marker, label = FailureMarker, "FAILED"
		titleStyle, color = ErrorTitleStyle, ErrorColor
	}

	heading := fmt.Sprintf("%s  %s - %s", marker, label, r.Title)
	keyWidth := fieldKeyWidth(r.Fields)

	lines := []string{heading}
	for _, f := range r.Fields {
		lines = append(lines, fmt.Sprintf("  %-*s %s", keyWidth, f.Key+":", f.Value))
	}
	if r.Err != nil {
		lines = append(lines, "  error: "+r.Err.Error())
	}

	if r.Plain {
		return strings.Join(lines, "\n")
	}

	width := r.Width
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	styled := []string{titleStyle.Render(heading)}
	for _, f := range r.Fields {
		key := KeyStyle.Render(fmt.Sprintf("%-*s", keyWidth, f.Key+":"))
		styled = append(styled, key+" "+ValueStyle.Render(f.Value))
	}
	if r.Err != nil {
		styled = append(styled, lipgloss.NewStyle().Foreground(ErrorColor).PaddingLeft(2).Render(r.Err.Error()))
	}

	return boxStyle(width, color).Padding(0, 1).Render(lipgloss.JoinVertical(lipgloss.Left, styled...))
}

// String implements fmt.Stringer
func (r *Result) String() string {
	return r.Render()
}
