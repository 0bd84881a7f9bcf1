// Package ui renders the terminal output of the otastub commands.
//
// Output is built with Lipgloss when stdout is a terminal and falls back to
// plain aligned text otherwise, so banners stay readable in service logs and
// pipes. Two components are provided:
//
//   - Banner: printed by "otastub serve" before the listener starts, showing
//     the effective configuration and any warnings.
//   - Result: printed by "otastub probe" with the outcome of a probe run.
//
// Structured logs go through the logging package and are independent of this
// output.
package ui
