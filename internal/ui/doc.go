// Package ui holds the lipgloss palette used for splitx terminal output.
//
// [Styles] colors titles, success and error lines, and the tables rendered by the formatter package. Output written
// to a non-terminal is left uncolored by lipgloss.
package ui
