package main

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// styles groups the lipgloss styles used by the rendering commands.
// When stdout is not a terminal every style collapses to plain text.
type styles struct {
	Header   lipgloss.Style
	Good     lipgloss.Style
	Warn     lipgloss.Style
	Bad      lipgloss.Style
	Dim      lipgloss.Style
	Emphasis lipgloss.Style
}

func newStyles() styles {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return styles{}
	}
	return styles{
		Header:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Good:     lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		Warn:     lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		Bad:      lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		Dim:      lipgloss.NewStyle().Faint(true),
		Emphasis: lipgloss.NewStyle().Bold(true),
	}
}
