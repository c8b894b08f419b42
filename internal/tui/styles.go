package tui

import "github.com/charmbracelet/lipgloss"

var (
	// HeaderStyle styles titles and table headers.
	HeaderStyle = lipgloss.NewStyle().Bold(true)

	// StderrStyle renders lines the child wrote to stderr.
	StderrStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))

	// SuccessStyle renders the completion banner.
	SuccessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)

	// HelpStyle renders key hints.
	HelpStyle = lipgloss.NewStyle().Faint(true)

	statusStyles = map[string]lipgloss.Style{
		"ok":      lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		"found":   lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		"running": lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		"warning": lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		"missing": lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		"error":   lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		"idle":    lipgloss.NewStyle().Faint(true),
	}
)

// StatusStyle returns the lipgloss style for the given status string.
func StatusStyle(status string) lipgloss.Style {
	if s, ok := statusStyles[status]; ok {
		return s
	}
	return lipgloss.NewStyle()
}
