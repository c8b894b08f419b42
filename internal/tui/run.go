package tui

import (
	"io"

	tea "github.com/charmbracelet/bubbletea"
)

// RunInstaller shows the installer until the user exits and returns the exit
// code of the last run, or 0 when nothing was run.
func RunInstaller(in io.Reader, out io.Writer, model InstallerModel) (int, error) {
	p := tea.NewProgram(model, tea.WithInput(in), tea.WithOutput(out), tea.WithAltScreen())
	finalModel, err := p.Run()
	if err != nil {
		return 1, err
	}
	if m, ok := finalModel.(InstallerModel); ok && m.Finished() {
		return m.ExitCode(), nil
	}
	return 0, nil
}
