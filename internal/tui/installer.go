package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

type installState int

const (
	stateIdle installState = iota
	stateRunning
	stateFinished
)

const eventBuffer = 256

type outputLine struct {
	stream Stream
	text   string
}

// Launcher starts the bootstrap child, relaying its output to events.
type Launcher func(events chan<- tea.Msg) error

// InstallerModel is the terminal installer window. It is the only writer of
// the displayed output; relay goroutines reach it solely through messages.
type InstallerModel struct {
	title    string
	launch   Launcher
	state    installState
	lines    []outputLine
	exitCode int
	notice   string
	spinner  spinner.Model
	events   chan tea.Msg
	height   int
}

// NewInstallerModel builds an idle installer that runs launch on "i".
func NewInstallerModel(title string, launch Launcher) InstallerModel {
	return InstallerModel{
		title:   title,
		launch:  launch,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
}

// ExitCode returns the last run's exit code.
func (m InstallerModel) ExitCode() int {
	return m.exitCode
}

// Finished reports whether a run has completed.
func (m InstallerModel) Finished() bool {
	return m.state == stateFinished
}

// Init satisfies the tea.Model interface.
func (m InstallerModel) Init() tea.Cmd {
	return nil
}

// Update satisfies the tea.Model interface.
func (m InstallerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case LineMsg:
		m.lines = append(m.lines, outputLine{stream: msg.Stream, text: msg.Text})
		return m, waitForMsg(m.events)

	case DoneMsg:
		m.state = stateFinished
		m.exitCode = msg.ExitCode
		if msg.Err != nil {
			m.lines = append(m.lines, outputLine{stream: Stderr, text: msg.Err.Error()})
		}
		if msg.ExitCode == 0 {
			m.lines = append(m.lines, outputLine{stream: Stdout, text: "Install complete."})
		} else {
			m.lines = append(m.lines, outputLine{stream: Stderr, text: fmt.Sprintf("Install failed with code %d", msg.ExitCode)})
		}
		return m, nil

	case spinner.TickMsg:
		if m.state != stateRunning {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m InstallerModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		if m.state == stateRunning {
			m.notice = "Install in progress; wait for it to finish."
			return m, nil
		}
		return m, tea.Quit

	case "i", "enter":
		if m.state == stateRunning {
			return m, nil
		}
		m.lines = nil
		m.notice = ""
		m.events = make(chan tea.Msg, eventBuffer)
		if err := m.launch(m.events); err != nil {
			m.state = stateFinished
			m.exitCode = -1
			m.lines = append(m.lines, outputLine{stream: Stderr, text: err.Error()})
			return m, nil
		}
		m.state = stateRunning
		return m, tea.Batch(m.spinner.Tick, waitForMsg(m.events))
	}
	return m, nil
}

// View satisfies the tea.Model interface.
func (m InstallerModel) View() string {
	var b strings.Builder
	b.WriteString(HeaderStyle.Render(m.title))
	b.WriteString("\n\n")

	for _, line := range m.visibleLines() {
		if line.stream == Stderr {
			b.WriteString(StderrStyle.Render(line.text))
		} else {
			b.WriteString(line.text)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch m.state {
	case stateIdle:
		b.WriteString(StatusStyle("idle").Render("Ready."))
	case stateRunning:
		b.WriteString(m.spinner.View() + " " + StatusStyle("running").Render("Installing..."))
	case stateFinished:
		if m.exitCode == 0 {
			b.WriteString(SuccessStyle.Render("Done."))
		} else {
			b.WriteString(StatusStyle("error").Render("Failed."))
		}
	}
	if m.notice != "" {
		b.WriteString("  " + StatusStyle("warning").Render(m.notice))
	}
	b.WriteString("\n")

	if m.state == stateRunning {
		b.WriteString(HelpStyle.Render("please wait"))
	} else {
		b.WriteString(HelpStyle.Render("i install • q exit"))
	}
	b.WriteString("\n")
	return b.String()
}

// visibleLines keeps the tail of the output that fits the window.
func (m InstallerModel) visibleLines() []outputLine {
	if m.height <= 0 {
		return m.lines
	}
	room := m.height - 6
	if room < 1 {
		room = 1
	}
	if len(m.lines) <= room {
		return m.lines
	}
	return m.lines[len(m.lines)-room:]
}
