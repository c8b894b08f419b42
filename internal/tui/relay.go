package tui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

const maxLine = 1 << 20

// Process names the child launched by the installer.
type Process struct {
	Command string
	Args    []string
	Dir     string
	// Env replaces the child environment when non-nil.
	Env []string
}

// Start launches p and relays its output to events: one goroutine per pipe
// posts LineMsg, and a third posts DoneMsg once both pipes are drained and
// the process has exited. DoneMsg is always the last message sent.
func Start(p Process, events chan<- tea.Msg) error {
	cmd := exec.Command(p.Command, p.Args...)
	cmd.Dir = p.Dir
	if p.Env != nil {
		cmd.Env = p.Env
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", p.Command, err)
	}

	var readers sync.WaitGroup
	readers.Add(2)
	go relayLines(&readers, stdout, Stdout, events)
	go relayLines(&readers, stderr, Stderr, events)

	go func() {
		readers.Wait()
		err := cmd.Wait()
		events <- doneFrom(err)
	}()
	return nil
}

func relayLines(wg *sync.WaitGroup, r io.Reader, stream Stream, events chan<- tea.Msg) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLine)
	for scanner.Scan() {
		events <- LineMsg{Stream: stream, Text: scanner.Text()}
	}
	// Drain whatever is left so the child never blocks on a full pipe.
	_, _ = io.Copy(io.Discard, r)
}

func doneFrom(err error) DoneMsg {
	if err == nil {
		return DoneMsg{}
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return DoneMsg{ExitCode: exitErr.ExitCode()}
	}
	return DoneMsg{ExitCode: -1, Err: err}
}

// waitForMsg blocks for the next relayed message.
func waitForMsg(events <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-events
	}
}

// Drain relays events to plain writers until DoneMsg arrives and returns the
// child's exit code.
func Drain(events <-chan tea.Msg, stdout, stderr io.Writer) int {
	for msg := range events {
		switch msg := msg.(type) {
		case LineMsg:
			w := stdout
			if msg.Stream == Stderr {
				w = stderr
			}
			fmt.Fprintln(w, msg.Text)
		case DoneMsg:
			if msg.Err != nil {
				fmt.Fprintln(stderr, msg.Err)
			}
			return msg.ExitCode
		}
	}
	return -1
}
