// Package runnertest provides a scripted runner.Runner for tests.
package runnertest

import (
	"context"
	"fmt"
	"os/exec"
	"sync"

	"freecrafter/internal/runner"
)

// Call records a single invocation.
type Call struct {
	Command string
	Args    []string
	Opts    runner.RunOptions
}

// Argv returns the command followed by its arguments.
func (c Call) Argv() []string {
	return append([]string{c.Command}, c.Args...)
}

// Fake records calls and answers them with Handler. A nil Handler makes
// every command succeed with empty output.
type Fake struct {
	Handler func(call Call) (runner.RunResult, error)

	mu    sync.Mutex
	calls []Call
}

func (f *Fake) Run(_ context.Context, command string, args []string, opts runner.RunOptions) (runner.RunResult, error) {
	call := Call{Command: command, Args: append([]string(nil), args...), Opts: opts}
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
	if f.Handler == nil {
		return runner.RunResult{}, nil
	}
	return f.Handler(call)
}

// Calls returns a copy of the recorded invocations.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Exit fabricates the result of a process that exited with code.
func Exit(code int) (runner.RunResult, error) {
	if code == 0 {
		return runner.RunResult{}, nil
	}
	return runner.RunResult{ExitCode: code}, fmt.Errorf("exit status %d", code)
}

// Stdout fabricates a successful run that printed text.
func Stdout(text string) (runner.RunResult, error) {
	return runner.RunResult{Stdout: []byte(text)}, nil
}

// NotFound fabricates a command that could not be located on PATH.
func NotFound(command string) (runner.RunResult, error) {
	return runner.RunResult{ExitCode: -1}, &exec.Error{Name: command, Err: exec.ErrNotFound}
}

var _ runner.Runner = (*Fake)(nil)
