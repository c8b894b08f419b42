package runner

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"freecrafter/internal/errs"
)

const (
	DefaultAttempts = 3
	DefaultDelay    = time.Second
)

// CommandError reports a command that kept exiting non-zero after every
// attempt was spent.
type CommandError struct {
	Command  []string
	ExitCode int
	Attempts int
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command '%s' failed with code %d", strings.Join(e.Command, " "), e.ExitCode)
}

// Result describes the outcome of a retried command.
type Result struct {
	Command  []string
	ExitCode int
	Attempts int
	// Output holds the captured streams of the last attempt.
	Output RunResult

	err error
}

// Succeeded reports whether the final attempt exited zero.
func (r Result) Succeeded() bool {
	return r.err == nil && r.ExitCode == 0
}

// Err converts a failed result into an error. A process that ran and exited
// non-zero yields a *CommandError; one that could not be started yields the
// start error, which is an errs.ConfigError when the executable is missing.
func (r Result) Err() error {
	if r.err != nil {
		return r.err
	}
	if r.ExitCode != 0 {
		return &CommandError{Command: r.Command, ExitCode: r.ExitCode, Attempts: r.Attempts}
	}
	return nil
}

// Retry runs commands through Runner, repeating failed runs up to Attempts
// times with a fixed Delay between them.
type Retry struct {
	Runner   Runner
	Attempts int
	Delay    time.Duration
	Log      logrus.FieldLogger
	// Sleep waits between attempts; tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error
}

// NewRetry returns a Retry with the default attempt budget and delay.
func NewRetry(r Runner, log logrus.FieldLogger) *Retry {
	return &Retry{Runner: r, Attempts: DefaultAttempts, Delay: DefaultDelay, Log: log}
}

// Once returns a copy of r that makes a single attempt.
func (r *Retry) Once() *Retry {
	cp := *r
	cp.Attempts = 1
	return &cp
}

// Run executes command until it exits zero or the attempt budget is spent.
// Missing executables and cancelled contexts end the loop immediately.
func (r *Retry) Run(ctx context.Context, command string, args []string, opts RunOptions) Result {
	attempts := r.Attempts
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	full := append([]string{command}, args...)
	result := Result{Command: full}
	log := r.logger()

	for attempt := 1; attempt <= attempts; attempt++ {
		log.Infof("Running: %s", strings.Join(full, " "))
		out, err := r.Runner.Run(ctx, command, args, opts)
		result.Attempts = attempt
		result.Output = out
		result.ExitCode = out.ExitCode

		if err == nil && out.ExitCode == 0 {
			return result
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			result.err = fmt.Errorf("%s: %w", command, ctxErr)
			return result
		}
		if out.ExitCode <= 0 {
			result.ExitCode = -1
			if errors.Is(err, exec.ErrNotFound) {
				result.err = errs.WrapConfig(err, "required executable %q not found", command)
			} else {
				result.err = fmt.Errorf("start %s: %w", command, err)
			}
			log.Errorf("Could not start %s: %v", command, err)
			return result
		}

		log.Errorf("Command failed with code %d", out.ExitCode)
		if attempt == attempts {
			break
		}
		log.Infof("Retrying (%d/%d)...", attempt+1, attempts)
		if err := r.sleep(ctx, r.Delay); err != nil {
			result.err = fmt.Errorf("%s: %w", command, err)
			return result
		}
	}
	return result
}

func (r *Retry) sleep(ctx context.Context, d time.Duration) error {
	if r.Sleep != nil {
		return r.Sleep(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (r *Retry) logger() logrus.FieldLogger {
	if r.Log != nil {
		return r.Log
	}
	return logrus.StandardLogger()
}
