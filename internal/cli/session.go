package cli

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"freecrafter/internal/bootstrap"
	"freecrafter/internal/config"
	"freecrafter/internal/environ"
	"freecrafter/internal/logx"
	"freecrafter/internal/paths"
	"freecrafter/internal/platform"
	"freecrafter/internal/runner"
	"freecrafter/internal/tui"
)

// Seams replaced in tests.
var (
	newRunner  = func() runner.Runner { return runner.CmdRunner{} }
	currentEnv = environ.Current
	executable = os.Executable
	stdin      = io.Reader(os.Stdin)

	sleep    func(ctx context.Context, d time.Duration) error
	lookPath func(file string) (string, error)
	homeDir  string
)

// session is the state every command resolves once before doing work.
type session struct {
	paths    paths.RepoPaths
	cfg      config.Config
	platform platform.Platform
	env      environ.Environ
	log      *logrus.Logger
	closer   io.Closer
}

// openSession resolves the repo, loads fcboot.yaml and builds the logger.
// A non-empty logName also mirrors the log into logs/<logName>-*.log.
func openSession(cmd *cobra.Command, logName string) (*session, error) {
	rp, err := paths.Resolve(repoDir)
	if err != nil {
		return nil, err
	}
	env := currentEnv()
	cfg, err := config.LoadWithEnv(rp.ConfigFile, env.Get)
	if err != nil {
		return nil, err
	}
	rp = paths.ApplyConfig(rp, cfg)

	p, err := platform.Current()
	if err != nil {
		return nil, err
	}

	s := &session{paths: rp, cfg: cfg, platform: p, env: env}
	if logName == "" {
		s.log = logx.NewConsole(cmd.ErrOrStderr(), verbose)
		return s, nil
	}
	s.log, s.closer, err = logx.New(rp.LogsDir, logName, cmd.ErrOrStderr(), verbose)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *session) Close() {
	if s.closer != nil {
		_ = s.closer.Close()
	}
}

// bootstrap assembles the bootstrap flow with child output going to the
// command's streams.
func (s *session) bootstrap(cmd *cobra.Command) *bootstrap.Bootstrap {
	b := &bootstrap.Bootstrap{
		Paths:    s.paths,
		Config:   s.cfg,
		Platform: s.platform,
		Env:      s.env,
		Runner:   newRunner(),
		Log:      s.log,
		Stdout:   cmd.OutOrStdout(),
		Stderr:   cmd.ErrOrStderr(),
		Sleep:    sleep,
		LookPath: lookPath,
		Home:     homeDir,
	}
	if tui.IsTerminal(cmd.ErrOrStderr()) {
		b.Progress = cmd.ErrOrStderr()
	}
	return b
}

func nonEmptyOrDash(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "-"
	}
	return value
}
