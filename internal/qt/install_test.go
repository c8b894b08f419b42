package qt

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"freecrafter/internal/environ"
	"freecrafter/internal/errs"
	"freecrafter/internal/runner"
	"freecrafter/internal/runner/runnertest"
)

type fakeHelper struct {
	module string
	err    error
	calls  int
}

func (h *fakeHelper) Ensure(context.Context) (string, error) {
	h.calls++
	return h.module, h.err
}

func noSleep(context.Context, time.Duration) error { return nil }

func newTestInstaller(t *testing.T, fake *runnertest.Fake, env environ.Environ) (*Installer, *fakeHelper) {
	t.Helper()
	qtRoot := filepath.Join(t.TempDir(), "qt")
	helper := &fakeHelper{module: "aqt"}
	retry := runner.NewRetry(fake, quietLog())
	retry.Sleep = noSleep
	return &Installer{
		Platform: currentPlatform(t),
		Python:   "python3",
		QtRoot:   qtRoot,
		LockPath: filepath.Join(qtRoot, ".install.lock"),
		Env:      env,
		Retry:    retry,
		Helper:   helper,
		Log:      quietLog(),
	}, helper
}

func TestInstallerArgs(t *testing.T) {
	inst, _ := newTestInstaller(t, &runnertest.Fake{}, nil)
	p := inst.Platform

	got := inst.Args("aqt", "6.5.3", []string{"qtimageformats", "qtshadertools"})
	want := []string{"-m", "aqt", "install-qt", p.Host, "desktop", "6.5.3", p.Arch, "-O", inst.QtRoot,
		"--modules", "qtimageformats", "qtshadertools"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Args = %v\nwant %v", got, want)
	}

	got = inst.Args("aqt", "6.5.3", nil)
	if contains(got, "--modules") {
		t.Fatalf("empty module list should omit --modules: %v", got)
	}
}

func TestInstallSanitizesProxiesAndRedetects(t *testing.T) {
	fake := &runnertest.Fake{}
	inst, helper := newTestInstaller(t, fake, environ.Environ{"HTTP_PROXY": "foo", "PATH": "/usr/bin"})

	installDir := filepath.Join(inst.QtRoot, "6.5.3", inst.Platform.Arch)
	fake.Handler = func(call runnertest.Call) (runner.RunResult, error) {
		makePrefix(t, inst.Platform, installDir, "qtpaths")
		return runnertest.Exit(0)
	}

	d := newTestDetector(t, nil)
	d.InstallDir = installDir

	got, err := inst.Install(context.Background(), Manifest{}, d)
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	if got.Prefix != installDir {
		t.Fatalf("prefix = %s", got.Prefix)
	}
	if helper.calls != 1 {
		t.Fatalf("helper ensured %d times", helper.calls)
	}

	calls := fake.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected one install call, got %d", len(calls))
	}
	argv := strings.Join(calls[0].Argv(), " ")
	if !strings.Contains(argv, "install-qt "+inst.Platform.Host+" desktop 6.5.3 "+inst.Platform.Arch) {
		t.Fatalf("argv = %s", argv)
	}
	if !strings.HasSuffix(argv, "--modules qtimageformats qtshadertools") {
		t.Fatalf("default modules missing: %s", argv)
	}

	childEnv := environ.FromList(calls[0].Opts.Env)
	if _, ok := childEnv.Lookup("HTTP_PROXY"); ok {
		t.Fatal("proxy variable leaked into install environment")
	}
	if childEnv.Get("NO_PROXY") != "*" || childEnv.Get("no_proxy") != "*" {
		t.Fatalf("NO_PROXY = %q, no_proxy = %q", childEnv.Get("NO_PROXY"), childEnv.Get("no_proxy"))
	}
	if inst.Env.Get("HTTP_PROXY") != "foo" {
		t.Fatal("installer mutated its base environment")
	}
}

func TestInstallRespectsProxyOptIn(t *testing.T) {
	fake := &runnertest.Fake{Handler: func(runnertest.Call) (runner.RunResult, error) { return runnertest.Exit(0) }}
	inst, _ := newTestInstaller(t, fake, environ.Environ{"HTTP_PROXY": "foo", environ.RespectProxyVar: "1"})

	if err := inst.Download(context.Background(), "6.5.3", nil); err != nil {
		t.Fatalf("Download: %v", err)
	}
	childEnv := environ.FromList(fake.Calls()[0].Opts.Env)
	if childEnv.Get("HTTP_PROXY") != "foo" {
		t.Fatal("proxy removed despite opt-in")
	}
}

func TestInstallStillMissingFails(t *testing.T) {
	fake := &runnertest.Fake{}
	inst, _ := newTestInstaller(t, fake, nil)
	d := newTestDetector(t, nil)
	d.InstallDir = filepath.Join(inst.QtRoot, "6.5.3", inst.Platform.Arch)

	_, err := inst.Install(context.Background(), Manifest{}, d)
	if !errors.Is(err, ErrInstallFailed) {
		t.Fatalf("err = %v, want ErrInstallFailed", err)
	}
	if !strings.Contains(err.Error(), "Qt installation failed") {
		t.Fatalf("message = %q", err)
	}
}

func TestInstallCommandFailurePropagates(t *testing.T) {
	fake := &runnertest.Fake{Handler: func(runnertest.Call) (runner.RunResult, error) { return runnertest.Exit(5) }}
	inst, _ := newTestInstaller(t, fake, nil)

	_, err := inst.Install(context.Background(), Manifest{}, newTestDetector(t, nil))
	var cmdErr *runner.CommandError
	if !errors.As(err, &cmdErr) || cmdErr.ExitCode != 5 {
		t.Fatalf("err = %v, want CommandError code 5", err)
	}
	if got := len(fake.Calls()); got != runner.DefaultAttempts {
		t.Fatalf("attempts = %d", got)
	}
}

func TestInstallHelperFailureStopsEarly(t *testing.T) {
	fake := &runnertest.Fake{}
	inst, helper := newTestInstaller(t, fake, nil)
	helper.err = errs.Config("no helper")

	_, err := inst.Install(context.Background(), Manifest{}, newTestDetector(t, nil))
	if !errs.IsConfig(err) {
		t.Fatalf("err = %v", err)
	}
	if len(fake.Calls()) != 0 {
		t.Fatal("installer ran without helper")
	}
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
