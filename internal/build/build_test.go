package build

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"freecrafter/internal/environ"
	"freecrafter/internal/platform"
	"freecrafter/internal/runner"
	"freecrafter/internal/runner/runnertest"
)

func newDriver(t *testing.T, fake *runnertest.Fake) *Driver {
	t.Helper()
	p, err := platform.ForGOOS("linux")
	if err != nil {
		t.Fatal(err)
	}
	log := logrus.New()
	log.SetOutput(io.Discard)
	retry := runner.NewRetry(fake, log)
	retry.Sleep = func(context.Context, time.Duration) error { return nil }
	return &Driver{
		Platform: p,
		Env:      environ.Environ{"PATH": "/usr/bin"},
		Retry:    retry,
		Log:      log,
	}
}

func testOptions(t *testing.T) Options {
	root := t.TempDir()
	return Options{
		SourceDir:     root,
		BuildDir:      filepath.Join(root, "build"),
		QtPrefix:      "/opt/Qt/6.5.3/gcc_64",
		InstallPrefix: filepath.Join(root, "dist"),
	}
}

func TestStepsFull(t *testing.T) {
	opts := Options{
		SourceDir:     "/src",
		BuildDir:      "/src/build",
		QtPrefix:      "/qt",
		BuildType:     "Release",
		Generator:     "Ninja",
		ExtraArgs:     []string{"-DFC_TESTS=OFF"},
		InstallPrefix: "/src/dist",
	}
	want := [][]string{
		{"-S", "/src", "-B", "/src/build", "-DCMAKE_PREFIX_PATH=/qt", "-G", "Ninja", "-DCMAKE_BUILD_TYPE=Release", "-DFC_TESTS=OFF"},
		{"--build", "/src/build", "--config", "Release"},
		{"--install", "/src/build", "--prefix", "/src/dist", "--config", "Release"},
	}
	if got := Steps(opts); !reflect.DeepEqual(got, want) {
		t.Fatalf("Steps = %v\nwant %v", got, want)
	}
}

func TestStepsConfigureOnly(t *testing.T) {
	steps := Steps(Options{SourceDir: "/src", BuildDir: "/b", QtPrefix: "/qt", ConfigureOnly: true, InstallPrefix: "/dist"})
	if len(steps) != 1 || steps[0][0] != "-S" {
		t.Fatalf("Steps = %v", steps)
	}
}

func TestRunPrependsQtBinAndInstalls(t *testing.T) {
	fake := &runnertest.Fake{}
	d := newDriver(t, fake)
	opts := testOptions(t)

	if err := d.Run(context.Background(), opts); err != nil {
		t.Fatalf("Run: %v", err)
	}

	calls := fake.Calls()
	if len(calls) != 3 {
		t.Fatalf("calls = %d, want configure/build/install", len(calls))
	}
	for _, call := range calls {
		if call.Command != "cmake" {
			t.Fatalf("command = %s", call.Command)
		}
		path := environ.FromList(call.Opts.Env).Get("PATH")
		if !strings.HasPrefix(path, filepath.Join(opts.QtPrefix, "bin")+":") {
			t.Fatalf("PATH = %q", path)
		}
	}
	if _, err := os.Stat(opts.InstallPrefix); err != nil {
		t.Fatalf("install prefix not created: %v", err)
	}
	if d.Env.Get("PATH") != "/usr/bin" {
		t.Fatal("driver mutated its base environment")
	}
}

func TestRunStopsAtFirstFailure(t *testing.T) {
	fake := &runnertest.Fake{Handler: func(call runnertest.Call) (runner.RunResult, error) {
		if call.Args[0] == "--build" {
			return runnertest.Exit(2)
		}
		return runnertest.Exit(0)
	}}
	d := newDriver(t, fake)

	err := d.Run(context.Background(), testOptions(t))
	var cmdErr *runner.CommandError
	if !errors.As(err, &cmdErr) || cmdErr.ExitCode != 2 {
		t.Fatalf("err = %v", err)
	}
	for _, call := range fake.Calls() {
		if call.Args[0] == "--install" {
			t.Fatal("install ran after failed build")
		}
	}
	if got := len(fake.Calls()); got != 1+runner.DefaultAttempts {
		t.Fatalf("calls = %d", got)
	}
}

func TestRunConfigureOnlySkipsInstallPrefix(t *testing.T) {
	fake := &runnertest.Fake{}
	d := newDriver(t, fake)
	opts := testOptions(t)
	opts.ConfigureOnly = true

	if err := d.Run(context.Background(), opts); err != nil {
		t.Fatal(err)
	}
	if len(fake.Calls()) != 1 {
		t.Fatalf("calls = %d", len(fake.Calls()))
	}
	if _, err := os.Stat(opts.InstallPrefix); !os.IsNotExist(err) {
		t.Fatal("configure-only run created the install prefix")
	}
}
