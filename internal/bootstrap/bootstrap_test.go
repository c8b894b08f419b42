package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"freecrafter/internal/config"
	"freecrafter/internal/environ"
	"freecrafter/internal/errs"
	"freecrafter/internal/paths"
	"freecrafter/internal/platform"
	"freecrafter/internal/qt"
	"freecrafter/internal/runner"
	"freecrafter/internal/runner/runnertest"
)

// world simulates python, aqtinstall and cmake for a single checkout.
type world struct {
	t        *testing.T
	plat     platform.Platform
	qtRoot   string
	mu       sync.Mutex
	aqt      bool
	skipTree bool
	cmake    int
	installs [][]string
}

func (w *world) handle(call runnertest.Call) (runner.RunResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	args := call.Args

	if call.Command == "cmake" {
		return runnertest.Exit(w.cmake)
	}
	switch {
	case len(args) == 2 && args[0] == "-c" && strings.HasPrefix(args[1], "import site"):
		return runnertest.Exit(0)
	case len(args) == 2 && args[0] == "-c":
		if w.aqt && args[1] == "import aqt" {
			return runnertest.Exit(0)
		}
		return runnertest.Exit(1)
	case len(args) > 1 && args[0] == "-m" && args[1] == "pip":
		w.aqt = true
		return runnertest.Exit(0)
	case len(args) > 2 && args[0] == "-m" && args[2] == "install-qt":
		w.installs = append(w.installs, args)
		if !w.skipTree {
			version, arch := args[5], args[6]
			bin := filepath.Join(w.qtRoot, version, arch, "bin")
			if err := os.MkdirAll(bin, 0o755); err != nil {
				w.t.Error(err)
			}
			if err := os.WriteFile(filepath.Join(bin, w.plat.Executable("qtpaths")), nil, 0o755); err != nil {
				w.t.Error(err)
			}
		}
		return runnertest.Exit(0)
	}
	return runnertest.Exit(127)
}

func newBootstrap(t *testing.T, env environ.Environ) (*Bootstrap, *world, *runnertest.Fake) {
	t.Helper()
	plat, err := platform.Current()
	if err != nil {
		t.Skipf("unsupported host: %v", err)
	}
	rp, err := paths.Resolve(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	w := &world{t: t, plat: plat, qtRoot: rp.QtRoot}
	fake := &runnertest.Fake{Handler: w.handle}

	log := logrus.New()
	log.SetOutput(io.Discard)
	if env == nil {
		env = environ.Environ{}
	}
	env["PATH"] = "/usr/bin"

	return &Bootstrap{
		Paths:    rp,
		Config:   config.Default(),
		Platform: plat,
		Env:      env,
		Runner:   fake,
		Log:      log,
		Sleep:    func(context.Context, time.Duration) error { return nil },
		LookPath: func(string) (string, error) { return "", errors.New("not found") },
		Geteuid:  func() int { return 1000 },
		Home:     t.TempDir(),
	}, w, fake
}

func commands(fake *runnertest.Fake, name string) [][]string {
	var out [][]string
	for _, call := range fake.Calls() {
		if call.Command == name {
			out = append(out, call.Args)
		}
	}
	return out
}

func TestRunInstallsWithManifestDefaults(t *testing.T) {
	b, w, fake := newBootstrap(t, nil)

	if err := b.Run(context.Background(), Options{}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(w.installs) != 1 {
		t.Fatalf("installs = %v", w.installs)
	}
	want := []string{"-m", "aqt", "install-qt", b.Platform.Host, "desktop", "6.5.3", b.Platform.Arch,
		"-O", b.Paths.QtRoot, "--modules", "qtimageformats", "qtshadertools"}
	if !reflect.DeepEqual(w.installs[0], want) {
		t.Fatalf("install args = %v\nwant %v", w.installs[0], want)
	}

	cmake := commands(fake, "cmake")
	if len(cmake) != 3 {
		t.Fatalf("cmake calls = %v", cmake)
	}
	prefix := b.Paths.QtInstallDir("6.5.3", b.Platform.Arch)
	if cmake[0][4] != "-DCMAKE_PREFIX_PATH="+prefix {
		t.Fatalf("configure = %v", cmake[0])
	}
	if cmake[2][0] != "--install" || cmake[2][3] != filepath.Join(b.Paths.Root, "dist") {
		t.Fatalf("install = %v", cmake[2])
	}
}

func TestRunUsesExistingPrefix(t *testing.T) {
	plat, _ := platform.Current()
	existing := filepath.Join(t.TempDir(), "qt")
	if err := os.MkdirAll(filepath.Join(existing, "bin"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(existing, "bin", plat.Executable("qtpaths")), nil, 0o755); err != nil {
		t.Fatal(err)
	}

	b, w, fake := newBootstrap(t, environ.Environ{"CMAKE_PREFIX_PATH": existing})
	if err := b.Run(context.Background(), Options{}); err != nil {
		t.Fatal(err)
	}
	if len(w.installs) != 0 {
		t.Fatal("installer ran despite an existing prefix")
	}
	for _, call := range fake.Calls() {
		if call.Command != "cmake" {
			t.Fatalf("unexpected non-cmake call %v", call.Argv())
		}
	}
}

func TestRunOfflineWithoutCacheFailsBeforeAnyCommand(t *testing.T) {
	b, _, fake := newBootstrap(t, nil)

	err := b.Run(context.Background(), Options{Offline: true})
	if !errs.IsConfig(err) {
		t.Fatalf("err = %v, want config error", err)
	}
	if len(fake.Calls()) != 0 {
		t.Fatalf("commands ran: %v", fake.Calls())
	}
	if ExitCode(err) != 1 {
		t.Fatalf("exit code = %d", ExitCode(err))
	}
}

func TestRunOfflineWithCacheInstallsHelperThenFails(t *testing.T) {
	b, w, fake := newBootstrap(t, nil)
	cache := t.TempDir()

	err := b.Run(context.Background(), Options{Offline: true, WheelCache: cache})
	if !errs.IsConfig(err) || !strings.Contains(err.Error(), "offline mode") {
		t.Fatalf("err = %v", err)
	}
	if len(w.installs) != 0 {
		t.Fatal("Qt download attempted offline")
	}
	var pip []string
	for _, call := range fake.Calls() {
		if len(call.Args) > 1 && call.Args[1] == "pip" {
			pip = call.Args
		}
	}
	if !strings.Contains(strings.Join(pip, " "), "--no-index --find-links "+cache) {
		t.Fatalf("pip args = %v", pip)
	}
}

func TestRunInstallWithoutPrefixFails(t *testing.T) {
	b, w, _ := newBootstrap(t, nil)
	w.skipTree = true

	err := b.Run(context.Background(), Options{})
	if !errors.Is(err, qt.ErrInstallFailed) {
		t.Fatalf("err = %v, want ErrInstallFailed", err)
	}
	if !strings.Contains(err.Error(), "Qt installation failed") {
		t.Fatalf("message = %q", err)
	}
}

func TestRunCIConfiguresOnly(t *testing.T) {
	b, _, fake := newBootstrap(t, nil)

	if err := b.Run(context.Background(), Options{CI: true}); err != nil {
		t.Fatal(err)
	}
	cmake := commands(fake, "cmake")
	if len(cmake) != 1 {
		t.Fatalf("cmake calls = %v", cmake)
	}
	if !contains(cmake[0], "-DCMAKE_BUILD_TYPE=Release") {
		t.Fatalf("configure = %v", cmake[0])
	}
	for _, call := range fake.Calls() {
		if len(call.Args) > 1 && call.Args[1] == "pip" && contains(call.Args, "--user") {
			t.Fatalf("CI pip used --user: %v", call.Args)
		}
	}
}

func TestRunCMakeFailureExitCode(t *testing.T) {
	b, w, _ := newBootstrap(t, nil)
	w.cmake = 7

	err := b.Run(context.Background(), Options{})
	if got := ExitCode(err); got != 7 {
		t.Fatalf("ExitCode = %d (err %v)", got, err)
	}
}

func TestExitCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{errors.New("boom"), 1},
		{errs.Config("offline"), 1},
		{&runner.CommandError{Command: []string{"cmake"}, ExitCode: 9}, 9},
		{fmt.Errorf("wrapped: %w", &runner.CommandError{ExitCode: 4}), 4},
		{&runner.CommandError{ExitCode: -1}, 1},
	}
	for _, tc := range cases {
		if got := ExitCode(tc.err); got != tc.want {
			t.Fatalf("ExitCode(%v) = %d, want %d", tc.err, got, tc.want)
		}
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
