// Package bootstrap wires detection, installation and the CMake build into
// the single flow behind `fcboot bootstrap`.
package bootstrap

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"freecrafter/internal/build"
	"freecrafter/internal/bundle"
	"freecrafter/internal/checksum"
	"freecrafter/internal/config"
	"freecrafter/internal/environ"
	"freecrafter/internal/errs"
	"freecrafter/internal/paths"
	"freecrafter/internal/platform"
	"freecrafter/internal/pydeps"
	"freecrafter/internal/qt"
	"freecrafter/internal/runner"
)

// DefaultInstallPrefix is used when --install-prefix is not given.
const DefaultInstallPrefix = "dist"

// Options are the bootstrap command-line switches.
type Options struct {
	Offline       bool
	WheelCache    string
	CI            bool
	InstallPrefix string
}

// Bootstrap holds everything resolved once at start-up.
type Bootstrap struct {
	Paths    paths.RepoPaths
	Config   config.Config
	Platform platform.Platform
	Env      environ.Environ
	Runner   runner.Runner
	Log      logrus.FieldLogger

	// Stdout and Stderr receive child process output.
	Stdout io.Writer
	Stderr io.Writer
	// Progress receives checksum progress bars when set.
	Progress io.Writer

	Sleep    func(ctx context.Context, d time.Duration) error
	LookPath func(file string) (string, error)
	Geteuid  func() int
	Home     string
}

// Retry returns the retrying runner configured from fcboot.yaml.
func (b *Bootstrap) Retry() *runner.Retry {
	return &runner.Retry{
		Runner:   b.Runner,
		Attempts: b.Config.Retry.Attempts,
		Delay:    b.Config.Retry.Delay,
		Log:      b.Log,
		Sleep:    b.Sleep,
	}
}

// Python is the interpreter used for pip and aqtinstall.
func (b *Bootstrap) Python() string {
	if b.Config.Python.Executable != "" {
		return b.Config.Python.Executable
	}
	return b.Platform.DefaultPython()
}

// Manifest loads qt/manifest.json with defaults applied.
func (b *Bootstrap) Manifest() qt.Manifest {
	return qt.LoadManifest(b.Paths.ManifestFile, b.Log).WithDefaults()
}

// Detector searches for a prefix, treating qt/<version>/<arch> as the local
// install directory.
func (b *Bootstrap) Detector(m qt.Manifest) *qt.Detector {
	extra := make([]string, 0, len(b.Config.Qt.SearchRoots))
	for _, root := range b.Config.Qt.SearchRoots {
		extra = append(extra, b.Paths.Abs(root))
	}
	return &qt.Detector{
		Platform:   b.Platform,
		Env:        b.Env,
		InstallDir: b.Paths.QtInstallDir(m.Version, b.Platform.Arch),
		ExtraRoots: extra,
		Home:       b.Home,
		Runner:     b.Runner,
		LookPath:   b.LookPath,
		Log:        b.Log,
	}
}

// Dependencies returns the helper installer for opts.
func (b *Bootstrap) Dependencies(opts Options) *pydeps.Installer {
	cache := opts.WheelCache
	if cache != "" {
		cache = b.Paths.Abs(cache)
	}
	return &pydeps.Installer{
		Python:       b.Python(),
		Requirements: b.Paths.RequirementsFile,
		Env:          b.Env,
		Retry:        b.Retry(),
		Verifier:     checksum.Verifier{Log: b.Log, Progress: b.Progress},
		Log:          b.Log,
		Offline:      opts.Offline,
		WheelCache:   cache,
		CI:           opts.CI,
		Geteuid:      b.Geteuid,
		Stdout:       b.Stdout,
		Stderr:       b.Stderr,
	}
}

// Installer returns the Qt installer backed by helper.
func (b *Bootstrap) Installer(helper qt.HelperProvider) *qt.Installer {
	return &qt.Installer{
		Platform: b.Platform,
		Python:   b.Python(),
		QtRoot:   b.Paths.QtRoot,
		LockPath: b.Paths.InstallLock,
		Env:      b.Env,
		Retry:    b.Retry(),
		Helper:   helper,
		Log:      b.Log,
		Stdout:   b.Stdout,
		Stderr:   b.Stderr,
	}
}

// EnsureQt returns a usable prefix, installing Qt when detection fails and
// the run is online.
func (b *Bootstrap) EnsureQt(ctx context.Context, opts Options) (qt.Detection, error) {
	m := b.Manifest()
	detector := b.Detector(m)

	if found, ok := detector.Detect(ctx); ok {
		b.Log.Infof("Using existing Qt at %s", found.Prefix)
		return found, nil
	}

	deps := b.Dependencies(opts)
	if opts.Offline {
		if deps.WheelCache == "" {
			return qt.Detection{}, errs.Config("Qt not found in offline mode and no wheel cache was provided; looked for %s", detector.InstallDir)
		}
		if _, err := deps.Ensure(ctx); err != nil {
			return qt.Detection{}, err
		}
		return qt.Detection{}, errs.Config("Qt not found in offline mode; looked for %s", detector.InstallDir)
	}

	b.Log.Infof("No Qt found; installing Qt %s into %s", m.Version, b.Paths.QtRoot)
	found, err := b.Installer(deps).Install(ctx, m, detector)
	if err != nil {
		return qt.Detection{}, err
	}
	b.Log.Infof("Using newly installed Qt at %s", found.Prefix)
	return found, nil
}

// Run performs the whole bootstrap.
func (b *Bootstrap) Run(ctx context.Context, opts Options) error {
	found, err := b.EnsureQt(ctx, opts)
	if err != nil {
		return err
	}

	installPrefix := opts.InstallPrefix
	if installPrefix == "" {
		installPrefix = DefaultInstallPrefix
	}
	buildOpts := build.Options{
		SourceDir:     b.Paths.Root,
		BuildDir:      b.Paths.BuildDir,
		QtPrefix:      found.Prefix,
		BuildType:     b.Config.Build.Type,
		Generator:     b.Config.Build.Generator,
		ExtraArgs:     b.Config.Build.CMakeArgs,
		InstallPrefix: b.Paths.Abs(installPrefix),
	}
	if opts.CI {
		buildOpts.ConfigureOnly = true
		buildOpts.BuildType = "Release"
	}

	driver := &build.Driver{
		Platform: b.Platform,
		Env:      b.Env,
		Retry:    b.Retry(),
		Log:      b.Log,
		Stdout:   b.Stdout,
		Stderr:   b.Stderr,
	}
	if err := driver.Run(ctx, buildOpts); err != nil {
		return err
	}
	if opts.CI {
		return nil
	}

	deployer := &bundle.Deployer{Platform: b.Platform, Env: b.Env, Retry: b.Retry(), Log: b.Log}
	return deployer.Deploy(ctx, found.Prefix, buildOpts.InstallPrefix)
}

// ExitCode maps a bootstrap error to the process exit status: the failing
// command's code for command failures, 1 for anything else, 0 for nil.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var cmdErr *runner.CommandError
	if errors.As(err, &cmdErr) && cmdErr.ExitCode > 0 {
		return cmdErr.ExitCode
	}
	return 1
}
