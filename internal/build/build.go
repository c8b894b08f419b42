// Package build drives the CMake configure, build and install steps against
// a resolved Qt prefix.
package build

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"freecrafter/internal/environ"
	"freecrafter/internal/platform"
	"freecrafter/internal/runner"
)

// Options describe one CMake run.
type Options struct {
	SourceDir string
	BuildDir  string
	// QtPrefix is passed as CMAKE_PREFIX_PATH and its bin is put first on PATH.
	QtPrefix      string
	BuildType     string
	Generator     string
	ExtraArgs     []string
	ConfigureOnly bool
	// InstallPrefix enables the install step when non-empty.
	InstallPrefix string
}

// Driver runs cmake through a retrying runner.
type Driver struct {
	Platform platform.Platform
	Env      environ.Environ
	Retry    *runner.Retry
	Log      logrus.FieldLogger
	Stdout   io.Writer
	Stderr   io.Writer
}

// Steps returns the cmake argument lists that Run executes, in order.
func Steps(opts Options) [][]string {
	configure := []string{"-S", opts.SourceDir, "-B", opts.BuildDir, "-DCMAKE_PREFIX_PATH=" + opts.QtPrefix}
	if opts.Generator != "" {
		configure = append(configure, "-G", opts.Generator)
	}
	if opts.BuildType != "" {
		configure = append(configure, "-DCMAKE_BUILD_TYPE="+opts.BuildType)
	}
	configure = append(configure, opts.ExtraArgs...)

	steps := [][]string{configure}
	if opts.ConfigureOnly {
		return steps
	}

	build := []string{"--build", opts.BuildDir}
	if opts.BuildType != "" {
		build = append(build, "--config", opts.BuildType)
	}
	steps = append(steps, build)

	if opts.InstallPrefix != "" {
		install := []string{"--install", opts.BuildDir, "--prefix", opts.InstallPrefix}
		if opts.BuildType != "" {
			install = append(install, "--config", opts.BuildType)
		}
		steps = append(steps, install)
	}
	return steps
}

// Run executes every step, stopping at the first failure.
func (d *Driver) Run(ctx context.Context, opts Options) error {
	if err := os.MkdirAll(opts.BuildDir, 0o755); err != nil {
		return fmt.Errorf("create build dir: %w", err)
	}
	if opts.InstallPrefix != "" && !opts.ConfigureOnly {
		if err := os.MkdirAll(opts.InstallPrefix, 0o755); err != nil {
			return fmt.Errorf("create install prefix: %w", err)
		}
	}

	env := d.Env.PrependPath(filepath.Join(opts.QtPrefix, "bin"), d.Platform.ListSeparator)
	runOpts := runner.RunOptions{Env: env.List(), Stdout: d.Stdout, Stderr: d.Stderr}

	for _, args := range Steps(opts) {
		if err := d.Retry.Run(ctx, "cmake", args, runOpts).Err(); err != nil {
			return err
		}
	}

	log := d.logger()
	switch {
	case opts.ConfigureOnly:
		log.Infof("Configured %s", opts.BuildDir)
	case opts.InstallPrefix != "":
		log.Infof("Installed into %s", opts.InstallPrefix)
	default:
		log.Infof("Build complete. Run the executable in %s", opts.BuildDir)
	}
	return nil
}

func (d *Driver) logger() logrus.FieldLogger {
	if d.Log != nil {
		return d.Log
	}
	return logrus.StandardLogger()
}
