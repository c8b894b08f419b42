// Package bundle places the Qt runtime next to the installed FreeCrafter
// executable and packs the result for distribution.
package bundle

import (
	"context"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"freecrafter/internal/environ"
	"freecrafter/internal/platform"
	"freecrafter/internal/runner"
)

// AppName is the executable produced by the downstream CMake project.
const AppName = "FreeCrafter"

// Deployer runs windeployqt or macdeployqt from the Qt prefix.
type Deployer struct {
	Platform platform.Platform
	Env      environ.Environ
	Retry    *runner.Retry
	Log      logrus.FieldLogger
}

// Tool returns the deploy tool inside qtPrefix, or "" on hosts without one.
func (d *Deployer) Tool(qtPrefix string) string {
	switch {
	case d.Platform.IsWindows():
		return filepath.Join(qtPrefix, "bin", d.Platform.Executable("windeployqt"))
	case d.Platform.IsMac():
		return filepath.Join(qtPrefix, "bin", "macdeployqt")
	}
	return ""
}

// Target finds the installed executable or app bundle under installPrefix.
func (d *Deployer) Target(installPrefix string) (string, bool) {
	name := d.Platform.Executable(AppName)
	if d.Platform.IsMac() {
		name = AppName + ".app"
	}
	for _, dir := range []string{installPrefix, filepath.Join(installPrefix, "bin")} {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
	}
	return "", false
}

// Deploy bundles Qt into installPrefix. Missing tools or targets are logged
// and skipped; only a failing deploy command is an error.
func (d *Deployer) Deploy(ctx context.Context, qtPrefix, installPrefix string) error {
	log := d.logger()

	tool := d.Tool(qtPrefix)
	if tool == "" {
		log.Infof("No Qt deploy step on %s; skipping bundling", d.Platform.Host)
		return nil
	}
	if _, err := os.Stat(tool); err != nil {
		log.Warnf("Deploy tool %s not found; skipping bundling", tool)
		return nil
	}
	target, ok := d.Target(installPrefix)
	if !ok {
		log.Warnf("%s not found under %s; skipping bundling", AppName, installPrefix)
		return nil
	}

	env := d.Env.PrependPath(filepath.Join(qtPrefix, "bin"), d.Platform.ListSeparator)
	res := d.Retry.Once().Run(ctx, tool, []string{target}, runner.RunOptions{Env: env.List()})
	if err := res.Err(); err != nil {
		return err
	}
	log.Infof("Bundled Qt libraries with %s", AppName)
	return nil
}

func (d *Deployer) logger() logrus.FieldLogger {
	if d.Log != nil {
		return d.Log
	}
	return logrus.StandardLogger()
}
