package qt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"freecrafter/internal/environ"
	"freecrafter/internal/platform"
	"freecrafter/internal/runner"
)

// ErrInstallFailed is returned when aqtinstall reported success but no valid
// prefix can be found afterwards.
var ErrInstallFailed = errors.New("Qt installation failed")

// HelperProvider makes the installer helper importable and returns the module
// name to pass to python -m.
type HelperProvider interface {
	Ensure(ctx context.Context) (string, error)
}

// Installer downloads Qt into QtRoot with aqtinstall.
type Installer struct {
	Platform platform.Platform
	Python   string
	QtRoot   string
	LockPath string
	Env      environ.Environ
	Retry    *runner.Retry
	Helper   HelperProvider
	Log      logrus.FieldLogger
	// Stdout and Stderr receive the helper's output as it runs.
	Stdout io.Writer
	Stderr io.Writer
}

// Args builds the python arguments for installing version with modules.
func (i *Installer) Args(module, version string, modules []string) []string {
	args := []string{
		"-m", module,
		"install-qt",
		i.Platform.Host,
		"desktop",
		version,
		i.Platform.Arch,
		"-O", i.QtRoot,
	}
	if len(modules) > 0 {
		args = append(args, "--modules")
		args = append(args, modules...)
	}
	return args
}

// Download fetches version into QtRoot while holding the install lock.
func (i *Installer) Download(ctx context.Context, version string, modules []string) error {
	log := i.logger()

	if i.LockPath != "" {
		release, err := AcquireLock(ctx, i.LockPath)
		if err != nil {
			return err
		}
		defer release()
	}

	module, err := i.Helper.Ensure(ctx)
	if err != nil {
		return err
	}

	env := environ.SanitizeProxies(i.Env, environ.RespectProxy(i.Env), log)
	modules = NormalizeModules(modules)
	if len(modules) > 0 {
		log.Infof("Requesting Qt modules: %s", strings.Join(modules, ", "))
	}

	res := i.Retry.Run(ctx, i.Python, i.Args(module, version, modules), runner.RunOptions{
		Env:    env.List(),
		Stdout: i.Stdout,
		Stderr: i.Stderr,
	})
	return res.Err()
}

// Install downloads the manifest's Qt and then re-runs detector. A download
// that does not leave a valid prefix behind yields ErrInstallFailed.
func (i *Installer) Install(ctx context.Context, m Manifest, detector *Detector) (Detection, error) {
	m = m.WithDefaults()
	if err := i.Download(ctx, m.Version, m.Modules); err != nil {
		return Detection{}, err
	}
	found, ok := detector.Detect(ctx)
	if !ok {
		return Detection{}, fmt.Errorf("%w: no valid prefix under %s", ErrInstallFailed, i.QtRoot)
	}
	return found, nil
}

func (i *Installer) logger() logrus.FieldLogger {
	if i.Log != nil {
		return i.Log
	}
	return logrus.StandardLogger()
}
