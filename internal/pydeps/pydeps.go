// Package pydeps makes the aqtinstall helper importable by the configured
// Python interpreter.
package pydeps

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"freecrafter/internal/checksum"
	"freecrafter/internal/environ"
	"freecrafter/internal/errs"
	"freecrafter/internal/paths"
	"freecrafter/internal/runner"
)

// HelperModules are tried in order; the first importable one is used.
var HelperModules = []string{"aqt", "aqtinstall"}

// HelperPackage is installed when no requirements file is present.
const HelperPackage = "aqtinstall"

const userSiteProbe = "import site, sys; sys.exit(0 if site.ENABLE_USER_SITE else 1)"

// Installer ensures the helper module is present.
type Installer struct {
	Python       string
	Requirements string
	Env          environ.Environ
	Retry        *runner.Retry
	Verifier     checksum.Verifier
	Log          logrus.FieldLogger

	Offline    bool
	WheelCache string
	CI         bool

	// Geteuid reports the effective user id; -1 where unsupported.
	Geteuid func() int
	Stdout  io.Writer
	Stderr  io.Writer
}

// Resolve returns the first helper module the interpreter can import.
func (i *Installer) Resolve(ctx context.Context) (string, bool) {
	for _, module := range HelperModules {
		res, err := i.Retry.Runner.Run(ctx, i.Python, []string{"-c", "import " + module}, i.opts(false))
		if err == nil && res.ExitCode == 0 {
			i.logger().Debugf("Python module %s is importable", module)
			return module, true
		}
	}
	return "", false
}

// Ensure resolves the helper module, installing it first when needed.
func (i *Installer) Ensure(ctx context.Context) (string, error) {
	if module, ok := i.Resolve(ctx); ok {
		return module, nil
	}
	log := i.logger()

	if i.Offline && i.WheelCache == "" {
		return "", errs.Config("%s is missing and no wheel cache was provided in offline mode", HelperPackage)
	}

	args := []string{"-m", "pip", "install"}
	if i.Offline {
		if err := i.Verifier.VerifyCache(i.WheelCache); err != nil {
			return "", err
		}
		args = append(args, "--no-index", "--find-links", i.WheelCache)
	} else if i.UserSiteUsable(ctx) {
		args = append(args, "--user")
	} else {
		log.Info("User site-packages unavailable; installing into the interpreter environment")
	}

	if ok, _ := paths.FileExists(i.Requirements); ok {
		args = append(args, "-r", i.Requirements)
	} else {
		args = append(args, HelperPackage)
	}

	res := i.Retry.Run(ctx, i.Python, args, i.opts(true))
	if err := res.Err(); err != nil {
		if i.Requirements != "" {
			log.Errorf("Failed to install Python dependencies. Run '%s -m pip install -r %s' manually and rerun.", i.Python, i.Requirements)
		}
		return "", err
	}

	module, ok := i.Resolve(ctx)
	if !ok {
		return "", fmt.Errorf("python helper still missing after install (tried %s)", strings.Join(HelperModules, ", "))
	}
	return module, nil
}

// UserSiteUsable reports whether pip --user would land somewhere the
// interpreter imports from. CI runs, PYTHONNOUSERSITE, root, and
// interpreters with user site disabled (such as virtualenvs) all say no.
func (i *Installer) UserSiteUsable(ctx context.Context) bool {
	if i.CI {
		return false
	}
	if i.Env.Get("PYTHONNOUSERSITE") != "" {
		return false
	}
	geteuid := i.Geteuid
	if geteuid == nil {
		geteuid = os.Geteuid
	}
	if geteuid() == 0 {
		return false
	}
	res, err := i.Retry.Runner.Run(ctx, i.Python, []string{"-c", userSiteProbe}, i.opts(false))
	return err == nil && res.ExitCode == 0
}

func (i *Installer) opts(stream bool) runner.RunOptions {
	opts := runner.RunOptions{}
	if i.Env != nil {
		opts.Env = i.Env.List()
	}
	if stream {
		opts.Stdout = i.Stdout
		opts.Stderr = i.Stderr
	}
	return opts
}

func (i *Installer) logger() logrus.FieldLogger {
	if i.Log != nil {
		return i.Log
	}
	return logrus.StandardLogger()
}
