package qt

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"freecrafter/internal/paths"
)

// RefreshOptions mirror the fetch-qt flags.
type RefreshOptions struct {
	Version      string
	Modules      []string
	Force        bool
	ManifestOnly bool
}

// Refresher re-pins qt/manifest.json and optionally downloads the runtime it
// names.
type Refresher struct {
	ManifestPath string
	QtRoot       string
	Arch         string
	Installer    *Installer
	Log          logrus.FieldLogger
	Now          func() time.Time
}

// Refresh resolves version and modules from opts, then the current manifest,
// then the built-in defaults. The manifest is rewritten only after a
// successful download.
func (r *Refresher) Refresh(ctx context.Context, opts RefreshOptions) (Manifest, error) {
	log := r.logger()
	current := LoadManifest(r.ManifestPath, log)

	version := firstNonEmpty(opts.Version, current.Version, DefaultVersion)
	modules := opts.Modules
	if len(NormalizeModules(modules)) == 0 {
		modules = current.Modules
	}
	if len(NormalizeModules(modules)) == 0 {
		modules = DefaultModules
	}
	modules = NormalizeModules(modules)

	tools := current.Tools
	if tools == nil {
		tools = []string{}
	}

	if !opts.ManifestOnly {
		if err := r.install(ctx, version, modules, opts.Force); err != nil {
			return Manifest{}, err
		}
	}

	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	updated := Manifest{
		Version:     version,
		Modules:     modules,
		Tools:       tools,
		LastUpdated: Stamp(now()),
	}
	if err := SaveManifest(r.ManifestPath, updated); err != nil {
		return Manifest{}, err
	}
	log.Infof("Updated %s", r.ManifestPath)
	return updated, nil
}

func (r *Refresher) install(ctx context.Context, version string, modules []string, force bool) error {
	log := r.logger()
	target := filepath.Join(r.QtRoot, version, r.Arch)

	exists, err := paths.DirExists(target)
	if err != nil {
		return fmt.Errorf("inspect %s: %w", target, err)
	}
	if exists {
		if !force {
			log.Infof("Qt runtime already present at %s; skipping download (use --force to reinstall)", target)
			return nil
		}
		log.Infof("Removing existing Qt runtime at %s", target)
		if err := os.RemoveAll(target); err != nil {
			return fmt.Errorf("remove %s: %w", target, err)
		}
	}
	return r.Installer.Download(ctx, version, modules)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func (r *Refresher) logger() logrus.FieldLogger {
	if r.Log != nil {
		return r.Log
	}
	return logrus.StandardLogger()
}
