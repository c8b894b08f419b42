package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"freecrafter/internal/config"
)

// RepoPaths captures canonical locations inside a FreeCrafter checkout.
type RepoPaths struct {
	Root             string
	ConfigFile       string
	QtRoot           string
	ManifestFile     string
	InstallLock      string
	BuildDir         string
	LogsDir          string
	RequirementsFile string
}

// Resolve determines the repository root using the optional --repo flag or the
// current working directory when the flag is empty.
func Resolve(repoFlag string) (RepoPaths, error) {
	var (
		root string
		err  error
	)

	if repoFlag != "" {
		root, err = filepath.Abs(repoFlag)
	} else {
		root, err = os.Getwd()
	}
	if err != nil {
		return RepoPaths{}, fmt.Errorf("resolve repository root: %w", err)
	}

	return newRepoPaths(root), nil
}

func newRepoPaths(root string) RepoPaths {
	qtRoot := filepath.Join(root, "qt")
	return RepoPaths{
		Root:             root,
		ConfigFile:       filepath.Join(root, "fcboot.yaml"),
		QtRoot:           qtRoot,
		ManifestFile:     filepath.Join(qtRoot, "manifest.json"),
		InstallLock:      filepath.Join(qtRoot, ".install.lock"),
		BuildDir:         filepath.Join(root, "build"),
		LogsDir:          filepath.Join(root, "logs"),
		RequirementsFile: filepath.Join(root, "scripts", "requirements.txt"),
	}
}

// ApplyConfig overrides default locations with values from fcboot.yaml.
func ApplyConfig(rp RepoPaths, cfg config.Config) RepoPaths {
	if dir := strings.TrimSpace(cfg.Build.Dir); dir != "" {
		rp.BuildDir = rp.Abs(dir)
	}
	if req := strings.TrimSpace(cfg.Python.Requirements); req != "" {
		rp.RequirementsFile = rp.Abs(req)
	}
	return rp
}

// QtInstallDir is where aqtinstall places a given version/arch pair.
func (p RepoPaths) QtInstallDir(version, arch string) string {
	return filepath.Join(p.QtRoot, version, arch)
}

// Abs resolves value against the repository root unless it is absolute.
func (p RepoPaths) Abs(value string) string {
	if filepath.IsAbs(value) {
		return filepath.Clean(value)
	}
	return filepath.Join(p.Root, value)
}

// Rel returns path relative to the repository root when possible.
func (p RepoPaths) Rel(path string) string {
	rel, err := filepath.Rel(p.Root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}

// FileExists reports whether a path exists and is a regular file.
func FileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// DirExists reports whether a path exists and is a directory.
func DirExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}
