package qt

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"freecrafter/internal/environ"
	"freecrafter/internal/platform"
	"freecrafter/internal/runner"
)

// PrefixVars are consulted in order. Each may hold several entries joined by
// the platform list separator.
var PrefixVars = []string{"CMAKE_PREFIX_PATH", "QT_PREFIX_PATH", "QTDIR"}

// Qt6DirVar points at <prefix>/lib/cmake/Qt6.
const Qt6DirVar = "Qt6_DIR"

// QueryTools are asked for QT_INSTALL_PREFIX, newest names first.
var QueryTools = []string{"qtpaths6", "qtpaths", "qmake6", "qmake"}

var markerTools = []string{"qtpaths", "qtpaths6"}

// Detection names the prefix found and the probe that found it.
type Detection struct {
	Prefix string `json:"prefix"`
	Probe  string `json:"probe"`
}

// Probe produces candidate prefixes. Probes never validate; the detector
// applies ValidPrefix to every candidate.
type Probe struct {
	Name       string
	Candidates func(ctx context.Context) []string
}

// Detector searches for an installed Qt prefix.
type Detector struct {
	Platform platform.Platform
	Env      environ.Environ
	// InstallDir is the repo-local qt/<version>/<arch> directory.
	InstallDir string
	// ExtraRoots are scanned after the well-known roots.
	ExtraRoots []string
	Home       string
	Runner     runner.Runner
	LookPath   func(file string) (string, error)
	Log        logrus.FieldLogger
}

// ValidPrefix reports whether dir/bin holds one of the marker executables.
// Nothing else about dir is trusted.
func ValidPrefix(p platform.Platform, dir string) bool {
	if dir == "" {
		return false
	}
	bin := filepath.Join(dir, "bin")
	if info, err := os.Stat(bin); err != nil || !info.IsDir() {
		return false
	}
	for _, name := range markerTools {
		info, err := os.Stat(filepath.Join(bin, p.Executable(name)))
		if err == nil && !info.IsDir() {
			return true
		}
	}
	return false
}

// Detect returns the first valid prefix in probe order. ok is false when
// every probe is exhausted; that is not an error.
func (d *Detector) Detect(ctx context.Context) (Detection, bool) {
	log := d.logger()
	for _, probe := range d.Probes() {
		for _, candidate := range probe.Candidates(ctx) {
			if ValidPrefix(d.Platform, candidate) {
				log.Debugf("Qt prefix %s accepted (%s)", candidate, probe.Name)
				return Detection{Prefix: candidate, Probe: probe.Name}, true
			}
			log.Debugf("Qt prefix candidate %s rejected (%s)", candidate, probe.Name)
		}
	}
	return Detection{}, false
}

// Probes lists the search in precedence order.
func (d *Detector) Probes() []Probe {
	probes := make([]Probe, 0, len(PrefixVars)+4)
	for _, name := range PrefixVars {
		probes = append(probes, d.envProbe(name))
	}
	probes = append(probes,
		Probe{Name: "env:" + Qt6DirVar, Candidates: d.qt6DirCandidates},
		Probe{Name: "install-dir", Candidates: func(context.Context) []string {
			if d.InstallDir == "" {
				return nil
			}
			return []string{d.InstallDir}
		}},
		Probe{Name: "query-tool", Candidates: d.queryCandidates},
		Probe{Name: "search-roots", Candidates: func(context.Context) []string {
			var out []string
			for _, root := range d.SearchRoots() {
				out = append(out, scanRoot(root)...)
			}
			return out
		}},
	)
	return probes
}

func (d *Detector) envProbe(name string) Probe {
	return Probe{
		Name: "env:" + name,
		Candidates: func(context.Context) []string {
			return environ.SplitList(d.Env.Get(name), d.Platform.ListSeparator)
		},
	}
}

func (d *Detector) qt6DirCandidates(context.Context) []string {
	var out []string
	for _, entry := range environ.SplitList(d.Env.Get(Qt6DirVar), d.Platform.ListSeparator) {
		out = append(out, filepath.Clean(filepath.Join(entry, "..", "..", "..")))
	}
	return out
}

func (d *Detector) queryCandidates(ctx context.Context) []string {
	if d.Runner == nil {
		return nil
	}
	lookPath := d.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	log := d.logger()

	var out []string
	for _, tool := range QueryTools {
		path, err := lookPath(d.Platform.Executable(tool))
		if err != nil {
			continue
		}
		res, err := d.Runner.Run(ctx, path, []string{"-query", "QT_INSTALL_PREFIX"}, runner.RunOptions{Env: d.Env.List()})
		if err != nil || res.ExitCode != 0 {
			log.Debugf("Skipping %s: %v", path, err)
			continue
		}
		prefix := firstLine(string(res.Stdout))
		if prefix != "" {
			out = append(out, filepath.FromSlash(prefix))
		}
	}
	return out
}

// SearchRoots returns the well-known installation roots followed by any
// configured extras.
func (d *Detector) SearchRoots() []string {
	var roots []string
	home := d.Home
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	if home != "" {
		roots = append(roots, filepath.Join(home, "Qt"))
	}
	if d.Platform.IsWindows() {
		roots = append(roots, "C:/Qt")
	}
	roots = append(roots, "/opt/Qt")
	if d.Platform.IsMac() {
		roots = append(roots, "/Applications/Qt")
	}
	return append(roots, d.ExtraRoots...)
}

// scanRoot lists <root>/<6.x>/<arch> directories, newest version first.
func scanRoot(root string) []string {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil
	}
	var versions []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if ok, _ := filepath.Match("6.*", entry.Name()); ok {
			versions = append(versions, entry.Name())
		}
	}
	sort.SliceStable(versions, func(i, j int) bool {
		return newerVersion(versions[i], versions[j])
	})

	var out []string
	for _, version := range versions {
		archEntries, err := os.ReadDir(filepath.Join(root, version))
		if err != nil {
			continue
		}
		for _, arch := range archEntries {
			if arch.IsDir() {
				out = append(out, filepath.Join(root, version, arch.Name()))
			}
		}
	}
	return out
}

func newerVersion(a, b string) bool {
	aParts := numericParts(a)
	bParts := numericParts(b)
	for len(aParts) < len(bParts) {
		aParts = append(aParts, 0)
	}
	for len(bParts) < len(aParts) {
		bParts = append(bParts, 0)
	}
	for i := range aParts {
		if aParts[i] != bParts[i] {
			return aParts[i] > bParts[i]
		}
	}
	return a > b
}

func numericParts(version string) []int {
	var parts []int
	current := strings.Builder{}
	for _, r := range version {
		if r >= '0' && r <= '9' {
			current.WriteRune(r)
			continue
		}
		if current.Len() > 0 {
			val, _ := strconv.Atoi(current.String())
			parts = append(parts, val)
			current.Reset()
		}
	}
	if current.Len() > 0 {
		val, _ := strconv.Atoi(current.String())
		parts = append(parts, val)
	}
	return parts
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(line)
}

func (d *Detector) logger() logrus.FieldLogger {
	if d.Log != nil {
		return d.Log
	}
	return logrus.StandardLogger()
}
