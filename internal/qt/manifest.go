package qt

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const DefaultVersion = "6.5.3"

// DefaultModules are the aqtinstall add-on modules requested when the
// manifest names none.
var DefaultModules = []string{"qtimageformats", "qtshadertools"}

// Manifest is the persisted record at qt/manifest.json.
type Manifest struct {
	Version     string   `json:"version"`
	Modules     []string `json:"modules"`
	Tools       []string `json:"tools"`
	LastUpdated string   `json:"last_updated,omitempty"`
}

// LoadManifest reads path. A missing or unparseable file yields an empty
// manifest; parse failures are logged as warnings and never returned.
func LoadManifest(path string, log logrus.FieldLogger) Manifest {
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warnf("Unable to read %s: %v", path, err)
		}
		return Manifest{}
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		log.Warnf("Unable to parse %s: %v", path, err)
		return Manifest{}
	}
	return m
}

// WithDefaults fills every missing field with the built-in default.
func (m Manifest) WithDefaults() Manifest {
	if strings.TrimSpace(m.Version) == "" {
		m.Version = DefaultVersion
	}
	if len(m.Modules) == 0 {
		m.Modules = append([]string(nil), DefaultModules...)
	}
	m.Modules = NormalizeModules(m.Modules)
	if m.Tools == nil {
		m.Tools = []string{}
	}
	return m
}

// NormalizeModules trims names, drops blanks and duplicates, and keeps the
// first-seen order.
func NormalizeModules(modules []string) []string {
	seen := make(map[string]struct{}, len(modules))
	out := make([]string, 0, len(modules))
	for _, module := range modules {
		key := strings.TrimSpace(module)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}

// Stamp formats t the way last_updated is recorded.
func Stamp(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format("2006-01-02T15:04:05Z")
}

// SaveManifest atomically writes m with two-space indentation and a trailing
// newline.
func SaveManifest(path string, m Manifest) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("prepare manifest directory: %w", err)
	}

	buf, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	buf = append(buf, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(path), "manifest-*.json")
	if err != nil {
		return fmt.Errorf("create temp manifest: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		return fmt.Errorf("write manifest temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close manifest temp: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace manifest: %w", err)
	}
	return nil
}
