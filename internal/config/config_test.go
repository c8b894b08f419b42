package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"freecrafter/internal/errs"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fcboot.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func mapEnv(vars map[string]string) func(string) string {
	return func(name string) string { return vars[name] }
}

func TestLoadMissingReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Retry.Attempts != 3 || cfg.Retry.Delay != time.Second {
		t.Fatalf("unexpected retry defaults %+v", cfg.Retry)
	}
	if cfg.Version != 1 {
		t.Fatalf("version = %d", cfg.Version)
	}
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "build:\n  type: Debug\n  generator: Ninja\nretry:\n  delay: 250ms\n")
	cfg, err := LoadWithEnv(path, mapEnv(nil))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Build.Type != "Debug" || cfg.Build.Generator != "Ninja" {
		t.Fatalf("build = %+v", cfg.Build)
	}
	if cfg.Retry.Attempts != 3 {
		t.Fatalf("attempts = %d, want default", cfg.Retry.Attempts)
	}
	if cfg.Retry.Delay != 250*time.Millisecond {
		t.Fatalf("delay = %s", cfg.Retry.Delay)
	}
}

func TestLoadExpandsVariables(t *testing.T) {
	path := writeConfig(t, `
build:
  dir: ${OUT}/build
  cmake_args:
    - -DFC_SDK=$SDK
qt:
  search_roots:
    - $SDK/Qt
python:
  executable: ${PY:-python3}
`)
	cfg, err := LoadWithEnv(path, mapEnv(map[string]string{"OUT": "/tmp/out", "SDK": "/opt/sdk"}))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Build.Dir != "/tmp/out/build" {
		t.Fatalf("dir = %q", cfg.Build.Dir)
	}
	if !reflect.DeepEqual(cfg.Build.CMakeArgs, []string{"-DFC_SDK=/opt/sdk"}) {
		t.Fatalf("cmake args = %v", cfg.Build.CMakeArgs)
	}
	if !reflect.DeepEqual(cfg.Qt.SearchRoots, []string{"/opt/sdk/Qt"}) {
		t.Fatalf("search roots = %v", cfg.Qt.SearchRoots)
	}
	if cfg.Python.Executable != "python3" {
		t.Fatalf("python = %q", cfg.Python.Executable)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"bad yaml":       "build: [",
		"bad attempts":   "retry:\n  attempts: -1\n",
		"negative delay": "retry:\n  delay: -1s\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadWithEnv(writeConfig(t, body), mapEnv(nil))
			if !errs.IsConfig(err) {
				t.Fatalf("err = %v, want config error", err)
			}
		})
	}
}

func TestMarshalRoundTripsThroughLoad(t *testing.T) {
	cfg := Default()
	cfg.Build.Generator = "Ninja"
	data, err := cfg.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	path := writeConfig(t, string(data))
	loaded, err := LoadWithEnv(path, mapEnv(nil))
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Build.Generator != "Ninja" {
		t.Fatalf("generator = %q", loaded.Build.Generator)
	}
}
