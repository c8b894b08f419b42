package environ

import (
	"os"
	"sort"
	"strings"
)

// Environ is a snapshot of process environment variables. Every subprocess
// gets its own copy; snapshots are never shared between invocations.
type Environ map[string]string

// Current snapshots the environment of the running process.
func Current() Environ {
	return FromList(os.Environ())
}

// FromList parses KEY=VALUE pairs. Later duplicates win, matching how
// exec.Cmd resolves them.
func FromList(list []string) Environ {
	env := make(Environ, len(list))
	for _, kv := range list {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			continue
		}
		env[key] = value
	}
	return env
}

// Clone returns an independent copy.
func (e Environ) Clone() Environ {
	out := make(Environ, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// Get returns the value stored under key, or "" when unset.
func (e Environ) Get(key string) string {
	return e[key]
}

// Lookup mirrors os.LookupEnv.
func (e Environ) Lookup(key string) (string, bool) {
	v, ok := e[key]
	return v, ok
}

// List renders the snapshot as sorted KEY=VALUE pairs for exec.Cmd.Env.
func (e Environ) List() []string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+e[k])
	}
	return out
}

// PrependPath returns a copy with dir placed first on the executable search
// path. An existing PATH key is matched case-insensitively so the Windows
// spelling "Path" is updated in place.
func (e Environ) PrependPath(dir, sep string) Environ {
	out := e.Clone()
	key := "PATH"
	for k := range out {
		if strings.EqualFold(k, "PATH") {
			key = k
			break
		}
	}
	if current := out[key]; current != "" {
		out[key] = dir + sep + current
	} else {
		out[key] = dir
	}
	return out
}

// SplitList splits a PATH-like value, dropping empty entries.
func SplitList(value, sep string) []string {
	var out []string
	for _, part := range strings.Split(value, sep) {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
