package env

import (
	"os"
	"path/filepath"
	"strings"
)

// Vars is a snapshot of named environment values for one build invocation.
type Vars map[string]string

// Snapshot captures the current process environment.
func Snapshot() Vars {
	environ := os.Environ()
	vars := make(Vars, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			vars[k] = v
		}
	}
	return vars
}

// With returns a copy of v overlaid with override. Neither input is modified.
func (v Vars) With(override map[string]string) Vars {
	out := make(Vars, len(v)+len(override))
	for k, val := range v {
		out[k] = val
	}
	for k, val := range override {
		out[k] = val
	}
	return out
}

// ConfigDir returns the directory holding qmk's administrative settings.
func ConfigDir() (string, error) {
	userConfigDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(userConfigDir, "qmk"), nil
}
