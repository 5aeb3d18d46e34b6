// Package config loads qmk's administrative tool settings and job
// definitions.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/goplus/qmk/internal/env"
	"github.com/goplus/qmk/pkgs/buildsys/qmake"
)

const toolsFile = "tools.yaml"

// DefaultToolsPath returns where the tool configuration is kept by default.
func DefaultToolsPath() (string, error) {
	dir, err := env.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, toolsFile), nil
}

// LoadTools reads the tool configuration at path. A missing file yields
// qmake.DefaultTools; keys absent from the file keep their defaults.
func LoadTools(path string) (qmake.Tools, error) {
	tools := qmake.DefaultTools()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return tools, nil
	}
	if err != nil {
		return tools, err
	}
	if err := yaml.Unmarshal(data, &tools); err != nil {
		return qmake.DefaultTools(), fmt.Errorf("%s: %w", path, err)
	}
	return tools, nil
}

// SaveTools writes tools to path, replacing the previous file atomically so
// concurrent builds always read a complete configuration.
func SaveTools(path string, tools qmake.Tools) error {
	data, err := yaml.Marshal(&tools)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
