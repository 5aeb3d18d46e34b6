package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goplus/qmk/pkgs/buildsys/qmake"
)

// Job is a build job definition: the project settings plus variables added
// to the build environment.
type Job struct {
	Project qmake.Project
	Env     map[string]string
}

type jobFile struct {
	ProjectFile    string            `yaml:"projectFile"`
	ExtraArguments string            `yaml:"extraArguments"`
	ExtraTargets   targetList        `yaml:"extraTargets"`
	ShadowBuildDir string            `yaml:"shadowBuildDir"`
	UseShadowBuild bool              `yaml:"useShadowBuild"`
	Env            map[string]string `yaml:"env"`
}

// targetList accepts a YAML sequence or a whitespace separated string.
type targetList []string

func (t *targetList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		*t = strings.Fields(value.Value)
		return nil
	}
	var list []string
	if err := value.Decode(&list); err != nil {
		return err
	}
	*t = list
	return nil
}

// LoadJob reads and validates a job file.
func LoadJob(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	job, err := ParseJob(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return job, nil
}

// ParseJob decodes and validates a YAML job document.
func ParseJob(data []byte) (*Job, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("empty job definition")
	}
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if err := validateJob(doc); err != nil {
		return nil, err
	}
	var f jobFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return &Job{
		Project: qmake.Project{
			ProjectFile:    f.ProjectFile,
			ExtraArguments: f.ExtraArguments,
			ExtraTargets:   []string(f.ExtraTargets),
			ShadowBuildDir: f.ShadowBuildDir,
			UseShadowBuild: f.UseShadowBuild,
		},
		Env: f.Env,
	}, nil
}

// CheckProjectFile validates a project file path. err is set for values
// that cannot be built; warning is set for values that are accepted but
// suspicious.
func CheckProjectFile(path string) (warning string, err error) {
	if path == "" {
		return "", errors.New("please set a project file")
	}
	if info, statErr := os.Stat(path); statErr == nil && info.IsDir() {
		return "", fmt.Errorf("project file %s is a directory", path)
	}
	name := filepath.Base(path)
	if strings.HasSuffix(name, ".pri") {
		return "", fmt.Errorf("project file %s: project includes cannot be used to build a project", name)
	}
	if !strings.HasSuffix(name, ".pro") {
		return fmt.Sprintf("project file %s does not have a .pro extension", name), nil
	}
	return "", nil
}
