package qmake

import (
	"os"
	"path/filepath"
)

// ResolveBuildDir returns the directory the build commands run in.
//
// An empty shadowDir means sourceDir itself; an absolute shadowDir is used
// as is; anything else is relative to sourceDir. With useShadow the
// directory and its missing parents are created. Without it nothing is
// created, even when shadowDir is set.
func ResolveBuildDir(sourceDir, shadowDir string, useShadow bool) (string, error) {
	dir := buildDir(sourceDir, shadowDir)
	if !useShadow {
		return dir, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &DirError{Path: dir, Err: err}
	}
	return dir, nil
}

func buildDir(sourceDir, shadowDir string) string {
	if shadowDir == "" {
		return sourceDir
	}
	if filepath.IsAbs(shadowDir) {
		return filepath.Clean(shadowDir)
	}
	return filepath.Join(sourceDir, shadowDir)
}
