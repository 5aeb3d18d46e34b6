package qmake

import (
	"context"
	"io/fs"
	"strings"
	"time"

	"github.com/goplus/qmk/pkgs/buildsys"
)

// fakeLauncher implements buildsys.Launcher, recording every command line.
type fakeLauncher struct {
	windows bool
	calls   [][]string
	dirs    []string
	envs    []map[string]string
	codes   map[string]int   // exit code by joined args
	errs    map[string]error // launch error by joined args
	onRun   func(line string)
}

func (f *fakeLauncher) IsUnix() bool { return !f.windows }

func (f *fakeLauncher) Launch(ctx context.Context, p *buildsys.Proc) (int, error) {
	line := strings.Join(p.Args, " ")
	f.calls = append(f.calls, append([]string(nil), p.Args...))
	f.dirs = append(f.dirs, p.Dir)
	f.envs = append(f.envs, p.Env)
	if f.onRun != nil {
		f.onRun(line)
	}
	if err := f.errs[line]; err != nil {
		return -1, err
	}
	if err := ctx.Err(); err != nil {
		return -1, err
	}
	return f.codes[line], nil
}

func (f *fakeLauncher) lines() []string {
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = strings.Join(c, " ")
	}
	return out
}

// fakeFS implements StatFS over a fixed set of paths.
type fakeFS struct {
	files map[string]bool
	errs  map[string]error
}

func (m fakeFS) Stat(name string) (fs.FileInfo, error) {
	if err := m.errs[name]; err != nil {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: err}
	}
	if m.files[name] {
		return fakeInfo(name), nil
	}
	return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
}

type fakeInfo string

func (i fakeInfo) Name() string       { return string(i) }
func (i fakeInfo) Size() int64        { return 0 }
func (i fakeInfo) Mode() fs.FileMode  { return 0o755 }
func (i fakeInfo) ModTime() time.Time { return time.Time{} }
func (i fakeInfo) IsDir() bool        { return false }
func (i fakeInfo) Sys() any           { return nil }
