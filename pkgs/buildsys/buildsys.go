// Package buildsys holds the process boundary shared by build helpers:
// launching one tokenized command line against a working directory and an
// environment snapshot.
package buildsys

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"sort"
	"strings"
	"time"
)

// Proc describes one external process invocation.
type Proc struct {
	Args   []string          // Args[0] is the program
	Env    map[string]string // overlaid on the launcher's base environment
	Dir    string            // working directory, "" means the current one
	Stdout io.Writer         // receives both stdout and stderr; nil discards
}

// Launcher runs processes on behalf of a build.
type Launcher interface {
	// Launch runs p to completion and returns its exit code. A non-zero exit
	// is not an error. err is non-nil when the process could not be started
	// or waited for, and wraps ctx.Err() when the run was cancelled.
	Launch(ctx context.Context, p *Proc) (exitCode int, err error)

	// IsUnix reports whether processes run on a POSIX platform.
	IsUnix() bool
}

// LocalLauncher runs processes on the local machine.
type LocalLauncher struct {
	// WaitDelay bounds how long to wait for output to drain after the
	// process group was killed on cancellation.
	WaitDelay time.Duration
}

var _ Launcher = (*LocalLauncher)(nil)

// IsUnix reports whether the host is not Windows.
func (l *LocalLauncher) IsUnix() bool {
	return runtime.GOOS != "windows"
}

// Launch starts p in its own process group and waits for it. When ctx is
// cancelled the whole group is killed and (-1, ctx.Err()) is returned.
func (l *LocalLauncher) Launch(ctx context.Context, p *Proc) (int, error) {
	if len(p.Args) == 0 {
		return -1, errors.New("buildsys: empty command")
	}
	if err := ctx.Err(); err != nil {
		return -1, err
	}
	cmd := exec.CommandContext(ctx, p.Args[0], p.Args[1:]...)
	cmd.Dir = p.Dir
	if p.Stdout != nil {
		cmd.Stdout = p.Stdout
		cmd.Stderr = p.Stdout
	}
	if len(p.Env) > 0 {
		cmd.Env = mergeEnv(os.Environ(), p.Env)
	}
	setProcessGroup(cmd)
	cmd.Cancel = func() error {
		return killProcessGroup(cmd)
	}
	cmd.WaitDelay = l.WaitDelay
	if cmd.WaitDelay == 0 {
		cmd.WaitDelay = 5 * time.Second
	}

	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return -1, fmt.Errorf("%s: %w", p.Args[0], ctxErr)
	}
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// ExitCode is -1 for signal-terminated processes.
		return exitErr.ExitCode(), nil
	}
	return -1, err
}

// mergeEnv overlays override on base ("KEY=VALUE" pairs) and returns the
// result sorted by key.
func mergeEnv(base []string, override map[string]string) []string {
	envMap := make(map[string]string, len(base)+len(override))
	for _, kv := range base {
		if k, v, ok := strings.Cut(kv, "="); ok {
			envMap[k] = v
		}
	}
	for k, v := range override {
		envMap[k] = v
	}
	keys := make([]string, 0, len(envMap))
	for k := range envMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+envMap[k])
	}
	return out
}
