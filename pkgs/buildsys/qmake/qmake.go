// Package qmake drives a qmake + make build: it resolves the qmake binary,
// derives the (shadow) build directory and runs qmake, make and any extra
// make targets in order, stopping at the first failure.
package qmake

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/goplus/qmk/internal/env"
	"github.com/goplus/qmk/internal/logging"
	"github.com/goplus/qmk/pkgs/buildsys"
)

// ErrNoProjectFile is returned when the project file expands to nothing.
var ErrNoProjectFile = errors.New("no project file set")

// Builder runs qmake builds. It keeps no per-build state, so one Builder
// may serve concurrent builds.
type Builder struct {
	Tools     Tools             // snapshot of the tool configuration
	Launcher  buildsys.Launcher // nil means a LocalLauncher
	FS        StatFS            // where tool paths are checked, nil means LocalFS
	Workspace string            // relative project files resolve against it; "" is the cwd
	Stdout    io.Writer         // process output sink, nil means os.Stdout
	Logger    *slog.Logger
}

func (b *Builder) launcher() buildsys.Launcher {
	if b.Launcher != nil {
		return b.Launcher
	}
	return &buildsys.LocalLauncher{}
}

// Plan resolves project against vars without running anything or creating
// directories.
func (b *Builder) Plan(ctx context.Context, project Project, vars env.Vars) (*Plan, error) {
	windows := !b.launcher().IsUnix()

	projectFile, err := b.projectFile(project.ProjectFile, vars)
	if err != nil {
		return nil, err
	}
	qmakeBin, err := ResolveQmake(vars, b.Tools.QmakePath, windows, b.FS)
	if err != nil {
		return nil, err
	}

	plan := &Plan{
		Qmake:       qmakeBin,
		ProjectFile: projectFile,
		ShadowDir:   env.Expand(project.ShadowBuildDir, vars),
		Shadow:      project.UseShadowBuild,
		Windows:     windows,
	}
	plan.WorkDir = buildDir(filepath.Dir(projectFile), plan.ShadowDir)

	plan.Make = env.Expand(b.Tools.MakeCmd(windows), vars)
	if strings.TrimSpace(plan.Make) == "" {
		return nil, fmt.Errorf("no make command configured for %s", platformName(windows))
	}

	extra := env.Expand(project.ExtraArguments, vars)
	gen := Step{
		Kind: StepGenerate,
		Line: qmakeCall(qmakeBin, projectFile, extra),
		Args: []string{qmakeBin, "-r", projectFile},
	}
	if strings.TrimSpace(extra) != "" {
		extraArgs, err := buildsys.Tokenize(extra, windows)
		if err != nil {
			return nil, fmt.Errorf("%s extra arguments: %w", gen.String(), err)
		}
		gen.Args = append(gen.Args, extraArgs...)
	}
	if err := plan.add(gen); err != nil {
		return nil, err
	}
	if err := plan.add(Step{Kind: StepBuild, Line: plan.Make}); err != nil {
		return nil, err
	}
	for _, target := range project.ExtraTargets {
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}
		if err := plan.add(Step{Kind: StepTarget, Target: target, Line: plan.Make + " " + target}); err != nil {
			return nil, err
		}
	}
	return plan, nil
}

// Perform plans and runs one build. Every failure is reported through the
// returned Result.
func (b *Builder) Perform(ctx context.Context, project Project, vars env.Vars) *Result {
	logger := logging.Ensure(b.Logger)

	plan, err := b.Plan(ctx, project, vars)
	if err != nil {
		var toolErr *ToolError
		if errors.As(err, &toolErr) {
			logger.Error("cannot resolve qmake", "qmake_path", b.Tools.QmakePath, "path", toolErr.Path, "error", toolErr.Err)
		} else {
			logger.Error("invalid build configuration", "project_file", project.ProjectFile, "error", err)
		}
		return &Result{Outcome: Failed, ExitCode: -1, Err: err}
	}
	logger.Info("module", "source_dir", filepath.Dir(plan.ProjectFile), "qmake", plan.Qmake)

	if plan.Shadow {
		logger.Info("using shadow build", "dir", plan.WorkDir)
	}
	workDir, err := ResolveBuildDir(filepath.Dir(plan.ProjectFile), plan.ShadowDir, plan.Shadow)
	if err != nil {
		logger.Error("cannot create build directory", "project_file", project.ProjectFile, "error", err)
		return &Result{Outcome: Failed, Plan: plan, ExitCode: -1, Err: err}
	}

	stdout := b.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	launcher := b.launcher()
	for i := range plan.Steps {
		step := &plan.Steps[i]
		if err := ctx.Err(); err != nil {
			logger.Warn("build interrupted", "before", step.String())
			return &Result{Outcome: Interrupted, Plan: plan, Step: step, ExitCode: -1, Err: err}
		}
		if step.Kind == StepGenerate {
			logger.Info("qmake call", "command", step.Line)
		} else {
			logger.Info("running", "step", step.String(), "command", step.Line)
		}

		code, err := launcher.Launch(ctx, &buildsys.Proc{
			Args:   step.Args,
			Env:    vars,
			Dir:    workDir,
			Stdout: stdout,
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				logger.Warn("build interrupted", "step", step.String(), "error", err)
				return &Result{Outcome: Interrupted, Plan: plan, Step: step, ExitCode: -1, Err: err}
			}
			logger.Error("cannot run command", "step", step.String(), "command", step.Line, "dir", workDir, "error", err)
			return &Result{Outcome: Failed, Plan: plan, Step: step, ExitCode: -1, Err: err}
		}
		if code != 0 {
			logger.Error("step failed", "step", step.String(), "exit_code", code)
			return &Result{Outcome: Failed, Plan: plan, Step: step, ExitCode: code}
		}
	}
	return &Result{Outcome: Success, Plan: plan}
}

func (b *Builder) projectFile(raw string, vars env.Vars) (string, error) {
	name := strings.TrimSpace(env.Expand(raw, vars))
	if name == "" {
		return "", ErrNoProjectFile
	}
	if !filepath.IsAbs(name) {
		name = filepath.Join(b.Workspace, name)
	}
	return filepath.Abs(name)
}

// qmakeCall assembles the generator command line as displayed in logs and
// plans. The extra arguments clause is left out when empty.
func qmakeCall(qmakeBin, projectFile, extraArguments string) string {
	if strings.ContainsAny(qmakeBin, " \t") {
		qmakeBin = `"` + qmakeBin + `"`
	}
	call := qmakeBin + ` -r "` + projectFile + `"`
	if strings.TrimSpace(extraArguments) != "" {
		call += " " + extraArguments
	}
	return call
}

// add appends step, tokenizing its line unless the arguments are already set.
func (p *Plan) add(step Step) error {
	if step.Args == nil {
		args, err := buildsys.Tokenize(step.Line, p.Windows)
		if err != nil {
			return fmt.Errorf("%s command: %w", step.String(), err)
		}
		step.Args = args
	}
	p.Steps = append(p.Steps, step)
	return nil
}

func platformName(windows bool) string {
	if windows {
		return "windows"
	}
	return "unix"
}
