package qmake

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goplus/qmk/internal/env"
	"github.com/goplus/qmk/internal/logging"
)

func newTestBuilder(t *testing.T, l *fakeLauncher) (*Builder, string) {
	t.Helper()
	ws := t.TempDir()
	return &Builder{
		Tools:     DefaultTools(),
		Launcher:  l,
		FS:        fakeFS{},
		Workspace: ws,
		Logger:    logging.Discard(),
	}, ws
}

func TestQmakeCall(t *testing.T) {
	tests := []struct {
		extra string
		want  string
	}{
		{"", `qmake -r "/src/app.pro"`},
		{"   ", `qmake -r "/src/app.pro"`},
		{"CONFIG+=debug", `qmake -r "/src/app.pro" CONFIG+=debug`},
		{"CONFIG+=debug DEFINES+=X", `qmake -r "/src/app.pro" CONFIG+=debug DEFINES+=X`},
	}
	for _, tt := range tests {
		if got := qmakeCall("qmake", "/src/app.pro", tt.extra); got != tt.want {
			t.Errorf("qmakeCall(extra=%q) = %q, want %q", tt.extra, got, tt.want)
		}
	}

	got := qmakeCall(`C:\Program Files\Qt\bin\qmake.exe`, `C:\src\app.pro`, "")
	if want := `"C:\Program Files\Qt\bin\qmake.exe" -r "C:\src\app.pro"`; got != want {
		t.Errorf("qmakeCall(spaced bin) = %q, want %q", got, want)
	}
}

func TestPlanGeneratorCommand(t *testing.T) {
	l := &fakeLauncher{}
	b, ws := newTestBuilder(t, l)

	plan, err := b.Plan(context.Background(), Project{
		ProjectFile:    "app.pro",
		ExtraArguments: "CONFIG+=debug",
	}, env.Vars{})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	pro := filepath.Join(ws, "app.pro")
	gen := plan.Steps[0]
	if want := `qmake -r "` + pro + `" CONFIG+=debug`; gen.Line != want {
		t.Errorf("generator line = %q, want %q", gen.Line, want)
	}
	if diff := cmp.Diff([]string{"qmake", "-r", pro, "CONFIG+=debug"}, gen.Args); diff != "" {
		t.Errorf("generator args mismatch (-want +got):\n%s", diff)
	}
	if plan.WorkDir != ws {
		t.Errorf("WorkDir = %q, want %q", plan.WorkDir, ws)
	}
	if len(l.calls) != 0 {
		t.Errorf("Plan launched %d commands", len(l.calls))
	}
}

func TestPlanSteps(t *testing.T) {
	b, ws := newTestBuilder(t, &fakeLauncher{})
	b.Tools = Tools{MakeCmdUnix: "$MAKE -j${JOBS}", MakeCmdWindows: "nmake"}

	vars := env.Vars{"MAKE": "gmake", "JOBS": "8", "SUB": "src", "ARGS": "CONFIG+=release"}
	project := Project{
		ProjectFile:    " ${SUB}/my app.pro ",
		ExtraArguments: "$ARGS",
		ExtraTargets:   []string{"check", " ", "install"},
		ShadowBuildDir: "../build-$JOBS",
	}
	plan, err := b.Plan(context.Background(), project, vars)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	pro := filepath.Join(ws, "src", "my app.pro")
	if plan.ProjectFile != pro {
		t.Errorf("ProjectFile = %q, want %q", plan.ProjectFile, pro)
	}
	if want := filepath.Join(ws, "build-8"); plan.WorkDir != want {
		t.Errorf("WorkDir = %q, want %q", plan.WorkDir, want)
	}
	want := [][]string{
		{"qmake", "-r", pro, "CONFIG+=release"},
		{"gmake", "-j8"},
		{"gmake", "-j8", "check"},
		{"gmake", "-j8", "install"},
	}
	var got [][]string
	for _, s := range plan.Steps {
		got = append(got, s.Args)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("plan args mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"check", " ", "install"}, project.ExtraTargets); diff != "" {
		t.Errorf("project modified (-want +got):\n%s", diff)
	}
}

func TestPlanErrors(t *testing.T) {
	b, _ := newTestBuilder(t, &fakeLauncher{})

	if _, err := b.Plan(context.Background(), Project{ProjectFile: "  "}, nil); !errors.Is(err, ErrNoProjectFile) {
		t.Errorf("blank project file: err = %v, want ErrNoProjectFile", err)
	}

	b.Tools.MakeCmdUnix = ""
	if _, err := b.Plan(context.Background(), Project{ProjectFile: "app.pro"}, nil); err == nil {
		t.Error("empty make command: want error")
	}

	b.Tools = DefaultTools()
	if _, err := b.Plan(context.Background(), Project{ProjectFile: "app.pro", ExtraArguments: "A=1; rm -rf /"}, nil); err == nil {
		t.Error("shell operator in extra arguments: want error")
	}
}

func TestPerformSuccessNoTargets(t *testing.T) {
	l := &fakeLauncher{}
	b, ws := newTestBuilder(t, l)

	res := b.Perform(context.Background(), Project{ProjectFile: "app.pro"}, env.Vars{"K": "V"})
	if !res.OK() {
		t.Fatalf("Perform = %v (%v), want success", res.Outcome, res.Err)
	}
	want := []string{"qmake -r " + filepath.Join(ws, "app.pro"), "make"}
	if diff := cmp.Diff(want, l.lines()); diff != "" {
		t.Errorf("commands mismatch (-want +got):\n%s", diff)
	}
	for i, dir := range l.dirs {
		if dir != ws {
			t.Errorf("call %d ran in %q, want %q", i, dir, ws)
		}
		if l.envs[i]["K"] != "V" {
			t.Errorf("call %d env = %v", i, l.envs[i])
		}
	}
}

func TestPerformGeneratorFailure(t *testing.T) {
	b, ws := newTestBuilder(t, nil)
	pro := filepath.Join(ws, "app.pro")
	l := &fakeLauncher{codes: map[string]int{"qmake -r " + pro: 1}}
	b.Launcher = l

	res := b.Perform(context.Background(), Project{
		ProjectFile:  "app.pro",
		ExtraTargets: []string{"install"},
	}, nil)
	if res.Outcome != Failed {
		t.Fatalf("Outcome = %v, want failed", res.Outcome)
	}
	if res.Step == nil || res.Step.Kind != StepGenerate || res.ExitCode != 1 {
		t.Errorf("failed at %v with code %d, want qmake with 1", res.Step, res.ExitCode)
	}
	if len(l.calls) != 1 {
		t.Errorf("ran %d commands after qmake failed: %v", len(l.calls), l.lines())
	}
}

func TestPerformBuildFailure(t *testing.T) {
	l := &fakeLauncher{codes: map[string]int{"make": 2}}
	b, _ := newTestBuilder(t, l)

	res := b.Perform(context.Background(), Project{ProjectFile: "app.pro", ExtraTargets: []string{"install"}}, nil)
	if res.Outcome != Failed || res.Step.Kind != StepBuild || res.ExitCode != 2 {
		t.Fatalf("result = %v at %v code %d, want failed at make code 2", res.Outcome, res.Step, res.ExitCode)
	}
	if len(l.calls) != 2 {
		t.Errorf("ran %v, want qmake and make only", l.lines())
	}
}

func TestPerformTargetFailureStops(t *testing.T) {
	l := &fakeLauncher{codes: map[string]int{"make clean": 2}}
	b, ws := newTestBuilder(t, l)

	res := b.Perform(context.Background(), Project{
		ProjectFile:  "app.pro",
		ExtraTargets: []string{"clean", "install"},
	}, nil)
	if res.Outcome != Failed {
		t.Fatalf("Outcome = %v, want failed", res.Outcome)
	}
	if res.Step.Kind != StepTarget || res.Step.Target != "clean" || res.ExitCode != 2 {
		t.Errorf("failed at %v code %d, want target clean code 2", res.Step, res.ExitCode)
	}
	want := []string{"qmake -r " + filepath.Join(ws, "app.pro"), "make", "make clean"}
	if diff := cmp.Diff(want, l.lines()); diff != "" {
		t.Errorf("commands mismatch (-want +got):\n%s", diff)
	}
}

func TestPerformNegativeExitCode(t *testing.T) {
	l := &fakeLauncher{codes: map[string]int{"make": -1}}
	b, _ := newTestBuilder(t, l)

	res := b.Perform(context.Background(), Project{ProjectFile: "app.pro"}, nil)
	if res.Outcome != Failed || res.ExitCode != -1 {
		t.Errorf("result = %v code %d, want failed code -1", res.Outcome, res.ExitCode)
	}
}

func TestPerformTargetsInOrder(t *testing.T) {
	l := &fakeLauncher{}
	b, _ := newTestBuilder(t, l)

	res := b.Perform(context.Background(), Project{ProjectFile: "app.pro", ExtraTargets: []string{"docs", "check", "install"}}, nil)
	if !res.OK() {
		t.Fatalf("Perform = %v (%v)", res.Outcome, res.Err)
	}
	if diff := cmp.Diff([]string{"make", "make docs", "make check", "make install"}, l.lines()[1:]); diff != "" {
		t.Errorf("target order mismatch (-want +got):\n%s", diff)
	}
}

func TestPerformWindows(t *testing.T) {
	l := &fakeLauncher{windows: true}
	b, _ := newTestBuilder(t, l)
	b.FS = fakeFS{files: map[string]bool{`C:\Qt\bin\qmake.exe`: true}}
	b.Tools = Tools{MakeCmdUnix: "make", MakeCmdWindows: "%MAKE% /nologo"}

	res := b.Perform(context.Background(), Project{ProjectFile: "app.pro", ExtraTargets: []string{"install"}},
		env.Vars{"QTDIR": `C:\Qt`, "MAKE": "nmake"})
	if !res.OK() {
		t.Fatalf("Perform = %v (%v)", res.Outcome, res.Err)
	}
	if got := l.calls[0][0]; got != `C:\Qt\bin\qmake.exe` {
		t.Errorf("qmake = %q, want QTDIR qmake.exe", got)
	}
	if diff := cmp.Diff([]string{"nmake /nologo", "nmake /nologo install"}, l.lines()[1:]); diff != "" {
		t.Errorf("make commands mismatch (-want +got):\n%s", diff)
	}
}

func TestPerformQmakePathWithSpaces(t *testing.T) {
	const bin = `C:\Program Files\Qt\bin\qmake.exe`
	l := &fakeLauncher{windows: true}
	b, ws := newTestBuilder(t, l)
	b.FS = fakeFS{files: map[string]bool{bin: true}}

	res := b.Perform(context.Background(), Project{ProjectFile: "app.pro", ExtraArguments: `'C:\out dir' CONFIG+=release`},
		env.Vars{"QTDIR": `C:\Program Files\Qt`})
	if !res.OK() {
		t.Fatalf("Perform = %v (%v)", res.Outcome, res.Err)
	}
	want := []string{bin, "-r", filepath.Join(ws, "app.pro"), `C:\out dir`, "CONFIG+=release"}
	if diff := cmp.Diff(want, l.calls[0]); diff != "" {
		t.Errorf("generator args mismatch (-want +got):\n%s", diff)
	}
	if got := res.Plan.Steps[0].Line; !strings.HasPrefix(got, `"`+bin+`" -r `) {
		t.Errorf("generator line = %q, want quoted qmake path", got)
	}
}

func TestPerformShadowBuild(t *testing.T) {
	l := &fakeLauncher{}
	b, ws := newTestBuilder(t, l)
	want := filepath.Join(ws, "src", "build-7")
	l.onRun = func(string) {
		if _, err := os.Stat(want); err != nil {
			t.Errorf("command ran before build dir existed: %v", err)
		}
	}

	res := b.Perform(context.Background(), Project{
		ProjectFile:    "src/app.pro",
		ShadowBuildDir: "build-$BUILD_NUMBER",
		UseShadowBuild: true,
	}, env.Vars{"BUILD_NUMBER": "7"})
	if !res.OK() {
		t.Fatalf("Perform = %v (%v)", res.Outcome, res.Err)
	}
	for _, dir := range l.dirs {
		if dir != want {
			t.Errorf("ran in %q, want %q", dir, want)
		}
	}
}

func TestPerformShadowDirError(t *testing.T) {
	l := &fakeLauncher{}
	b, ws := newTestBuilder(t, l)
	if err := os.WriteFile(filepath.Join(ws, "build"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	res := b.Perform(context.Background(), Project{
		ProjectFile:    "app.pro",
		ShadowBuildDir: "build/out",
		UseShadowBuild: true,
	}, nil)
	var dirErr *DirError
	if res.Outcome != Failed || !errors.As(res.Err, &dirErr) {
		t.Fatalf("result = %v (%v), want failed with *DirError", res.Outcome, res.Err)
	}
	if len(l.calls) != 0 {
		t.Errorf("ran %v after directory creation failed", l.lines())
	}
}

func TestPerformToolError(t *testing.T) {
	l := &fakeLauncher{}
	b, _ := newTestBuilder(t, l)
	b.Tools.QmakePath = "/locked/qmake"
	b.FS = fakeFS{errs: map[string]error{"/locked/qmake": fs.ErrPermission}}

	res := b.Perform(context.Background(), Project{ProjectFile: "app.pro"}, nil)
	var toolErr *ToolError
	if res.Outcome != Failed || !errors.As(res.Err, &toolErr) {
		t.Fatalf("result = %v (%v), want failed with *ToolError", res.Outcome, res.Err)
	}
	if res.Plan != nil || len(l.calls) != 0 {
		t.Errorf("plan = %v, calls = %v; want nothing", res.Plan, l.lines())
	}
}

func TestPerformLaunchError(t *testing.T) {
	l := &fakeLauncher{errs: map[string]error{"make": errors.New(`exec: "make": executable file not found in $PATH`)}}
	b, _ := newTestBuilder(t, l)

	res := b.Perform(context.Background(), Project{ProjectFile: "app.pro", ExtraTargets: []string{"install"}}, nil)
	if res.Outcome != Failed || res.Err == nil || res.ExitCode != -1 {
		t.Fatalf("result = %v (%v) code %d, want failed launch", res.Outcome, res.Err, res.ExitCode)
	}
	if len(l.calls) != 2 {
		t.Errorf("ran %v, want to stop at make", l.lines())
	}
}

func TestPerformInterrupted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := &fakeLauncher{}
	l.onRun = func(line string) {
		if line == "make" {
			cancel()
		}
	}
	b, _ := newTestBuilder(t, l)

	res := b.Perform(ctx, Project{ProjectFile: "app.pro", ExtraTargets: []string{"install"}}, nil)
	if res.Outcome != Interrupted {
		t.Fatalf("Outcome = %v, want interrupted", res.Outcome)
	}
	if !errors.Is(res.Err, context.Canceled) {
		t.Errorf("Err = %v, want context.Canceled", res.Err)
	}
	if res.Step.Kind != StepBuild {
		t.Errorf("interrupted at %v, want make", res.Step)
	}
	if len(l.calls) != 2 {
		t.Errorf("ran %v after interruption", l.lines())
	}
}

func TestPerformCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	l := &fakeLauncher{}
	b, _ := newTestBuilder(t, l)

	res := b.Perform(ctx, Project{ProjectFile: "app.pro"}, nil)
	if res.Outcome != Interrupted {
		t.Fatalf("Outcome = %v, want interrupted", res.Outcome)
	}
	if len(l.calls) != 0 {
		t.Errorf("ran %v with a cancelled context", l.lines())
	}
}

func TestPerformAbsoluteProjectFile(t *testing.T) {
	l := &fakeLauncher{}
	b, _ := newTestBuilder(t, l)
	other := t.TempDir()
	pro := filepath.Join(other, "lib.pro")

	res := b.Perform(context.Background(), Project{ProjectFile: pro}, nil)
	if !res.OK() {
		t.Fatalf("Perform = %v (%v)", res.Outcome, res.Err)
	}
	if res.Plan.ProjectFile != pro || l.dirs[0] != other {
		t.Errorf("project %q run in %q, want %q in %q", res.Plan.ProjectFile, l.dirs[0], pro, other)
	}
}

func TestOutcomeString(t *testing.T) {
	for o, want := range map[Outcome]string{Success: "success", Failed: "failed", Interrupted: "interrupted"} {
		if o.String() != want {
			t.Errorf("%d.String() = %q, want %q", int(o), o.String(), want)
		}
	}
	var r *Result
	if r.OK() {
		t.Error("nil Result should not be OK")
	}
}
