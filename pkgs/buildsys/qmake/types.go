package qmake

import (
	"fmt"
	"strings"
)

// Project is the per-job build configuration.
type Project struct {
	ProjectFile    string   `yaml:"projectFile"`
	ExtraArguments string   `yaml:"extraArguments,omitempty"`
	ExtraTargets   []string `yaml:"extraTargets,omitempty"`
	ShadowBuildDir string   `yaml:"shadowBuildDir,omitempty"`
	UseShadowBuild bool     `yaml:"useShadowBuild,omitempty"`
}

// Tools is the administrator's tool configuration. Builds only read it.
type Tools struct {
	QmakePath      string `yaml:"qmakePath,omitempty"`
	MakeCmdUnix    string `yaml:"makeCmdUnix"`
	MakeCmdWindows string `yaml:"makeCmdWindows"`
}

// DefaultTools returns the configuration used when none was saved.
func DefaultTools() Tools {
	return Tools{
		MakeCmdUnix:    "make",
		MakeCmdWindows: "nmake",
	}
}

// MakeCmd returns the build command for the target platform.
func (t Tools) MakeCmd(windows bool) string {
	if windows {
		return t.MakeCmdWindows
	}
	return t.MakeCmdUnix
}

// StepKind identifies a step of the build sequence.
type StepKind int

const (
	StepGenerate StepKind = iota // qmake
	StepBuild                    // make
	StepTarget                   // make <target>
)

func (k StepKind) String() string {
	switch k {
	case StepGenerate:
		return "qmake"
	case StepBuild:
		return "make"
	case StepTarget:
		return "target"
	}
	return fmt.Sprintf("StepKind(%d)", int(k))
}

// Step is one fully expanded command line of a plan.
type Step struct {
	Kind   StepKind
	Target string // set for StepTarget
	Line   string
	Args   []string // Line tokenized
}

func (s Step) String() string {
	if s.Kind == StepTarget {
		return "target " + s.Target
	}
	return s.Kind.String()
}

// Plan is the resolved form of one build invocation.
type Plan struct {
	Qmake       string // resolved generator binary
	ProjectFile string // absolute path of the project file
	ShadowDir   string // expanded shadow build directory name
	WorkDir     string
	Shadow      bool // WorkDir is created before the first step
	Make        string
	Windows     bool
	Steps       []Step
}

// String renders the plan one command per line.
func (p *Plan) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "workdir: %s\n", p.WorkDir)
	for _, s := range p.Steps {
		fmt.Fprintf(&b, "%-8s %s\n", s.Kind, s.Line)
	}
	return b.String()
}

// Outcome is the overall result of a build.
type Outcome int

const (
	Success Outcome = iota
	Failed
	Interrupted
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Failed:
		return "failed"
	case Interrupted:
		return "interrupted"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Result reports how a build ended.
type Result struct {
	Outcome  Outcome
	Plan     *Plan // nil if planning failed
	Step     *Step // the step that failed or was interrupted
	ExitCode int   // exit code of Step, -1 if it did not exit normally
	Err      error // cause for Failed without an exit code, and for Interrupted
}

// OK reports whether the build succeeded.
func (r *Result) OK() bool {
	return r != nil && r.Outcome == Success
}

// ToolError reports a generator path that could not be checked.
type ToolError struct {
	Path string
	Err  error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("qmake path %q: %v", e.Path, e.Err)
}

func (e *ToolError) Unwrap() error { return e.Err }

// DirError reports a build directory that could not be created.
type DirError struct {
	Path string
	Err  error
}

func (e *DirError) Error() string {
	return fmt.Sprintf("build directory %s: %v", e.Path, e.Err)
}

func (e *DirError) Unwrap() error { return e.Err }
