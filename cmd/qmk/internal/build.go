package internal

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/goplus/qmk/internal/config"
	"github.com/goplus/qmk/internal/env"
	"github.com/goplus/qmk/pkgs/buildsys/qmake"
)

// jobOptions are the job settings accepted on the command line. Flags that
// were given replace the values from the job file.
type jobOptions struct {
	project   string
	args      string
	targets   []string
	shadowDir string
	shadow    bool
	workspace string
	env       []string
}

func (o *jobOptions) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&o.project, "project", "p", "", "Project file (.pro), relative to the workspace")
	f.StringVar(&o.args, "args", "", "Extra qmake arguments")
	f.StringArrayVarP(&o.targets, "target", "t", nil, "Extra make target to run after the build (repeatable)")
	f.StringVar(&o.shadowDir, "shadow-dir", "", "Shadow build directory, relative to the project file's directory")
	f.BoolVar(&o.shadow, "shadow", false, "Build in the shadow build directory, creating it if needed")
	f.StringVarP(&o.workspace, "workspace", "w", "", "Workspace directory (default: current directory)")
	f.StringArrayVarP(&o.env, "env", "e", nil, "Set a build variable KEY=VALUE (repeatable)")
}

// job merges the job file named by args (if any) with the flags.
func (o *jobOptions) job(cmd *cobra.Command, args []string) (*config.Job, error) {
	job := &config.Job{}
	if len(args) == 1 {
		var err error
		if job, err = config.LoadJob(args[0]); err != nil {
			return nil, err
		}
	}
	flags := cmd.Flags()
	if flags.Changed("project") {
		job.Project.ProjectFile = o.project
	}
	if flags.Changed("args") {
		job.Project.ExtraArguments = o.args
	}
	if flags.Changed("target") {
		job.Project.ExtraTargets = append([]string(nil), o.targets...)
	}
	if flags.Changed("shadow-dir") {
		job.Project.ShadowBuildDir = o.shadowDir
	}
	if flags.Changed("shadow") {
		job.Project.UseShadowBuild = o.shadow
	}
	vars, err := parseVars(o.env)
	if err != nil {
		return nil, err
	}
	if len(vars) > 0 {
		if job.Env == nil {
			job.Env = make(map[string]string, len(vars))
		}
		for k, v := range vars {
			job.Env[k] = v
		}
	}
	return job, nil
}

func (o *jobOptions) workspaceDir() (string, error) {
	if o.workspace == "" {
		return os.Getwd()
	}
	return filepath.Abs(o.workspace)
}

func parseVars(kvs []string) (map[string]string, error) {
	vars := make(map[string]string, len(kvs))
	for _, kv := range kvs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid variable %q, want KEY=VALUE", kv)
		}
		vars[k] = v
	}
	return vars, nil
}

// prepare loads the tool configuration and job and runs the project file
// checks shared by build and plan.
func (o *jobOptions) prepare(cmd *cobra.Command, args []string, log *slog.Logger) (*qmake.Builder, *config.Job, env.Vars, error) {
	job, err := o.job(cmd, args)
	if err != nil {
		return nil, nil, nil, err
	}
	workspace, err := o.workspaceDir()
	if err != nil {
		return nil, nil, nil, err
	}
	path, err := resolveToolsPath()
	if err != nil {
		return nil, nil, nil, err
	}
	tools, err := config.LoadTools(path)
	if err != nil {
		return nil, nil, nil, err
	}
	vars := env.Snapshot().With(job.Env)

	projectFile := strings.TrimSpace(env.Expand(job.Project.ProjectFile, vars))
	if projectFile != "" && !filepath.IsAbs(projectFile) {
		projectFile = filepath.Join(workspace, projectFile)
	}
	warning, err := config.CheckProjectFile(projectFile)
	if err != nil {
		return nil, nil, nil, err
	}
	if warning != "" {
		log.Warn(warning)
	}

	b := &qmake.Builder{
		Tools:     tools,
		Workspace: workspace,
		Stdout:    cmd.OutOrStdout(),
		Logger:    log,
	}
	return b, job, vars, nil
}

var buildOpts jobOptions

var buildCmd = &cobra.Command{
	Use:   "build [job.yaml]",
	Short: "Run qmake, make and the extra targets",
	Long: `Build runs "qmake -r <project>", then make, then "make <target>" for each
extra target, in the workspace or shadow build directory. The first failing
step ends the build.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBuild,
}

func init() {
	buildOpts.register(buildCmd)
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	log := logger.With("invocation", uuid.NewString())
	b, job, vars, err := buildOpts.prepare(cmd, args, log)
	if err != nil {
		return err
	}
	b.Logger = log.With("project", job.Project.ProjectFile)

	res := b.Perform(cmd.Context(), job.Project, vars)
	switch res.Outcome {
	case qmake.Success:
		b.Logger.Info("build succeeded")
		return nil
	case qmake.Interrupted:
		return fmt.Errorf("%w: %v", errInterrupted, res.Err)
	default:
		return errBuildFailed
	}
}
