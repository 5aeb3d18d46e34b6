package internal

import (
	"fmt"

	"github.com/spf13/cobra"
)

var planOpts jobOptions

var planCmd = &cobra.Command{
	Use:   "plan [job.yaml]",
	Short: "Print the commands a build would run",
	Long:  `Plan resolves the build like "qmk build" but only prints the commands; nothing runs and no directory is created.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPlan,
}

func init() {
	planOpts.register(planCmd)
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	b, job, vars, err := planOpts.prepare(cmd, args, logger)
	if err != nil {
		return err
	}
	plan, err := b.Plan(cmd.Context(), job.Project, vars)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "qmake:   %s\n", plan.Qmake)
	if plan.Shadow {
		fmt.Fprintf(out, "shadow:  %s\n", plan.WorkDir)
	}
	fmt.Fprint(out, plan)
	return nil
}
