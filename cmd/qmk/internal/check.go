package internal

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goplus/qmk/internal/config"
)

var checkCmd = &cobra.Command{
	Use:   "check <project-file>",
	Short: "Check that a project file can be built",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		warning, err := config.CheckProjectFile(args[0])
		if err != nil {
			return err
		}
		if warning != "" {
			fmt.Fprintln(cmd.OutOrStdout(), "warning:", warning)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), "ok")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
