package internal

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/goplus/qmk/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change the tool configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the tool configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveToolsPath()
		if err != nil {
			return err
		}
		tools, err := config.LoadTools(path)
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		if err := enc.Encode(&tools); err != nil {
			return err
		}
		return enc.Close()
	},
}

var (
	setQmakePath   string
	setMakeUnix    string
	setMakeWindows string
)

var configSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Update the tool configuration",
	Long:  `Set changes only the settings given as flags; pass --qmake-path "" to remove the qmake override.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveToolsPath()
		if err != nil {
			return err
		}
		tools, err := config.LoadTools(path)
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		if flags.Changed("qmake-path") {
			tools.QmakePath = setQmakePath
		}
		if flags.Changed("make-unix") {
			tools.MakeCmdUnix = setMakeUnix
		}
		if flags.Changed("make-windows") {
			tools.MakeCmdWindows = setMakeWindows
		}
		if err := config.SaveTools(path, tools); err != nil {
			return err
		}
		logger.Info("tool configuration saved", "path", path)
		return nil
	},
}

func init() {
	configSetCmd.Flags().StringVar(&setQmakePath, "qmake-path", "", "Path of the qmake binary to prefer over $QTDIR/bin/qmake")
	configSetCmd.Flags().StringVar(&setMakeUnix, "make-unix", "", "Build command on Unix-like platforms")
	configSetCmd.Flags().StringVar(&setMakeWindows, "make-windows", "", "Build command on Windows")
	configCmd.AddCommand(configShowCmd, configSetCmd)
	rootCmd.AddCommand(configCmd)
}
