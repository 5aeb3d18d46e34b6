package internal

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/goplus/qmk/internal/config"
	"github.com/goplus/qmk/internal/logging"
)

var (
	logLevel  string
	logFormat string
	toolsPath string

	logger = slog.Default()
)

var (
	errBuildFailed = errors.New("build failed")
	errInterrupted = errors.New("build interrupted")
)

var rootCmd = &cobra.Command{
	Use:   "qmk",
	Short: "qmk drives qmake and make builds",
	Long: `qmk resolves the qmake binary, prepares the (shadow) build directory and
runs qmake, make and any extra make targets in order, stopping at the first failure.`,
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log verbosity (debug, info, warning, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text, json)")
	rootCmd.PersistentFlags().StringVar(&toolsPath, "tools", "", "Tool configuration file (default: <user config dir>/qmk/tools.yaml)")
}

func setupLogging(cmd *cobra.Command, args []string) error {
	level, err := logging.ParseLevel(logLevel)
	if err != nil {
		return err
	}
	format, err := logging.ParseFormat(logFormat)
	if err != nil {
		return err
	}
	logger = logging.New(format, cmd.ErrOrStderr(), level)
	return nil
}

func resolveToolsPath() (string, error) {
	if toolsPath != "" {
		return toolsPath, nil
	}
	return config.DefaultToolsPath()
}

// Execute runs the root command and returns the process exit status:
// 0 on success, 130 when interrupted, 1 otherwise.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errInterrupted), errors.Is(err, context.Canceled):
		logger.Warn("interrupted", "error", err)
		return 130
	case errors.Is(err, errBuildFailed):
		// Perform already logged the cause.
		return 1
	default:
		logger.Error("command failed", "error", err)
		return 1
	}
}
