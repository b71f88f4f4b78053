package cmd

import (
	"fmt"
	"os"

	"objstore/core/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "objstore",
	Short: "S3-compatible object storage service",
	Long: `objstore exposes a single S3-compatible bucket through a uniform driver.
It serves the bucket over HTTP and offers one-shot commands for scripting.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		// CLI errors are logged in console format; "debug" selects the
		// development config for ISO8601 timestamps.
		l, logErr := logger.New(&logger.Config{Level: "debug", Format: "console"})
		if logErr == nil {
			l.Error("command failed", zap.Error(err))
			_ = l.Sync()
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().String("config-dir", ".", "directory holding the .env file")
}
