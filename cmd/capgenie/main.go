package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/capgenie/capgenie/internal/config"
)

var (
	configPath string
	logLevel   string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "capgenie",
		Short:         "capgenie - build and sync CapCut drafts from simple timelines",
		Version:       config.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $"+config.EnvConfigFile+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(createCmd())
	rootCmd.AddCommand(syncCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(addCmd())
	rootCmd.AddCommand(inspectCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(runsCmd())

	return rootCmd
}
