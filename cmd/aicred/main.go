package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/systmms/aicred/cmd/aicred/commands"
	"github.com/systmms/aicred/internal/config"
	aicerrors "github.com/systmms/aicred/internal/errors"
	"github.com/systmms/aicred/internal/logging"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Global flags
	var (
		configFile string
		noColor    bool
		debug      bool
	)

	cfg := &config.Config{Logger: logging.New(false, false)}
	build := commands.BuildInfo{Version: version, Commit: commit, Date: date}

	rootCmd := &cobra.Command{
		Use:   "aicred",
		Short: "Find AI provider credentials on this machine",
		Long: `aicred scans a home directory for the configuration files of AI tools and
reports the provider credentials it finds. Values are hashed and redacted
unless explicitly requested.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg.Path = configFile
			cfg.Logger = logging.New(debug, noColor)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", config.DefaultPath, "Config file path")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(
		commands.NewScanCommand(cfg, build),
		commands.NewProvidersCommand(cfg),
		commands.NewScannersCommand(cfg),
		commands.NewVersionCommand(build),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	switch {
	case err == nil:
		return commands.ExitFound
	case errors.Is(err, commands.ErrNoFindings):
		return commands.ExitNotFound
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", aicerrors.SimplifyError(err))
		return commands.ExitError
	}
}
