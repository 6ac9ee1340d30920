package main

import (
	"fmt"
	"os"

	"github.com/aretw0/tickstory/internal/cli"
	"github.com/aretw0/tickstory/internal/config"
	"github.com/aretw0/tickstory/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tickstory",
	Short: "Tickstory is an intent state machine dialogue orchestrator",
	Long: `Tickstory plays tick stories: conversations driven by NLU intents, a
hierarchical state machine and a context-aware action planner.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML or JSON configuration file")
	rootCmd.PersistentFlags().String("dir", "", "Directory containing the stories (overrides the configuration)")
	rootCmd.PersistentFlags().Bool("debug", false, "Log at debug level, including every executed action")
}

// loadApp builds the application from the configuration file, TICKSTORY_*
// variables and the persistent flags.
func loadApp(cmd *cobra.Command) (*cli.App, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path, os.Environ())
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if cmd.Flags().Changed("dir") {
		cfg.Stories, _ = cmd.Flags().GetString("dir")
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Log.Level = "debug"
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	logger := logging.NewWithWriter(os.Stderr, level, logging.Format(cfg.Log.Format))

	app, err := cli.NewApp(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tickstory: %w", err)
	}
	return app, nil
}
