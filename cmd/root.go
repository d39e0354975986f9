// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/naka-gawa/labpulse/internal/config"
	"github.com/naka-gawa/labpulse/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "labpulse",
	Short: "Pulls daily commit activity of a GitHub repository into a local SQLite log.",
	Long: `labpulse extracts the commits of one GitHub repository from the last lookback window
(24 hours by default), normalizes them and appends them to the lab_activity table
of a SQLite database for later analysis.

Configuration is read from LABPULSE_* environment variables and an optional .env file.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	// Add a persistent flag for verbose output, available to all commands.
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose/debug logging")
	rootCmd.PersistentFlags().String("env-file", ".env", "Optional dotenv file loaded before reading the environment")
}

// setup loads the configuration with load (config.Load or config.LoadStore) and builds
// the logger every subcommand shares. It exits the process on invalid configuration.
func setup(cmd *cobra.Command, load func(envFile string) (*config.Config, error)) (*config.Config, zerolog.Logger) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	envFile, _ := cmd.Flags().GetString("env-file")

	cfg, err := load(envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		_ = config.Usage()
		os.Exit(1)
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	logger := logging.New(logging.Options{
		Verbose: verbose,
		Format:  cfg.LogFormat,
		File:    cfg.LogFile,
	})
	return cfg, logger
}
