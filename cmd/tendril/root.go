package main

import (
	"fmt"
	"os"

	"github.com/aretw0/tendril/internal/cli"
	"github.com/aretw0/tendril/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tendril",
	Short: "Tendril is a dialogue engine driven by P-expressions",
	Long: `Tendril keeps a dialogue as a graph of typed nodes. Each user turn is a
P-expression that adds nodes, refers back to earlier ones or revises them.`,
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
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to a tendril.yaml config file")
	rootCmd.PersistentFlags().String("log-level", "", "Override the log level (debug, info, warn, error)")
}

// loadApp builds the app from the config flags. Logs always go to stderr
// so stdout stays clean for dialogue output and stdio transports.
func loadApp(cmd *cobra.Command) (*cli.App, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	return cli.NewApp(cfg, os.Stderr)
}
