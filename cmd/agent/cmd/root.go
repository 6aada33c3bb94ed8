// Package cmd provides the CLI commands for the ASG autoscaler agent.
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	debugLogging bool
	cfgFile      string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "agent",
	Short: "ASG request-based cluster autoscaler",
	Long: `agent periodically aggregates workload resource requests per
(auto-scaling-group, availability-zone) partition, sizes each ASG against
a configurable safety buffer, and reconciles desired capacity through the
cloud's ASG API.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugLogging, "debug", false,
		"Verbose log level")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"Optional path to a YAML file overriding buffer defaults")
}

// setupLogging configures structured JSON logging using slog.
func setupLogging() error {
	level := slog.LevelInfo
	if debugLogging {
		level = slog.LevelDebug
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	return nil
}
