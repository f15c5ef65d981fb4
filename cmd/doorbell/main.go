// Package main is the entry point for the doorbell CLI.
//
// Usage:
//
//	doorbell run -c doorbell.yaml             # Monitor the button
//	doorbell run -c doorbell.yaml --simulate  # Each stdin line is a press
//	doorbell trigger -c doorbell.yaml "hola"  # Send one notification now
//	doorbell validate -c doorbell.yaml        # Check config and channels
//	doorbell version
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kart-io/doorbell/pkg/config"
	"github.com/kart-io/doorbell/pkg/observability"
)

// Set at build time: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "doorbell",
	Short: "Doorbell press monitor and notifier",
	Long: `doorbell watches a button on a GPIO pin and sends a notification to every
configured channel (Telegram, Slack, Discord, webhooks, Twilio, Pushover,
Redis, websocket) when it is pressed. A status LED shows whether the
device is idle, connecting or sending.

Quick start:
  1. Create doorbell.yaml and credentials.toml
  2. Run: doorbell validate -c doorbell.yaml
  3. Run: doorbell run -c doorbell.yaml`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func main() {
	Execute()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "doorbell %s\n", version)
		fmt.Fprintf(cmd.OutOrStdout(), "  commit: %s\n", commit)
		fmt.Fprintf(cmd.OutOrStdout(), "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.PersistentFlags().StringP("config", "c", "doorbell.yaml", "path to config file (.yaml or .toml)")
	observability.Version = version
}

// loadConfig reads the --config file with DOORBELL_* overrides applied.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path, config.WithEnvDefaults())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}
