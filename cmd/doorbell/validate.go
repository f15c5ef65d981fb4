package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kart-io/doorbell/pkg/channel"
	"github.com/kart-io/doorbell/pkg/doorbell"
	"github.com/kart-io/doorbell/pkg/logger"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a doorbell configuration file without touching the hardware.

This command parses the config and its credentials file, expands
environment variables, validates every setting and builds each enabled
channel. Channels that would be skipped at startup are listed with the
reason.

Exit codes:
  0 - Config is valid and every enabled channel can be built
  1 - Config is invalid or a channel would be skipped

Example:
  doorbell validate -c doorbell.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	channels, skipped := doorbell.DefaultRegistry(logger.Discard).Build(cfg, channel.Deps{Logger: logger.Discard})
	defer func() {
		for _, ch := range channels {
			_ = channel.Close(ch)
		}
	}()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  Input:       %s (debounce %s)\n", cfg.Input.Strategy, cfg.Input.Debounce)
	fmt.Fprintf(out, "  Retries:     %d, %s delay %s\n", cfg.Dispatch.MaxRetries, cfg.Dispatch.Backoff, cfg.Dispatch.RetryDelay)
	fmt.Fprintf(out, "  Queue depth: %d\n", cfg.Dispatch.QueueDepth)
	fmt.Fprintf(out, "  Channels:    %d enabled\n", len(channels))
	for _, ch := range channels {
		fmt.Fprintf(out, "    - %s\n", ch.Name())
	}

	if len(skipped) > 0 {
		for _, s := range skipped {
			fmt.Fprintf(out, "    ! %s skipped: %v\n", s.Name, s.Err)
		}
		return fmt.Errorf("%d channel(s) would be skipped", len(skipped))
	}
	return nil
}
