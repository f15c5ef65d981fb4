package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kart-io/doorbell/pkg/doorbell"
	"github.com/kart-io/doorbell/pkg/hal/sim"
)

var triggerCmd = &cobra.Command{
	Use:   "trigger [message]",
	Short: "Send one notification to every channel now",
	Long: `Send one notification through every enabled channel, with the configured
retries, and print the result. The host network is used as is.

Without arguments the configured message text is sent.

Exit codes:
  0 - Every channel delivered
  1 - At least one channel failed

Example:
  doorbell trigger -c doorbell.yaml
  doorbell trigger -c doorbell.yaml "Ding! ¿Quién es?"`,
	RunE: runTrigger,
}

func init() {
	rootCmd.AddCommand(triggerCmd)
}

func runTrigger(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	radio := sim.NewRadio()
	radio.ForceConnected()

	app, err := doorbell.New(cfg, doorbell.Devices{Radio: radio})
	if err != nil {
		return fmt.Errorf("failed to build monitor: %w", err)
	}
	defer func() { _ = app.Close(context.Background()) }()

	if len(app.Channels()) == 0 {
		return fmt.Errorf("no channels enabled")
	}

	report := app.Notify(cmd.Context(), strings.Join(args, " "))

	out := cmd.OutOrStdout()
	for _, name := range app.Channels() {
		status := "ok"
		for _, f := range report.Failed {
			if f.Channel == name {
				status = "FAILED: " + f.Err.Error()
			}
		}
		fmt.Fprintf(out, "  %-16s attempts=%d %s\n", name, report.Attempts[name], status)
	}
	fmt.Fprintf(out, "Done in %s\n", report.Duration.Round(time.Millisecond))

	if !report.Delivered() {
		return fmt.Errorf("%d channel(s) failed", len(report.Failed))
	}
	return nil
}
