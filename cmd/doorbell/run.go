package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kart-io/doorbell/pkg/config"
	"github.com/kart-io/doorbell/pkg/doorbell"
	"github.com/kart-io/doorbell/pkg/hal/sim"
	"github.com/kart-io/doorbell/pkg/input"
	"github.com/kart-io/doorbell/pkg/logger"
)

const simulatedPress = 50 * time.Millisecond

// openBoard returns the real devices. Board support packages set it from an
// init function; without one only --simulate is available.
var openBoard func(cfg *config.Config) (doorbell.Devices, error)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the doorbell monitor",
	Long: `Start the doorbell monitor.

The monitor will:
  - Load configuration (and the credentials file it names)
  - Build every enabled channel, skipping invalid ones with an error log
  - Watch the doorbell pin and notify all channels on each press

With --simulate the hardware is replaced by in-memory devices: every line
read from stdin is one button press and the network is always reachable.

The monitor runs until interrupted (Ctrl+C) or it receives SIGTERM.

Example:
  doorbell run -c doorbell.yaml
  doorbell run -c doorbell.yaml --simulate`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().Bool("simulate", false, "use simulated hardware; each stdin line is a press")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := cfg.Logger()

	simulate, _ := cmd.Flags().GetBool("simulate")

	var (
		devices doorbell.Devices
		pin     *sim.Pin
	)
	switch {
	case simulate:
		devices, pin = simulatedDevices(cfg)
	case openBoard != nil:
		if devices, err = openBoard(cfg); err != nil {
			return fmt.Errorf("failed to open board: %w", err)
		}
	default:
		return fmt.Errorf("no board support in this build; use --simulate")
	}

	app, err := doorbell.New(cfg, devices)
	if err != nil {
		return fmt.Errorf("failed to build monitor: %w", err)
	}
	defer func() { _ = app.Close(context.Background()) }()

	for _, s := range app.Skipped() {
		fmt.Fprintf(cmd.ErrOrStderr(), "channel %s skipped: %v\n", s.Name, s.Err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if simulate {
		go pressOnInput(ctx, cmd.InOrStdin(), pin, devices.Edges, log)
		fmt.Fprintln(cmd.OutOrStdout(), "Simulated doorbell ready: press Enter to ring, Ctrl+C to quit.")
	}

	return app.Run(ctx)
}

func simulatedDevices(cfg *config.Config) (doorbell.Devices, *sim.Pin) {
	pin := sim.NewPin()
	radio := sim.NewRadio()
	devices := doorbell.Devices{Pin: pin, LED: sim.NewLED(), Radio: radio}
	if cfg.Input.Strategy == "edge" {
		devices.Edges = input.NewEdges(8)
	}
	return devices, pin
}

// pressOnInput turns every line of r into a button press.
func pressOnInput(ctx context.Context, r io.Reader, pin *sim.Pin, edges *input.Edges, log logger.Logger) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		if edges != nil {
			pin.Set(false)
			edges.Fire()
			time.AfterFunc(simulatedPress, func() { pin.Set(true) })
			continue
		}
		go pin.Press(simulatedPress)
	}
	if err := scanner.Err(); err != nil {
		log.Warn("Stopped reading presses", "error", err)
	}
}
