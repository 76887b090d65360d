/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/allbin/groundlink/internal/orchestrator"
	"github.com/allbin/groundlink/internal/telemetry"
)

var (
	watchMode     string
	watchInterval time.Duration
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch [device]",
	Short: "Connect headless and stream link state and telemetry as YAML",
	Long: `Connect without a UI and print a YAML document for every link state change,
plus the telemetry snapshot whenever it changed, at most once per interval.
Press Ctrl+C to stop. Exits non-zero if the link fails.

Examples:
  groundlink watch /dev/ttyACM0
  groundlink watch /dev/ttyACM0 --mode proxy --interval 5s`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(args)
		log := newLogger(cfg, "")
		defer log.Sync()

		mode, err := orchestrator.ParseMode(watchMode)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if cfg.Serial.Device == "" {
			fmt.Fprintln(os.Stderr, "Error: no device: pass it as an argument, --device or serial.device")
			os.Exit(1)
		}

		orch, err := newOrchestrator(cfg, log)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-sigChan
			fmt.Fprintln(os.Stderr, "\nStopping watch...")
			cancel()
		}()

		err = runWatch(ctx, orch, mode, cfg.Serial.Device, watchInterval, os.Stdout)
		orch.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVarP(&watchMode, "mode", "m", "direct", "link mode: direct or proxy")
	watchCmd.Flags().DurationVarP(&watchInterval, "interval", "i", time.Second, "minimum time between telemetry documents")
}

// watcher is the slice of the orchestrator watch needs
type watcher interface {
	Connect(ctx context.Context, mode orchestrator.Mode, device string) error
	States() (<-chan orchestrator.Status, func())
	Telemetry() (<-chan telemetry.Snapshot, func())
}

type stateDocument struct {
	Time   time.Time `yaml:"time"`
	Active string    `yaml:"active"`
	Direct string    `yaml:"direct"`
	Proxy  string    `yaml:"proxy"`
}

type telemetryDocument struct {
	Time      time.Time          `yaml:"time"`
	Telemetry telemetry.Snapshot `yaml:"telemetry"`
}

// runWatch connects and writes YAML documents to out until ctx ends or the
// watched mode fails
func runWatch(ctx context.Context, w watcher, mode orchestrator.Mode, device string, interval time.Duration, out io.Writer) error {
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	defer enc.Close()

	states, stopStates := w.States()
	defer stopStates()
	snapshots, stopSnapshots := w.Telemetry()
	defer stopSnapshots()

	connectErr := make(chan error, 1)
	go func() { connectErr <- w.Connect(ctx, mode, device) }()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var (
		pending   telemetry.Snapshot
		published time.Time
	)
	for {
		select {
		case <-ctx.Done():
			return nil

		case err := <-connectErr:
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}

		case s := <-states:
			if err := enc.Encode(stateDocument{
				Time:   time.Now(),
				Active: s.Active.String(),
				Direct: s.Direct.String(),
				Proxy:  s.Proxy.String(),
			}); err != nil {
				return err
			}
			if cs := s.Of(mode); cs.Phase == orchestrator.PhaseFailed {
				return fmt.Errorf("%s link: %w", mode, cs.Reason)
			}

		case s := <-snapshots:
			pending = s

		case <-ticker.C:
			if pending.Empty() || !pending.LastUpdate.After(published) {
				continue
			}
			published = pending.LastUpdate
			if err := enc.Encode(telemetryDocument{Time: time.Now(), Telemetry: pending}); err != nil {
				return err
			}
		}
	}
}
