/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/allbin/groundlink/internal/config"
	"github.com/allbin/groundlink/internal/orchestrator"
	"github.com/allbin/groundlink/internal/tui/components"
	"github.com/allbin/groundlink/internal/tui/models"
	"github.com/allbin/groundlink/serial"
)

// consoleCmd represents the console command
var consoleCmd = &cobra.Command{
	Use:   "console [device]",
	Short: "Interactive console for a vehicle link",
	Long: `Open the interactive console: an event log, a live telemetry table and a
status bar showing both link modes.

Keys:
  d / p   connect direct / proxy
  x       disconnect
  a / A   arm / disarm
  g       request GPS streams
  r       start RC pairing
  i       command line (connect, disconnect, arm, disarm, gps, pair,
          param NAME VALUE, clear, quit)
  ?       all keys

Logs go to groundlink.log unless --log-file or log.file says otherwise,
because the terminal belongs to the UI.

Example usage:
  groundlink console /dev/ttyACM0
  groundlink console -d /dev/ttyUSB0 --baud 57600 --connect direct`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(args)
		log := newLogger(cfg, "groundlink.log")
		defer log.Sync()

		connectMode, _ := cmd.Flags().GetString("connect")

		if err := runConsoleTUI(cfg, log, connectMode); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(consoleCmd)

	consoleCmd.Flags().String("connect", "", "connect on start: direct or proxy")
}

func connectionInfo(cfg config.Config) *components.ConnectionInfo {
	// already validated by config.Load
	parity, _ := serial.ParseParity(cfg.Serial.Parity)
	flow := serial.FlowControlNone
	if strings.EqualFold(cfg.Serial.FlowControl, "rtscts") {
		flow = serial.FlowControlRTSCTS
	}
	return &components.ConnectionInfo{
		Driver:      cfg.Serial.Driver,
		BaudRate:    cfg.Serial.Baud,
		DataBits:    cfg.Serial.DataBits,
		StopBits:    cfg.Serial.StopBits,
		Parity:      parity,
		FlowControl: flow,
		Peer:        cfg.Proxy.Peer,
	}
}

func runConsoleTUI(cfg config.Config, log *zap.Logger, connectMode string) error {
	log.Info("starting console", zap.String("device", cfg.Serial.Device))

	orch, err := newOrchestrator(cfg, log)
	if err != nil {
		return err
	}
	defer orch.Close()

	target := models.Target{System: cfg.MAVLink.TargetSystem, Component: cfg.MAVLink.TargetComponent}
	m := models.NewConsoleModel(orch, cfg.Serial.Device, target, connectionInfo(cfg))

	p := tea.NewProgram(m, tea.WithAltScreen())

	// forward the observables into the program
	states, stopStates := orch.States()
	defer stopStates()
	go func() {
		for s := range states {
			p.Send(models.StatusMsg(s))
		}
	}()

	snapshots, stopSnapshots := orch.Telemetry()
	defer stopSnapshots()
	go func() {
		for s := range snapshots {
			p.Send(models.TelemetryMsg(s))
		}
	}()

	if connectMode != "" {
		mode, err := orchestrator.ParseMode(connectMode)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			p.Send(components.NewEvent(components.EventCommand, "connect %s %s", mode, cfg.Serial.Device))
			err := orch.Connect(ctx, mode, cfg.Serial.Device)
			p.Send(models.ResultMsg{Label: "connect " + mode.String(), Err: err})
		}()
	}

	_, err = p.Run()
	m.Shutdown()
	return err
}
