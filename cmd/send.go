/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/allbin/groundlink/internal/config"
	"github.com/allbin/groundlink/internal/orchestrator"
	"github.com/allbin/groundlink/internal/tui/models"
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send [command...]",
	Short: "Send one vehicle command over a direct link",
	Long: `Open a direct link, wait for the first heartbeat, send one command and
disconnect.

Commands:
  arm | disarm         MAV_CMD_COMPONENT_ARM_DISARM
  gps                  stream GLOBAL_POSITION_INT and GPS_RAW_INT at 1 Hz
  pair                 MAV_CMD_START_RX_PAIR
  param NAME VALUE     PARAM_SET (float)

Without a command the line is read from stdin, or prompted for.

Example usage:
  groundlink send -d /dev/ttyACM0 arm
  groundlink send -d /dev/ttyACM0 param RC_PAIR_TMO 30 --wait 3s
  echo disarm | groundlink send -d /dev/ttyACM0`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(nil)
		log := newLogger(cfg, "")
		defer log.Sync()

		// Command from arguments, or from stdin when none were given
		line := strings.Join(args, " ")
		if line == "" {
			line = readCommandLine()
		}

		target := models.Target{System: cfg.MAVLink.TargetSystem, Component: cfg.MAVLink.TargetComponent}
		c, err := models.ParseCommand(line, target)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if c.Action != models.ActionSend {
			fmt.Fprintf(os.Stderr, "Error: %q is not a vehicle command\n", line)
			os.Exit(1)
		}

		// Get flags
		wait, _ := cmd.Flags().GetDuration("wait")
		if err := sendVehicleCommand(cfg, log, c, wait); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)

	// Serial settings come from the persistent flags on root
	sendCmd.Flags().Duration("wait", 0, "keep the link up this long after sending and print vehicle status text")
}

// readCommandLine takes the command from a pipe, or prompts on a terminal
func readCommandLine() string {
	stat, err := os.Stdin.Stat()
	if err == nil && stat.Mode()&os.ModeCharDevice != 0 {
		// Styled prompt
		promptStyle := lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99"))
		fmt.Print(promptStyle.Render("Command: "))
	}

	scanner := bufio.NewScanner(os.Stdin)
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text())
	}
	return ""
}

func sendVehicleCommand(cfg config.Config, log *zap.Logger, c models.Command, wait time.Duration) error {
	// Styled output
	infoStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("99")).
		Bold(true)

	successStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("40")).
		Bold(true)

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("196")).
		Bold(true)

	if cfg.Serial.Device == "" {
		return fmt.Errorf("no device: pass --device or set serial.device")
	}

	orch, err := newOrchestrator(cfg, log)
	if err != nil {
		return err
	}
	defer orch.Close()

	// Ctrl-C aborts a connect that never sees a heartbeat
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	// Show connection attempt
	fmt.Printf("%s Opening %s, waiting for a heartbeat...\n", infoStyle.Render("⚡"), cfg.Serial.Device)
	if err := orch.Connect(ctx, orchestrator.ModeDirect, cfg.Serial.Device); err != nil {
		return fmt.Errorf("%s %w", errorStyle.Render("✗"), err)
	}
	fmt.Printf("%s Connected\n", successStyle.Render("✓"))

	// Send the command; gps expands to two interval requests
	for _, msg := range c.Messages {
		if err := orch.SendCommand(msg); err != nil {
			return fmt.Errorf("%s %s: %w", errorStyle.Render("✗"), c.Label, err)
		}
	}
	fmt.Printf("%s Sent %s\n", successStyle.Render("✓"), c.Label)

	if wait <= 0 {
		return nil
	}

	// Echo vehicle status text until the wait runs out
	snapshots, stop := orch.Telemetry()
	defer stop()
	timer := time.NewTimer(wait)
	defer timer.Stop()

	last := ""
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
			return nil
		case s := <-snapshots:
			if s.StatusText != nil && *s.StatusText != last {
				last = *s.StatusText
				fmt.Printf("%s %s\n", infoStyle.Render("📋"), last)
			}
		}
	}
}
