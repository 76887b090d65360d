/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/allbin/groundlink/internal/config"
	"github.com/allbin/groundlink/internal/logging"
	"github.com/allbin/groundlink/internal/orchestrator"
)

var (
	cfgFile  string
	settings = config.New()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "groundlink",
	Short: "Ground station link to a MAVLink vehicle over serial",
	Long: `groundlink connects to a flight controller over a serial line, either
directly (decoding MAVLink itself) or by proxying the line to a local UDP
protocol server, and keeps a live telemetry snapshot of the vehicle.

Settings come from groundlink.yaml (./ or ~/.config/groundlink/),
GROUNDLINK_* environment variables and the flags below, in that order.

Examples:
  groundlink list
  groundlink console /dev/ttyACM0
  groundlink watch /dev/ttyACM0 --mode proxy
  groundlink send -d /dev/ttyACM0 arm`,
	SilenceUsage: true,
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
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is ./groundlink.yaml or $HOME/.config/groundlink/groundlink.yaml)")
	pf.StringP("device", "d", "", "serial device, e.g. /dev/ttyACM0")
	pf.IntP("baud", "b", 115200, "baud rate")
	pf.String("driver", "termios", "serial driver: termios or bugst")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.String("log-file", "", "write logs to this file instead of stderr")
	pf.Int("mavlink-version", 1, "MAVLink version for outgoing frames (1 or 2)")

	for key, flag := range map[string]string{
		"serial.device":   "device",
		"serial.baud":     "baud",
		"serial.driver":   "driver",
		"log.level":       "log-level",
		"log.file":        "log-file",
		"mavlink.version": "mavlink-version",
	} {
		if err := settings.BindPFlag(key, pf.Lookup(flag)); err != nil {
			panic(err)
		}
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if err := config.ReadFile(settings, cfgFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig decodes the effective settings. A positional device argument
// wins over every other source.
func loadConfig(args []string) config.Config {
	if len(args) > 0 && args[0] != "" {
		settings.Set("serial.device", args[0])
	}
	cfg, err := config.Load(settings)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// newLogger builds the logger. fallbackFile is used when no log file is
// configured and the terminal belongs to a UI.
func newLogger(cfg config.Config, fallbackFile string) *zap.Logger {
	file := cfg.Log.File
	if file == "" {
		file = fallbackFile
	}
	log, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, File: file})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return log
}

// newOrchestrator wires the serial driver, both pipelines and the optional
// protocol server into an orchestrator
func newOrchestrator(cfg config.Config, log *zap.Logger) (*orchestrator.Orchestrator, error) {
	open, err := cfg.Opener()
	if err != nil {
		return nil, err
	}

	var server orchestrator.Server
	if len(cfg.Proxy.ServerCommand) > 0 {
		ps, err := orchestrator.NewProcessServer(cfg.ServerConfig(), log)
		if err != nil {
			return nil, err
		}
		server = ps
	}

	return orchestrator.New(orchestrator.Options{
		Transports:      orchestrator.LinkTransports(open, cfg.DirectConfig(), cfg.ProxyConfig(), cfg.MAVLink.Version, log),
		Server:          server,
		AllowModeSwitch: cfg.Orchestrator.AllowModeSwitch,
		Log:             log,
	})
}
