// Package config loads groundlink settings from defaults, a YAML file,
// GROUNDLINK_* environment variables and command line flags, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/allbin/groundlink/internal/link"
	"github.com/allbin/groundlink/internal/orchestrator"
	"github.com/allbin/groundlink/serial"
)

const (
	EnvPrefix = "GROUNDLINK"
	FileName  = "groundlink"
)

type Config struct {
	Serial       SerialConfig       `mapstructure:"serial" yaml:"serial"`
	Link         LinkConfig         `mapstructure:"link" yaml:"link"`
	Proxy        ProxyConfig        `mapstructure:"proxy" yaml:"proxy"`
	MAVLink      MAVLinkConfig      `mapstructure:"mavlink" yaml:"mavlink"`
	Log          LogConfig          `mapstructure:"log" yaml:"log"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator" yaml:"orchestrator"`
}

type SerialConfig struct {
	Device       string        `mapstructure:"device" yaml:"device"`
	Driver       string        `mapstructure:"driver" yaml:"driver"`
	Baud         int           `mapstructure:"baud" yaml:"baud"`
	DataBits     int           `mapstructure:"data_bits" yaml:"data_bits"`
	StopBits     int           `mapstructure:"stop_bits" yaml:"stop_bits"`
	Parity       string        `mapstructure:"parity" yaml:"parity"`
	FlowControl  string        `mapstructure:"flow_control" yaml:"flow_control"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
}

type LinkConfig struct {
	ChannelCapacity int           `mapstructure:"channel_capacity" yaml:"channel_capacity"`
	SendWait        time.Duration `mapstructure:"send_wait" yaml:"send_wait"`
	MaxDrops        int           `mapstructure:"max_drops" yaml:"max_drops"`
	PollInterval    time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	ReadBufferSize  int           `mapstructure:"read_buffer_size" yaml:"read_buffer_size"`
	ReadyTimeout    time.Duration `mapstructure:"ready_timeout" yaml:"ready_timeout"`
}

type ProxyConfig struct {
	Peer          string        `mapstructure:"peer" yaml:"peer"`
	PollInterval  time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	Tap           bool          `mapstructure:"tap" yaml:"tap"`
	TapCapacity   int           `mapstructure:"tap_capacity" yaml:"tap_capacity"`
	ServerCommand []string      `mapstructure:"server_command" yaml:"server_command"`
	ReadyPattern  string        `mapstructure:"ready_pattern" yaml:"ready_pattern"`
	ReadyTimeout  time.Duration `mapstructure:"ready_timeout" yaml:"ready_timeout"`
	StopTimeout   time.Duration `mapstructure:"stop_timeout" yaml:"stop_timeout"`
}

type MAVLinkConfig struct {
	Version         int   `mapstructure:"version" yaml:"version"`
	SystemID        uint8 `mapstructure:"system_id" yaml:"system_id"`
	ComponentID     uint8 `mapstructure:"component_id" yaml:"component_id"`
	TargetSystem    uint8 `mapstructure:"target_system" yaml:"target_system"`
	TargetComponent uint8 `mapstructure:"target_component" yaml:"target_component"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"` // json or console
	File   string `mapstructure:"file" yaml:"file"`
}

type OrchestratorConfig struct {
	AllowModeSwitch bool `mapstructure:"allow_mode_switch" yaml:"allow_mode_switch"`
}

// SetDefaults registers every key so environment variables bind even when
// no file mentions them.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("serial.device", "")
	v.SetDefault("serial.driver", serial.DriverTermios.String())
	v.SetDefault("serial.baud", 115200)
	v.SetDefault("serial.data_bits", 8)
	v.SetDefault("serial.stop_bits", 1)
	v.SetDefault("serial.parity", "none")
	v.SetDefault("serial.flow_control", "none")
	v.SetDefault("serial.write_timeout", 500*time.Millisecond)

	v.SetDefault("link.channel_capacity", 64)
	v.SetDefault("link.send_wait", 250*time.Millisecond)
	v.SetDefault("link.max_drops", 8)
	v.SetDefault("link.poll_interval", 100*time.Millisecond)
	v.SetDefault("link.read_buffer_size", 4096)
	v.SetDefault("link.ready_timeout", 15*time.Second)

	v.SetDefault("proxy.peer", "127.0.0.1:14540")
	v.SetDefault("proxy.poll_interval", 100*time.Millisecond)
	v.SetDefault("proxy.tap", true)
	v.SetDefault("proxy.tap_capacity", 64)
	v.SetDefault("proxy.server_command", []string{})
	v.SetDefault("proxy.ready_pattern", "Server started")
	v.SetDefault("proxy.ready_timeout", 15*time.Second)
	v.SetDefault("proxy.stop_timeout", 2*time.Second)

	v.SetDefault("mavlink.version", 1)
	v.SetDefault("mavlink.system_id", 255)
	v.SetDefault("mavlink.component_id", 0)
	v.SetDefault("mavlink.target_system", 1)
	v.SetDefault("mavlink.target_component", 1)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")

	v.SetDefault("orchestrator.allow_mode_switch", true)
}

// New returns a viper instance with defaults and environment binding
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// ReadFile reads path, or searches for groundlink.yaml in the working
// directory and $HOME/.config/groundlink when path is empty. A missing
// file is not an error when searching.
func ReadFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
		return nil
	}

	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", FileName))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// Load decodes and validates the effective settings
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if _, err := c.SerialOptions(); err != nil {
		return err
	}
	if c.MAVLink.Version != 1 && c.MAVLink.Version != 2 {
		return fmt.Errorf("%w: mavlink.version must be 1 or 2, got %d", serial.ErrInvalidConfig, c.MAVLink.Version)
	}
	if c.Link.ChannelCapacity < 1 || c.Link.ReadBufferSize < 1 {
		return fmt.Errorf("%w: link.channel_capacity and link.read_buffer_size must be positive", serial.ErrInvalidConfig)
	}
	if c.Link.PollInterval <= 0 || c.Proxy.PollInterval <= 0 {
		return fmt.Errorf("%w: poll intervals must be positive", serial.ErrInvalidConfig)
	}
	return nil
}

// SerialOptions turns the serial section into driver options
func (c Config) SerialOptions() ([]serial.Option, error) {
	driver, err := serial.ParseDriver(c.Serial.Driver)
	if err != nil {
		return nil, err
	}
	parity, err := serial.ParseParity(c.Serial.Parity)
	if err != nil {
		return nil, err
	}
	var flow serial.FlowControl
	switch strings.ToLower(c.Serial.FlowControl) {
	case "", "none":
		flow = serial.FlowControlNone
	case "rtscts":
		flow = serial.FlowControlRTSCTS
	default:
		return nil, fmt.Errorf("%w: unknown flow control %q", serial.ErrInvalidConfig, c.Serial.FlowControl)
	}

	opts := []serial.Option{
		serial.WithDriver(driver),
		serial.WithBaudRate(c.Serial.Baud),
		serial.WithDataBits(c.Serial.DataBits),
		serial.WithStopBits(c.Serial.StopBits),
		serial.WithParity(parity),
		serial.WithFlowControl(flow),
		serial.WithWriteTimeout(c.Serial.WriteTimeout),
	}

	// run them once so bad values fail at load time, not at connect time
	check := serial.DefaultConfig()
	for _, opt := range opts {
		if err := opt(&check); err != nil {
			return nil, err
		}
	}
	return opts, nil
}

// Opener returns the OpenFunc the pipelines use
func (c Config) Opener() (link.OpenFunc, error) {
	opts, err := c.SerialOptions()
	if err != nil {
		return nil, err
	}
	return func(device string) (link.Port, error) {
		return serial.Open(device, opts...)
	}, nil
}

func (c Config) DirectConfig() link.DirectConfig {
	return link.DirectConfig{
		ChannelCapacity: c.Link.ChannelCapacity,
		SendWait:        c.Link.SendWait,
		MaxDrops:        c.Link.MaxDrops,
		PollInterval:    c.Link.PollInterval,
		ReadBufferSize:  c.Link.ReadBufferSize,
		WriteTimeout:    c.Serial.WriteTimeout,
		ReadyTimeout:    c.Link.ReadyTimeout,
		SystemID:        c.MAVLink.SystemID,
		ComponentID:     c.MAVLink.ComponentID,
	}
}

func (c Config) ProxyConfig() link.ProxyConfig {
	return link.ProxyConfig{
		PeerAddress: c.Proxy.Peer,
		Bridge: link.BridgeConfig{
			BufferSize:   c.Link.ReadBufferSize,
			PollInterval: c.Proxy.PollInterval,
			WriteTimeout: c.Serial.WriteTimeout,
		},
		Tap:         c.Proxy.Tap,
		TapCapacity: c.Proxy.TapCapacity,
	}
}

// ServerConfig describes the protocol server. An empty command runs proxy
// mode without one.
func (c Config) ServerConfig() orchestrator.ServerConfig {
	return orchestrator.ServerConfig{
		Command:      c.Proxy.ServerCommand,
		ReadyPattern: c.Proxy.ReadyPattern,
		ReadyTimeout: c.Proxy.ReadyTimeout,
		StopTimeout:  c.Proxy.StopTimeout,
	}
}
