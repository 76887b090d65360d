package config

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/allbin/groundlink/serial"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(New())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Serial.Baud != 115200 {
		t.Errorf("Serial.Baud = %d, want 115200", cfg.Serial.Baud)
	}
	if cfg.Link.ReadyTimeout != 15*time.Second {
		t.Errorf("Link.ReadyTimeout = %v, want 15s", cfg.Link.ReadyTimeout)
	}
	if cfg.Proxy.Peer != "127.0.0.1:14540" {
		t.Errorf("Proxy.Peer = %q", cfg.Proxy.Peer)
	}
	if cfg.MAVLink.SystemID != 255 || cfg.MAVLink.ComponentID != 0 {
		t.Errorf("MAVLink identity = %d/%d, want 255/0", cfg.MAVLink.SystemID, cfg.MAVLink.ComponentID)
	}
	if cfg.MAVLink.TargetSystem != 1 || cfg.MAVLink.TargetComponent != 1 {
		t.Errorf("MAVLink target = %d/%d, want 1/1", cfg.MAVLink.TargetSystem, cfg.MAVLink.TargetComponent)
	}
	if !cfg.Orchestrator.AllowModeSwitch {
		t.Error("Orchestrator.AllowModeSwitch should default to true")
	}

	direct := cfg.DirectConfig()
	if direct.ChannelCapacity != 64 || direct.MaxDrops != 8 || direct.WriteTimeout != 500*time.Millisecond {
		t.Errorf("DirectConfig() = %+v", direct)
	}
	proxy := cfg.ProxyConfig()
	if !proxy.Tap || proxy.Bridge.PollInterval != 100*time.Millisecond {
		t.Errorf("ProxyConfig() = %+v", proxy)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("GROUNDLINK_SERIAL_BAUD", "57600")
	t.Setenv("GROUNDLINK_LINK_READY_TIMEOUT", "3s")
	t.Setenv("GROUNDLINK_MAVLINK_VERSION", "2")

	cfg, err := Load(New())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Serial.Baud != 57600 {
		t.Errorf("Serial.Baud = %d, want 57600", cfg.Serial.Baud)
	}
	if cfg.Link.ReadyTimeout != 3*time.Second {
		t.Errorf("Link.ReadyTimeout = %v, want 3s", cfg.Link.ReadyTimeout)
	}
	if cfg.MAVLink.Version != 2 {
		t.Errorf("MAVLink.Version = %d, want 2", cfg.MAVLink.Version)
	}
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "groundlink.yaml")
	data := []byte(`serial:
  device: /dev/ttyACM0
  driver: bugst
  baud: 921600
proxy:
  server_command: ["mavsdk_server", "-p", "50051", "serial:///dev/null"]
  ready_timeout: 5s
orchestrator:
  allow_mode_switch: false
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	v := New()
	if err := ReadFile(v, path); err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Serial.Device != "/dev/ttyACM0" || cfg.Serial.Driver != "bugst" || cfg.Serial.Baud != 921600 {
		t.Errorf("Serial = %+v", cfg.Serial)
	}
	wantCmd := []string{"mavsdk_server", "-p", "50051", "serial:///dev/null"}
	if !slices.Equal(cfg.Proxy.ServerCommand, wantCmd) {
		t.Errorf("Proxy.ServerCommand = %v, want %v", cfg.Proxy.ServerCommand, wantCmd)
	}
	if sc := cfg.ServerConfig(); sc.ReadyTimeout != 5*time.Second {
		t.Errorf("ServerConfig().ReadyTimeout = %v, want 5s", sc.ReadyTimeout)
	}
	if cfg.Orchestrator.AllowModeSwitch {
		t.Error("AllowModeSwitch = true, want false from file")
	}
}

func TestReadFileMissing(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	if err := ReadFile(New(), ""); err != nil {
		t.Errorf("ReadFile() without a file error = %v, want nil", err)
	}
	if err := ReadFile(New(), "/nonexistent/groundlink.yaml"); err == nil {
		t.Error("ReadFile() with an explicit missing path should fail")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		key    string
		value  any
		errIs  error
		wantOK bool
	}{
		{"bad baud", "serial.baud", 12345, serial.ErrInvalidBaudRate, false},
		{"bad driver", "serial.driver", "usb", serial.ErrInvalidConfig, false},
		{"bad parity", "serial.parity", "sometimes", serial.ErrInvalidConfig, false},
		{"bad flow control", "serial.flow_control", "xonxoff", serial.ErrInvalidConfig, false},
		{"bad mavlink version", "mavlink.version", 3, serial.ErrInvalidConfig, false},
		{"zero channel", "link.channel_capacity", 0, serial.ErrInvalidConfig, false},
		{"rtscts", "serial.flow_control", "rtscts", nil, true},
		{"even parity", "serial.parity", "even", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.Set(tt.key, tt.value)
			_, err := Load(v)
			if tt.wantOK {
				if err != nil {
					t.Errorf("Load() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.errIs) {
				t.Errorf("Load() error = %v, want %v", err, tt.errIs)
			}
		})
	}
}

func TestOpenerReportsMissingDevice(t *testing.T) {
	cfg, err := Load(New())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	open, err := cfg.Opener()
	if err != nil {
		t.Fatalf("Opener() error = %v", err)
	}
	if _, err := open("/dev/nonexistent_groundlink_port"); err == nil {
		t.Error("opening a missing device should fail")
	}
}
