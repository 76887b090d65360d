package serial

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"go.bug.st/serial/enumerator"
)

func TestListPortsReturnsSortedCharDevices(t *testing.T) {
	ports, err := ListPorts()
	if err != nil {
		t.Fatalf("ListPorts() error = %v", err)
	}
	if !sort.StringsAreSorted(ports) {
		t.Errorf("ListPorts() = %v, not sorted", ports)
	}
	for _, p := range ports {
		if !strings.HasPrefix(p, "/dev/") || !charDevice(p) {
			t.Errorf("ListPorts() returned %q, want a /dev character device", p)
		}
	}
}

func TestCharDevice(t *testing.T) {
	cases := map[string]bool{
		"/dev/null":    true,
		"/dev/zero":    true,
		os.TempDir():   false,
		"/nonexistent": false,
	}
	for path, want := range cases {
		if got := charDevice(path); got != want {
			t.Errorf("charDevice(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		desc string
		ok   bool
		usb  bool
	}{
		{"ttyACM0", "USB CDC/ACM Device", true, true},
		{"ttyUSB12", "USB Serial Port", true, true},
		{"ttyS0", "Standard Serial Port", true, false},
		{"ttySAC1", "Samsung Serial Port", true, false},
		{"ttyAMA0", "ARM Serial Port", true, false},
		{"ttyTHS2", "Tegra Serial Port", true, false},
		{"ttymxc3", "i.MX Serial Port", true, false},
		{"ttyO1", "OMAP Serial Port", true, false},
		{"tty1", "Serial Port", false, false},
		{"console", "Serial Port", false, false},
		{"ptmx", "Serial Port", false, false},
		{"ttyUSB", "Serial Port", false, false},
	}
	for _, tt := range tests {
		k, ok := kindOf(tt.name)
		if ok != tt.ok || k.usb != tt.usb {
			t.Errorf("kindOf(%q) = (usb %v, %v), want (usb %v, %v)", tt.name, k.usb, ok, tt.usb, tt.ok)
		}
		if got := describe(tt.name); got != tt.desc {
			t.Errorf("describe(%q) = %q, want %q", tt.name, got, tt.desc)
		}
	}
}

func TestGetPortInfo(t *testing.T) {
	info, err := GetPortInfo("/dev/null")
	if err != nil {
		t.Fatalf("GetPortInfo(/dev/null) error = %v", err)
	}
	if info.Name != "null" || info.Path != "/dev/null" {
		t.Errorf("GetPortInfo(/dev/null) = %+v", info)
	}
	if info.Description != "Serial Port" || info.IsUSB {
		t.Errorf("GetPortInfo(/dev/null) description %q usb %v", info.Description, info.IsUSB)
	}

	if _, err := GetPortInfo("/dev/groundlink-missing"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("GetPortInfo(missing) error = %v, want ErrDeviceNotFound", err)
	}
}

func TestScanDirSkipsRegularFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"ttyUSB0", "ttyACM3", "notaport"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0644); err != nil {
			t.Fatal(err)
		}
	}

	ports, err := scanDir(dir)
	if err != nil {
		t.Fatalf("scanDir() error = %v", err)
	}
	if len(ports) != 0 {
		t.Errorf("scanDir() = %v, want nothing from regular files", ports)
	}

	if _, err := scanDir(filepath.Join(dir, "gone")); err == nil {
		t.Error("scanDir(missing dir) returned nil error")
	}
}

func TestEnrichUSBInfo(t *testing.T) {
	orig := detailedPorts
	t.Cleanup(func() { detailedPorts = orig })

	detailedPorts = func() ([]*enumerator.PortDetails, error) {
		return []*enumerator.PortDetails{
			nil,
			{Name: "/dev/ttyS0"},
			{Name: "/dev/ttyACM0", IsUSB: true, VID: "1209", PID: "5740", SerialNumber: "FC1234", Product: "Pixhawk"},
		}, nil
	}

	info := &PortInfo{Name: "ttyACM0", Path: "/dev/ttyACM0"}
	if err := enrichUSBInfo(info); err != nil {
		t.Fatalf("enrichUSBInfo() error = %v", err)
	}
	want := PortInfo{
		Name: "ttyACM0", Path: "/dev/ttyACM0", IsUSB: true,
		VendorID: "1209", ProductID: "5740", SerialNumber: "FC1234", Product: "Pixhawk",
	}
	if *info != want {
		t.Errorf("enrichUSBInfo() = %+v, want %+v", *info, want)
	}

	missing := &PortInfo{Name: "ttyUSB9", Path: "/dev/ttyUSB9"}
	if err := enrichUSBInfo(missing); !errors.Is(err, ErrUSBInfoNotAvailable) {
		t.Errorf("enrichUSBInfo(unknown) error = %v, want ErrUSBInfoNotAvailable", err)
	}

	boom := errors.New("udev unavailable")
	detailedPorts = func() ([]*enumerator.PortDetails, error) { return nil, boom }
	if err := enrichUSBInfo(&PortInfo{Path: "/dev/ttyACM0"}); !errors.Is(err, boom) {
		t.Errorf("enrichUSBInfo() error = %v, want %v", err, boom)
	}
}

func BenchmarkListPorts(b *testing.B) {
	for i := 0; i < b.N; i++ {
		if _, err := ListPorts(); err != nil {
			b.Fatal(err)
		}
	}
}
