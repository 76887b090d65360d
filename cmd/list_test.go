package cmd

import (
	"testing"

	"github.com/allbin/groundlink/serial"
)

func TestFilterPorts(t *testing.T) {
	infos := []serial.PortInfo{
		{Name: "ttyACM0", Path: "/dev/ttyACM0", IsUSB: true, VendorID: "1209", ProductID: "5741"},
		{Name: "ttyUSB0", Path: "/dev/ttyUSB0"},
		{Name: "ttyS0", Path: "/dev/ttyS0"},
		{Name: "ttyAMA0", Path: "/dev/ttyAMA0"},
	}

	tests := []struct {
		filter string
		want   int
	}{
		{"", 4},
		{"all", 4},
		{"USB", 2},
		{"standard", 1},
		{"arm", 1},
		{"bogus", 0},
	}
	for _, tt := range tests {
		if got := filterPorts(infos, tt.filter); len(got) != tt.want {
			t.Errorf("filterPorts(%q) = %d ports, want %d", tt.filter, len(got), tt.want)
		}
	}
}

func TestUSBID(t *testing.T) {
	if got := usbID(serial.PortInfo{VendorID: "1209", ProductID: "5741"}); got != "1209:5741" {
		t.Errorf("usbID() = %q", got)
	}
	if got := usbID(serial.PortInfo{}); got != "-" {
		t.Errorf("usbID() for an on-board UART = %q", got)
	}
}
