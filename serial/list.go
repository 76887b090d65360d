package serial

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"go.bug.st/serial/enumerator"
)

// portKind classifies a /dev entry by name
type portKind struct {
	pattern     *regexp.Regexp
	description string
	usb         bool
}

// Order matters: ttySAC must be tried before ttyS.
var portKinds = []portKind{
	{regexp.MustCompile(`^ttyACM\d+$`), "USB CDC/ACM Device", true},
	{regexp.MustCompile(`^ttyUSB\d+$`), "USB Serial Port", true},
	{regexp.MustCompile(`^ttyAMA\d+$`), "ARM Serial Port", false},
	{regexp.MustCompile(`^ttyTHS\d+$`), "Tegra Serial Port", false},
	{regexp.MustCompile(`^ttySAC\d+$`), "Samsung Serial Port", false},
	{regexp.MustCompile(`^ttymxc\d+$`), "i.MX Serial Port", false},
	{regexp.MustCompile(`^ttyO\d+$`), "OMAP Serial Port", false},
	{regexp.MustCompile(`^ttyS\d+$`), "Standard Serial Port", false},
}

func kindOf(name string) (portKind, bool) {
	for _, k := range portKinds {
		if k.pattern.MatchString(name) {
			return k, true
		}
	}
	return portKind{}, false
}

// describe gives a readable name for a device, "Serial Port" if unknown
func describe(name string) string {
	if k, ok := kindOf(name); ok {
		return k.description
	}
	return "Serial Port"
}

// ListPorts returns the serial character devices under /dev, sorted
func ListPorts() ([]string, error) {
	return scanDir("/dev")
}

func scanDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var ports []string
	for _, e := range entries {
		if _, ok := kindOf(e.Name()); !ok {
			continue
		}
		p := filepath.Join(dir, e.Name())
		if charDevice(p) {
			ports = append(ports, p)
		}
	}
	sort.Strings(ports)
	return ports, nil
}

func charDevice(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}

// PortInfo describes a serial device. USB fields are empty for on-board UARTs.
type PortInfo struct {
	Name         string `yaml:"name"`
	Path         string `yaml:"path"`
	Description  string `yaml:"description"`
	IsUSB        bool   `yaml:"usb"`
	VendorID     string `yaml:"vendor_id,omitempty"`
	ProductID    string `yaml:"product_id,omitempty"`
	SerialNumber string `yaml:"serial_number,omitempty"`
	Product      string `yaml:"product,omitempty"`
}

// GetPortInfo describes one device. USB metadata is best effort: a flight
// controller is usable without it.
func GetPortInfo(path string) (*PortInfo, error) {
	if !charDevice(path) {
		return nil, ErrDeviceNotFound
	}

	name := filepath.Base(path)
	info := &PortInfo{Name: name, Path: path, Description: describe(name)}
	if k, ok := kindOf(name); ok && k.usb {
		_ = enrichUSBInfo(info)
	}
	return info, nil
}

// detailedPorts is swapped out in tests
var detailedPorts = enumerator.GetDetailedPortsList

// enrichUSBInfo fills USB metadata from the go.bug.st enumerator
func enrichUSBInfo(info *PortInfo) error {
	details, err := detailedPorts()
	if err != nil {
		return err
	}
	for _, d := range details {
		if d == nil || d.Name != info.Path || !d.IsUSB {
			continue
		}
		info.IsUSB = true
		info.VendorID = strings.ToLower(d.VID)
		info.ProductID = strings.ToLower(d.PID)
		info.SerialNumber = d.SerialNumber
		info.Product = d.Product
		return nil
	}
	return ErrUSBInfoNotAvailable
}
