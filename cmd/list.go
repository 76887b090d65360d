/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/allbin/groundlink/serial"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List serial devices a flight controller could be on",
	Long: `List the serial devices on this machine.

USB adapters and CDC/ACM devices (most flight controllers show up as
ttyACM*) carry vendor/product IDs when the enumerator can read them.
Virtual terminals and pseudo-terminals are excluded.`,
	Run: func(cmd *cobra.Command, args []string) {
		ports, err := serial.ListPorts()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing ports: %v\n", err)
			os.Exit(1)
		}

		// Get output flags
		filterType, _ := cmd.Flags().GetString("filter")
		tableFormat, _ := cmd.Flags().GetBool("table")
		yamlFormat, _ := cmd.Flags().GetBool("yaml")

		// Filter ports if requested
		infos := filterPorts(portInfos(ports), filterType)

		if yamlFormat {
			if err := yaml.NewEncoder(os.Stdout).Encode(infos); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		}

		if len(infos) == 0 {
			if filterType != "" {
				fmt.Printf("No serial ports found matching filter: %s\n", filterType)
			} else {
				fmt.Println("No serial ports found")
			}
			return
		}

		if tableFormat {
			renderTable(infos)
		} else {
			renderSimple(infos)
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	// Add flags for filtering and output format
	listCmd.Flags().StringP("filter", "f", "", "Filter by port type: usb, standard, arm, all")
	listCmd.Flags().BoolP("table", "t", false, "Display output in a styled table format")
	listCmd.Flags().Bool("yaml", false, "Print port details as YAML")
}

// portInfos looks up every port; ports that vanished in between are skipped
func portInfos(ports []string) []serial.PortInfo {
	infos := make([]serial.PortInfo, 0, len(ports))
	for _, port := range ports {
		info, err := serial.GetPortInfo(port)
		if err != nil {
			continue
		}
		infos = append(infos, *info)
	}
	return infos
}

// filterPorts filters the port list based on the specified filter type
func filterPorts(infos []serial.PortInfo, filterType string) []serial.PortInfo {
	filterType = strings.ToLower(filterType)
	if filterType == "" || filterType == "all" {
		return infos
	}

	var filtered []serial.PortInfo
	for _, info := range infos {
		name := strings.ToLower(info.Name)
		switch filterType {
		case "usb":
			if info.IsUSB || strings.HasPrefix(name, "ttyusb") || strings.HasPrefix(name, "ttyacm") {
				filtered = append(filtered, info)
			}
		case "standard":
			if strings.HasPrefix(name, "ttys") {
				filtered = append(filtered, info)
			}
		case "arm":
			if strings.HasPrefix(name, "ttyama") {
				filtered = append(filtered, info)
			}
		}
	}
	return filtered
}

func usbID(info serial.PortInfo) string {
	if info.VendorID == "" && info.ProductID == "" {
		return "-"
	}
	return info.VendorID + ":" + info.ProductID
}

// renderTable renders the port list in a styled static table format
func renderTable(infos []serial.PortInfo) {
	fmt.Printf("Found %d serial port(s):\n\n", len(infos))

	// Define column widths
	portWidth := 15
	typeWidth := 18
	idWidth := 11
	descWidth := 30

	// Create styles
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("99")).
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("240")).
		PaddingBottom(1)

	cellStyle := lipgloss.NewStyle().
		PaddingRight(2)

	// Print header
	header := fmt.Sprintf("%-*s %-*s %-*s %-*s",
		portWidth, "Port",
		typeWidth, "Type",
		idWidth, "USB ID",
		descWidth, "Description")
	fmt.Println(headerStyle.Render(header))

	// Print rows, preferring the USB product string
	for _, info := range infos {
		desc := info.Description
		if info.Product != "" {
			desc = info.Product
		}
		row := fmt.Sprintf("%-*s %-*s %-*s %-*s",
			portWidth, info.Name,
			typeWidth, getPortType(info.Name),
			idWidth, usbID(info),
			descWidth, desc)
		fmt.Println(cellStyle.Render(row))
	}
}

// renderSimple renders the port list in simple text format
func renderSimple(infos []serial.PortInfo) {
	for _, info := range infos {
		fmt.Println(info.Path)
	}
}

// getPortType returns a more specific type classification for the port
func getPortType(name string) string {
	name = strings.ToLower(name)
	switch {
	case strings.HasPrefix(name, "ttyusb"):
		return "USB Serial"
	case strings.HasPrefix(name, "ttyacm"):
		return "USB CDC/ACM"
	case strings.HasPrefix(name, "ttyama"):
		return "ARM Serial"
	case strings.HasPrefix(name, "ttymxc"):
		return "i.MX Serial"
	case strings.HasPrefix(name, "ttysac"):
		return "Samsung Serial"
	case strings.HasPrefix(name, "ttyths"):
		return "Tegra Serial"
	case strings.HasPrefix(name, "ttyo"):
		return "OMAP Serial"
	case strings.HasPrefix(name, "ttys"):
		return "Standard Serial"
	default:
		return "Serial Port"
	}
}
