package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/allbin/groundlink/internal/orchestrator"
	"github.com/allbin/groundlink/internal/tui/colors"
	"github.com/allbin/groundlink/internal/tui/styles"
	"github.com/allbin/groundlink/serial"
)

// ConnectionInfo is the line configuration shown on the right of the bar
type ConnectionInfo struct {
	Driver      string
	BaudRate    int
	DataBits    int
	StopBits    int
	Parity      serial.Parity
	FlowControl serial.FlowControl
	Peer        string // proxy UDP peer
}

// StatusBar is the footer with both mode indicators
type StatusBar struct {
	device         string
	width          int
	status         orchestrator.Status
	connectionInfo *ConnectionInfo
}

func NewStatusBar(device string) *StatusBar {
	return &StatusBar{device: device}
}

func (sb *StatusBar) SetWidth(width int) {
	sb.width = width
}

func (sb *StatusBar) SetStatus(status orchestrator.Status) {
	sb.status = status
}

func (sb *StatusBar) SetConnectionInfo(info *ConnectionInfo) {
	sb.connectionInfo = info
}

func flowControlToString(fc serial.FlowControl) string {
	switch fc {
	case serial.FlowControlNone:
		return "none"
	case serial.FlowControlRTSCTS:
		return "RTS/CTS"
	default:
		return "?"
	}
}

func parityToString(p serial.Parity) string {
	switch p {
	case serial.ParityEven:
		return "E"
	case serial.ParityOdd:
		return "O"
	case serial.ParityMark:
		return "M"
	case serial.ParitySpace:
		return "S"
	default:
		return "N"
	}
}

// linkDetails is the right hand summary: line settings while direct, the
// UDP peer while proxying
func (sb *StatusBar) linkDetails() string {
	info := sb.connectionInfo
	if info == nil {
		return "⚡ serial"
	}
	line := fmt.Sprintf("⚡ %s %d %d%s%d %s",
		info.Driver,
		info.BaudRate,
		info.DataBits,
		parityToString(info.Parity),
		info.StopBits,
		flowControlToString(info.FlowControl))
	if sb.status.Active == orchestrator.ModeProxy && info.Peer != "" {
		line += " ⇄ " + info.Peer
	}
	return line
}

func modeIndicator(m orchestrator.Mode, cs orchestrator.ConnectionState) string {
	label := lipgloss.NewStyle().
		Foreground(styles.ModeColor(m)).
		Bold(true).
		Render(m.String())
	glyph := styles.PhaseStyle(cs.Phase).Render(styles.PhaseGlyph(cs.Phase))
	return lipgloss.NewStyle().Padding(0, 1).Render(label + " " + glyph)
}

// ComprehensiveStatusBar renders the single line footer
func (sb *StatusBar) ComprehensiveStatusBar(inputMode, timestamp string) string {
	terminalWidth := sb.width
	if terminalWidth <= 0 {
		terminalWidth = 80
	}

	// Section 1: Mode indicator (like NORMAL in nvim)
	modeStyle := lipgloss.NewStyle().
		Foreground(colors.Base).
		Background(colors.Blue).
		Bold(true).
		Padding(0, 1)
	if inputMode == "COMMAND" {
		modeStyle = modeStyle.Background(colors.Green)
	}
	mode := modeStyle.Render(inputMode)

	// Section 2: Device path
	device := sb.device
	if device == "" {
		device = "no device"
	}
	port := lipgloss.NewStyle().
		Foreground(colors.Mauve).
		Bold(true).
		Padding(0, 1).
		Render(device)

	// Section 3: One indicator per transport, so a switch shows both sides
	direct := modeIndicator(orchestrator.ModeDirect, sb.status.Direct)
	proxy := modeIndicator(orchestrator.ModeProxy, sb.status.Proxy)

	// Section 4: Line settings or proxy peer (like file type with icon)
	details := lipgloss.NewStyle().
		Foreground(colors.Subtext0).
		Padding(0, 1).
		Render(sb.linkDetails())

	// Section 5: Timestamp (like position)
	clock := lipgloss.NewStyle().
		Foreground(colors.Subtext1).
		Padding(0, 1).
		Render(timestamp)

	// Create muted divider
	divider := lipgloss.NewStyle().
		Foreground(colors.Surface2).
		Padding(0, 1).
		Render("│")

	// Build left side: mode, device, transports, then divider
	leftSide := lipgloss.JoinHorizontal(lipgloss.Left, mode, port, direct, proxy, divider)

	// Build right side with divider
	rightSide := lipgloss.JoinHorizontal(lipgloss.Left, details, divider, clock)

	// Calculate spacer
	spacerWidth := terminalWidth - lipgloss.Width(leftSide) - lipgloss.Width(rightSide)
	if spacerWidth < 1 {
		spacerWidth = 1
	}
	spacer := lipgloss.NewStyle().Width(spacerWidth).Render("")

	// Combine with background
	statusBarStyle := lipgloss.NewStyle().
		Foreground(colors.Text).
		Background(colors.Surface0).
		Width(terminalWidth)

	return statusBarStyle.Render(lipgloss.JoinHorizontal(lipgloss.Left, leftSide, spacer, rightSide))
}
