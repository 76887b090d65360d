package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/allbin/groundlink/internal/orchestrator"
	"github.com/allbin/groundlink/internal/tui/colors"
)

var (
	// Header styles
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colors.Mauve).
			Background(colors.Surface0).
			Padding(0, 1)

	// Connection phase styles
	PhaseConnectedStyle = lipgloss.NewStyle().
				Foreground(colors.Green).
				Bold(true)

	PhaseIdleStyle = lipgloss.NewStyle().
			Foreground(colors.Overlay0)

	PhaseBusyStyle = lipgloss.NewStyle().
			Foreground(colors.Yellow).
			Bold(true)

	PhaseFailedStyle = lipgloss.NewStyle().
				Foreground(colors.Red).
				Bold(true)

	// Content area styles
	ContentBorderStyle = lipgloss.NewStyle().
				BorderTop(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(colors.Surface1)

	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colors.Surface2).
			Padding(0, 1)

	// Input styles
	InputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colors.Surface2).
			Padding(0, 1)

	// Error styles
	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colors.Red)

	// Info styles
	InfoStyle = lipgloss.NewStyle().
			Foreground(colors.Subtext0)
)

// PhaseStyle picks the colour for a connection phase
func PhaseStyle(p orchestrator.Phase) lipgloss.Style {
	switch p {
	case orchestrator.PhaseConnected:
		return PhaseConnectedStyle
	case orchestrator.PhaseConnecting, orchestrator.PhaseDisconnecting:
		return PhaseBusyStyle
	case orchestrator.PhaseFailed:
		return PhaseFailedStyle
	default:
		return PhaseIdleStyle
	}
}

// PhaseGlyph is the single character indicator shown next to a mode
func PhaseGlyph(p orchestrator.Phase) string {
	switch p {
	case orchestrator.PhaseConnected:
		return "●"
	case orchestrator.PhaseConnecting, orchestrator.PhaseDisconnecting:
		return "◐"
	case orchestrator.PhaseFailed:
		return "✗"
	default:
		return "○"
	}
}

// ModeColor is the accent colour of a link mode
func ModeColor(m orchestrator.Mode) lipgloss.Color {
	switch m {
	case orchestrator.ModeDirect:
		return colors.Direct
	case orchestrator.ModeProxy:
		return colors.Proxy
	default:
		return colors.Overlay0
	}
}
