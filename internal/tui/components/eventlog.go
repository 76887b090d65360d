package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/allbin/groundlink/internal/tui/colors"
)

// EventKind picks the tag and color of a log line
type EventKind int

const (
	EventInfo EventKind = iota
	EventState
	EventCommand
	EventVehicle // STATUSTEXT from the autopilot
	EventError
)

// EventMsg is a line for the event log
type EventMsg struct {
	Timestamp time.Time
	Kind      EventKind
	Text      string
}

func NewEvent(kind EventKind, format string, args ...any) EventMsg {
	return EventMsg{Timestamp: time.Now(), Kind: kind, Text: fmt.Sprintf(format, args...)}
}

func (k EventKind) tag() (string, lipgloss.Color) {
	switch k {
	case EventState:
		return "LINK", colors.Sky
	case EventCommand:
		return "CMD ", colors.Peach
	case EventVehicle:
		return "VEH ", colors.Teal
	case EventError:
		return "ERR ", colors.Red
	default:
		return "INFO", colors.Subtext0
	}
}

// FormatEvent renders one log line
func FormatEvent(e EventMsg) string {
	tag, c := e.Kind.tag()
	ts := lipgloss.NewStyle().
		Foreground(colors.Subtext0).
		Render(fmt.Sprintf("[%s]", e.Timestamp.Format("15:04:05.000")))
	indicator := lipgloss.NewStyle().Foreground(c).Bold(true).Render(tag)
	return fmt.Sprintf("%s %s %s", ts, indicator, e.Text)
}

// maxEvents bounds the log kept in memory
const maxEvents = 1000

// EventLog is the scrolling log pane. It follows new lines until the user
// scrolls away from the bottom.
type EventLog struct {
	viewport viewport.Model
	lines    []string
	follow   bool
}

func NewEventLog(width, height int) *EventLog {
	return &EventLog{
		viewport: viewport.New(width, height),
		follow:   true,
	}
}

func (l *EventLog) SetSize(width, height int) {
	l.viewport.Width = width
	l.viewport.Height = height
}

func (l *EventLog) Width() int {
	return l.viewport.Width
}

func (l *EventLog) Add(e EventMsg) {
	l.lines = append(l.lines, FormatEvent(e))

	// Keep only the newest lines
	if len(l.lines) > maxEvents {
		l.lines = l.lines[len(l.lines)-maxEvents:]
	}
	// Set content and keep the latest line in view unless scrolled back
	l.viewport.SetContent(strings.Join(l.lines, "\n"))
	if l.follow {
		l.viewport.GotoBottom()
	}
}

func (l *EventLog) Len() int {
	return len(l.lines)
}

func (l *EventLog) Clear() {
	l.lines = nil
	l.viewport.SetContent("")
	l.follow = true
}

// ScrollUp stops following once the bottom is out of view
func (l *EventLog) ScrollUp() {
	l.viewport.LineUp(1)
	l.follow = l.viewport.AtBottom()
}

func (l *EventLog) ScrollDown() {
	l.viewport.LineDown(1)
	l.follow = l.viewport.AtBottom()
}

func (l *EventLog) GotoTop() {
	l.viewport.GotoTop()
	l.follow = l.viewport.AtBottom()
}

func (l *EventLog) GotoBottom() {
	l.viewport.GotoBottom()
	l.follow = true
}

func (l *EventLog) Update(msg tea.Msg) (viewport.Model, tea.Cmd) {
	// Only pass certain message types to viewport to prevent it from consuming our key bindings
	switch msg.(type) {
	case tea.WindowSizeMsg:
		return l.viewport.Update(msg)
	default:
		// Don't pass other message types (like KeyMsg) to viewport
		return l.viewport, nil
	}
}

func (l *EventLog) View() string {
	return l.viewport.View()
}
