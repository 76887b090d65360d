package models

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/allbin/groundlink/internal/mavlink"
	"github.com/allbin/groundlink/internal/orchestrator"
	"github.com/allbin/groundlink/internal/telemetry"
	"github.com/allbin/groundlink/internal/tui/components"
	"github.com/allbin/groundlink/internal/tui/keys"
	"github.com/allbin/groundlink/internal/tui/styles"
)

// InputMode represents the current input mode (vim-like)
type InputMode int

const (
	InputModeNormal InputMode = iota
	InputModeCommand
)

func (m InputMode) String() string {
	switch m {
	case InputModeCommand:
		return "COMMAND"
	default:
		return "NORMAL"
	}
}

// Controller is the part of the orchestrator the console drives
type Controller interface {
	Connect(ctx context.Context, mode orchestrator.Mode, device string) error
	Disconnect(mode orchestrator.Mode) error
	SendCommand(msg mavlink.Message) error
	Status() orchestrator.Status
}

// StatusMsg carries a published orchestrator status
type StatusMsg orchestrator.Status

// TelemetryMsg carries a published snapshot
type TelemetryMsg telemetry.Snapshot

// ResultMsg reports the outcome of a command run off the UI goroutine
type ResultMsg struct {
	Label string
	Err   error
}

type tickMsg time.Time

const (
	telemetryWidth = 46
	inputHeight    = 3
	statusHeight   = 1
)

// ConsoleModel is the interactive console. Blocking orchestrator calls run
// as tea.Cmds so the UI keeps drawing while a link comes up.
type ConsoleModel struct {
	// Link control
	ctl    Controller
	device string
	target Target

	// Cancellation of in-flight connects
	ctx    context.Context
	cancel context.CancelFunc

	// State
	ready     bool
	width     int
	height    int
	inputMode InputMode
	status    orchestrator.Status
	lastText  string

	// Panes
	log       *components.EventLog
	table     *components.TelemetryTable
	statusBar *components.StatusBar
	input     *components.Input
	help      help.Model
	keys      keys.ConsoleKeys

	now func() time.Time
}

func NewConsoleModel(ctl Controller, device string, target Target, info *components.ConnectionInfo) *ConsoleModel {
	ctx, cancel := context.WithCancel(context.Background())
	m := &ConsoleModel{
		ctl:       ctl,
		device:    device,
		target:    target,
		ctx:       ctx,
		cancel:    cancel,
		status:    ctl.Status(),
		log:       components.NewEventLog(0, 0),
		table:     components.NewTelemetryTable(),
		statusBar: components.NewStatusBar(device),
		input:     components.NewInput("connect direct, arm, param NAME VALUE ..."),
		help:      help.New(),
		keys:      keys.NewConsoleKeys(),
		now:       time.Now,
	}
	m.statusBar.SetConnectionInfo(info)
	m.statusBar.SetStatus(m.status)
	return m
}

func (m *ConsoleModel) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Shutdown cancels any connect still in flight
func (m *ConsoleModel) Shutdown() {
	m.cancel()
}

func (m *ConsoleModel) InputMode() InputMode {
	return m.inputMode
}

func (m *ConsoleModel) Events() int {
	return m.log.Len()
}

func (m *ConsoleModel) addEvent(kind components.EventKind, format string, args ...any) {
	e := components.NewEvent(kind, format, args...)
	e.Timestamp = m.now()
	m.log.Add(e)
}

func (m *ConsoleModel) connect(mode orchestrator.Mode) tea.Cmd {
	if m.device == "" {
		m.addEvent(components.EventError, "no device configured (--device or serial.device)")
		return nil
	}
	m.addEvent(components.EventCommand, "connect %s %s", mode, m.device)
	ctx, device := m.ctx, m.device
	return func() tea.Msg {
		return ResultMsg{Label: "connect " + mode.String(), Err: m.ctl.Connect(ctx, mode, device)}
	}
}

// disconnect tears down mode, or whichever mode holds a link when mode is ModeNone
func (m *ConsoleModel) disconnect(mode orchestrator.Mode) tea.Cmd {
	if mode == orchestrator.ModeNone {
		mode = m.status.Active
	}
	if mode == orchestrator.ModeNone {
		for _, candidate := range []orchestrator.Mode{orchestrator.ModeDirect, orchestrator.ModeProxy} {
			if m.status.Of(candidate).Phase != orchestrator.PhaseIdle {
				mode = candidate
				break
			}
		}
	}
	if mode == orchestrator.ModeNone {
		m.addEvent(components.EventInfo, "nothing to disconnect")
		return nil
	}
	m.addEvent(components.EventCommand, "disconnect %s", mode)
	return func() tea.Msg {
		return ResultMsg{Label: "disconnect " + mode.String(), Err: m.ctl.Disconnect(mode)}
	}
}

func (m *ConsoleModel) send(label string, msgs ...mavlink.Message) tea.Cmd {
	m.addEvent(components.EventCommand, "%s", label)
	return func() tea.Msg {
		for _, msg := range msgs {
			if err := m.ctl.SendCommand(msg); err != nil {
				return ResultMsg{Label: label, Err: err}
			}
		}
		return ResultMsg{Label: label}
	}
}

func (m *ConsoleModel) run(c Command) tea.Cmd {
	switch c.Action {
	case ActionConnect:
		return m.connect(c.Mode)
	case ActionDisconnect:
		return m.disconnect(c.Mode)
	case ActionSend:
		return m.send(c.Label, c.Messages...)
	case ActionClear:
		m.log.Clear()
	case ActionQuit:
		m.Shutdown()
		return tea.Quit
	}
	return nil
}

func (m *ConsoleModel) onStatus(s orchestrator.Status) {
	for _, mode := range []orchestrator.Mode{orchestrator.ModeDirect, orchestrator.ModeProxy} {
		prev, next := m.status.Of(mode), s.Of(mode)
		if prev.Phase == next.Phase && errors.Is(prev.Reason, next.Reason) {
			continue
		}
		kind := components.EventState
		if next.Phase == orchestrator.PhaseFailed {
			kind = components.EventError
		}
		m.addEvent(kind, "%s: %s", mode, next)
	}
	m.status = s
	m.statusBar.SetStatus(s)
}

func (m *ConsoleModel) onTelemetry(s telemetry.Snapshot) {
	m.table.SetSnapshot(s, m.now())
	if s.StatusText != nil && *s.StatusText != m.lastText {
		m.lastText = *s.StatusText
		m.addEvent(components.EventVehicle, "%s", m.lastText)
	}
	if s.Empty() {
		m.lastText = ""
	}
}

func (m *ConsoleModel) resize(width, height int) {
	m.width, m.height = width, height

	logWidth := width - telemetryWidth
	if logWidth < 20 {
		logWidth = 20
	}
	// the top border of the content area takes a line
	logHeight := height - inputHeight - statusHeight - lipgloss.Height(m.helpView()) - 1
	if logHeight < 3 {
		logHeight = 3
	}
	m.log.SetSize(logWidth, logHeight)
	m.table.SetWidth(telemetryWidth)
	m.input.SetWidth(width)
	m.statusBar.SetWidth(width)
	m.ready = true
}

func (m *ConsoleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		_, cmd := m.log.Update(msg)
		cmds = append(cmds, cmd)

	case tickMsg:
		m.table.Refresh(time.Time(msg))
		return m, tick()

	case StatusMsg:
		m.onStatus(orchestrator.Status(msg))

	case TelemetryMsg:
		m.onTelemetry(telemetry.Snapshot(msg))

	case components.EventMsg:
		m.log.Add(msg)

	case ResultMsg:
		if msg.Err != nil {
			m.addEvent(components.EventError, "%s: %v", msg.Label, msg.Err)
		} else {
			m.addEvent(components.EventInfo, "%s: ok", msg.Label)
		}

	case tea.KeyMsg:
		// Command line owns the keyboard until Escape
		if m.inputMode == InputModeCommand {
			switch {
			case key.Matches(msg, m.keys.Escape):
				m.inputMode = InputModeNormal
				m.input.Blur()
				return m, nil
			case key.Matches(msg, m.keys.Enter):
				// Run the line and clear it; bad input only logs
				line := m.input.Value()
				m.input.AddToHistory(line)
				m.input.SetValue("")
				c, err := ParseCommand(line, m.target)
				if err != nil {
					m.addEvent(components.EventError, "%v", err)
					return m, nil
				}
				return m, m.run(c)
			case key.Matches(msg, m.keys.HistoryUp):
				m.input.NavigateHistoryUp()
				return m, nil
			case key.Matches(msg, m.keys.HistoryDown):
				m.input.NavigateHistoryDown()
				return m, nil
			}
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}

		// Normal mode: single key bindings
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.Shutdown()
			return m, tea.Quit
		case key.Matches(msg, m.keys.InsertMode):
			m.inputMode = InputModeCommand
			m.input.Focus()
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			if m.ready {
				m.resize(m.width, m.height)
			}
		case key.Matches(msg, m.keys.Clear):
			m.log.Clear()
		case key.Matches(msg, m.keys.Up):
			m.log.ScrollUp()
		case key.Matches(msg, m.keys.Down):
			m.log.ScrollDown()
		case key.Matches(msg, m.keys.GotoTop):
			m.log.GotoTop()
		case key.Matches(msg, m.keys.GotoBottom):
			m.log.GotoBottom()
		// Link control runs off the UI goroutine
		case key.Matches(msg, m.keys.ConnectDirect):
			return m, m.connect(orchestrator.ModeDirect)
		case key.Matches(msg, m.keys.ConnectProxy):
			return m, m.connect(orchestrator.ModeProxy)
		case key.Matches(msg, m.keys.Disconnect):
			return m, m.disconnect(orchestrator.ModeNone)
		case key.Matches(msg, m.keys.Arm):
			return m, m.send("arm", mavlink.ArmDisarm(m.target.System, m.target.Component, true))
		case key.Matches(msg, m.keys.Disarm):
			return m, m.send("disarm", mavlink.ArmDisarm(m.target.System, m.target.Component, false))
		case key.Matches(msg, m.keys.RequestGPS):
			return m, m.send("request gps", mavlink.RequestGPSStreams(m.target.System, m.target.Component)...)
		case key.Matches(msg, m.keys.RCPair):
			return m, m.send("rc pair", mavlink.StartRxPair(m.target.System, m.target.Component))
		}
	}

	return m, tea.Batch(cmds...)
}

func (m *ConsoleModel) helpView() string {
	if !m.help.ShowAll {
		return ""
	}
	return m.help.View(m.keys)
}

func (m *ConsoleModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	content := lipgloss.JoinHorizontal(lipgloss.Top, m.log.View(), m.table.View())
	parts := []string{styles.ContentBorderStyle.Render(content)}
	if h := m.helpView(); h != "" {
		parts = append(parts, h)
	}
	parts = append(parts,
		m.input.ViewWithMode(m.inputMode == InputModeCommand),
		m.statusBar.ComprehensiveStatusBar(m.inputMode.String(), m.now().Format("15:04:05")),
	)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
