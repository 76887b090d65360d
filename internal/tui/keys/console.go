package keys

import "github.com/charmbracelet/bubbles/key"

// ConsoleKeys adds link control and vehicle commands to the log keys
type ConsoleKeys struct {
	LogKeys
	Enter         key.Binding
	HistoryUp     key.Binding
	HistoryDown   key.Binding
	ConnectDirect key.Binding
	ConnectProxy  key.Binding
	Disconnect    key.Binding
	Arm           key.Binding
	Disarm        key.Binding
	RequestGPS    key.Binding
	RCPair        key.Binding
}

func NewConsoleKeys() ConsoleKeys {
	return ConsoleKeys{
		LogKeys: NewLogKeys(),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "run command"),
		),
		// arrows only, so j and k can be typed
		HistoryUp: key.NewBinding(
			key.WithKeys("up"),
			key.WithHelp("↑", "previous command"),
		),
		HistoryDown: key.NewBinding(
			key.WithKeys("down"),
			key.WithHelp("↓", "next command"),
		),
		ConnectDirect: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "connect direct"),
		),
		ConnectProxy: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "connect proxy"),
		),
		Disconnect: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "disconnect"),
		),
		Arm: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "arm"),
		),
		Disarm: key.NewBinding(
			key.WithKeys("A"),
			key.WithHelp("A", "disarm"),
		),
		RequestGPS: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "request gps"),
		),
		RCPair: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "rc pair"),
		),
	}
}

func (k ConsoleKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.ConnectDirect, k.ConnectProxy, k.Disconnect, k.InsertMode, k.Quit}
}

func (k ConsoleKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.ConnectDirect, k.ConnectProxy, k.Disconnect},
		{k.Arm, k.Disarm, k.RequestGPS, k.RCPair},
		{k.InsertMode, k.Escape, k.Enter, k.HistoryUp, k.HistoryDown},
		{k.Clear, k.Up, k.Down, k.GotoTop, k.GotoBottom},
		{k.Help, k.Quit},
	}
}
