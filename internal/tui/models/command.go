package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/allbin/groundlink/internal/mavlink"
	"github.com/allbin/groundlink/internal/orchestrator"
)

var ErrUnknownCommand = errors.New("unknown command")

type Action int

const (
	ActionConnect Action = iota
	ActionDisconnect
	ActionSend
	ActionClear
	ActionQuit
)

// Target is the vehicle commands are addressed to
type Target struct {
	System    uint8
	Component uint8
}

// Command is a parsed command line
type Command struct {
	Action   Action
	Mode     orchestrator.Mode // connect/disconnect; ModeNone disconnects whatever is up
	Messages []mavlink.Message
	Label    string
}

const commandUsage = "connect direct|proxy, disconnect [mode], arm, disarm, gps, pair, param NAME VALUE, clear, quit"

// ParseCommand turns a command line into a Command
func ParseCommand(line string, target Target) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("%w: empty line (%s)", ErrUnknownCommand, commandUsage)
	}

	name, args := strings.ToLower(fields[0]), fields[1:]
	switch name {
	case "connect", "c":
		if len(args) != 1 {
			return Command{}, fmt.Errorf("usage: connect direct|proxy")
		}
		mode, err := orchestrator.ParseMode(args[0])
		if err != nil {
			return Command{}, err
		}
		return Command{Action: ActionConnect, Mode: mode, Label: "connect " + mode.String()}, nil

	case "disconnect", "dc":
		cmd := Command{Action: ActionDisconnect, Label: "disconnect"}
		if len(args) > 0 {
			mode, err := orchestrator.ParseMode(args[0])
			if err != nil {
				return Command{}, err
			}
			cmd.Mode = mode
			cmd.Label += " " + mode.String()
		}
		return cmd, nil

	case "arm", "disarm":
		msg := mavlink.ArmDisarm(target.System, target.Component, name == "arm")
		return Command{Action: ActionSend, Messages: []mavlink.Message{msg}, Label: name}, nil

	case "gps":
		return Command{Action: ActionSend, Messages: mavlink.RequestGPSStreams(target.System, target.Component), Label: "request gps"}, nil

	case "pair":
		msg := mavlink.StartRxPair(target.System, target.Component)
		return Command{Action: ActionSend, Messages: []mavlink.Message{msg}, Label: "rc pair"}, nil

	case "param":
		if len(args) != 2 {
			return Command{}, fmt.Errorf("usage: param NAME VALUE")
		}
		value, err := strconv.ParseFloat(args[1], 32)
		if err != nil {
			return Command{}, fmt.Errorf("param value %q: %w", args[1], err)
		}
		msg, err := mavlink.SetParam(target.System, target.Component, strings.ToUpper(args[0]), float32(value))
		if err != nil {
			return Command{}, err
		}
		return Command{Action: ActionSend, Messages: []mavlink.Message{msg}, Label: "param " + msg.ParamID}, nil

	case "clear":
		return Command{Action: ActionClear, Label: name}, nil

	case "quit", "q", "exit":
		return Command{Action: ActionQuit, Label: "quit"}, nil
	}

	return Command{}, fmt.Errorf("%w %q (%s)", ErrUnknownCommand, fields[0], commandUsage)
}
