package serial

import (
	"errors"
	"fmt"
	"io/fs"
	"syscall"
	"time"
)

// Port represents a serial port connection interface
type Port interface {
	Close() error
	Read(buf []byte) (int, error)
	Write(data []byte) (int, error)

	// ReadTimeout waits at most timeout for data. It returns 0, nil when
	// nothing arrived, which callers use as a cancellation checkpoint.
	ReadTimeout(buf []byte, timeout time.Duration) (int, error)
	// WriteTimeout returns ErrWriteTimeout if the device did not accept
	// the data in time.
	WriteTimeout(data []byte, timeout time.Duration) (int, error)

	Drain() error
	FlushInput() error
	FlushOutput() error
}

// FlowControl represents the flow control mode
type FlowControl int

const (
	FlowControlNone FlowControl = iota
	FlowControlRTSCTS
)

// Parity represents the parity mode
type Parity int

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
	ParityMark
	ParitySpace
)

func (p Parity) String() string {
	switch p {
	case ParityNone:
		return "none"
	case ParityOdd:
		return "odd"
	case ParityEven:
		return "even"
	case ParityMark:
		return "mark"
	case ParitySpace:
		return "space"
	default:
		return fmt.Sprintf("parity(%d)", int(p))
	}
}

// Open opens a serial port with the given device path and options
func Open(device string, opts ...Option) (Port, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		if err := opt(&config); err != nil {
			return nil, err
		}
	}

	switch config.Driver {
	case DriverBugst:
		return openBugst(device, config)
	default:
		return openTermios(device, config)
	}
}

// classifyOpenError maps OS errors onto the package sentinels so callers can
// use errors.Is without knowing which driver produced them.
func classifyOpenError(device string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, syscall.ENOENT):
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, device)
	case errors.Is(err, fs.ErrPermission), errors.Is(err, syscall.EACCES):
		return fmt.Errorf("%w: %s", ErrPermissionDenied, device)
	case errors.Is(err, syscall.EBUSY):
		return fmt.Errorf("%w: %s", ErrDeviceInUse, device)
	default:
		return fmt.Errorf("failed to open %s: %w", device, err)
	}
}
