package serial

import (
	"errors"
	"fmt"
	"sync"
	"time"

	bugst "go.bug.st/serial"
)

// bugstHandle is the subset of go.bug.st/serial.Port this package drives.
// Kept narrow so tests can substitute it.
type bugstHandle interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Drain() error
	ResetInputBuffer() error
	ResetOutputBuffer() error
	SetReadTimeout(t time.Duration) error
	Close() error
}

// openBugstHandle is swapped out in tests
var openBugstHandle = func(device string, mode *bugst.Mode) (bugstHandle, error) {
	return bugst.Open(device, mode)
}

// bugstPort adapts go.bug.st/serial to Port. The library has no write
// deadline, so WriteTimeout races the write against a timer.
type bugstPort struct {
	mu          sync.Mutex // guards readTimeout and closed
	writeMu     sync.Mutex
	handle      bugstHandle
	config      Config
	readTimeout time.Duration
	closed      bool
}

var _ Port = (*bugstPort)(nil)

func openBugst(device string, config Config) (Port, error) {
	mode := &bugst.Mode{
		BaudRate: config.BaudRate,
		DataBits: config.DataBits,
		Parity:   bugstParity(config.Parity),
		StopBits: bugst.OneStopBit,
	}
	if config.StopBits == 2 {
		mode.StopBits = bugst.TwoStopBits
	}

	h, err := openBugstHandle(device, mode)
	if err != nil {
		return nil, classifyBugstError(device, err)
	}

	p := &bugstPort{handle: h, config: config, readTimeout: -1}
	if err := p.setReadTimeout(config.ReadTimeout); err != nil {
		h.Close()
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}
	return p, nil
}

func bugstParity(p Parity) bugst.Parity {
	switch p {
	case ParityOdd:
		return bugst.OddParity
	case ParityEven:
		return bugst.EvenParity
	case ParityMark:
		return bugst.MarkParity
	case ParitySpace:
		return bugst.SpaceParity
	default:
		return bugst.NoParity
	}
}

func classifyBugstError(device string, err error) error {
	code := bugst.PortErrorCode(-1)
	var pe *bugst.PortError
	var pv bugst.PortError
	switch {
	case errors.As(err, &pe):
		code = pe.Code()
	case errors.As(err, &pv):
		code = pv.Code()
	}

	switch code {
	case bugst.PortNotFound:
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, device)
	case bugst.PermissionDenied:
		return fmt.Errorf("%w: %s", ErrPermissionDenied, device)
	case bugst.PortBusy:
		return fmt.Errorf("%w: %s", ErrDeviceInUse, device)
	case bugst.InvalidSpeed:
		return ErrInvalidBaudRate
	case bugst.InvalidDataBits, bugst.InvalidParity, bugst.InvalidStopBits:
		return ErrInvalidConfig
	}
	return classifyOpenError(device, err)
}

// setReadTimeout only calls into the library when the value changes
func (p *bugstPort) setReadTimeout(timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPortClosed
	}
	if timeout == p.readTimeout {
		return nil
	}
	t := timeout
	if t <= 0 {
		t = bugst.NoTimeout
	}
	if err := p.handle.SetReadTimeout(t); err != nil {
		return err
	}
	p.readTimeout = timeout
	return nil
}

func (p *bugstPort) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Close closes the serial port
func (p *bugstPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPortClosed
	}
	p.closed = true
	return p.handle.Close()
}

func (p *bugstPort) Read(buf []byte) (int, error) {
	return p.ReadTimeout(buf, p.config.ReadTimeout)
}

func (p *bugstPort) ReadTimeout(buf []byte, timeout time.Duration) (int, error) {
	if err := p.setReadTimeout(timeout); err != nil {
		return 0, err
	}
	n, err := p.handle.Read(buf)
	if err != nil && p.isClosed() {
		return n, ErrPortClosed
	}
	return n, err
}

func (p *bugstPort) Write(data []byte) (int, error) {
	return p.WriteTimeout(data, p.config.WriteTimeout)
}

func (p *bugstPort) WriteTimeout(data []byte, timeout time.Duration) (int, error) {
	if p.isClosed() {
		return 0, ErrPortClosed
	}

	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	if timeout <= 0 {
		return p.handle.Write(data)
	}

	type writeResult struct {
		n   int
		err error
	}
	resultCh := make(chan writeResult, 1)
	go func() {
		n, err := p.handle.Write(data)
		resultCh <- writeResult{n: n, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case result := <-resultCh:
		return result.n, result.err
	case <-timer.C:
		return 0, ErrWriteTimeout
	}
}

func (p *bugstPort) Drain() error {
	if p.isClosed() {
		return ErrPortClosed
	}
	return p.handle.Drain()
}

func (p *bugstPort) FlushInput() error {
	if p.isClosed() {
		return ErrPortClosed
	}
	return p.handle.ResetInputBuffer()
}

func (p *bugstPort) FlushOutput() error {
	if p.isClosed() {
		return ErrPortClosed
	}
	return p.handle.ResetOutputBuffer()
}
