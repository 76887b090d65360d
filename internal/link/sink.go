package link

import (
	"fmt"
	"sync"
	"time"
)

// CommandSink serialises command writes onto the port. Encoders write whole
// frames, so holding the lock per Write keeps frames from interleaving.
type CommandSink struct {
	mu      sync.Mutex
	port    Port
	timeout time.Duration
	closed  bool
}

func NewCommandSink(port Port, timeout time.Duration) *CommandSink {
	return &CommandSink{port: port, timeout: timeout}
}

func (s *CommandSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrSinkClosed
	}
	n, err := s.port.WriteTimeout(p, s.timeout)
	if err != nil {
		return n, fmt.Errorf("command write: %w", err)
	}
	return n, nil
}

// Close stops accepting writes. The port itself belongs to the pipeline.
func (s *CommandSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
