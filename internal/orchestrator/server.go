package orchestrator

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Server is the external protocol server used by proxy mode
type Server interface {
	// Start launches the server and blocks until it reports ready
	Start(ctx context.Context) error
	Stop() error
	// Done is closed when the running server exits
	Done() <-chan struct{}
	// Err is the exit error once Done is closed
	Err() error
}

type ServerConfig struct {
	Command      []string
	ReadyPattern string        // regexp matched against each output line; empty means ready on launch
	ReadyTimeout time.Duration // 0 waits forever
	StopTimeout  time.Duration // grace period between interrupt and kill
}

// ProcessServer runs the protocol server as a child process and watches its
// combined output for the readiness line.
type ProcessServer struct {
	cfg   ServerConfig
	ready *regexp.Regexp
	log   *zap.Logger

	mu   sync.Mutex
	cmd  *exec.Cmd
	done chan struct{}
	err  error
}

func NewProcessServer(cfg ServerConfig, log *zap.Logger) (*ProcessServer, error) {
	if len(cfg.Command) == 0 {
		return nil, errors.New("server command is empty")
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &ProcessServer{cfg: cfg, log: log.With(zap.String("server", cfg.Command[0]))}
	if cfg.ReadyPattern != "" {
		re, err := regexp.Compile(cfg.ReadyPattern)
		if err != nil {
			return nil, fmt.Errorf("ready pattern: %w", err)
		}
		s.ready = re
	}
	if s.cfg.StopTimeout <= 0 {
		s.cfg.StopTimeout = 2 * time.Second
	}
	return s, nil
}

func (s *ProcessServer) Start(ctx context.Context) error {
	// a connect abandoned before the server was reached
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.cmd != nil {
		s.mu.Unlock()
		return errors.New("server already started")
	}

	cmd := exec.Command(s.cfg.Command[0], s.cfg.Command[1:]...)
	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw
	// children that inherit the output must not hold Wait hostage
	cmd.WaitDelay = time.Second

	if err := cmd.Start(); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("start %s: %w", s.cfg.Command[0], err)
	}
	done := make(chan struct{})
	s.cmd, s.done, s.err = cmd, done, nil
	s.mu.Unlock()

	s.log.Info("protocol server started", zap.Int("pid", cmd.Process.Pid))

	ready := make(chan struct{})
	var readyOnce sync.Once
	if s.ready == nil {
		readyOnce.Do(func() { close(ready) })
	}

	go func() {
		sc := bufio.NewScanner(pr)
		for sc.Scan() {
			line := sc.Text()
			s.log.Debug("server output", zap.String("line", line))
			if s.ready != nil && s.ready.MatchString(line) {
				readyOnce.Do(func() { close(ready) })
			}
		}
		// keep the pipe drained if the scanner gave up on a long line
		io.Copy(io.Discard, pr)
	}()

	go func() {
		err := cmd.Wait()
		pw.Close()
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		s.log.Info("protocol server exited", zap.Error(err))
		close(done)
	}()

	var timeout <-chan time.Time
	if s.cfg.ReadyTimeout > 0 {
		t := time.NewTimer(s.cfg.ReadyTimeout)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case <-ready:
		s.log.Info("protocol server ready")
		return nil
	case <-done:
		s.Stop()
		return fmt.Errorf("%w before ready: %v", ErrServerExited, s.Err())
	case <-timeout:
		s.Stop()
		return ErrServerNotReady
	case <-ctx.Done():
		s.Stop()
		return ctx.Err()
	}
}

// Stop interrupts the server, kills it after the grace period and waits for
// it to exit. The server may be started again afterwards.
func (s *ProcessServer) Stop() error {
	s.mu.Lock()
	cmd, done := s.cmd, s.done
	s.mu.Unlock()
	if cmd == nil {
		return nil
	}

	select {
	case <-done:
	default:
		if err := cmd.Process.Signal(os.Interrupt); err != nil {
			s.log.Debug("interrupt failed", zap.Error(err))
		}
		select {
		case <-done:
		case <-time.After(s.cfg.StopTimeout):
			s.log.Warn("protocol server ignored interrupt, killing")
			cmd.Process.Kill()
			<-done
		}
	}

	s.mu.Lock()
	if s.cmd == cmd {
		s.cmd = nil
	}
	s.mu.Unlock()
	return nil
}

func (s *ProcessServer) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == nil {
		// never started: nothing will ever exit
		return nil
	}
	return s.done
}

func (s *ProcessServer) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
