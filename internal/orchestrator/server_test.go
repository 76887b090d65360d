package orchestrator

import (
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestProcessServerReady(t *testing.T) {
	requireShell(t)
	s, err := NewProcessServer(ServerConfig{
		Command:      []string{"sh", "-c", "echo starting; echo 'Server started'; exec sleep 10"},
		ReadyPattern: `Server started`,
		ReadyTimeout: 5 * time.Second,
	}, nil)
	if err != nil {
		t.Fatalf("NewProcessServer() error = %v", err)
	}

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	done := s.Done()
	select {
	case <-done:
		t.Fatal("server exited right after becoming ready")
	default:
	}

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("server still running after Stop")
	}
	s.Stop()
}

func TestProcessServerNotReady(t *testing.T) {
	requireShell(t)
	s, err := NewProcessServer(ServerConfig{
		Command:      []string{"sh", "-c", "echo booting; exec sleep 10"},
		ReadyPattern: `never printed`,
		ReadyTimeout: 100 * time.Millisecond,
	}, nil)
	if err != nil {
		t.Fatalf("NewProcessServer() error = %v", err)
	}

	if err := s.Start(context.Background()); !errors.Is(err, ErrServerNotReady) {
		t.Fatalf("Start() error = %v, want ErrServerNotReady", err)
	}
	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("server left running after readiness timeout")
	}
}

func TestProcessServerExitsEarly(t *testing.T) {
	requireShell(t)
	s, err := NewProcessServer(ServerConfig{
		Command:      []string{"sh", "-c", "echo bad config; exit 3"},
		ReadyPattern: `ready`,
		ReadyTimeout: 5 * time.Second,
	}, nil)
	if err != nil {
		t.Fatalf("NewProcessServer() error = %v", err)
	}

	err = s.Start(context.Background())
	if !errors.Is(err, ErrServerExited) {
		t.Fatalf("Start() error = %v, want ErrServerExited", err)
	}

	// a failed start leaves the server restartable
	if err := s.Start(context.Background()); !errors.Is(err, ErrServerExited) {
		t.Errorf("second Start() error = %v, want ErrServerExited", err)
	}
}

func TestProcessServerNoPattern(t *testing.T) {
	requireShell(t)
	s, err := NewProcessServer(ServerConfig{Command: []string{"sh", "-c", "exec sleep 10"}}, nil)
	if err != nil {
		t.Fatalf("NewProcessServer() error = %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	s.Stop()
}

func TestProcessServerCancelledWhileWaiting(t *testing.T) {
	requireShell(t)
	s, err := NewProcessServer(ServerConfig{
		Command:      []string{"sh", "-c", "exec sleep 10"},
		ReadyPattern: `never printed`,
		StopTimeout:  time.Second,
	}, nil)
	if err != nil {
		t.Fatalf("NewProcessServer() error = %v", err)
	}

	// a connect abandoned before the server was reached launches nothing
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Start(cancelled); !errors.Is(err, context.Canceled) {
		t.Errorf("Start(cancelled) error = %v, want context.Canceled", err)
	}
	if s.Done() != nil {
		t.Error("Start(cancelled) launched the server")
	}

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.Start(ctx) }()
	waitFor(t, "server launched", func() bool { return s.Done() != nil })
	done := s.Done()
	cancel()

	select {
	case err := <-errc:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Start() error = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start() ignored cancellation")
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("server still running after cancelled Start")
	}
}

func TestNewProcessServerErrors(t *testing.T) {
	if _, err := NewProcessServer(ServerConfig{}, nil); err == nil {
		t.Error("empty command should fail")
	}
	if _, err := NewProcessServer(ServerConfig{Command: []string{"x"}, ReadyPattern: "("}, nil); err == nil {
		t.Error("bad pattern should fail")
	}
}
