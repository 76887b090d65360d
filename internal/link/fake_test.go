package link

import (
	"bytes"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/allbin/groundlink/internal/mavlink"
	"github.com/allbin/groundlink/serial"
)

// fakePort serves queued chunks, one per read, and records writes
type fakePort struct {
	data   chan []byte
	fail   chan error
	closed chan struct{}

	closeOnce  sync.Once
	closeCalls atomic.Int32

	mu       sync.Mutex
	written  [][]byte
	writeErr error
}

func newFakePort() *fakePort {
	return &fakePort{
		data:   make(chan []byte, 16),
		fail:   make(chan error, 1),
		closed: make(chan struct{}),
	}
}

func (p *fakePort) feed(chunks ...[]byte) {
	for _, c := range chunks {
		p.data <- c
	}
}

func (p *fakePort) ReadTimeout(buf []byte, timeout time.Duration) (int, error) {
	select {
	case <-p.closed:
		return 0, serial.ErrPortClosed
	default:
	}

	select {
	case chunk := <-p.data:
		return copy(buf, chunk), nil
	case err := <-p.fail:
		return 0, err
	case <-p.closed:
		return 0, serial.ErrPortClosed
	case <-time.After(timeout):
		return 0, nil
	}
}

func (p *fakePort) WriteTimeout(data []byte, timeout time.Duration) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	select {
	case <-p.closed:
		return 0, serial.ErrPortClosed
	default:
	}
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	p.written = append(p.written, bytes.Clone(data))
	return len(data), nil
}

func (p *fakePort) Close() error {
	p.closeCalls.Add(1)
	err := serial.ErrPortClosed
	p.closeOnce.Do(func() {
		close(p.closed)
		err = nil
	})
	return err
}

func (p *fakePort) writes() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]byte(nil), p.written...)
}

// rawDecoder turns every pipe read into a frame and keeps the bytes
type rawDecoder struct {
	r   io.Reader
	rec *byteRecorder
}

func (d *rawDecoder) Next() (*mavlink.Frame, error) {
	buf := make([]byte, 512)
	n, err := d.r.Read(buf)
	if err != nil {
		return nil, err
	}
	d.rec.add(buf[:n])
	return &mavlink.Frame{Version: 2, SystemID: 1, ComponentID: 1, Message: &mavlink.Unknown{ID: 9999}}, nil
}

type byteRecorder struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (r *byteRecorder) add(p []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf.Write(p)
}

func (r *byteRecorder) bytes() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return bytes.Clone(r.buf.Bytes())
}

func rawDecoderFactory(rec *byteRecorder) DecoderFactory {
	return func(r io.Reader) Decoder {
		return &rawDecoder{r: r, rec: rec}
	}
}

type hookRecorder struct {
	mu     sync.Mutex
	states []PipelineState
	frames []*mavlink.Frame
	resets int
	exits  []error
	exitCh chan error
}

func newHookRecorder() *hookRecorder {
	return &hookRecorder{exitCh: make(chan error, 8)}
}

func (h *hookRecorder) hooks() Hooks {
	return Hooks{
		OnState: func(s PipelineState) {
			h.mu.Lock()
			h.states = append(h.states, s)
			h.mu.Unlock()
		},
		OnFrame: func(f *mavlink.Frame) {
			h.mu.Lock()
			h.frames = append(h.frames, f)
			h.mu.Unlock()
		},
		OnReset: func() {
			h.mu.Lock()
			h.resets++
			h.mu.Unlock()
		},
		OnExit: func(err error) {
			h.mu.Lock()
			h.exits = append(h.exits, err)
			h.mu.Unlock()
			h.exitCh <- err
		},
	}
}

func (h *hookRecorder) snapshot() (states []PipelineState, frames, resets, exits int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]PipelineState(nil), h.states...), len(h.frames), h.resets, len(h.exits)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func heartbeatBytes(t *testing.T, version int) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := mavlink.NewWriter(&buf, version)
	hb := &mavlink.Heartbeat{Type: 2, Autopilot: 3, BaseMode: 0x80, SystemStatus: 4, MavlinkVersion: 3}
	if err := w.Send(1, 1, hb); err != nil {
		t.Fatalf("encode heartbeat: %v", err)
	}
	return buf.Bytes()
}

func fakeOpener(p *fakePort) OpenFunc {
	return func(string) (Port, error) { return p, nil }
}
