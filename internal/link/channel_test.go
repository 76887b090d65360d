package link

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestByteChannelOrder(t *testing.T) {
	ch := NewByteChannel(8)
	ctx := context.Background()

	for i := range 5 {
		if err := ch.Send(ctx, []byte{byte(i)}); err != nil {
			t.Fatalf("Send(%d) error = %v", i, err)
		}
	}
	ch.Close()

	for i := range 5 {
		got, ok := ch.Receive(ctx)
		if !ok {
			t.Fatalf("Receive(%d) reported end of data", i)
		}
		if got[0] != byte(i) {
			t.Errorf("Receive(%d) = %v, want %d", i, got, i)
		}
	}
	if _, ok := ch.Receive(ctx); ok {
		t.Error("Receive after drain should report end of data")
	}
}

func TestByteChannelClosed(t *testing.T) {
	ch := NewByteChannel(1)
	ch.Close()
	ch.Close()

	if err := ch.Send(context.Background(), []byte{1}); !errors.Is(err, ErrChannelClosed) {
		t.Errorf("Send after Close error = %v, want ErrChannelClosed", err)
	}
	if ch.TrySend([]byte{1}) {
		t.Error("TrySend after Close should fail")
	}
	select {
	case <-ch.Closed():
	default:
		t.Error("Closed() not signalled")
	}
}

func TestByteChannelFull(t *testing.T) {
	ch := NewByteChannel(1)
	if !ch.TrySend([]byte{1}) {
		t.Fatal("TrySend on empty channel failed")
	}
	if ch.TrySend([]byte{2}) {
		t.Error("TrySend on full channel should fail")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := ch.Send(ctx, []byte{3}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Send on full channel error = %v, want DeadlineExceeded", err)
	}
}

func TestByteChannelCloseUnblocksSend(t *testing.T) {
	ch := NewByteChannel(1)
	ch.TrySend([]byte{1})

	errc := make(chan error, 1)
	go func() { errc <- ch.Send(context.Background(), []byte{2}) }()

	time.Sleep(10 * time.Millisecond)
	ch.Close()

	select {
	case err := <-errc:
		if !errors.Is(err, ErrChannelClosed) {
			t.Errorf("blocked Send error = %v, want ErrChannelClosed", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Send still blocked after Close")
	}
}

type listenerFunc struct {
	data func([]byte)
	err  func(error)
}

func (l listenerFunc) OnData(chunk []byte) { l.data(chunk) }
func (l listenerFunc) OnError(err error)   { l.err(err) }

func TestReaderAdapter(t *testing.T) {
	t.Run("forwards", func(t *testing.T) {
		ch := NewByteChannel(2)
		a := NewReaderAdapter(ch, 10*time.Millisecond, 0, nil, zap.NewNop())
		a.OnData([]byte("abc"))

		got, ok := ch.Receive(context.Background())
		if !ok || string(got) != "abc" {
			t.Errorf("Receive() = %q, %v", got, ok)
		}
	})

	t.Run("full channel drops", func(t *testing.T) {
		ch := NewByteChannel(1)
		a := NewReaderAdapter(ch, 5*time.Millisecond, 0, nil, zap.NewNop())
		a.OnData([]byte{1})
		a.OnData([]byte{2})
		a.OnData([]byte{3})
		if got := a.Dropped(); got != 2 {
			t.Errorf("Dropped() = %d, want 2", got)
		}
	})

	t.Run("persistent overflow is fatal", func(t *testing.T) {
		ch := NewByteChannel(1)
		var got []error
		a := NewReaderAdapter(ch, time.Millisecond, 3, func(err error) { got = append(got, err) }, zap.NewNop())
		a.OnData([]byte{1})
		a.OnData([]byte{2})
		a.OnData([]byte{3})
		if len(got) != 0 {
			t.Fatalf("fatal after 2 drops: %v", got)
		}

		// a chunk that gets through resets the count
		ch.Receive(context.Background())
		a.OnData([]byte{4})
		a.OnData([]byte{5})
		a.OnData([]byte{6})
		if len(got) != 0 {
			t.Fatalf("fatal after interrupted drops: %v", got)
		}

		a.OnData([]byte{7})
		if len(got) != 1 || !errors.Is(got[0], ErrOverflow) {
			t.Errorf("fatal = %v, want one ErrOverflow", got)
		}
		if a.Dropped() != 5 {
			t.Errorf("Dropped() = %d, want 5", a.Dropped())
		}
	})

	t.Run("closed channel is benign", func(t *testing.T) {
		ch := NewByteChannel(1)
		ch.Close()
		fatal := 0
		a := NewReaderAdapter(ch, 5*time.Millisecond, 0, func(error) { fatal++ }, zap.NewNop())
		a.OnData([]byte{1})
		if fatal != 0 || a.Dropped() != 0 {
			t.Errorf("fatal = %d, dropped = %d, want 0, 0", fatal, a.Dropped())
		}
	})

	t.Run("first error is fatal once", func(t *testing.T) {
		var got []error
		a := NewReaderAdapter(NewByteChannel(1), time.Millisecond, 0, func(err error) { got = append(got, err) }, zap.NewNop())
		first := errors.New("unplugged")
		a.OnError(first)
		a.OnError(errors.New("again"))
		if len(got) != 1 || got[0] != first {
			t.Errorf("fatal calls = %v, want [%v]", got, first)
		}
	})
}

func TestSerialReader(t *testing.T) {
	port := newFakePort()
	port.feed([]byte("one"), []byte("two"))

	rec := &byteRecorder{}
	errc := make(chan error, 1)
	l := listenerFunc{data: rec.add, err: func(err error) { errc <- err }}

	r := StartSerialReader(context.Background(), port, l, 5*time.Millisecond, 64)
	waitFor(t, "both chunks", func() bool { return len(rec.bytes()) == 6 })
	if got := string(rec.bytes()); got != "onetwo" {
		t.Errorf("read %q, want %q", got, "onetwo")
	}

	unplugged := errors.New("unplugged")
	port.fail <- unplugged
	select {
	case err := <-errc:
		if err != unplugged {
			t.Errorf("OnError(%v), want %v", err, unplugged)
		}
	case <-time.After(time.Second):
		t.Fatal("read error not reported")
	}
	<-r.Done()
	r.Stop()
	r.Stop()
}

func TestSerialReaderStopIsQuiet(t *testing.T) {
	port := newFakePort()
	called := false
	l := listenerFunc{data: func([]byte) {}, err: func(error) { called = true }}

	r := StartSerialReader(context.Background(), port, l, 5*time.Millisecond, 64)
	r.Stop()
	if called {
		t.Error("Stop should not report an error")
	}
}

func TestPipeBridgeOrder(t *testing.T) {
	ch := NewByteChannel(8)
	pr, pw := io.Pipe()
	b := StartPipeBridge(context.Background(), ch, pw, nil)

	want := []byte{}
	for i := range 4 {
		chunk := bytes.Repeat([]byte{byte('a' + i)}, i+1)
		want = append(want, chunk...)
		ch.TrySend(chunk)
	}
	ch.Close()

	got, err := io.ReadAll(pr)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("piped %q, want %q", got, want)
	}
	<-b.Done()
	b.Stop()
}

func TestPipeBridgeWriteFailure(t *testing.T) {
	ch := NewByteChannel(2)
	pr, pw := io.Pipe()
	gone := errors.New("reader gone")
	pr.CloseWithError(gone)

	failed := make(chan error, 1)
	b := StartPipeBridge(context.Background(), ch, pw, func(err error) { failed <- err })
	ch.TrySend([]byte{1})

	select {
	case err := <-failed:
		if !errors.Is(err, gone) {
			t.Errorf("onFailure(%v), want %v", err, gone)
		}
	case <-time.After(time.Second):
		t.Fatal("write failure not reported")
	}
	b.Stop()
}

func TestPipeBridgeStopUnblocks(t *testing.T) {
	ch := NewByteChannel(2)
	pr, pw := io.Pipe()
	called := false
	b := StartPipeBridge(context.Background(), ch, pw, func(error) { called = true })

	// nobody reads: the write blocks until Stop closes the writer
	ch.TrySend([]byte{1})
	time.Sleep(10 * time.Millisecond)
	b.Stop()

	if called {
		t.Error("Stop should not report a failure")
	}
	if _, err := pr.Read(make([]byte, 1)); err != io.EOF {
		t.Errorf("Read after Stop error = %v, want EOF", err)
	}
}
