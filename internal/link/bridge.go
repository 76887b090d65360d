package link

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DatagramConn is the connected UDP socket side of the bridge. *net.UDPConn
// satisfies it.
type DatagramConn interface {
	Read(b []byte) (int, error)
	Write(b []byte) (int, error)
	SetReadDeadline(t time.Time) error
	Close() error
}

// BridgeConfig tunes the two pumps
type BridgeConfig struct {
	BufferSize   int
	PollInterval time.Duration // read timeout on both sides
	WriteTimeout time.Duration // serial writes
}

func DefaultBridgeConfig() BridgeConfig {
	return BridgeConfig{
		BufferSize:   4096,
		PollInterval: 100 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	}
}

// DatagramBridge copies serial chunks to the UDP peer and datagrams back to
// the serial port. The two pumps live and die together.
type DatagramBridge struct {
	port Port
	conn DatagramConn
	cfg  BridgeConfig
	tap  func([]byte)
	log  *zap.Logger
}

func NewDatagramBridge(port Port, conn DatagramConn, cfg BridgeConfig, log *zap.Logger) *DatagramBridge {
	if log == nil {
		log = zap.NewNop()
	}
	return &DatagramBridge{port: port, conn: conn, cfg: cfg, log: log}
}

// SetTap registers fn to see a copy of every serial->datagram chunk. fn must
// not block. Call before Run.
func (b *DatagramBridge) SetTap(fn func([]byte)) {
	b.tap = fn
}

// Run blocks until both pumps have exited. Either pump exiting, for any
// reason, stops the other. The first pump error is returned; a plain
// cancellation returns nil.
func (b *DatagramBridge) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return b.serialToDatagram(gctx)
	})
	g.Go(func() error {
		defer cancel()
		return b.datagramToSerial(gctx)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (b *DatagramBridge) serialToDatagram(ctx context.Context) error {
	buf := make([]byte, b.cfg.BufferSize)
	for {
		if ctx.Err() != nil {
			return nil
		}

		n, err := b.port.ReadTimeout(buf, b.cfg.PollInterval)
		if err != nil {
			return fmt.Errorf("serial read: %w", err)
		}
		if n == 0 {
			continue
		}

		if b.tap != nil {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			b.tap(chunk)
		}

		if _, err := b.conn.Write(buf[:n]); err != nil {
			if isRefused(err) {
				// peer not listening yet; the vehicle keeps streaming
				b.log.Debug("datagram peer refused", zap.Int("bytes", n))
				continue
			}
			return fmt.Errorf("datagram send: %w", err)
		}
	}
}

func (b *DatagramBridge) datagramToSerial(ctx context.Context) error {
	buf := make([]byte, b.cfg.BufferSize)
	for {
		if ctx.Err() != nil {
			return nil
		}

		if err := b.conn.SetReadDeadline(time.Now().Add(b.cfg.PollInterval)); err != nil {
			return fmt.Errorf("datagram deadline: %w", err)
		}
		n, err := b.conn.Read(buf)
		if err != nil {
			if isTimeout(err) || isRefused(err) {
				continue
			}
			return fmt.Errorf("datagram receive: %w", err)
		}
		if n == 0 {
			continue
		}

		if _, err := b.port.WriteTimeout(buf[:n], b.cfg.WriteTimeout); err != nil {
			return fmt.Errorf("serial write: %w", err)
		}
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func isRefused(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED)
}
