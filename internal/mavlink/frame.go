package mavlink

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/bluenviron/gomavlib/v3/pkg/dialect"
	"github.com/bluenviron/gomavlib/v3/pkg/dialects/ardupilotmega"
	"github.com/bluenviron/gomavlib/v3/pkg/frame"
)

const (
	headerLenV1  = 5 // after STX: len seq sys comp msgid
	headerLenV2  = 9 // after STX: len incompat compat seq sys comp msgid[3]
	signatureLen = 13
)

// dialectRW holds the wire definitions of every message a vehicle may send
var dialectRW = func() *dialect.ReadWriter {
	rw := &dialect.ReadWriter{Dialect: ardupilotmega.Dialect}
	if err := rw.Initialize(); err != nil {
		panic(err)
	}
	return rw
}()

// errResync marks a candidate frame that failed verification
var errResync = errors.New("mavlink: resync")

// Frame is one decoded packet and the identity of the system that sent it
type Frame struct {
	Version     int
	Seq         uint8
	SystemID    uint8
	ComponentID uint8
	Message     Message
}

// Reader pulls frames out of a byte stream. A candidate whose message ID is
// not in the dialect, or whose checksum fails, is dropped and scanning
// resumes at the byte after its start marker.
type Reader struct {
	br *bufio.Reader

	// each candidate is handed to gomavlib on its own
	cand *bytes.Reader
	fr   *frame.Reader

	dropped   int
	truncated bool
}

func NewReader(r io.Reader) *Reader {
	cand := bytes.NewReader(nil)
	fr := &frame.Reader{
		BufByteReader: bufio.NewReaderSize(cand, 512),
		DialectRW:     dialectRW,
	}
	if err := fr.Initialize(); err != nil {
		panic(err)
	}
	return &Reader{br: bufio.NewReaderSize(r, 1024), cand: cand, fr: fr}
}

// Dropped returns how many candidate frames failed verification
func (r *Reader) Dropped() int { return r.dropped }

// Next blocks until a frame is decoded or the stream fails. io.EOF means the
// stream ended cleanly between frames, io.ErrUnexpectedEOF that it ended
// inside one.
func (r *Reader) Next() (*Frame, error) {
	for {
		stx, err := r.br.Peek(1)
		if err != nil {
			if errors.Is(err, io.EOF) && r.truncated {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		if stx[0] != frame.V1MagicByte && stx[0] != frame.V2MagicByte {
			r.br.Discard(1)
			continue
		}

		f, n, err := r.decode(stx[0])
		switch {
		case err == nil:
			r.truncated = false
			if _, err := r.br.Discard(n); err != nil {
				return nil, err
			}
			return f, nil
		case errors.Is(err, errResync):
			r.dropped++
		case errors.Is(err, io.EOF):
			// a shorter frame may still start inside the cut one
			r.truncated = true
		default:
			return nil, err
		}
		r.br.Discard(1)
	}
}

// decode verifies the candidate starting at the buffered STX without
// consuming it and returns its length on the wire.
func (r *Reader) decode(stx byte) (*Frame, int, error) {
	hdrLen := headerLenV1
	if stx == frame.V2MagicByte {
		hdrLen = headerLenV2
	}
	hdr, err := r.br.Peek(1 + hdrLen)
	if err != nil {
		return nil, 0, err
	}

	n := 1 + hdrLen + int(hdr[1]) + 2
	var id uint32
	if stx == frame.V1MagicByte {
		id = uint32(hdr[5])
	} else {
		id = uint32(hdr[7]) | uint32(hdr[8])<<8 | uint32(hdr[9])<<16
		if hdr[2]&frame.V2FlagSigned != 0 {
			n += signatureLen
		}
	}

	// an ID outside the dialect has no CRC extra to check against, so its
	// length cannot be trusted either
	if dialectRW.GetMessage(id) == nil {
		return nil, 0, errResync
	}

	buf, err := r.br.Peek(n)
	if err != nil {
		return nil, 0, err
	}
	r.cand.Reset(buf)
	r.fr.BufByteReader.Reset(r.cand)
	decoded, err := r.fr.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", errResync, err)
	}

	f := &Frame{
		Version:     2,
		Seq:         decoded.GetSequenceNumber(),
		SystemID:    decoded.GetSystemID(),
		ComponentID: decoded.GetComponentID(),
		Message:     fromDialect(decoded.GetMessage()),
	}
	if _, ok := decoded.(*frame.V1Frame); ok {
		f.Version = 1
	}
	return f, n, nil
}

// Writer encodes messages onto a byte sink. It is safe for concurrent use;
// each frame is handed to the sink in a single Write.
type Writer struct {
	mu      sync.Mutex
	fw      *frame.Writer
	version int
	seq     uint8
}

// NewWriter returns a Writer emitting version 1 or 2 frames
func NewWriter(w io.Writer, version int) *Writer {
	if version != 1 {
		version = 2
	}
	fw := &frame.Writer{ByteWriter: w, DialectRW: dialectRW}
	if err := fw.Initialize(); err != nil {
		panic(err)
	}
	return &Writer{fw: fw, version: version}
}

// Send frames msg as coming from systemID/componentID
func (w *Writer) Send(systemID, componentID uint8, msg Message) error {
	id := msg.MessageID()
	dm := msg.dialect()
	if dm == nil {
		return fmt.Errorf("%w: id %d", ErrUnknownMessage, id)
	}
	mp := dialectRW.GetMessage(id)
	if mp == nil {
		return fmt.Errorf("%w: id %d", ErrUnknownMessage, id)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	var f frame.Frame
	switch w.version {
	case 1:
		if id > 0xFF {
			return ErrIDTooLarge
		}
		v1 := &frame.V1Frame{
			SequenceNumber: w.seq,
			SystemID:       systemID,
			ComponentID:    componentID,
			Message:        mp.Write(dm, false),
		}
		v1.Checksum = v1.GenerateChecksum(mp.CRCExtra())
		f = v1
	default:
		// trailing zero bytes are trimmed by the encoder
		v2 := &frame.V2Frame{
			SequenceNumber: w.seq,
			SystemID:       systemID,
			ComponentID:    componentID,
			Message:        mp.Write(dm, true),
		}
		v2.Checksum = v2.GenerateChecksum(mp.CRCExtra())
		f = v2
	}

	if err := w.fw.Write(f); err != nil {
		return err
	}
	w.seq++
	return nil
}
