// Package link moves bytes between a serial device and the two transports:
// an in-process MAVLink decoder (DirectPipeline) and a loopback UDP peer
// (ProxyPipeline).
package link

import (
	"io"
	"time"

	"github.com/allbin/groundlink/internal/mavlink"
)

// Port is the part of serial.Port the pipelines use
type Port interface {
	ReadTimeout(buf []byte, timeout time.Duration) (int, error)
	WriteTimeout(data []byte, timeout time.Duration) (int, error)
	Close() error
}

// OpenFunc opens and configures the device at path
type OpenFunc func(device string) (Port, error)

// Decoder yields frames from a byte stream until it fails
type Decoder interface {
	Next() (*mavlink.Frame, error)
}

// Encoder frames messages onto a byte sink
type Encoder interface {
	Send(systemID, componentID uint8, msg mavlink.Message) error
}

type DecoderFactory func(r io.Reader) Decoder

type EncoderFactory func(w io.Writer) Encoder

// MAVLinkDecoder is the default DecoderFactory
func MAVLinkDecoder(r io.Reader) Decoder {
	return mavlink.NewReader(r)
}

// MAVLinkEncoder returns an EncoderFactory producing frames of the given version
func MAVLinkEncoder(version int) EncoderFactory {
	return func(w io.Writer) Encoder {
		return mavlink.NewWriter(w, version)
	}
}
