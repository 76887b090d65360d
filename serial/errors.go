package serial

import "errors"

// Sentinel errors returned by both drivers; compare with errors.Is
var (
	ErrDeviceNotFound   = errors.New("serial device not found")
	ErrPermissionDenied = errors.New("permission denied accessing serial device")
	ErrDeviceInUse      = errors.New("serial device already in use")
	ErrInvalidBaudRate  = errors.New("invalid baud rate")
	ErrInvalidConfig    = errors.New("invalid serial configuration")
	ErrPortClosed       = errors.New("serial port is closed")
	ErrWriteTimeout     = errors.New("write operation timed out")
	ErrDriverNotAvail   = errors.New("serial driver not available on this platform")

	ErrUSBInfoNotAvailable = errors.New("USB device information not available")
)
