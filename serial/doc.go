// Package serial opens and drives serial lines for groundlink.
//
// Two backends sit behind the same Port interface: a raw termios driver built
// on golang.org/x/sys/unix (Linux only) and an adapter over go.bug.st/serial.
// Pick one with WithDriver.
//
// # Basic Usage
//
//	port, err := serial.Open("/dev/ttyACM0",
//	    serial.WithBaudRate(115200),
//	    serial.WithReadTimeout(100*time.Millisecond),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer port.Close()
//
// # Timeouts
//
// ReadTimeout returns 0, nil when nothing arrived in time, so a read loop can
// check its context between polls. WriteTimeout returns ErrWriteTimeout when
// the device did not take the data in time.
//
//	n, err := port.ReadTimeout(buf, 100*time.Millisecond)
//	if err != nil {
//	    // device gone
//	}
//	if n == 0 {
//	    // timeout, check ctx.Done() and poll again
//	}
//
// # Port Discovery
//
//	ports, err := serial.ListPorts()
//	for _, path := range ports {
//	    info, _ := serial.GetPortInfo(path)
//	    fmt.Printf("%s: %s (VID=%s PID=%s)\n", info.Path, info.Description, info.VendorID, info.ProductID)
//	}
//
// # Error Handling
//
// Open classifies OS errors into ErrDeviceNotFound, ErrPermissionDenied and
// ErrDeviceInUse regardless of backend; use errors.Is to check them.
//
// # Default Configuration
//
//   - Driver: termios
//   - BaudRate: 115200
//   - DataBits: 8
//   - StopBits: 1
//   - Parity: None
//   - ReadTimeout: 100ms
//   - WriteTimeout: 500ms
package serial
