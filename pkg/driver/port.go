// Package driver wraps the Port backend capability with output
// reference-counting, retry-then-drop delivery, a note matrix for
// all-notes-off, and a bounded input queue with MIDI-thru.
package driver

import "errors"

// Port is the capability a backend must implement (§6.2). Ports are
// named by integer IDs assigned at enumeration; a backend may expose
// several.
type Port interface {
	OpenPort(id int) error
	ClosePort() error
	IsOpen() bool
	PortName(id int) (string, error)
	Send(data []byte) error
	SetInputCallback(fn func(timestampMs int64, data []byte))
	PortCount() (int, error)
}

// ErrPortNotOpen is returned by operations that require an open port.
var ErrPortNotOpen = errors.New("driver: port is not open")

// ErrPortBusy is the sentinel a Port implementation returns from Send
// when the backend cannot accept data right now; OutputDriver.Output retries
// on this specific error.
var ErrPortBusy = errors.New("driver: port busy")
