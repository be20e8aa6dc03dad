package trigger

import "io"

// Transport carries trigger bytes to the bridge device.
type Transport interface {
	io.Writer
	io.Closer

	// Drain blocks until everything written has left the transmit buffer.
	Drain() error
}

// Sender is the part of a Link the stimulus loop depends on.
type Sender interface {
	Assert() error
	Deassert() error
}
