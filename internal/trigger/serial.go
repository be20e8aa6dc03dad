package trigger

import (
	"fmt"

	"go.bug.st/serial"
)

// Serial is a raw 8N1 serial port.
type Serial struct {
	name string
	port serial.Port
}

// OpenSerial opens port at baud with flow control off.
func OpenSerial(port string, baud int) (*Serial, error) {
	p, err := serial.Open(port, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", port, err)
	}
	return &Serial{name: port, port: p}, nil
}

func (s *Serial) Name() string { return s.name }

func (s *Serial) Write(p []byte) (int, error) { return s.port.Write(p) }

// Read blocks until at least one byte arrives or the port is closed.
func (s *Serial) Read(p []byte) (int, error) { return s.port.Read(p) }

// Drain blocks until everything written has left the transmit buffer.
func (s *Serial) Drain() error { return s.port.Drain() }

func (s *Serial) Close() error { return s.port.Close() }
