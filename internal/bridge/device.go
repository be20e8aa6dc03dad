package bridge

import (
	"errors"

	"github.com/junsooki/FrameSync/internal/frame"
)

// Output drives one digital line to a physical level.
type Output interface {
	Set(high bool)
}

// Receiver polls the command channel once and reads whatever is pending into
// buf. A return of zero bytes means nothing was pending.
type Receiver interface {
	PollAndRead(buf []byte) (int, error)
}

// Level is the logical trigger output level.
type Level uint8

const (
	Low Level = iota
	High
)

func (l Level) String() string {
	if l == High {
		return "high"
	}
	return "low"
}

var (
	ErrNoReceiver = errors.New("bridge: receiver is required")
	ErrNoPin      = errors.New("bridge: output pin is required")
)

// Config wires a Context to its drivers.
type Config struct {
	Pin      Output
	LED      Output // optional
	Receiver Receiver
	Polarity Polarity

	// OnHalt runs once when the context halts on a fault.
	OnHalt func(error)
}

// Context owns all mutable device state. It is only ever touched from the
// interrupt body, reached through a Cell.
type Context struct {
	pin      Output
	led      Output
	rx       Receiver
	polarity Polarity
	onHalt   func(error)

	level  Level
	halted bool
	fault  error

	buf [32]byte

	accepted uint32
	rejected uint32
}

// NewContext drives both outputs to Low before returning, so the initial
// state is established before the receiver is armed.
func NewContext(cfg Config) (*Context, error) {
	if cfg.Pin == nil {
		return nil, ErrNoPin
	}
	if cfg.Receiver == nil {
		return nil, ErrNoReceiver
	}
	c := &Context{
		pin:      cfg.Pin,
		led:      cfg.LED,
		rx:       cfg.Receiver,
		polarity: cfg.Polarity,
		onHalt:   cfg.OnHalt,
	}
	c.drive(Low)
	return c, nil
}

func (c *Context) Level() Level { return c.level }
func (c *Context) Halted() bool { return c.halted }
func (c *Context) Fault() error { return c.fault }

// Counts returns how many reads were accepted as commands and how many were
// rejected as malformed.
func (c *Context) Counts() (accepted, rejected uint32) { return c.accepted, c.rejected }

// Service is the interrupt body: poll once, read once, apply at most one
// transition.
func (c *Context) Service() {
	if c.halted {
		return
	}
	n, err := c.rx.PollAndRead(c.buf[:])
	if err != nil {
		c.Halt(err)
		return
	}
	if n <= 0 {
		return
	}
	if n > len(c.buf) {
		c.rejected++
		return
	}
	lvl, ok := Decode(c.buf[:n])
	if !ok {
		c.rejected++
		return
	}
	c.accepted++
	c.level = lvl
	c.drive(lvl)
}

// Halt stops the context for good. The outputs are left deasserted.
func (c *Context) Halt(err error) {
	if c.halted {
		return
	}
	c.halted = true
	c.fault = err
	c.level = Low
	c.drive(Low)
	if c.onHalt != nil {
		c.onHalt(err)
	}
}

func (c *Context) drive(l Level) {
	high := l == High
	c.pin.Set(high != c.polarity.PinActiveLow)
	if c.led != nil {
		c.led.Set(high != c.polarity.LEDActiveLow)
	}
}

// Decode accepts only a read of exactly one byte carrying '0' or '1'.
func Decode(p []byte) (Level, bool) {
	if len(p) != 1 {
		return Low, false
	}
	switch p[0] {
	case frame.ByteDeassert:
		return Low, true
	case frame.ByteAssert:
		return High, true
	}
	return Low, false
}
