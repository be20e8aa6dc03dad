package frame

import "errors"

// ErrZeroPeriod is returned when a cycle is built with a period of zero.
var ErrZeroPeriod = errors.New("frame cycle period must be at least 1")

// State is the stimulus state derived from a cycle value.
type State int

const (
	Background State = iota
	Stimulus
)

func (s State) String() string {
	if s == Stimulus {
		return "stimulus"
	}
	return "background"
}

// Command is the trigger command sent to the bridge device.
type Command int

const (
	Deassert Command = iota
	Assert
)

// Wire bytes accepted by the bridge device.
const (
	ByteAssert   byte = '1'
	ByteDeassert byte = '0'
)

func (c Command) String() string {
	if c == Assert {
		return "assert"
	}
	return "deassert"
}

// Byte returns the single byte that carries c on the trigger link.
func (c Command) Byte() byte {
	if c == Assert {
		return ByteAssert
	}
	return ByteDeassert
}

// CommandFor maps a stimulus state to its trigger command.
func CommandFor(s State) Command {
	if s == Stimulus {
		return Assert
	}
	return Deassert
}

// StateAt is Stimulus only on the first frame of each cycle.
func StateAt(value uint32) State {
	if value == 0 {
		return Stimulus
	}
	return Background
}

// Cycle counts presentation opportunities modulo a fixed period.
type Cycle struct {
	value  uint32
	period uint32
}

// NewCycle returns a cycle starting at zero.
func NewCycle(period uint32) (*Cycle, error) {
	if period == 0 {
		return nil, ErrZeroPeriod
	}
	return &Cycle{period: period}, nil
}

func (c *Cycle) Value() uint32  { return c.value }
func (c *Cycle) Period() uint32 { return c.period }

// State returns the stimulus state for the current value.
func (c *Cycle) State() State { return StateAt(c.value) }

// Advance moves the counter forward by one, wrapping at the period.
func (c *Cycle) Advance() {
	c.value++
	if c.value >= c.period {
		c.value = 0
	}
}
