// Package surface is the contract the stimulus loop presents frames through.
package surface

import (
	"errors"
	"fmt"
	"image/color"
)

// PresentMode selects how presented frames are queued.
type PresentMode int

const (
	// PresentFIFO waits for vertical blank; one frame per refresh.
	PresentFIFO PresentMode = iota
	// PresentImmediate does not wait. Frames tear and the loop free-runs, so
	// it is only useful for bench tests of the trigger path.
	PresentImmediate
)

func (m PresentMode) String() string {
	if m == PresentImmediate {
		return "immediate"
	}
	return "fifo"
}

// ParsePresentMode accepts the names returned by String.
func ParsePresentMode(s string) (PresentMode, error) {
	switch s {
	case "fifo":
		return PresentFIFO, nil
	case "immediate":
		return PresentImmediate, nil
	}
	return PresentFIFO, fmt.Errorf("unknown present mode %q", s)
}

// Config is the presentation configuration. Only resize notifications change
// it after startup.
type Config struct {
	Width  int
	Height int
	Mode   PresentMode
}

// Frame is an acquired presentable image.
type Frame interface {
	Size() (w, h int)
}

// Surface is the presentation target driven by the stimulus loop.
type Surface interface {
	Configure(Config) error
	Acquire() (Frame, error)
	Submit(Frame, color.Color) error
	Present(Frame) error
}

var (
	ErrLost        = errors.New("surface lost")
	ErrOutdated    = errors.New("surface outdated")
	ErrTimeout     = errors.New("surface acquire timed out")
	ErrOutOfMemory = errors.New("surface out of memory")

	ErrNoDisplay     = errors.New("display index out of range")
	ErrNotAcquirable = errors.New("no frame bound to the current redraw")
	ErrForeignFrame  = errors.New("frame belongs to another surface")
)

// Class says whether a presentation failure can be skipped.
type Class int

const (
	Fatal Class = iota
	Recoverable
)

func (c Class) String() string {
	if c == Recoverable {
		return "recoverable"
	}
	return "fatal"
}

// Classify maps a surface error onto its class. Anything not known to be
// recoverable is fatal.
func Classify(err error) Class {
	switch {
	case errors.Is(err, ErrLost), errors.Is(err, ErrOutdated), errors.Is(err, ErrTimeout):
		return Recoverable
	}
	return Fatal
}

// SkipReason names a recoverable error for diagnostics.
func SkipReason(err error) string {
	switch {
	case errors.Is(err, ErrLost):
		return "lost"
	case errors.Is(err, ErrOutdated):
		return "outdated"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	}
	return "error"
}
