package bridge

import (
	"errors"
	"sync/atomic"
)

var (
	ErrCellInstalled = errors.New("bridge: cell already installed")
	ErrNilContext    = errors.New("bridge: nil context")
)

// Cell hands the device Context to the interrupt body. While a holder is
// inside With the slot is empty, so a second holder cannot exist.
type Cell struct {
	slot      atomic.Pointer[Context]
	installed atomic.Bool
}

// Install places ctx in the cell. It succeeds exactly once.
func (c *Cell) Install(ctx *Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	if !c.installed.CompareAndSwap(false, true) {
		return ErrCellInstalled
	}
	c.slot.Store(ctx)
	return nil
}

// With runs fn with exclusive access to the context. It returns false when
// the cell is empty, either because nothing was installed yet or because
// another holder is running.
func (c *Cell) With(fn func(*Context)) bool {
	ctx := c.slot.Swap(nil)
	if ctx == nil {
		return false
	}
	defer c.slot.Store(ctx)
	fn(ctx)
	return true
}
