package trigger

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/junsooki/FrameSync/internal/frame"
	"github.com/junsooki/FrameSync/internal/logging"
)

// DefaultWriteTimeout bounds one write plus drain.
const DefaultWriteTimeout = 100 * time.Millisecond

// Link sends trigger commands to the bridge device, one byte per command.
// It is not re-entrant; the stimulus loop is the only caller.
type Link struct {
	t       Transport
	timeout time.Duration
	log     *slog.Logger

	// busy is set while a transfer is in flight, including one the caller
	// has already given up on after a timeout.
	busy atomic.Bool

	writes atomic.Uint64
}

// New wraps t. A timeout of zero or less waits for the transport without
// bound.
func New(t Transport, timeout time.Duration, log *slog.Logger) *Link {
	return &Link{
		t:       t,
		timeout: timeout,
		log:     logging.OrDiscard(log),
	}
}

func (l *Link) Assert() error   { return l.Send(frame.Assert) }
func (l *Link) Deassert() error { return l.Send(frame.Deassert) }

// Handshake forces the device output low. Any failure is fatal.
func (l *Link) Handshake() error {
	if err := l.Deassert(); err != nil {
		return fmt.Errorf("%w: %w", ErrHandshake, err)
	}
	l.log.Info("bridge forced low")
	return nil
}

// Writes returns how many commands were fully written and drained.
func (l *Link) Writes() uint64 { return l.writes.Load() }

// Close closes the transport.
func (l *Link) Close() error { return l.t.Close() }

// Send writes the byte for cmd and waits for it to drain.
func (l *Link) Send(cmd frame.Command) error {
	op := cmd.String()
	if !l.busy.CompareAndSwap(false, true) {
		return &LinkError{Op: op, Kind: KindBusy}
	}
	if l.timeout <= 0 {
		defer l.busy.Store(false)
		return l.transfer(op, cmd.Byte())
	}

	done := make(chan error, 1)
	go func() {
		err := l.transfer(op, cmd.Byte())
		l.busy.Store(false)
		done <- err
	}()

	timer := time.NewTimer(l.timeout)
	defer timer.Stop()
	select {
	case err := <-done:
		return err
	case <-timer.C:
		return &LinkError{Op: op, Kind: KindTimeout, Err: fmt.Errorf("no completion after %v", l.timeout)}
	}
}

func (l *Link) transfer(op string, b byte) error {
	n, err := l.t.Write([]byte{b})
	if err != nil {
		return &LinkError{Op: op, Kind: KindTransport, N: n, Err: err}
	}
	if n != 1 {
		return &LinkError{Op: op, Kind: KindShortWrite, N: n}
	}
	if err := l.t.Drain(); err != nil {
		return &LinkError{Op: op, Kind: KindTransport, N: n, Err: fmt.Errorf("drain: %w", err)}
	}
	l.writes.Add(1)
	l.log.Debug("trigger written", "command", op)
	return nil
}
