// Package stimulus runs the frame-locked stimulus and trigger loop.
package stimulus

import (
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"time"

	"github.com/junsooki/FrameSync/internal/frame"
	"github.com/junsooki/FrameSync/internal/logging"
	"github.com/junsooki/FrameSync/internal/monitor"
	"github.com/junsooki/FrameSync/internal/surface"
	"github.com/junsooki/FrameSync/internal/trigger"
)

// DefaultSkipThreshold is the draw interval above which a frame is reported
// as skipped.
const DefaultSkipThreshold = 20 * time.Millisecond

// LinkPolicy decides which steady-state link failures the loop survives.
// Short writes and transport errors are always fatal.
type LinkPolicy struct {
	// MaxConsecutiveTimeouts is how many timed-out (or still busy) writes
	// in a row are logged and skipped before the loop gives up.
	MaxConsecutiveTimeouts int
}

// Options configure a Loop.
type Options struct {
	Surface surface.Surface
	Link    trigger.Sender
	Colors  ColorSpec

	// Period is the refresh rate in Hz. Zero starts with calibration.
	Period            uint32
	CalibrationFrames int

	SkipThreshold time.Duration
	Policy        LinkPolicy

	Sink monitor.Sink // optional; must not block
	Log  *slog.Logger

	Now func() time.Time
}

// Stats are running counters of the loop.
type Stats struct {
	Opportunities uint64
	Triggers      uint64
	Asserts       uint64
	Skipped       uint64
	SlowFrames    uint64
	LinkTimeouts  uint64
}

// Loop owns the frame cycle. OnRedraw and OnResize must be called from one
// goroutine, the display's event loop.
type Loop struct {
	surface surface.Surface
	link    trigger.Sender
	colors  ColorSpec
	policy  LinkPolicy
	sink    monitor.Sink
	log     *slog.Logger
	now     func() time.Time

	skipThreshold time.Duration

	cycle *frame.Cycle
	cal   *calibrator

	lastDraw time.Time
	timeouts int
	seq      uint64
	stats    Stats
}

var (
	ErrNoSurface = errors.New("stimulus: surface is required")
	ErrNoLink    = errors.New("stimulus: trigger link is required")
)

// New builds a loop. With a zero Period the loop calibrates first.
func New(opts Options) (*Loop, error) {
	if opts.Surface == nil {
		return nil, ErrNoSurface
	}
	if opts.Link == nil {
		return nil, ErrNoLink
	}
	l := &Loop{
		surface:       opts.Surface,
		link:          opts.Link,
		colors:        opts.Colors,
		policy:        opts.Policy,
		sink:          opts.Sink,
		log:           logging.OrDiscard(opts.Log),
		now:           opts.Now,
		skipThreshold: opts.SkipThreshold,
	}
	if l.now == nil {
		l.now = time.Now
	}
	if l.skipThreshold <= 0 {
		l.skipThreshold = DefaultSkipThreshold
	}
	if opts.Period == 0 {
		l.cal = newCalibrator(opts.CalibrationFrames)
		l.log.Info("refresh unknown, calibrating", "frames", l.cal.frames)
		return l, nil
	}
	if err := l.setPeriod(opts.Period); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Loop) setPeriod(hz uint32) error {
	c, err := frame.NewCycle(hz)
	if err != nil {
		return err
	}
	l.cycle = c
	l.log.Info("frame cycle ready", "period", hz)
	return nil
}

// Period returns the cycle period, or zero while calibrating.
func (l *Loop) Period() uint32 {
	if l.cycle == nil {
		return 0
	}
	return l.cycle.Period()
}

func (l *Loop) Stats() Stats { return l.stats }

// OnResize reconfigures the surface. A zero dimension is ignored.
func (l *Loop) OnResize(w, h int) error {
	if w <= 0 || h <= 0 {
		return nil
	}
	l.log.Debug("resize", "width", w, "height", h)
	if err := l.surface.Configure(surface.Config{Width: w, Height: h}); err != nil {
		return fmt.Errorf("configure surface: %w", err)
	}
	return nil
}

// OnRedraw handles one presentation opportunity: draw, then signal.
func (l *Loop) OnRedraw() error {
	if l.cal != nil {
		return l.calibrationStep()
	}

	value, period := l.cycle.Value(), l.cycle.Period()
	state := frame.StateAt(value)
	cmd := frame.CommandFor(state)
	l.cycle.Advance()
	l.stats.Opportunities++

	l.seq++
	ev := monitor.Event{
		Seq:     l.seq,
		Cycle:   value,
		Period:  period,
		State:   state.String(),
		Command: cmd.String(),
	}

	if err := l.render(l.colors.For(state)); err != nil {
		if surface.Classify(err) == surface.Fatal {
			l.log.Error("presentation failed", "err", err)
			return fmt.Errorf("present: %w", err)
		}
		l.stats.Skipped++
		ev.TimeMS = l.now().UnixMilli()
		ev.Skip = surface.SkipReason(err)
		l.log.Warn("presentation skipped, trigger not sent", "reason", ev.Skip, "cycle", value)
		l.emit(ev)
		return nil
	}
	l.log.Debug("render finished", "cycle", value, "state", state)

	now := l.now()
	ev.TimeMS = now.UnixMilli()
	if !l.lastDraw.IsZero() {
		interval := now.Sub(l.lastDraw)
		ev.IntervalUS = interval.Microseconds()
		if interval > l.skipThreshold {
			l.stats.SlowFrames++
			l.log.Info("frame was skipped", "interval", interval)
		}
	}
	l.lastDraw = now

	if err := l.send(cmd); err != nil {
		if !l.tolerate(err) {
			l.log.Error("trigger failed", "command", cmd, "err", err)
			return fmt.Errorf("trigger: %w", err)
		}
		ev.Skip = "link_" + string(trigger.KindOf(err))
		l.emit(ev)
		return nil
	}
	l.timeouts = 0
	l.stats.Triggers++
	if cmd == frame.Assert {
		l.stats.Asserts++
	}
	ev.Written = true
	l.emit(ev)
	return nil
}

func (l *Loop) render(c color.Color) error {
	f, err := l.surface.Acquire()
	if err != nil {
		return err
	}
	if err := l.surface.Submit(f, c); err != nil {
		return err
	}
	return l.surface.Present(f)
}

func (l *Loop) send(cmd frame.Command) error {
	if cmd == frame.Assert {
		return l.link.Assert()
	}
	return l.link.Deassert()
}

// tolerate applies the link policy to a failed write.
func (l *Loop) tolerate(err error) bool {
	switch trigger.KindOf(err) {
	case trigger.KindTimeout, trigger.KindBusy:
	default:
		return false
	}
	if l.timeouts >= l.policy.MaxConsecutiveTimeouts {
		return false
	}
	l.timeouts++
	l.stats.LinkTimeouts++
	l.log.Warn("trigger write timed out", "err", err, "consecutive", l.timeouts)
	return true
}

func (l *Loop) emit(ev monitor.Event) {
	if l.sink == nil {
		return
	}
	if err := l.sink.Publish(ev); err != nil {
		l.log.Debug("monitor publish", "err", err)
	}
}
