package stimulus

import (
	"errors"
	"fmt"
	"image/color"
	"testing"
	"time"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/junsooki/FrameSync/internal/frame"
	"github.com/junsooki/FrameSync/internal/monitor"
	"github.com/junsooki/FrameSync/internal/surface"
	"github.com/junsooki/FrameSync/internal/trigger"
)

// recorder keeps one ordered log of surface and link calls.
type recorder struct {
	calls []string
}

func (r *recorder) add(format string, args ...any) {
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
}

type fakeFrame struct{ w, h int }

func (f fakeFrame) Size() (int, int) { return f.w, f.h }

type fakeSurface struct {
	rec        *recorder
	cfg        surface.Config
	acquireErr map[int]error // keyed by acquire call index
	presentErr map[int]error
	acquires   int
	presents   int
	colors     []color.Color
}

func newFakeSurface(rec *recorder) *fakeSurface {
	return &fakeSurface{
		rec:        rec,
		cfg:        surface.Config{Width: 640, Height: 480},
		acquireErr: map[int]error{},
		presentErr: map[int]error{},
	}
}

func (s *fakeSurface) Configure(cfg surface.Config) error {
	s.rec.add("configure %dx%d", cfg.Width, cfg.Height)
	s.cfg = cfg
	return nil
}

func (s *fakeSurface) Acquire() (surface.Frame, error) {
	i := s.acquires
	s.acquires++
	if err := s.acquireErr[i]; err != nil {
		s.rec.add("acquire error")
		return nil, err
	}
	s.rec.add("acquire")
	return fakeFrame{s.cfg.Width, s.cfg.Height}, nil
}

func (s *fakeSurface) Submit(f surface.Frame, c color.Color) error {
	s.rec.add("submit")
	s.colors = append(s.colors, c)
	return nil
}

func (s *fakeSurface) Present(f surface.Frame) error {
	i := s.presents
	s.presents++
	if err := s.presentErr[i]; err != nil {
		s.rec.add("present error")
		return err
	}
	s.rec.add("present")
	return nil
}

type fakeLink struct {
	rec  *recorder
	sent []frame.Command
	errs []error // consumed one per send; nil entries succeed
}

func (l *fakeLink) next(cmd frame.Command) error {
	var err error
	if len(l.errs) > 0 {
		err, l.errs = l.errs[0], l.errs[1:]
	}
	if err != nil {
		l.rec.add("%s error", cmd)
		return err
	}
	l.rec.add("%s", cmd)
	l.sent = append(l.sent, cmd)
	return nil
}

func (l *fakeLink) Assert() error   { return l.next(frame.Assert) }
func (l *fakeLink) Deassert() error { return l.next(frame.Deassert) }

type fakeClock struct {
	t    time.Time
	step time.Duration
}

func (c *fakeClock) now() time.Time {
	c.t = c.t.Add(c.step)
	return c.t
}

type sliceSink struct{ events []monitor.Event }

func (s *sliceSink) Publish(ev monitor.Event) error { s.events = append(s.events, ev); return nil }
func (s *sliceSink) Close() error                   { return nil }

type fixture struct {
	rec   *recorder
	surf  *fakeSurface
	link  *fakeLink
	sink  *sliceSink
	clock *fakeClock
	loop  *Loop
}

func newFixture(t *testing.T, period uint32, mod func(*Options)) *fixture {
	t.Helper()
	rec := &recorder{}
	f := &fixture{
		rec:   rec,
		surf:  newFakeSurface(rec),
		link:  &fakeLink{rec: rec},
		sink:  &sliceSink{},
		clock: &fakeClock{t: time.Unix(1000, 0), step: time.Second / 60},
	}
	colors, err := NewColorSpec(0.2, 0.9)
	if err != nil {
		t.Fatal(err)
	}
	opts := Options{
		Surface: f.surf,
		Link:    f.link,
		Colors:  colors,
		Period:  period,
		Sink:    f.sink,
		Now:     f.clock.now,
	}
	if mod != nil {
		mod(&opts)
	}
	f.loop, err = New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return f
}

func (f *fixture) redraw(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := f.loop.OnRedraw(); err != nil {
			t.Fatalf("OnRedraw %d: %v", i, err)
		}
	}
}

func TestSixtyHertzCycle(t *testing.T) {
	f := newFixture(t, 60, nil)
	f.redraw(t, 61)

	if len(f.link.sent) != 61 {
		t.Fatalf("sent %d commands, want 61", len(f.link.sent))
	}
	for i, cmd := range f.link.sent {
		want := frame.Deassert
		if i == 0 || i == 60 {
			want = frame.Assert
		}
		if cmd != want {
			t.Fatalf("opportunity %d sent %v, want %v", i, cmd, want)
		}
	}
	asserts := 0
	for _, cmd := range f.link.sent[:60] {
		if cmd == frame.Assert {
			asserts++
		}
	}
	if asserts != 1 {
		t.Fatalf("asserts in one period = %d, want 1", asserts)
	}

	colors, _ := NewColorSpec(0.2, 0.9)
	if f.surf.colors[0] != color.Color(colors.Stimulus()) || f.surf.colors[1] != color.Color(colors.Background()) {
		t.Fatalf("fills = %v, %v", f.surf.colors[0], f.surf.colors[1])
	}
	st := f.loop.Stats()
	if st.Opportunities != 61 || st.Triggers != 61 || st.Asserts != 2 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestDrawPrecedesTrigger(t *testing.T) {
	f := newFixture(t, 4, nil)
	f.redraw(t, 8)

	presented := false
	for i, c := range f.rec.calls {
		switch c {
		case "acquire":
			presented = false
		case "present":
			presented = true
		case "assert", "deassert":
			if !presented {
				t.Fatalf("call %d (%s) issued before present: %v", i, c, f.rec.calls)
			}
			presented = false
		}
	}
}

func TestOutdatedSkipsTriggerAndAdvances(t *testing.T) {
	f := newFixture(t, 3, nil)
	f.surf.acquireErr[1] = surface.ErrOutdated
	f.redraw(t, 4)

	// Opportunity 1 is lost; 0, 2 and 3 are written with their own states.
	want := []frame.Command{frame.Assert, frame.Deassert, frame.Assert}
	if len(f.link.sent) != len(want) {
		t.Fatalf("sent %v, want %v", f.link.sent, want)
	}
	for i := range want {
		if f.link.sent[i] != want[i] {
			t.Fatalf("sent %v, want %v", f.link.sent, want)
		}
	}
	if f.loop.cycle.Value() != 1 {
		t.Fatalf("cycle = %d, want 1", f.loop.cycle.Value())
	}
	if st := f.loop.Stats(); st.Skipped != 1 || st.Opportunities != 4 {
		t.Fatalf("stats = %+v", st)
	}

	skipped := f.sink.events[1]
	if skipped.Written || skipped.Skip != "outdated" || skipped.Cycle != 1 {
		t.Fatalf("skip event = %+v", skipped)
	}
}

func TestRecoverablePresentErrors(t *testing.T) {
	for _, err := range []error{surface.ErrLost, surface.ErrTimeout} {
		t.Run(err.Error(), func(t *testing.T) {
			f := newFixture(t, 2, nil)
			f.surf.presentErr[0] = err
			f.redraw(t, 2)
			if len(f.link.sent) != 1 || f.link.sent[0] != frame.Deassert {
				t.Fatalf("sent %v, want only the deassert of opportunity 1", f.link.sent)
			}
		})
	}
}

func TestOutOfMemoryIsFatal(t *testing.T) {
	f := newFixture(t, 60, nil)
	f.surf.acquireErr[0] = fmt.Errorf("gpu: %w", surface.ErrOutOfMemory)
	err := f.loop.OnRedraw()
	if !errors.Is(err, surface.ErrOutOfMemory) {
		t.Fatalf("OnRedraw = %v, want out of memory", err)
	}
	if len(f.link.sent) != 0 {
		t.Fatalf("trigger written after fatal error: %v", f.link.sent)
	}
}

func TestUnknownSurfaceErrorIsFatal(t *testing.T) {
	f := newFixture(t, 60, nil)
	f.surf.presentErr[0] = errors.New("device removed")
	if err := f.loop.OnRedraw(); err == nil {
		t.Fatal("expected error")
	}
}

func TestLinkErrorsAreFatalByDefault(t *testing.T) {
	kinds := []trigger.Kind{trigger.KindShortWrite, trigger.KindTransport, trigger.KindTimeout, trigger.KindBusy}
	for _, k := range kinds {
		t.Run(string(k), func(t *testing.T) {
			f := newFixture(t, 60, nil)
			f.link.errs = []error{&trigger.LinkError{Op: "assert", Kind: k}}
			err := f.loop.OnRedraw()
			if !errors.Is(err, k) {
				t.Fatalf("OnRedraw = %v, want %s", err, k)
			}
		})
	}
}

func TestLinkPolicyToleratesTimeouts(t *testing.T) {
	timeout := &trigger.LinkError{Op: "deassert", Kind: trigger.KindTimeout}
	busy := &trigger.LinkError{Op: "deassert", Kind: trigger.KindBusy}

	f := newFixture(t, 60, func(o *Options) { o.Policy.MaxConsecutiveTimeouts = 2 })
	f.link.errs = []error{nil, timeout, busy, nil, timeout, timeout, timeout}

	f.redraw(t, 6)
	if st := f.loop.Stats(); st.LinkTimeouts != 4 || st.Triggers != 2 {
		t.Fatalf("stats = %+v", st)
	}
	if err := f.loop.OnRedraw(); !errors.Is(err, trigger.KindTimeout) {
		t.Fatalf("third consecutive timeout = %v, want fatal", err)
	}

	g := newFixture(t, 60, func(o *Options) { o.Policy.MaxConsecutiveTimeouts = 5 })
	g.link.errs = []error{&trigger.LinkError{Op: "assert", Kind: trigger.KindShortWrite}}
	if err := g.loop.OnRedraw(); !errors.Is(err, trigger.KindShortWrite) {
		t.Fatalf("short write tolerated: %v", err)
	}
}

func TestSkipDiagnosticCountsSlowFrames(t *testing.T) {
	f := newFixture(t, 60, nil)
	f.redraw(t, 3)
	f.clock.step = 50 * time.Millisecond
	f.redraw(t, 2)
	if st := f.loop.Stats(); st.SlowFrames != 2 {
		t.Fatalf("slow frames = %d, want 2", st.SlowFrames)
	}
	if iv := f.sink.events[4].IntervalUS; iv != 50000 {
		t.Fatalf("interval = %dus", iv)
	}
}

func TestOnResize(t *testing.T) {
	f := newFixture(t, 60, nil)
	if err := f.loop.OnResize(0, 1080); err != nil {
		t.Fatal(err)
	}
	if err := f.loop.OnResize(1920, 0); err != nil {
		t.Fatal(err)
	}
	if len(f.rec.calls) != 0 {
		t.Fatalf("zero-size resize reached the surface: %v", f.rec.calls)
	}
	if err := f.loop.OnResize(1920, 1080); err != nil {
		t.Fatal(err)
	}
	if f.surf.cfg.Width != 1920 || f.surf.cfg.Height != 1080 {
		t.Fatalf("cfg = %+v", f.surf.cfg)
	}
	if f.loop.cycle.Value() != 0 || len(f.link.sent) != 0 {
		t.Fatal("resize touched the cycle or the link")
	}
}

func TestNewValidates(t *testing.T) {
	if _, err := New(Options{Link: &fakeLink{}}); !errors.Is(err, ErrNoSurface) {
		t.Fatalf("err = %v", err)
	}
	if _, err := New(Options{Surface: newFakeSurface(&recorder{})}); !errors.Is(err, ErrNoLink) {
		t.Fatalf("err = %v", err)
	}
}

func TestColorSpecRange(t *testing.T) {
	tests := []struct {
		bg, stim float64
		ok       bool
	}{
		{0, 1, true},
		{0.2, 0.9, true},
		{-0.1, 0.5, false},
		{0.5, 1.5, false},
	}
	for _, tt := range tests {
		_, err := NewColorSpec(tt.bg, tt.stim)
		if (err == nil) != tt.ok {
			t.Errorf("NewColorSpec(%v, %v) err = %v", tt.bg, tt.stim, err)
		}
	}
	c, _ := NewColorSpec(0.25, 1)
	if c.Background() != (colorful.Color{R: 0.25, G: 0.25, B: 0.25}) {
		t.Fatalf("background = %v", c.Background())
	}
}
