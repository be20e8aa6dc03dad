package display

import (
	"errors"
	"fmt"
	"image/color"
	"log/slog"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/junsooki/FrameSync/internal/logging"
	"github.com/junsooki/FrameSync/internal/surface"
)

// Ebiten presents through Ebitengine. Draw is the redraw opportunity; the
// screen image bound for the current Draw is the frame.
type Ebiten struct {
	monitor *ebiten.MonitorType
	opts    Options
	log     *slog.Logger

	cfg     surface.Config
	handler Handler

	screen *ebiten.Image
	outW   int
	outH   int

	// err is a fatal handler error, returned from the next Update.
	err error
}

type ebitenFrame struct {
	img *ebiten.Image
}

func (f ebitenFrame) Size() (int, int) {
	b := f.img.Bounds()
	return b.Dx(), b.Dy()
}

// NewEbiten selects the display at index.
func NewEbiten(index int, opts Options) (*Ebiten, error) {
	monitors := ebiten.AppendMonitors(nil)
	if index < 0 || index >= len(monitors) {
		return nil, fmt.Errorf("%w: %d of %d", surface.ErrNoDisplay, index, len(monitors))
	}
	e := &Ebiten{
		monitor: monitors[index],
		opts:    opts,
		log:     logging.OrDiscard(opts.Log),
	}
	w, h := e.monitor.Size()
	s := e.monitor.DeviceScaleFactor()
	e.cfg.Width, e.cfg.Height = int(float64(w)*s), int(float64(h)*s)
	e.cfg.Mode = opts.Mode
	return e, nil
}

// Run starts the Ebitengine game loop. Must be called from the main goroutine.
func (e *Ebiten) Run(h Handler) error {
	e.handler = h

	ebiten.SetWindowTitle(e.opts.title())
	ebiten.SetMonitor(e.monitor)
	ebiten.SetFullscreen(true)
	ebiten.SetCursorMode(ebiten.CursorModeHidden)
	ebiten.SetVsyncEnabled(e.cfg.Mode == surface.PresentFIFO)
	ebiten.SetTPS(ebiten.SyncWithFPS)
	ebiten.SetRunnableOnUnfocused(true)

	e.log.Info("surface running", "backend", BackendEbiten, "monitor", e.monitor.Name(),
		"width", e.cfg.Width, "height", e.cfg.Height, "mode", e.cfg.Mode)

	err := ebiten.RunGame(&ebitenGame{e})
	if err == ebiten.Termination || errors.Is(err, ErrStop) {
		return nil
	}
	return err
}

// RefreshRate is unknown; Ebitengine does not expose the monitor mode.
func (e *Ebiten) RefreshRate() (int, bool) { return 0, false }

func (e *Ebiten) Size() (int, int) { return e.cfg.Width, e.cfg.Height }

func (e *Ebiten) Configure(cfg surface.Config) error {
	e.cfg = cfg
	return nil
}

func (e *Ebiten) Acquire() (surface.Frame, error) {
	if e.screen == nil {
		return nil, surface.ErrNotAcquirable
	}
	f := ebitenFrame{e.screen}
	if w, h := f.Size(); w != e.cfg.Width || h != e.cfg.Height {
		return nil, surface.ErrOutdated
	}
	return f, nil
}

func (e *Ebiten) Submit(f surface.Frame, c color.Color) error {
	ef, ok := f.(ebitenFrame)
	if !ok {
		return surface.ErrForeignFrame
	}
	ef.img.Fill(c)
	return nil
}

// Present is a no-op: Ebitengine swaps the screen once Draw returns.
func (e *Ebiten) Present(f surface.Frame) error {
	if _, ok := f.(ebitenFrame); !ok {
		return surface.ErrForeignFrame
	}
	return nil
}

// ebitenGame keeps the ebiten.Game methods off the exported surface.
type ebitenGame struct {
	e *Ebiten
}

func (g *ebitenGame) Update() error {
	if g.e.err != nil {
		return g.e.err
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		g.e.log.Info("escape pressed")
		return ebiten.Termination
	}
	return nil
}

func (g *ebitenGame) Draw(screen *ebiten.Image) {
	if g.e.err != nil {
		return
	}
	g.e.screen = screen
	defer func() { g.e.screen = nil }()
	if err := g.e.handler.OnRedraw(); err != nil {
		g.e.err = err
	}
}

func (g *ebitenGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	w, h := outsideWidth, outsideHeight
	if s := ebiten.Monitor().DeviceScaleFactor(); s > 0 {
		w, h = int(float64(w)*s), int(float64(h)*s)
	}
	if w != g.e.outW || h != g.e.outH {
		g.e.outW, g.e.outH = w, h
		if err := g.e.handler.OnResize(w, h); err != nil && g.e.err == nil {
			g.e.err = err
		}
	}
	return w, h
}
