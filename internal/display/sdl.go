package display

import (
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"runtime"
	"strings"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/junsooki/FrameSync/internal/logging"
	"github.com/junsooki/FrameSync/internal/surface"
)

// SDL presents through an SDL renderer created with PRESENTVSYNC, so Present
// blocks until vertical blank.
type SDL struct {
	index  int
	opts   Options
	log    *slog.Logger
	cfg    surface.Config
	bounds sdl.Rect
	mode   sdl.DisplayMode

	window   *sdl.Window
	renderer *sdl.Renderer

	// pending is reported by the next Acquire after a render event.
	pending error
	quit    bool
}

type sdlFrame struct {
	w, h int
}

func (f sdlFrame) Size() (int, int) { return f.w, f.h }

// NewSDL initialises SDL video and reads the mode of the display at index.
func NewSDL(index int, opts Options) (*SDL, error) {
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return nil, fmt.Errorf("sdl: %w", err)
	}
	n, err := sdl.GetNumVideoDisplays()
	if err != nil {
		sdl.Quit()
		return nil, fmt.Errorf("sdl: %w", err)
	}
	if index < 0 || index >= n {
		sdl.Quit()
		return nil, fmt.Errorf("%w: %d of %d", surface.ErrNoDisplay, index, n)
	}

	s := &SDL{index: index, opts: opts, log: logging.OrDiscard(opts.Log)}
	s.bounds, err = sdl.GetDisplayBounds(index)
	if err != nil {
		sdl.Quit()
		return nil, fmt.Errorf("sdl: %w", err)
	}
	s.mode, err = sdl.GetCurrentDisplayMode(index)
	if err != nil {
		sdl.Quit()
		return nil, fmt.Errorf("sdl: %w", err)
	}
	s.cfg = surface.Config{Width: int(s.mode.W), Height: int(s.mode.H), Mode: opts.Mode}
	s.log.Info("display mode", "index", index, "width", s.mode.W, "height", s.mode.H,
		"refresh", s.mode.RefreshRate)
	return s, nil
}

func (s *SDL) RefreshRate() (int, bool) {
	if s.mode.RefreshRate <= 0 {
		return 0, false
	}
	return int(s.mode.RefreshRate), true
}

func (s *SDL) Size() (int, int) { return s.cfg.Width, s.cfg.Height }

// Run opens the full-screen window and services events until Escape, window
// close, or a handler error. Must be called from the main goroutine.
func (s *SDL) Run(h Handler) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer s.destroy()

	var err error
	s.window, err = sdl.CreateWindow(s.opts.title(),
		s.bounds.X, s.bounds.Y, s.bounds.W, s.bounds.H,
		uint32(sdl.WINDOW_FULLSCREEN_DESKTOP|sdl.WINDOW_SHOWN|sdl.WINDOW_BORDERLESS))
	if err != nil {
		return fmt.Errorf("sdl: %w", err)
	}
	flags := uint32(sdl.RENDERER_ACCELERATED)
	if s.cfg.Mode == surface.PresentFIFO {
		flags |= uint32(sdl.RENDERER_PRESENTVSYNC)
	}
	s.renderer, err = sdl.CreateRenderer(s.window, -1, flags)
	if err != nil {
		return fmt.Errorf("sdl: %w", err)
	}
	if _, err := sdl.ShowCursor(sdl.DISABLE); err != nil {
		s.log.Debug("hide cursor", "err", err)
	}

	w, hgt, err := s.renderer.GetOutputSize()
	if err != nil {
		return fmt.Errorf("sdl: %w", err)
	}
	if err := h.OnResize(int(w), int(hgt)); err != nil {
		return stopped(err)
	}

	s.log.Info("surface running", "backend", BackendSDL, "index", s.index,
		"width", w, "height", hgt, "mode", s.cfg.Mode)

	for !s.quit {
		if err := s.service(h); err != nil {
			return stopped(err)
		}
		if s.quit {
			break
		}
		if err := h.OnRedraw(); err != nil {
			return stopped(err)
		}
	}
	return nil
}

func stopped(err error) error {
	if errors.Is(err, ErrStop) {
		return nil
	}
	return err
}

func (s *SDL) service(h Handler) error {
	for ev := sdl.PollEvent(); ev != nil; ev = sdl.PollEvent() {
		switch ev := ev.(type) {
		case *sdl.QuitEvent:
			s.quit = true

		case *sdl.KeyboardEvent:
			if ev.Type == sdl.KEYDOWN && ev.Keysym.Sym == sdl.K_ESCAPE {
				s.log.Info("escape pressed")
				s.quit = true
			}

		case *sdl.WindowEvent:
			if ev.Event == sdl.WINDOWEVENT_SIZE_CHANGED {
				if err := h.OnResize(int(ev.Data1), int(ev.Data2)); err != nil {
					return err
				}
			}

		case *sdl.RenderEvent:
			switch ev.Type {
			case sdl.RENDER_TARGETS_RESET:
				s.pending = surface.ErrOutdated
			case sdl.RENDER_DEVICE_RESET:
				s.pending = surface.ErrLost
			}
		}
	}
	return nil
}

func (s *SDL) destroy() {
	if s.renderer != nil {
		s.renderer.Destroy()
	}
	if s.window != nil {
		s.window.Destroy()
	}
	sdl.Quit()
}

func (s *SDL) Configure(cfg surface.Config) error {
	s.cfg = cfg
	return nil
}

func (s *SDL) Acquire() (surface.Frame, error) {
	if s.pending != nil {
		err := s.pending
		s.pending = nil
		return nil, err
	}
	if s.renderer == nil {
		return nil, surface.ErrNotAcquirable
	}
	w, h, err := s.renderer.GetOutputSize()
	if err != nil {
		return nil, classifySDL(err)
	}
	if int(w) != s.cfg.Width || int(h) != s.cfg.Height {
		return nil, surface.ErrOutdated
	}
	return sdlFrame{int(w), int(h)}, nil
}

func (s *SDL) Submit(f surface.Frame, c color.Color) error {
	if _, ok := f.(sdlFrame); !ok {
		return surface.ErrForeignFrame
	}
	rgba := color.RGBAModel.Convert(c).(color.RGBA)
	if err := s.renderer.SetDrawColor(rgba.R, rgba.G, rgba.B, 0xff); err != nil {
		return classifySDL(err)
	}
	if err := s.renderer.Clear(); err != nil {
		return classifySDL(err)
	}
	return nil
}

func (s *SDL) Present(f surface.Frame) error {
	if _, ok := f.(sdlFrame); !ok {
		return surface.ErrForeignFrame
	}
	s.renderer.Present()
	return nil
}

// classifySDL maps an SDL error string onto the surface sentinels.
func classifySDL(err error) error {
	if strings.Contains(strings.ToLower(err.Error()), "out of memory") {
		return fmt.Errorf("%w: %v", surface.ErrOutOfMemory, err)
	}
	return fmt.Errorf("sdl: %w", err)
}
