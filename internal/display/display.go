// Package display opens a full-screen presentation surface on one monitor and
// runs its event loop.
package display

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/junsooki/FrameSync/internal/surface"
)

// Handler receives the backend's window events. Backends call it from their
// event loop on the main goroutine.
type Handler interface {
	OnResize(w, h int) error
	OnRedraw() error
}

// ErrStop may be returned by a Handler to end Run without an error.
var ErrStop = errors.New("display: stop requested")

// Display is a surface that owns the event loop.
type Display interface {
	surface.Surface
	Run(Handler) error

	// RefreshRate reports the monitor refresh in Hz, when the backend
	// knows it.
	RefreshRate() (int, bool)
	Size() (w, h int)
}

// Options are shared by every backend.
type Options struct {
	Title string
	Mode  surface.PresentMode
	Log   *slog.Logger
}

const defaultTitle = "FrameSync"

func (o Options) title() string {
	if o.Title == "" {
		return defaultTitle
	}
	return o.Title
}

// Backend names accepted by New.
const (
	BackendEbiten = "ebiten"
	BackendSDL    = "sdl"
)

// New opens the named backend on the display at index.
func New(backend string, index int, opts Options) (Display, error) {
	switch backend {
	case "", BackendEbiten:
		return NewEbiten(index, opts)
	case BackendSDL:
		return NewSDL(index, opts)
	}
	return nil, fmt.Errorf("unknown display backend %q", backend)
}
