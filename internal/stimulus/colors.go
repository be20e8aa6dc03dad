package stimulus

import (
	"fmt"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/junsooki/FrameSync/internal/frame"
)

// ColorSpec holds the two fill colors. It is immutable once built.
type ColorSpec struct {
	background colorful.Color
	stimulus   colorful.Color
}

// NewColorSpec builds grey fills from intensities in [0,1].
func NewColorSpec(background, stimulus float64) (ColorSpec, error) {
	if err := checkIntensity("background", background); err != nil {
		return ColorSpec{}, err
	}
	if err := checkIntensity("stimulus", stimulus); err != nil {
		return ColorSpec{}, err
	}
	return ColorSpec{background: grey(background), stimulus: grey(stimulus)}, nil
}

func checkIntensity(name string, v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return fmt.Errorf("%s intensity %v out of range [0,1]", name, v)
	}
	return nil
}

func grey(v float64) colorful.Color { return colorful.Color{R: v, G: v, B: v} }

func (c ColorSpec) Background() colorful.Color { return c.background }
func (c ColorSpec) Stimulus() colorful.Color   { return c.stimulus }

// For returns the fill for state.
func (c ColorSpec) For(s frame.State) color.Color {
	if s == frame.Stimulus {
		return c.stimulus
	}
	return c.background
}

// ramp blends from black (k = 0) up to the background (k = 1).
func (c ColorSpec) ramp(k float64) color.Color {
	return colorful.Color{}.BlendRgb(c.background, k).Clamped()
}
