package stimulus

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/fogleman/ease"

	"github.com/junsooki/FrameSync/internal/surface"
)

// Refresh rates accepted from calibration.
const (
	MinRefresh = 20
	MaxRefresh = 500

	DefaultCalibrationFrames = 120
)

var ErrCalibration = errors.New("refresh calibration failed")

// EstimateRefresh converts vsync intervals into a refresh rate in Hz, using
// the median so that occasional skipped frames do not bias the result.
func EstimateRefresh(intervals []time.Duration) (uint32, error) {
	if len(intervals) == 0 {
		return 0, fmt.Errorf("%w: no samples", ErrCalibration)
	}
	sorted := append([]time.Duration(nil), intervals...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var median time.Duration
	if n := len(sorted); n%2 == 1 {
		median = sorted[n/2]
	} else {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	}
	if median <= 0 {
		return 0, fmt.Errorf("%w: non-positive median interval %v", ErrCalibration, median)
	}

	hz := math.Round(float64(time.Second) / float64(median))
	if hz < MinRefresh || hz > MaxRefresh {
		return 0, fmt.Errorf("%w: %.0f Hz outside [%d, %d]", ErrCalibration, hz, MinRefresh, MaxRefresh)
	}
	return uint32(hz), nil
}

// calibrator collects vsync intervals while the background eases in from
// black. It never touches the cycle or the link.
type calibrator struct {
	frames    int
	last      time.Time
	intervals []time.Duration
	presented int
}

func newCalibrator(frames int) *calibrator {
	if frames <= 0 {
		frames = DefaultCalibrationFrames
	}
	return &calibrator{frames: frames, intervals: make([]time.Duration, 0, frames)}
}

func (c *calibrator) level() float64 {
	return ease.InOutQuad(math.Min(1, float64(c.presented)/float64(c.frames)))
}

func (c *calibrator) done() bool { return len(c.intervals) >= c.frames }

// calibrationStep runs one calibration opportunity.
func (l *Loop) calibrationStep() error {
	c := l.cal
	err := l.render(l.colors.ramp(c.level()))
	if err != nil {
		if surface.Classify(err) == surface.Fatal {
			return fmt.Errorf("present during calibration: %w", err)
		}
		// The next interval would span two refreshes.
		c.last = time.Time{}
		l.log.Warn("calibration frame skipped", "reason", surface.SkipReason(err))
		return nil
	}

	now := l.now()
	if !c.last.IsZero() {
		c.intervals = append(c.intervals, now.Sub(c.last))
	}
	c.last = now
	c.presented++

	if !c.done() {
		return nil
	}
	hz, err := EstimateRefresh(c.intervals)
	if err != nil {
		return err
	}
	l.log.Info("refresh calibrated", "hz", hz, "samples", len(c.intervals))
	l.cal = nil
	return l.setPeriod(hz)
}
