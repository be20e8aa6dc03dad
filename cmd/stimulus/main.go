package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/junsooki/FrameSync/internal/config"
	"github.com/junsooki/FrameSync/internal/display"
	"github.com/junsooki/FrameSync/internal/logging"
	"github.com/junsooki/FrameSync/internal/monitor"
	"github.com/junsooki/FrameSync/internal/statsview"
	"github.com/junsooki/FrameSync/internal/stimulus"
	"github.com/junsooki/FrameSync/internal/trigger"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code. Every path returns through it so the
// deferred closes flush queued monitor events and release the port.
func run() int {
	cfg, err := config.ParseStimulus(os.Args[0], os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	logging.Setup(os.Stderr, cfg.LogFormat())
	level, _ := logging.ParseLevel(cfg.LogLevel)
	logging.SetLevel(level)
	log := logging.For(logging.ComponentMain)

	log.Info("FrameSync stimulus starting",
		"port", cfg.Port, "baud", cfg.Baud,
		"background", cfg.Background, "stimulus", cfg.Stimulus,
		"display", cfg.Display, "backend", cfg.Backend, "present", cfg.Present)

	// Trigger link. Forced low before anything is shown.
	match, err := trigger.ResolvePort(cfg.Port)
	if err != nil {
		return fatal(log, "find bridge", err)
	}
	if match.Variant.Name != "" {
		log.Info("bridge found", "port", match.Port, "variant", match.Variant.Name)
	}
	port, err := trigger.OpenSerial(match.Port, cfg.Baud)
	if err != nil {
		return fatal(log, "open serial", err)
	}
	link := trigger.New(port, cfg.WriteTimeout, logging.For(logging.ComponentLink))
	defer link.Close()
	if err := link.Handshake(); err != nil {
		return fatal(log, "handshake", err)
	}

	// Display.
	disp, err := display.New(cfg.Backend, cfg.Display, display.Options{
		Mode: cfg.PresentMode(),
		Log:  logging.For(logging.ComponentSurface),
	})
	if err != nil {
		return fatal(log, "open display", err)
	}
	w, h := disp.Size()
	log.Info("display opened", "index", cfg.Display, "width", w, "height", h)

	period := uint32(cfg.Refresh)
	if period == 0 {
		if hz, ok := disp.RefreshRate(); ok {
			period = uint32(hz)
		}
	}

	// Monitor sinks. Closing flushes what is queued.
	events, err := monitor.Open(monitor.Options{
		WebSocket: cfg.MonitorWS,
		MQTT:      cfg.MonitorMQTT,
		Topic:     cfg.MQTTTopic,
		ClientID:  fmt.Sprintf("framesync-%d", os.Getpid()),
		Queue:     monitor.DefaultQueue,
		Log:       logging.For(logging.ComponentMonitor),
	})
	if err != nil {
		return fatal(log, "monitor", err)
	}
	var sink monitor.Sink
	if events != nil {
		defer func() {
			events.Close()
			if d := events.Dropped(); d > 0 {
				log.Warn("monitor events dropped", "count", d)
			}
		}()
		sink = events
	}

	if cfg.Statsview != "" {
		if statsview.Available() {
			stop := statsview.Launch(cfg.Statsview, logging.For(logging.ComponentStatsview))
			defer stop()
		} else {
			log.Warn("statsview requested but not built in, rebuild with -tags statsview", "addr", cfg.Statsview)
		}
	}

	colors, err := stimulus.NewColorSpec(cfg.Background, cfg.Stimulus)
	if err != nil {
		return fatal(log, "colors", err)
	}
	loop, err := stimulus.New(stimulus.Options{
		Surface:           disp,
		Link:              link,
		Colors:            colors,
		Period:            period,
		CalibrationFrames: cfg.CalibrationFrames,
		SkipThreshold:     cfg.SkipThreshold,
		Policy:            stimulus.LinkPolicy{MaxConsecutiveTimeouts: cfg.LinkTimeouts},
		Sink:              sink,
		Log:               logging.For(logging.ComponentLoop),
	})
	if err != nil {
		return fatal(log, "stimulus loop", err)
	}

	handler := &stoppable{Handler: loop}
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sigCh
		log.Info("signal received", "signal", s.String())
		handler.stop.Store(true)
	}()

	// The display event loop must run on the main goroutine.
	runErr := disp.Run(handler)

	st := loop.Stats()
	log.Info("stimulus stopped",
		"opportunities", st.Opportunities, "triggers", st.Triggers, "asserts", st.Asserts,
		"skipped", st.Skipped, "slow_frames", st.SlowFrames, "link_timeouts", st.LinkTimeouts)

	if err := link.Deassert(); err != nil {
		log.Warn("final deassert failed", "err", err)
	}
	if runErr != nil {
		return fatal(log, "display", runErr)
	}
	return 0
}

// stoppable ends the display loop at the next redraw once stop is set.
type stoppable struct {
	display.Handler
	stop atomic.Bool
}

func (s *stoppable) OnRedraw() error {
	if s.stop.Load() {
		return display.ErrStop
	}
	return s.Handler.OnRedraw()
}

func fatal(log *slog.Logger, msg string, err error) int {
	log.Error(msg, "err", err)
	return 1
}
