package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/junsooki/FrameSync/internal/config"
	"github.com/junsooki/FrameSync/internal/logging"
	"github.com/junsooki/FrameSync/internal/monitor"
)

func main() {
	cfg, err := config.ParseMonitor(os.Args[0], os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	format := logging.FormatText
	if cfg.LogJSON {
		format = logging.FormatJSON
	}
	logging.Setup(os.Stderr, format)
	level, _ := logging.ParseLevel(cfg.LogLevel)
	logging.SetLevel(level)
	log := logging.For(logging.ComponentMonitor)

	var asserts atomic.Uint64
	srv := monitor.NewServer(func(remote string, ev monitor.Event) {
		if ev.Written && ev.Command == "assert" {
			n := asserts.Add(1)
			log.Info("stimulus onset", "remote", remote, "seq", ev.Seq, "asserts", n, "ts_ms", ev.TimeMS)
			return
		}
		if ev.Skip != "" {
			log.Warn("trigger skipped", "remote", remote, "seq", ev.Seq, "cycle", ev.Cycle, "reason", ev.Skip)
			return
		}
		log.Debug("event", "remote", remote, "seq", ev.Seq, "cycle", ev.Cycle,
			"command", ev.Command, "interval_us", ev.IntervalUS)
	}, log)

	mux := http.NewServeMux()
	mux.Handle(cfg.Path, srv)
	httpSrv := &http.Server{Addr: cfg.Listen, Handler: mux}

	go func() {
		log.Info("monitor listening", "addr", cfg.Listen, "path", cfg.Path)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("listen", "err", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down", "clients", srv.Clients())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(ctx)
}
