//go:build !tinygo

// Bench simulator of the bridge firmware. It runs the device state machine
// against a serial port (a USB-UART loop or a pseudoterminal it creates) and
// logs the output levels.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/junsooki/FrameSync/internal/bridge"
	"github.com/junsooki/FrameSync/internal/config"
	"github.com/junsooki/FrameSync/internal/logging"
	"github.com/junsooki/FrameSync/internal/trigger"
)

func main() {
	cfg, err := config.ParseBridge(os.Args[0], os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logging.SetLevel(level)
	log := logging.For(logging.ComponentBridge)

	v, ok := bridge.VariantByName(cfg.Variant)
	if !ok {
		log.Error("unknown variant", "variant", cfg.Variant)
		os.Exit(2)
	}

	var port io.ReadCloser
	name := cfg.Port
	if cfg.Port == config.PtyPort {
		p, slave, err := openPty()
		if err != nil {
			log.Error("open pty", "err", err)
			os.Exit(1)
		}
		port, name = p, slave
		log.Info("pseudoterminal ready, pass it to the stimulus host as serial_port", "port", slave)
	} else {
		s, err := trigger.OpenSerial(cfg.Port, cfg.Baud)
		if err != nil {
			log.Error("open serial", "err", err)
			os.Exit(1)
		}
		port = s
	}

	rx := &hostReceiver{}
	var fault error
	ctx, err := bridge.NewContext(bridge.Config{
		Pin:      &logPin{name: "trigger", log: log},
		LED:      &logPin{name: "led", log: log},
		Receiver: rx,
		Polarity: v.Polarity,
		OnHalt: func(err error) {
			fault = err
			log.Error("bridge halted", "err", err)
		},
	})
	if err != nil {
		log.Error("bridge context", "err", err)
		os.Exit(1)
	}
	var cell bridge.Cell
	if err := cell.Install(ctx); err != nil {
		log.Error("install", "err", err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	stopping := make(chan struct{})
	go func() {
		<-sigCh
		close(stopping)
		port.Close()
	}()

	log.Info("bridge simulator running", "port", name, "baud", cfg.Baud, "variant", v.Name)

	// Each read stands in for one USB OUT transfer.
	buf := make([]byte, 64)
	for !ctx.Halted() {
		n, err := port.Read(buf)
		rx.set(buf[:n], err)
		cell.With(func(c *bridge.Context) { c.Service() })
	}

	accepted, rejected := ctx.Counts()
	log.Info("bridge simulator stopped", "accepted", accepted, "rejected", rejected)
	select {
	case <-stopping:
	default:
		if fault != nil {
			os.Exit(1)
		}
	}
}

// hostReceiver hands the most recent port read to the state machine.
type hostReceiver struct {
	data []byte
	err  error
	has  bool
}

func (r *hostReceiver) set(p []byte, err error) {
	r.data = append(r.data[:0], p...)
	r.err = err
	r.has = true
}

func (r *hostReceiver) PollAndRead(buf []byte) (int, error) {
	if !r.has {
		return 0, nil
	}
	r.has = false
	if r.err != nil {
		return 0, r.err
	}
	if len(r.data) > len(buf) {
		return len(r.data), nil
	}
	return copy(buf, r.data), nil
}

// logPin logs level changes instead of driving hardware.
type logPin struct {
	name  string
	log   *slog.Logger
	level bool
	set   bool
}

func (p *logPin) Set(high bool) {
	if p.set && p.level == high {
		return
	}
	p.level, p.set = high, true
	p.log.Info("pin", "name", p.name, "high", high)
}
