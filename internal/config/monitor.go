package config

import (
	"flag"
	"io"

	"github.com/junsooki/FrameSync/internal/logging"
)

// MonitorConfig holds configuration for the monitor server binary.
type MonitorConfig struct {
	Listen   string
	Path     string
	LogLevel string
	LogJSON  bool
}

// ParseMonitor parses flags for the monitor binary.
func ParseMonitor(name string, args []string, stderr io.Writer) (*MonitorConfig, error) {
	cfg := &MonitorConfig{}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.Listen, "listen", ":8090", "HTTP listen address")
	fs.StringVar(&cfg.Path, "path", "/events", "WebSocket endpoint path")
	fs.StringVar(&cfg.LogLevel, "log-level", "info", "Log level: debug, info, warn or error")
	fs.BoolVar(&cfg.LogJSON, "log-json", false, "Log JSON instead of text")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
		return nil, err
	}
	return cfg, nil
}

// PtyPort asks the bridge simulator to create a pseudoterminal instead of
// opening a device.
const PtyPort = "pty"

// BridgeConfig holds configuration for the bench bridge simulator.
type BridgeConfig struct {
	Port     string
	Baud     int
	Variant  string
	LogLevel string
}

// ParseBridge parses flags for the host build of the bridge.
func ParseBridge(name string, args []string, stderr io.Writer) (*BridgeConfig, error) {
	cfg := &BridgeConfig{}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.Port, "port", "", "Serial port the stimulus host writes to, or \"pty\" to create one (required)")
	fs.IntVar(&cfg.Baud, "baud", 115200, "Baud rate")
	fs.StringVar(&cfg.Variant, "variant", "xiao", "Board variant whose polarity is simulated")
	fs.StringVar(&cfg.LogLevel, "log-level", "info", "Log level: debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if cfg.Port == "" {
		fs.Usage()
		return nil, ErrUsage
	}
	return cfg, nil
}
