// Package config parses command-line flags, positional arguments and the
// optional YAML file for the FrameSync binaries.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/junsooki/FrameSync/internal/logging"
	"github.com/junsooki/FrameSync/internal/monitor"
	"github.com/junsooki/FrameSync/internal/stimulus"
	"github.com/junsooki/FrameSync/internal/surface"
	"github.com/junsooki/FrameSync/internal/trigger"
)

const DefaultBackend = "ebiten"

var ErrUsage = errors.New("usage")

// Config holds the stimulus host configuration.
type Config struct {
	// Positional parameters.
	Port       string  `yaml:"-"`
	Baud       int     `yaml:"-"`
	Background float64 `yaml:"-"`
	Stimulus   float64 `yaml:"-"`
	Display    int     `yaml:"-"`

	Backend           string        `yaml:"backend"`
	Present           string        `yaml:"present"`
	Refresh           int           `yaml:"refresh"`
	CalibrationFrames int           `yaml:"calibration_frames"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	SkipThreshold     time.Duration `yaml:"skip_threshold"`
	LinkTimeouts      int           `yaml:"link_timeouts"`

	MonitorWS   string `yaml:"monitor_ws"`
	MonitorMQTT string `yaml:"monitor_mqtt"`
	MQTTTopic   string `yaml:"mqtt_topic"`

	LogLevel  string `yaml:"log_level"`
	LogJSON   bool   `yaml:"log_json"`
	Statsview string `yaml:"statsview"`

	File string `yaml:"-"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Backend:           DefaultBackend,
		Present:           surface.PresentFIFO.String(),
		CalibrationFrames: stimulus.DefaultCalibrationFrames,
		WriteTimeout:      trigger.DefaultWriteTimeout,
		SkipThreshold:     stimulus.DefaultSkipThreshold,
		MQTTTopic:         monitor.DefaultTopic,
		LogLevel:          "info",
	}
}

func bindStimulus(fs *flag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.File, "config", cfg.File, "YAML config file (flags override it)")
	fs.StringVar(&cfg.Backend, "backend", cfg.Backend, "Display backend: ebiten or sdl")
	fs.StringVar(&cfg.Present, "present", cfg.Present, "Present mode: fifo (wait for vblank) or immediate")
	fs.IntVar(&cfg.Refresh, "refresh", cfg.Refresh, "Refresh rate in Hz (0 = ask the display, then calibrate)")
	fs.IntVar(&cfg.CalibrationFrames, "calibration-frames", cfg.CalibrationFrames, "Frames measured when calibrating the refresh rate")
	fs.DurationVar(&cfg.WriteTimeout, "write-timeout", cfg.WriteTimeout, "Bound on one trigger write plus drain (0 = none)")
	fs.DurationVar(&cfg.SkipThreshold, "skip-threshold", cfg.SkipThreshold, "Draw interval reported as a skipped frame")
	fs.IntVar(&cfg.LinkTimeouts, "link-timeouts", cfg.LinkTimeouts, "Consecutive trigger timeouts tolerated before exiting")
	fs.StringVar(&cfg.MonitorWS, "monitor-ws", cfg.MonitorWS, "Monitor WebSocket URL, e.g. ws://localhost:8090/events")
	fs.StringVar(&cfg.MonitorMQTT, "monitor-mqtt", cfg.MonitorMQTT, "MQTT broker URL, e.g. tcp://localhost:1883")
	fs.StringVar(&cfg.MQTTTopic, "mqtt-topic", cfg.MQTTTopic, "MQTT topic for trigger events")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn or error")
	fs.BoolVar(&cfg.LogJSON, "log-json", cfg.LogJSON, "Log JSON instead of text")
	fs.StringVar(&cfg.Statsview, "statsview", cfg.Statsview, "Serve runtime stats on this address (statsview builds only)")
}

const stimulusUsage = "usage: %s [flags] serial_port baud bg_intensity stim_intensity display_index\n" +
	"  serial_port may be \"auto\" to find an attached bridge\n"

// ParseStimulus parses the stimulus host's arguments (without the program
// name). Values from the -config file are applied first and flags win.
func ParseStimulus(name string, args []string, stderr io.Writer) (*Config, error) {
	// The first pass only finds -config; the second binds over file values.
	scratch := Default()
	pre := newFlagSet(name, stimulusUsage, io.Discard)
	bindStimulus(pre, scratch)
	if err := pre.Parse(args); err != nil {
		fs := newFlagSet(name, stimulusUsage, stderr)
		bindStimulus(fs, Default())
		return nil, fs.Parse(args)
	}

	cfg := Default()
	if scratch.File != "" {
		if err := LoadFile(scratch.File, cfg); err != nil {
			return nil, err
		}
	}
	fs := newFlagSet(name, stimulusUsage, stderr)
	bindStimulus(fs, cfg)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := cfg.positional(fs.Args()); err != nil {
		fs.Usage()
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newFlagSet(name, usage string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), usage, name)
		fs.PrintDefaults()
	}
	return fs
}

func (c *Config) positional(args []string) error {
	if len(args) != 5 {
		return fmt.Errorf("%w: expected 5 positional arguments, got %d", ErrUsage, len(args))
	}
	c.Port = args[0]
	var err error
	if c.Baud, err = strconv.Atoi(args[1]); err != nil {
		return fmt.Errorf("baud %q: %w", args[1], err)
	}
	if c.Background, err = strconv.ParseFloat(args[2], 64); err != nil {
		return fmt.Errorf("bg_intensity %q: %w", args[2], err)
	}
	if c.Stimulus, err = strconv.ParseFloat(args[3], 64); err != nil {
		return fmt.Errorf("stim_intensity %q: %w", args[3], err)
	}
	if c.Display, err = strconv.Atoi(args[4]); err != nil {
		return fmt.Errorf("display_index %q: %w", args[4], err)
	}
	return nil
}

// LoadFile decodes a YAML file over cfg. Unknown keys are rejected.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config file: %w", err)
	}
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}
	return nil
}

// Validate checks ranges after all sources are merged.
func (c *Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("serial_port is empty"))
	}
	if c.Baud <= 0 {
		errs = append(errs, fmt.Errorf("baud %d must be positive", c.Baud))
	}
	if c.Background < 0 || c.Background > 1 {
		errs = append(errs, fmt.Errorf("bg_intensity %v out of range [0,1]", c.Background))
	}
	if c.Stimulus < 0 || c.Stimulus > 1 {
		errs = append(errs, fmt.Errorf("stim_intensity %v out of range [0,1]", c.Stimulus))
	}
	if c.Display < 0 {
		errs = append(errs, fmt.Errorf("display_index %d is negative", c.Display))
	}
	switch c.Backend {
	case "ebiten", "sdl":
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q", c.Backend))
	}
	if _, err := surface.ParsePresentMode(c.Present); err != nil {
		errs = append(errs, err)
	}
	if c.Refresh < 0 {
		errs = append(errs, fmt.Errorf("refresh %d is negative", c.Refresh))
	}
	if c.CalibrationFrames <= 0 {
		errs = append(errs, fmt.Errorf("calibration-frames %d must be positive", c.CalibrationFrames))
	}
	if c.WriteTimeout < 0 {
		errs = append(errs, fmt.Errorf("write-timeout %v is negative", c.WriteTimeout))
	}
	if c.SkipThreshold <= 0 {
		errs = append(errs, fmt.Errorf("skip-threshold %v must be positive", c.SkipThreshold))
	}
	if c.LinkTimeouts < 0 {
		errs = append(errs, fmt.Errorf("link-timeouts %d is negative", c.LinkTimeouts))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// PresentMode returns the validated -present value.
func (c *Config) PresentMode() surface.PresentMode {
	m, _ := surface.ParsePresentMode(c.Present)
	return m
}

// LogFormat maps the -log-json flag onto a logging format.
func (c *Config) LogFormat() logging.Format {
	if c.LogJSON {
		return logging.FormatJSON
	}
	return logging.FormatText
}
