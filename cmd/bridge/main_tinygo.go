//go:build tinygo

// Bridge firmware: mirrors single-byte trigger commands onto an output pin.
package main

import (
	"machine"
	"time"

	"github.com/junsooki/FrameSync/internal/bridge"
)

var cell bridge.Cell

func main() {
	v, ok := bridge.VariantByName(variantName)
	if !ok {
		park()
	}

	cfg := setupBoard()
	cfg.Polarity = v.Polarity
	cfg.OnHalt = func(error) { park() }

	ctx, err := bridge.NewContext(cfg)
	if err != nil {
		park()
	}
	if err := cell.Install(ctx); err != nil {
		park()
	}
	serve()
}

// service is the interrupt body.
func service(c *bridge.Context) { c.Service() }

// park stops the firmware for good. Outputs were already driven low.
func park() {
	for {
		time.Sleep(time.Hour)
	}
}

// gpioOut drives a plain push-pull pin.
type gpioOut machine.Pin

func newGPIOOut(p machine.Pin) gpioOut {
	p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	p.Low()
	return gpioOut(p)
}

func (p gpioOut) Set(high bool) { machine.Pin(p).Set(high) }
