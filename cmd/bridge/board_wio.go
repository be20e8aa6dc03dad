//go:build tinygo && wioterminal

package main

import (
	"machine"

	"github.com/junsooki/FrameSync/internal/bridge"
)

const variantName = "wio"

var (
	outputCtr5V  = machine.PC14
	outputCtr3V3 = machine.PC15
	usbHostEn    = machine.PA27
)

func init() {
	v, _ := bridge.VariantByName(variantName)
	setUSBIdentity(v)
}

// Trigger on D0 (PB08), user LED on PA15.
func setupBoard() bridge.Config {
	// Power the header from USB: 5V on, 3V3 off, no USB host.
	for _, p := range []struct {
		pin  machine.Pin
		high bool
	}{
		{outputCtr3V3, false},
		{outputCtr5V, true},
		{usbHostEn, false},
	} {
		p.pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
		p.pin.Set(p.high)
	}

	return bridge.Config{
		Pin:      newGPIOOut(machine.PB08),
		LED:      newGPIOOut(machine.PA15),
		Receiver: cdcReceiver{},
	}
}
