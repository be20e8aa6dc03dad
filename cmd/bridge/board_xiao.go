//go:build tinygo && xiao

package main

import (
	"machine"

	"github.com/junsooki/FrameSync/internal/bridge"
)

const variantName = "xiao"

func init() {
	v, _ := bridge.VariantByName(variantName)
	setUSBIdentity(v)
}

// Trigger on A0 (PA02); the onboard LED is wired active low.
func setupBoard() bridge.Config {
	return bridge.Config{
		Pin:      newGPIOOut(machine.PA02),
		LED:      newGPIOOut(machine.LED),
		Receiver: cdcReceiver{},
	}
}
