//go:build tinygo && xiao_rp2040

package main

import (
	"image/color"
	"machine"

	"github.com/jangala-dev/tinygo-uartx/uartx"
	"tinygo.org/x/drivers/ws2812"

	"github.com/junsooki/FrameSync/internal/bridge"
)

const variantName = "xiao-rp2040"

const baud = 115200

var (
	uart     = uartx.UART0
	uartTX   = machine.GPIO0
	uartRX   = machine.GPIO1
	trigger  = machine.GPIO26 // D0
	pixelPin = machine.GPIO12
	pixelPwr = machine.GPIO11
)

// uartReceiver drains whatever the RX interrupt buffered since the last poll.
// A burst longer than buf is consumed whole and reported by its length.
type uartReceiver struct {
	u *uartx.UART
}

func (r uartReceiver) PollAndRead(buf []byte) (int, error) {
	return bridge.ReadAll(buf, r.u.TryRead), nil
}

// pixel shows the trigger level on the onboard WS2812.
type pixel struct {
	dev ws2812.Device
	buf [1]color.RGBA
}

func (p *pixel) Set(high bool) {
	p.buf[0] = color.RGBA{}
	if high {
		p.buf[0] = color.RGBA{G: 0x40}
	}
	_ = p.dev.WriteColors(p.buf[:])
}

func setupBoard() bridge.Config {
	if err := uart.Configure(uartx.UARTConfig{
		BaudRate: baud,
		TX:       uartTX,
		RX:       uartRX,
	}); err != nil {
		park()
	}

	pixelPwr.Configure(machine.PinConfig{Mode: machine.PinOutput})
	pixelPwr.High()
	pixelPin.Configure(machine.PinConfig{Mode: machine.PinOutput})

	return bridge.Config{
		Pin:      newGPIOOut(trigger),
		LED:      &pixel{dev: ws2812.New(pixelPin)},
		Receiver: uartReceiver{uart},
	}
}

// serve sleeps until the RX interrupt signals data, then runs the body.
func serve() {
	for {
		<-uart.Readable()
		cell.With(service)
	}
}
