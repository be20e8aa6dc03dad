//go:build tinygo && (xiao || wioterminal)

package main

import (
	"machine"
	"machine/usb"
	"runtime"

	"github.com/junsooki/FrameSync/internal/bridge"
)

// setUSBIdentity must run before the host enumerates the device.
func setUSBIdentity(v bridge.Variant) {
	usb.VendorID = v.VendorID
	usb.ProductID = v.ProductID
	usb.Manufacturer = v.Manufacturer
	usb.Product = v.Product
	usb.Serial = v.Serial
}

// cdcReceiver reads whatever one USB transfer left in the CDC buffer.
type cdcReceiver struct{}

func (cdcReceiver) PollAndRead(buf []byte) (int, error) {
	n := machine.Serial.Buffered()
	if n == 0 {
		return 0, nil
	}
	if n > len(buf) {
		// Too long to be a command; drain and report the length.
		for i := 0; i < n; i++ {
			if _, err := machine.Serial.ReadByte(); err != nil {
				return 0, err
			}
		}
		return n, nil
	}
	for i := 0; i < n; i++ {
		b, err := machine.Serial.ReadByte()
		if err != nil {
			return 0, err
		}
		buf[i] = b
	}
	return n, nil
}

// serve polls the CDC endpoint. TinyGo services the USB interrupt itself and
// buffers OUT transfers, so the body runs from a tight loop.
func serve() {
	for {
		cell.With(service)
		runtime.Gosched()
	}
}
