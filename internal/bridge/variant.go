package bridge

// Polarity maps the logical level onto the physical output lines. Some boards
// wire their status LED active-low while the trigger pin is active-high.
type Polarity struct {
	PinActiveLow bool
	LEDActiveLow bool
}

// Variant describes one bridge board. All variants run the same state machine
// and differ only in wiring and USB identity.
type Variant struct {
	Name  string
	Board string

	// USB identity; zero for boards that receive commands over a UART.
	VendorID     uint16
	ProductID    uint16
	Manufacturer string
	Product      string
	Serial       string

	Polarity Polarity
}

// USB reports whether the variant enumerates as a USB CDC device.
func (v Variant) USB() bool { return v.VendorID != 0 || v.ProductID != 0 }

var Variants = []Variant{
	{
		Name:         "xiao",
		Board:        "Seeed XIAO SAMD21",
		VendorID:     0xdead,
		ProductID:    0xbeef,
		Manufacturer: "Hackers University",
		Product:      "xiao_usb_echo",
		Serial:       "42",
		Polarity:     Polarity{LEDActiveLow: true},
	},
	{
		Name:         "wio",
		Board:        "Seeed Wio Terminal SAMD51",
		VendorID:     0x16c0,
		ProductID:    0x27dd,
		Manufacturer: "Fake company",
		Product:      "Serial port",
		Serial:       "TEST",
	},
	{
		Name:  "xiao-rp2040",
		Board: "Seeed XIAO RP2040",
	},
}

// VariantByName looks a variant up by its short name.
func VariantByName(name string) (Variant, bool) {
	for _, v := range Variants {
		if v.Name == name {
			return v, true
		}
	}
	return Variant{}, false
}

// VariantByUSBID looks a USB variant up by vendor and product id.
func VariantByUSBID(vid, pid uint16) (Variant, bool) {
	for _, v := range Variants {
		if v.USB() && v.VendorID == vid && v.ProductID == pid {
			return v, true
		}
	}
	return Variant{}, false
}
