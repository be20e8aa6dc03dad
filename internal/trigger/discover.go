package trigger

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/junsooki/FrameSync/internal/bridge"
)

// AutoPort is the port name that requests discovery.
const AutoPort = "auto"

// SysfsRoot is where Linux exposes the device tree.
const SysfsRoot = "/sys"

// Match is a tty whose USB parent identifies as a bridge variant.
type Match struct {
	Port    string
	Variant bridge.Variant
}

// ResolvePort returns port unchanged unless it is AutoPort, in which case the
// first discovered bridge is used.
func ResolvePort(port string) (Match, error) {
	if port != AutoPort {
		return Match{Port: port}, nil
	}
	found, err := listBridges()
	if err != nil {
		return Match{}, err
	}
	if len(found) == 0 {
		return Match{}, ErrNoBridge
	}
	return found[0], nil
}

// Discover scans <sysRoot>/class/tty for ports backed by a known bridge
// variant. Results are sorted by port name.
func Discover(sysRoot string) ([]Match, error) {
	ttys := filepath.Join(sysRoot, "class", "tty")
	entries, err := os.ReadDir(ttys)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", ttys, err)
	}

	var found []Match
	for _, entry := range entries {
		name := entry.Name()
		dev, err := filepath.EvalSymlinks(filepath.Join(ttys, name, "device"))
		if err != nil {
			continue // virtual consoles have no device link
		}
		vid, pid, ok := usbIDs(dev)
		if !ok {
			continue
		}
		v, ok := bridge.VariantByUSBID(vid, pid)
		if !ok {
			continue
		}
		found = append(found, Match{Port: "/dev/" + name, Variant: v})
	}
	sortMatches(found)
	return found, nil
}

// matchUSB identifies a port from the hexadecimal VID and PID strings an OS
// enumerator reports.
func matchUSB(port, vid, pid string) (Match, bool) {
	v, err := strconv.ParseUint(vid, 16, 16)
	if err != nil {
		return Match{}, false
	}
	p, err := strconv.ParseUint(pid, 16, 16)
	if err != nil {
		return Match{}, false
	}
	variant, ok := bridge.VariantByUSBID(uint16(v), uint16(p))
	if !ok {
		return Match{}, false
	}
	return Match{Port: port, Variant: variant}, true
}

func sortMatches(found []Match) {
	sort.Slice(found, func(i, j int) bool { return found[i].Port < found[j].Port })
}

// usbIDs walks up from a tty's interface directory to the USB device that
// carries idVendor and idProduct.
func usbIDs(dir string) (vid, pid uint16, ok bool) {
	for i := 0; i < 3; i++ {
		v, err := readSysfsHexUint16(filepath.Join(dir, "idVendor"))
		if err == nil {
			p, err := readSysfsHexUint16(filepath.Join(dir, "idProduct"))
			if err != nil {
				return 0, 0, false
			}
			return v, p, true
		}
		dir = filepath.Dir(dir)
	}
	return 0, 0, false
}

func readSysfsHexUint16(path string) (uint16, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(strings.TrimSpace(string(data)), 16, 16)
	if err != nil {
		return 0, err
	}
	return uint16(v), nil
}
