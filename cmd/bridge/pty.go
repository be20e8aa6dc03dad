//go:build !tinygo && !windows

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/term/termios"
	"golang.org/x/sys/unix"
)

// openPty creates a pseudoterminal in raw mode and returns its master end.
// The stimulus host opens the returned slave path as the bridge's serial port.
func openPty() (io.ReadCloser, string, error) {
	ptm, pts, err := termios.Pty()
	if err != nil {
		return nil, "", fmt.Errorf("pty: %w", err)
	}

	var attr unix.Termios
	if err := termios.Tcgetattr(pts.Fd(), &attr); err != nil {
		ptm.Close()
		pts.Close()
		return nil, "", fmt.Errorf("pty: %w", err)
	}
	termios.Cfmakeraw(&attr)
	if err := termios.Tcsetattr(pts.Fd(), termios.TCSANOW, &attr); err != nil {
		ptm.Close()
		pts.Close()
		return nil, "", fmt.Errorf("pty: %w", err)
	}

	// A non-blocking duplicate lets Close interrupt a pending Read.
	fd, err := unix.Dup(int(ptm.Fd()))
	ptm.Close()
	if err != nil {
		pts.Close()
		return nil, "", fmt.Errorf("pty: %w", err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		pts.Close()
		return nil, "", fmt.Errorf("pty: %w", err)
	}
	master := os.NewFile(uintptr(fd), "ptm")

	// Holding the slave open keeps master reads from failing between host
	// sessions.
	return &ptyPort{File: master, slave: pts}, pts.Name(), nil
}

type ptyPort struct {
	*os.File
	slave *os.File
}

func (p *ptyPort) Close() error {
	p.slave.Close()
	return p.File.Close()
}
