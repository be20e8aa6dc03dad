//go:build !tinygo && windows

package main

import (
	"errors"
	"io"
)

func openPty() (io.ReadCloser, string, error) {
	return nil, "", errors.New("pty: pseudoterminals need a POSIX host; pass a COM port")
}
