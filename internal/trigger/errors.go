package trigger

import (
	"errors"
	"fmt"
)

// Kind classifies a link failure. It is a comparable string newtype and
// implements error, so errors.Is(err, KindTimeout) works on a *LinkError.
type Kind string

func (k Kind) Error() string { return string(k) }

const (
	KindShortWrite Kind = "short_write"
	KindTransport  Kind = "transport"
	KindTimeout    Kind = "timeout"
	KindBusy       Kind = "busy"
)

var (
	// ErrHandshake wraps a failure to force the output low at startup.
	ErrHandshake = errors.New("trigger: handshake failed")

	ErrDiscoveryUnsupported = errors.New("trigger: port discovery not supported on this platform")
	ErrNoBridge             = errors.New("trigger: no bridge device found")
)

// LinkError reports a failed command write.
type LinkError struct {
	Op   string
	Kind Kind
	N    int // bytes accepted by the transport
	Err  error
}

func (e *LinkError) Error() string {
	msg := fmt.Sprintf("trigger %s: %s", e.Op, e.Kind)
	if e.Kind == KindShortWrite {
		msg += fmt.Sprintf(" (%d of 1 bytes)", e.N)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *LinkError) Unwrap() error { return e.Err }

// Is matches a Kind target against the error's kind.
func (e *LinkError) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// KindOf extracts the Kind of a link failure, or "" when err is not one.
func KindOf(err error) Kind {
	var le *LinkError
	if errors.As(err, &le) {
		return le.Kind
	}
	return ""
}
