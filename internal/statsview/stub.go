//go:build !statsview

package statsview

import "log/slog"

// Launch does nothing in builds without the statsview tag.
func Launch(addr string, log *slog.Logger) (stop func()) { return func() {} }

// Available reports whether this build includes the stats server.
func Available() bool { return false }
