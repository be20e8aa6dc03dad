//go:build statsview

package statsview

import (
	"log/slog"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
)

// Launch starts the stats server on its own goroutine. The returned function
// stops it.
func Launch(addr string, log *slog.Logger) (stop func()) {
	if addr == "" {
		addr = DefaultAddress
	}
	viewer.SetConfiguration(viewer.WithAddr(addr))
	mgr := statsview.New()
	go mgr.Start()
	log.Info("stats server available", "url", "http://"+addr+path)
	return mgr.Stop
}

// Available reports whether this build includes the stats server.
func Available() bool { return true }
