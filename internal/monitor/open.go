package monitor

import "log/slog"

// Options selects the sinks the stimulus host streams events to.
type Options struct {
	WebSocket string // ws:// URL of a monitor server
	MQTT      string // broker URL
	Topic     string
	ClientID  string
	Queue     int
	Log       *slog.Logger
}

// Open dials every configured sink and queues events to them through one
// Async. It returns nil when no sink is configured. If a dial fails, the sinks
// already opened are closed.
func Open(opts Options) (*Async, error) {
	var sinks Multi
	if opts.WebSocket != "" {
		ws, err := DialWebSocket(opts.WebSocket, opts.Log)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, ws)
	}
	if opts.MQTT != "" {
		mq, err := DialMQTT(opts.MQTT, opts.Topic, opts.ClientID, opts.Log)
		if err != nil {
			sinks.Close()
			return nil, err
		}
		sinks = append(sinks, mq)
	}
	if len(sinks) == 0 {
		return nil, nil
	}
	return NewAsync(sinks, opts.Queue, opts.Log), nil
}
