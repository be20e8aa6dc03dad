package monitor

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/junsooki/FrameSync/internal/logging"
)

const (
	pingInterval = 25 * time.Second
	writeWait    = time.Second
)

// WebSocket publishes events as JSON text messages to a monitor server.
type WebSocket struct {
	url string
	log *slog.Logger

	conn   *websocket.Conn
	mu     sync.Mutex
	done   chan struct{}
	closed bool
}

// DialWebSocket connects to url and starts the keepalive loops.
func DialWebSocket(url string, log *slog.Logger) (*WebSocket, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("monitor dial: %w", err)
	}
	w := &WebSocket{
		url:  url,
		log:  logging.OrDiscard(log),
		conn: conn,
		done: make(chan struct{}),
	}
	go w.readLoop()
	go w.pingLoop()
	return w, nil
}

func (w *WebSocket) Publish(ev Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return w.conn.WriteJSON(ev)
}

// Close sends a close frame and shuts the connection down.
func (w *WebSocket) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	close(w.done)
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = w.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	return w.conn.Close()
}

// readLoop consumes control frames; the server sends nothing else.
func (w *WebSocket) readLoop() {
	for {
		if _, _, err := w.conn.NextReader(); err != nil {
			select {
			case <-w.done:
			default:
				w.log.Warn("monitor connection lost", "url", w.url, "err", err)
				w.mu.Lock()
				if !w.closed {
					w.closed = true
					close(w.done)
					w.conn.Close()
				}
				w.mu.Unlock()
			}
			return
		}
	}
}

func (w *WebSocket) pingLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.mu.Lock()
			if !w.closed {
				_ = w.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			}
			w.mu.Unlock()
		}
	}
}
