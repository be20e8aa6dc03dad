package monitor

import (
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/junsooki/FrameSync/internal/logging"
)

// Server accepts websocket connections from stimulus hosts and hands every
// decoded event to OnEvent.
type Server struct {
	OnEvent func(remote string, ev Event)

	upgrader websocket.Upgrader
	log      *slog.Logger
	clients  atomic.Int32
}

func NewServer(onEvent func(remote string, ev Event), log *slog.Logger) *Server {
	return &Server{
		OnEvent: onEvent,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log: logging.OrDiscard(log),
	}
}

// Clients returns the number of connected hosts.
func (s *Server) Clients() int { return int(s.clients.Load()) }

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	defer conn.Close()

	s.clients.Add(1)
	defer s.clients.Add(-1)
	s.log.Info("host connected", "remote", r.RemoteAddr)

	for {
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Warn("host read error", "remote", r.RemoteAddr, "err", err)
			}
			s.log.Info("host disconnected", "remote", r.RemoteAddr)
			return
		}
		if s.OnEvent != nil {
			s.OnEvent(r.RemoteAddr, ev)
		}
	}
}
