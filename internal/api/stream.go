package api

import (
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/butterfly-city/internal/engine"
)

const (
	maxStreamConns = 16
	streamBacklog  = 64
	streamCatchUp  = 20
	pingInterval   = 30 * time.Second
	writeTimeout   = 10 * time.Second
)

// originChecker allows same-host requests, requests without an Origin, and
// the configured CORS origins.
func originChecker(origins []string) func(r *http.Request) bool {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || allowed["*"] || allowed[origin] {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && u.Host == r.Host
	}
}

// handleStream upgrades to a websocket and writes each new log entry as a
// JSON text frame, after a short catch-up of recent entries.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if s.streamConns.Add(1) > maxStreamConns {
		s.streamConns.Add(-1)
		writeError(w, http.StatusServiceUnavailable, "too many stream connections")
		return
	}
	defer s.streamConns.Add(-1)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied.
		slog.Debug("stream upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	// Listeners run inside nudges and must not block; a slow client drops
	// entries rather than stalling the town.
	ch := make(chan engine.Event, streamBacklog)
	_, unsubscribe := s.town.Events().Subscribe(func(e engine.Event) error {
		select {
		case ch <- e:
		default:
		}
		return nil
	})
	defer unsubscribe()

	var (
		lastSent uint64
		sent     bool
	)
	for _, e := range s.town.Events().RecentEvents(streamCatchUp) {
		if err := writeEvent(conn, e); err != nil {
			return
		}
		lastSent, sent = e.ID, true
	}

	// Reads only surface the close frame.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	slog.Info("stream client connected", "remote", r.RemoteAddr)
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case e := <-ch:
			// The log delivers in ID order, so anything at or below
			// lastSent was already written during catch-up.
			if sent && e.ID <= lastSent {
				continue
			}
			if err := writeEvent(conn, e); err != nil {
				slog.Debug("stream write failed", "error", err)
				return
			}
			lastSent, sent = e.ID, true
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			slog.Info("stream client disconnected", "remote", r.RemoteAddr)
			return
		case <-r.Context().Done():
			return
		}
	}
}

func writeEvent(conn *websocket.Conn, e engine.Event) error {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(e)
}
