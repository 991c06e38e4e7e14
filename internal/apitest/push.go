package apitest

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	if s.enter(w, "GET /ws") {
		return
	}
	s.mu.Lock()
	reject := s.rejectPush
	s.mu.Unlock()
	if reject {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"message": "push unavailable"})
		return
	}
	if _, ok := s.userForToken(r.URL.Query().Get("token")); !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthenticated."})
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.hubMu.Lock()
	s.clients[conn] = struct{}{}
	s.hubMu.Unlock()

	// Drain client frames until the connection goes away.
	go func() {
		defer s.dropClient(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) dropClient(conn *websocket.Conn) {
	s.hubMu.Lock()
	delete(s.clients, conn)
	s.hubMu.Unlock()
	conn.Close()
}

// Broadcast sends v as JSON to every connected push client.
func (s *Server) Broadcast(v any) {
	s.hubMu.Lock()
	defer s.hubMu.Unlock()
	for conn := range s.clients {
		conn.SetWriteDeadline(time.Now().Add(time.Second))
		if err := conn.WriteJSON(v); err != nil {
			conn.Close()
			delete(s.clients, conn)
		}
	}
}

// BroadcastRaw sends a text frame verbatim, for malformed-payload tests.
func (s *Server) BroadcastRaw(msg string) {
	s.hubMu.Lock()
	defer s.hubMu.Unlock()
	for conn := range s.clients {
		conn.SetWriteDeadline(time.Now().Add(time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
			conn.Close()
			delete(s.clients, conn)
		}
	}
}

// PushClients reports how many push connections are open.
func (s *Server) PushClients() int {
	s.hubMu.Lock()
	defer s.hubMu.Unlock()
	return len(s.clients)
}

// DropPushClients closes every push connection from the server side.
func (s *Server) DropPushClients() {
	s.hubMu.Lock()
	defer s.hubMu.Unlock()
	for conn := range s.clients {
		conn.Close()
		delete(s.clients, conn)
	}
}
