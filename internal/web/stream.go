package web

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// clients are on the station's own access point
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleStream pushes the /getBMPData payload once per StreamInterval
// until the client goes away or the server stops.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()
	log.Printf("web: stream client connected from %s", r.RemoteAddr)

	// drain client frames so close messages are noticed
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("web: stream read error: %v", err)
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(s.opts.StreamInterval)
	defer ticker.Stop()

	for {
		if err := conn.WriteJSON(s.payload()); err != nil {
			log.Printf("web: stream write error: %v", err)
			return
		}
		select {
		case <-r.Context().Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server stopping"),
				time.Now().Add(time.Second))
			return
		case <-gone:
			log.Printf("web: stream client %s disconnected", r.RemoteAddr)
			return
		case <-ticker.C:
		}
	}
}
