package health

import (
	"encoding/json"
	"net/http"
	"time"

	"nhooyr.io/websocket"
)

// handleEvents streams per-packet events over a websocket connection.
// Each message is one JSON-encoded responder.PacketEvent.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.provider == nil {
		http.Error(w, "responder not configured", http.StatusServiceUnavailable)
		return
	}

	// The connection outlives the server's write timeout.
	rc := http.NewResponseController(w)
	rc.SetWriteDeadline(time.Time{})
	rc.SetReadDeadline(time.Time{})

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	ctx := r.Context()
	events, cancel := s.provider.Subscribe(64)
	defer cancel()

	// Drain reads so pings and close frames are processed.
	go func() {
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case ev, ok := <-events:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
				return
			}
		}
	}
}
