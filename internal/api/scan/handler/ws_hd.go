package scanHandler

import (
	"TailorScan/internal/entity"
	"time"

	"github.com/gofiber/websocket/v2"
	"golang.org/x/net/context"
)

// WatchSession streams status events for one session to a dashboard client.
// The stream ends when the session reaches a terminal status or the client
// goes away.
func (h *ScanHandler) WatchSession(c *websocket.Conn) {
	sessionID := c.Params("id")

	h.log.Info("Session watch client connected")
	defer h.log.Info("Session watch client disconnected")

	c.SetPingHandler(func(data string) error {
		if err := c.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second)); err != nil {
			h.log.Errorf("Error sending pong: %v", err)
		}
		return nil
	})

	snapshot, err := h.scanService.Watch().Snapshot(context.Background(), sessionID)
	if err != nil {
		h.log.Errorf("Session watch snapshot failed: %v", err)
		if writeErr := c.WriteJSON(map[string]string{"error": "session not found"}); writeErr != nil {
			h.log.Errorf("Error sending error response: %v", writeErr)
		}
		return
	}

	events, cancel := h.scanService.Watch().Subscribe(sessionID)
	defer cancel()

	if err := c.WriteJSON(snapshot); err != nil {
		h.log.Errorf("Error writing snapshot: %v", err)
		return
	}
	if entity.ScanStatus(snapshot.Status).IsTerminal() {
		return
	}

	// Reader goroutine only notices the client closing; inbound frames
	// carry nothing.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case evt, ok := <-events:
			if !ok {
				return
			}
			if err := c.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
				h.log.Errorf("Error setting write deadline: %v", err)
				return
			}
			if err := c.WriteJSON(evt); err != nil {
				h.log.Errorf("Error writing session event: %v", err)
				return
			}
			if entity.ScanStatus(evt.Status).IsTerminal() {
				return
			}
		case <-done:
			return
		}
	}
}
