package detectionHandler

import (
	"time"

	"github.com/gofiber/websocket/v2"
)

const (
	maxFrameBytes      = 5 * 1024 * 1024
	feedReadTimeout    = 60 * time.Second
	statusWriteTimeout = 10 * time.Second
)

// handleStatusWebSocket streams hub updates as JSON, starting with the
// current state.
func (h *DetectionHandler) handleStatusWebSocket(c *websocket.Conn) {
	if h.hub == nil {
		_ = c.WriteJSON(map[string]string{"error": "camera feed is not configured"})
		return
	}

	h.log.Info("Detection status client connected")
	defer h.log.Info("Detection status client disconnected")

	updates, unsubscribe := h.hub.Subscribe(4)
	defer unsubscribe()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := h.writeJSON(c, h.hub.Snapshot()); err != nil {
		return
	}

	for {
		select {
		case <-closed:
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			if err := h.writeJSON(c, u); err != nil {
				h.log.Debugf("Error writing status update: %v", err)
				return
			}
		}
	}
}

func (h *DetectionHandler) writeJSON(c *websocket.Conn, v any) error {
	if err := c.SetWriteDeadline(time.Now().Add(statusWriteTimeout)); err != nil {
		return err
	}
	return c.WriteJSON(v)
}

// handleFeedWebSocket accepts binary JPEG frames from the camera publisher.
// Only the latest frame is kept.
func (h *DetectionHandler) handleFeedWebSocket(c *websocket.Conn) {
	if h.source == nil {
		_ = c.WriteJSON(map[string]string{"error": "camera feed is not configured"})
		return
	}

	h.log.Info("Camera publisher connected")
	defer h.log.Info("Camera publisher disconnected")
	defer h.source.Clear()

	c.SetReadLimit(maxFrameBytes)
	c.SetPingHandler(func(data string) error {
		if err := c.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second)); err != nil {
			h.log.Errorf("Error sending pong: %v", err)
		}
		return nil
	})

	for {
		if err := c.SetReadDeadline(time.Now().Add(feedReadTimeout)); err != nil {
			h.log.Errorf("Error setting read deadline: %v", err)
			return
		}

		messageType, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Errorf("Camera feed WebSocket error: %v", err)
			}
			return
		}

		if messageType != websocket.BinaryMessage {
			h.log.Warnf("Received unexpected message type: %d", messageType)
			continue
		}

		h.source.Push(message)
	}
}
