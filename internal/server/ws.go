package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/roach88/coursenotify/internal/dispatch"
)

const (
	wsWriteWait    = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

// wsMessage is one frame on the websocket. Destination is the user topic
// the notification was published on.
type wsMessage struct {
	Destination  string               `json:"destination"`
	Notification notificationResponse `json:"notification"`
}

// handleWebSocket relays the user's live topic over a websocket. Inbound
// frames are read and discarded so that close frames and disconnects are
// noticed.
func (s *Server) handleWebSocket() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := UserID(c)
		conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade has already written the error response.
			s.logger.Warn("websocket upgrade failed", "user", userID, "error", err)
			return
		}
		defer conn.Close()

		topic := dispatch.UserTopic(userID)
		ch, cancel := s.hub.Subscribe(topic)
		defer cancel()

		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ping := time.NewTicker(wsPingInterval)
		defer ping.Stop()

		for {
			select {
			case n, ok := <-ch:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				msg := wsMessage{Destination: topic, Notification: toNotificationResponse(n)}
				if err := conn.WriteJSON(msg); err != nil {
					s.logger.Debug("websocket write failed", "user", userID, "error", err)
					return
				}
			case <-ping.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
					return
				}
			case <-closed:
				return
			}
		}
	}
}
