package live

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 64
)

// NewUpgrader returns an Upgrader accepting the given origins. An empty list
// or "*" accepts any origin.
func NewUpgrader(allowedOrigins []string) *websocket.Upgrader {
	allowAll := len(allowedOrigins) == 0
	set := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		set[o] = struct{}{}
	}
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if allowAll {
				return true
			}
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			_, ok := set[origin]
			return ok
		},
	}
}

// Serve upgrades the request and subscribes the connection to surveyID. It
// returns once the pumps are started.
func (h *Hub) Serve(up *websocket.Upgrader, w http.ResponseWriter, r *http.Request, surveyID string) error {
	wsConn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := &Connection{SurveyID: surveyID, Send: make(chan []byte, sendBuffer)}
	h.Register(c)

	go h.writePump(wsConn, c)
	go h.readPump(wsConn, c)
	return nil
}

// readPump only drains control frames; subscribers never send data.
func (h *Hub) readPump(wsConn *websocket.Conn, c *Connection) {
	defer func() {
		h.Unregister(c)
		_ = wsConn.Close()
	}()

	wsConn.SetReadLimit(maxMessageSize)
	_ = wsConn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.SetPongHandler(func(string) error {
		return wsConn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := wsConn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Debug().Err(err).Str("survey_id", c.SurveyID).Msg("live read error")
			}
			return
		}
	}
}

func (h *Hub) writePump(wsConn *websocket.Conn, c *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = wsConn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			_ = wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = wsConn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := wsConn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
