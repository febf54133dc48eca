package websocket

import (
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 4096
)

// Client is one browser session's WebSocket connection. Outgoing messages go
// through the buffered send channel; the hub closes it to terminate the
// connection.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	sessionID string
	username  string

	send chan []byte
}

// NewClient wraps an upgraded connection for the given session.
func NewClient(hub *Hub, conn *websocket.Conn, sessionID, username string) *Client {
	return &Client{
		hub:       hub,
		conn:      conn,
		sessionID: sessionID,
		username:  username,
		send:      make(chan []byte, 64),
	}
}

// Start launches the read and write pumps. It returns immediately.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

// readPump drains incoming frames. Clients do not send application messages
// over this socket; reading is only needed to process control frames and
// detect disconnects.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[WS] unexpected close: session=%s: %v", c.sessionID, err)
			}
			return
		}
	}
}

// writePump forwards messages from the send channel to the connection and
// keeps it alive with periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
