package ws

import (
	"encoding/json"
	"time"

	"resume_rewards/internal/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 25 * time.Second
	sendBuffer = 64
)

type Client struct {
	AccountID uuid.UUID
	Conn      *websocket.Conn
	Send      chan []byte
	Hub       *Hub
}

func NewClient(accountID uuid.UUID, conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		AccountID: accountID,
		Conn:      conn,
		Send:      make(chan []byte, sendBuffer),
		Hub:       hub,
	}
}

// Run registers the client and serves it until the connection drops.
func (c *Client) Run() {
	c.Hub.Register(c)
	go c.writePump()

	// handshake so clients can wait until events will be delivered
	ready, _ := json.Marshal(Message{Type: MsgReady})
	c.enqueue(ready)

	c.readPump()
}

// enqueue is only called from the read side, before Unregister closes Send.
func (c *Client) enqueue(msg []byte) {
	select {
	case c.Send <- msg:
	default:
	}
}

// read
func (c *Client) readPump() {
	defer func() {
		c.Hub.Unregister(c)
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(1024)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("ws: read error", "account_id", c.AccountID, "error", err)
			}
			return
		}

		var in inbound
		if err := json.Unmarshal(raw, &in); err != nil {
			msg, _ := json.Marshal(Message{Type: MsgError, Error: "invalid message"})
			c.enqueue(msg)
			continue
		}
		// the feed is server-push only; ping is the one client message
		if in.Type == MsgPing {
			msg, _ := json.Marshal(Message{Type: MsgPong})
			c.enqueue(msg)
		}
	}
}

// write
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Debug("ws: write error", "account_id", c.AccountID, "error", err)
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
