package ws

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	readLimit  = 4096
	sendBuffer = 64
)

// Inbound client actions.
const (
	actionCreate  = "createGame"
	actionDetails = "getGameDetails"
	actionAccept  = "acceptGame"
	actionCancel  = "cancelGame"
)

// actionFrame is the inbound client message shape; unused fields are zero.
type actionFrame struct {
	Action            string `json:"action"`
	GameID            string `json:"gameId"`
	TimeControl       int    `json:"timeControl"`
	Wager             int    `json:"wager"`
	WalletAddr        string `json:"walletAddr"`
	NRounds           int    `json:"nRounds"`
	CreatedOnContract bool   `json:"createdOnContract"`
}

var errClientGone = errors.New("client is shut down")

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	closed bool
}

// trySend queues one outbound frame. It is the only writer to the send
// channel, so the shutdown flag below makes close-vs-send safe under
// concurrent emitters.
func (c *client) trySend(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errClientGone
	}
	select {
	case c.send <- frame:
		return nil
	default:
		return errors.New("send buffer full")
	}
}

// shutdown closes the send channel exactly once; later trySend calls fail
// instead of hitting the closed channel.
func (c *client) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// readPump consumes inbound frames until the peer disconnects. It runs on the
// connection's handler goroutine so actions for one connection are serialized.
func (c *client) readPump(h *Hub) {
	defer c.conn.Close()

	c.conn.SetReadLimit(readLimit)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warnf("connection %s read error: %v", c.id, err)
			}
			return
		}
		h.dispatch(context.Background(), c.id, raw)
	}
}

// writePump drains the send channel and keeps the connection alive with pings.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
