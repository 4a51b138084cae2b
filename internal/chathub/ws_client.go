package chathub

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeWait bounds each socket write so one wedged client cannot stall
	// broadcasts to the rest of a room.
	writeWait = 10 * time.Second
	// pongWait bounds how long a silent connection is kept around.
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// WebSocketClient adapts a gorilla websocket connection to the Client
// interface. Frames are binary: the in-clear key handshake first, encrypted
// protocol frames after. All writes go through the send channel and the
// write pump so the connection never sees concurrent writers.
type WebSocketClient struct {
	conn         *websocket.Conn
	send         chan []byte
	maxFrameSize int64

	mu     sync.Mutex
	closed bool
}

// NewWebSocketClient wraps an upgraded connection. sendBuffer is the number
// of outbound frames that may queue before the client counts as failed.
func NewWebSocketClient(conn *websocket.Conn, sendBuffer int, maxFrameSize int64) *WebSocketClient {
	return &WebSocketClient{
		conn:         conn,
		send:         make(chan []byte, sendBuffer),
		maxFrameSize: maxFrameSize,
	}
}

func (c *WebSocketClient) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// Send offers a frame to the write pump without blocking. A full buffer or a
// closed client reports failure; the caller decides what that means.
func (c *WebSocketClient) Send(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// Close shuts the connection down. The read pump observes the closed socket
// and runs the session teardown; the write pump exits when the send channel
// drains. Safe to call from any goroutine, any number of times.
func (c *WebSocketClient) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	c.mu.Unlock()
	c.conn.Close()
}

// Run performs the in-clear key handshake and then drives the session until
// the connection dies. It blocks until the read loop exits; teardown is
// guaranteed on every exit path.
func (c *WebSocketClient) Run(sess *Session, key []byte) {
	go c.writePump()

	// Key exchange: the raw symmetric key is the first frame on the wire,
	// unencrypted. A documented weakness of the protocol.
	if !c.Send(key) {
		c.Close()
		return
	}

	c.readPump(sess)
}

func (c *WebSocketClient) readPump(sess *Session) {
	defer sess.Teardown()

	c.conn.SetReadLimit(c.maxFrameSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ERROR: read from %s: %v", c.RemoteAddr(), err)
			}
			return
		}
		// Reading resets the liveness clock as well; clients that only
		// listen are kept alive by pongs.
		c.conn.SetReadDeadline(time.Now().Add(pongWait))

		if err := sess.HandleFrame(frame); err != nil {
			log.Printf("ERROR: %v", err)
			return
		}
	}
}

func (c *WebSocketClient) writePump() {
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
			if err := c.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
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
