package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Khalil-Ghimaji/DoussiyaFidaya-sub001/config"
	"github.com/Khalil-Ghimaji/DoussiyaFidaya-sub001/logging"
	"github.com/Khalil-Ghimaji/DoussiyaFidaya-sub001/models"
	"github.com/Khalil-Ghimaji/DoussiyaFidaya-sub001/wire"
)

// Client is one live connection for one authenticated doctor.
type Client struct {
	UserID  string
	Info    models.UserInfo
	manager *Manager
	conn    *websocket.Conn
	send    chan []byte
	cfg     config.WebSocketConfig

	// sendMu guards send against the eviction close: the read pump may still
	// be dispatching a command for this client while the manager unregisters
	// it.
	sendMu sync.Mutex
	closed bool
}

func NewClient(info models.UserInfo, manager *Manager, conn *websocket.Conn, cfg config.WebSocketConfig) *Client {
	return &Client{
		UserID:  info.ID,
		Info:    info,
		manager: manager,
		conn:    conn,
		send:    make(chan []byte, 256),
		cfg:     cfg,
	}
}

// SendEvent queues one event for this connection only. After eviction the
// frame is silently dropped.
func (c *Client) SendEvent(event string, data any) error {
	frame, err := wire.Encode(event, data)
	if err != nil {
		return err
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return nil
	}
	select {
	case c.send <- frame:
	default:
		// Buffer full; the manager will evict this connection on the next
		// room fanout. Dropping here keeps the caller non-blocking.
	}
	return nil
}

// closeSend closes the send channel exactly once. Only the manager calls
// this, from its unregister path.
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *Client) readPump(handler func(*Client, wire.Envelope)) {
	defer func() {
		c.manager.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.L().Warn().Err(err).Str("doctorId", c.UserID).Msg("websocket read error")
			}
			break
		}

		env, err := wire.DecodeEnvelope(raw)
		if err != nil {
			logging.L().Warn().Err(err).Str("doctorId", c.UserID).Msg("dropping malformed frame")
			continue
		}

		handler(c, env)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(frame)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
