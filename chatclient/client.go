// Package chatclient implements the realtime conversation session used by
// doctor-facing UIs: one persistent websocket per authenticated identity,
// multiplexing patient-scoped rooms, with typed events, presence tracking
// and REST history/upload calls.
package chatclient

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Khalil-Ghimaji/DoussiyaFidaya-sub001/logging"
	"github.com/Khalil-Ghimaji/DoussiyaFidaya-sub001/models"
	"github.com/Khalil-Ghimaji/DoussiyaFidaya-sub001/wire"
)

const defaultHandshakeTimeout = 10 * time.Second

// Options configure a Client. Zero values get sensible defaults.
type Options struct {
	// ServerURL is the chat server base URL, e.g. "http://localhost:8080".
	ServerURL string
	// Token authenticates REST calls until Connect stores a fresher one.
	Token string
	// HandshakeTimeout bounds the wait for identity confirmation.
	HandshakeTimeout time.Duration
	// HTTPClient is used for REST calls. Defaults to http.DefaultClient.
	HTTPClient *http.Client
	// Dialer is used for the websocket connection.
	Dialer *websocket.Dialer
	// OnDisconnect is invoked when the transport drops outside of an
	// explicit Disconnect call. The client does not reconnect by itself;
	// owners call Connect again.
	OnDisconnect func(err error)
}

// Client is the session object. Construct one per authenticated identity at
// startup and share it by reference; all methods are safe for concurrent
// use.
type Client struct {
	opts   Options
	router *eventRouter

	// connectMu serializes Connect/Disconnect transitions.
	connectMu sync.Mutex

	// writeMu serializes frames onto the websocket.
	writeMu sync.Mutex

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	identity  *models.UserInfo
	token     string
	done      chan struct{}
	rooms     map[roomKey]struct{}
	online    map[string]bool
}

func New(opts Options) *Client {
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = defaultHandshakeTimeout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	return &Client{
		opts:   opts,
		router: newEventRouter(),
		token:  opts.Token,
		rooms:  make(map[roomKey]struct{}),
		online: make(map[string]bool),
	}
}

// On registers a handler for a server event (see package wire for names and
// payload types). Handlers fire in registration order on the read loop.
func (c *Client) On(event string, fn Handler) Subscription {
	return c.router.on(event, fn)
}

// Off unregisters a handler. Unknown subscriptions are ignored.
func (c *Client) Off(sub Subscription) {
	c.router.off(sub)
}

// Identity returns the server-confirmed identity, or false when not
// connected.
func (c *Client) Identity() (models.UserInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.identity == nil {
		return models.UserInfo{}, false
	}
	return *c.identity, true
}

// IsConnected reports whether the session holds a live, handshaken
// connection.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Connect dials the server and performs the authentication handshake. It
// resolves with the server-confirmed identity once connected_user_info
// arrives, fails with ErrConnectionTimeout when the confirmation does not
// arrive in time, and with AuthError when the transport errors first.
// Calling Connect while already connected returns the captured identity
// without opening a second connection.
func (c *Client) Connect(ctx context.Context, token string) (models.UserInfo, error) {
	c.connectMu.Lock()
	defer c.connectMu.Unlock()

	c.mu.Lock()
	if c.connected {
		info := *c.identity
		c.mu.Unlock()
		return info, nil
	}
	c.mu.Unlock()

	wsURL, err := websocketURL(c.opts.ServerURL, token)
	if err != nil {
		return models.UserInfo{}, err
	}

	conn, _, err := c.opts.Dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return models.UserInfo{}, &AuthError{Err: err}
	}

	info, err := c.awaitIdentity(conn)
	if err != nil {
		conn.Close()
		return models.UserInfo{}, err
	}

	done := make(chan struct{})
	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.identity = &info
	c.token = token
	c.done = done
	c.mu.Unlock()

	go c.readLoop(conn, done)

	return info, nil
}

// awaitIdentity reads frames until the identity confirmation arrives.
// Other events received before it are queued for dispatch only after the
// session is usable; the original contract drops them, and so do we.
func (c *Client) awaitIdentity(conn *websocket.Conn) (models.UserInfo, error) {
	deadline := time.Now().Add(c.opts.HandshakeTimeout)
	conn.SetReadDeadline(deadline)
	defer conn.SetReadDeadline(time.Time{})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				return models.UserInfo{}, ErrConnectionTimeout
			}
			return models.UserInfo{}, &AuthError{Err: err}
		}

		env, err := wire.DecodeEnvelope(raw)
		if err != nil {
			continue
		}
		if env.Event != wire.EventConnectedUserInfo {
			continue
		}

		payload, err := wire.DecodeEvent(env)
		if err != nil {
			return models.UserInfo{}, &AuthError{Err: err}
		}
		return payload.(models.UserInfo), nil
	}
}

func (c *Client) readLoop(conn *websocket.Conn, done chan struct{}) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			c.teardown(conn, err)
			return
		}

		select {
		case <-done:
			return
		default:
		}

		env, err := wire.DecodeEnvelope(raw)
		if err != nil {
			logging.L().Warn().Err(err).Msg("dropping malformed frame")
			continue
		}

		payload, err := wire.DecodeEvent(env)
		if err != nil {
			logging.L().Warn().Err(err).Str("event", env.Event).Msg("dropping undecodable event")
			continue
		}

		c.applyState(env.Event, payload)
		c.router.dispatch(env.Event, payload)
	}
}

// applyState feeds internal trackers before application handlers run.
func (c *Client) applyState(event string, payload any) {
	switch event {
	case wire.EventDoctorOnline:
		p := payload.(wire.DoctorOnlinePayload)
		c.mu.Lock()
		c.online[p.DoctorID] = true
		c.mu.Unlock()
	case wire.EventDoctorOffline:
		p := payload.(wire.DoctorOfflinePayload)
		c.mu.Lock()
		delete(c.online, p.DoctorID)
		c.mu.Unlock()
	case wire.EventOnlineDoctors:
		p := payload.(wire.OnlineDoctorsPayload)
		c.mu.Lock()
		c.online = make(map[string]bool, len(p.DoctorIDs))
		for _, id := range p.DoctorIDs {
			c.online[id] = true
		}
		c.mu.Unlock()
	}
}

// Disconnect tears the session down: the connection closes, identity, room
// membership, presence and every registered listener are cleared, and no
// further events are delivered after it returns. In-flight REST calls are
// not cancelled; callers should check IsConnected before applying late
// results.
func (c *Client) Disconnect() {
	c.connectMu.Lock()
	defer c.connectMu.Unlock()

	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return
	}
	conn := c.conn
	done := c.done
	c.reset()
	c.mu.Unlock()

	close(done)
	conn.Close()
	c.router.clear()
}

// teardown handles a transport-initiated drop observed by the read loop.
func (c *Client) teardown(conn *websocket.Conn, cause error) {
	c.mu.Lock()
	if !c.connected || c.conn != conn {
		// Already torn down by Disconnect.
		c.mu.Unlock()
		return
	}
	done := c.done
	c.reset()
	c.mu.Unlock()

	close(done)
	conn.Close()
	c.router.clear()

	if c.opts.OnDisconnect != nil {
		c.opts.OnDisconnect(cause)
	}
}

// reset clears connection-scoped state. Callers hold c.mu.
func (c *Client) reset() {
	c.connected = false
	c.conn = nil
	c.identity = nil
	c.done = nil
	c.rooms = make(map[roomKey]struct{})
	c.online = make(map[string]bool)
}

// emit writes one command frame. Returns ErrNotConnected when the transport
// is down.
func (c *Client) emit(command string, data any) error {
	c.mu.Lock()
	conn := c.conn
	connected := c.connected
	c.mu.Unlock()

	if !connected || conn == nil {
		return ErrNotConnected
	}

	frame, err := wire.Encode(command, data)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, frame)
}

// emitBestEffort is emit for operations that silently no-op while
// disconnected.
func (c *Client) emitBestEffort(command string, data any) {
	if err := c.emit(command, data); err != nil && err != ErrNotConnected {
		logging.L().Warn().Err(err).Str("command", command).Msg("emit failed")
	}
}

func websocketURL(serverURL, token string) (string, error) {
	u, err := url.Parse(strings.TrimSuffix(serverURL, "/"))
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path += "/ws"
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
