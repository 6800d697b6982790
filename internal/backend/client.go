package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

var (
	// ErrDisconnected is returned for requests issued or pending while no
	// connection is up.
	ErrDisconnected = errors.New("backend disconnected")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("backend client closed")
)

// Ensure Client implements Backend at compile time.
var _ Backend = (*Client)(nil)

const (
	defaultBackendURL = "ws://127.0.0.1:7488/ws"
	requestTimeout    = 5 * time.Second
	writeTimeout      = 2 * time.Second
)

// frame is the single JSON envelope used in both directions.
type frame struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Cmd     string          `json:"cmd,omitempty"`
	Args    any             `json:"args,omitempty"`
	OK      bool            `json:"ok,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Event   string          `json:"event,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type reply struct {
	ok   bool
	data json.RawMessage
	msg  string
	err  error
}

// Client talks to the backend over one websocket.
type Client struct {
	url     string
	dialer  *websocket.Dialer
	timeout time.Duration
	log     zerolog.Logger

	mu           sync.Mutex
	conn         *websocket.Conn
	closed       bool
	pending      map[string]chan reply
	handlers     map[string]map[uint64]Handler
	nextHandler  uint64
	onDisconnect func(error)

	writeMu sync.Mutex
}

// NewClient builds a Client for the given ws:// or http:// URL. host:port
// alone is accepted and gets the default scheme and path.
func NewClient(rawURL string, log zerolog.Logger) (*Client, error) {
	u, err := parseBackendURL(rawURL)
	if err != nil {
		return nil, err
	}
	return &Client{
		url:      u.String(),
		dialer:   &websocket.Dialer{HandshakeTimeout: requestTimeout},
		timeout:  requestTimeout,
		log:      log.With().Str("component", "backend").Logger(),
		pending:  make(map[string]chan reply),
		handlers: make(map[string]map[uint64]Handler),
	}, nil
}

// URL returns the resolved websocket URL.
func (c *Client) URL() string {
	return c.url
}

// OnDisconnect registers fn to run when an established connection drops.
// It is not called for Close.
func (c *Client) OnDisconnect(fn func(error)) {
	c.mu.Lock()
	c.onDisconnect = fn
	c.mu.Unlock()
}

// Connected reports whether a connection is currently up.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Connect dials the backend if no connection is up.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.conn != nil {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.url, err)
	}

	c.mu.Lock()
	if c.closed || c.conn != nil {
		c.mu.Unlock()
		_ = conn.Close()
		if c.closed {
			return ErrClosed
		}
		return nil
	}
	c.conn = conn
	c.mu.Unlock()

	c.log.Info().Str("url", c.url).Msg("backend connected")
	go c.readLoop(conn)
	return nil
}

// Close tears down the connection and fails every pending request.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	c.conn = nil
	c.failPendingLocked(ErrClosed)
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	c.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeTimeout))
	c.writeMu.Unlock()
	return conn.Close()
}

// Invoke sends cmd and waits for the matching reply, the request timeout or
// ctx, whichever comes first.
func (c *Client) Invoke(ctx context.Context, cmd string, args any, out any) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		return fmt.Errorf("%s: %w", cmd, ErrDisconnected)
	}
	id := uuid.NewString()
	ch := make(chan reply, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if err := c.write(conn, frame{Type: "invoke", ID: id, Cmd: cmd, Args: args}); err != nil {
		return fmt.Errorf("send %s: %w", cmd, err)
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	var r reply
	select {
	case r = <-ch:
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("%s: no reply within %s", cmd, c.timeout)
	}

	if r.err != nil {
		return fmt.Errorf("%s: %w", cmd, r.err)
	}
	if !r.ok {
		return &CommandError{Cmd: cmd, Message: r.msg}
	}
	if out == nil || len(r.data) == 0 || string(r.data) == "null" {
		return nil
	}
	if err := json.Unmarshal(r.data, out); err != nil {
		return fmt.Errorf("decode %s reply: %w", cmd, err)
	}
	return nil
}

// Listen registers fn and asks the backend to push event.
func (c *Client) Listen(ctx context.Context, event string, fn Handler) (func(), error) {
	c.mu.Lock()
	c.nextHandler++
	key := c.nextHandler
	if c.handlers[event] == nil {
		c.handlers[event] = make(map[uint64]Handler)
	}
	c.handlers[event][key] = fn
	c.mu.Unlock()

	unlisten := func() {
		c.mu.Lock()
		delete(c.handlers[event], key)
		c.mu.Unlock()
	}

	if err := c.Invoke(ctx, CmdListen, map[string]string{"event": event}, nil); err != nil {
		unlisten()
		return nil, fmt.Errorf("listen %s: %w", event, err)
	}
	return unlisten, nil
}

func (c *Client) write(conn *websocket.Conn, f frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(f)
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			c.drop(conn, err)
			return
		}

		var f frame
		if err := json.Unmarshal(payload, &f); err != nil {
			c.log.Warn().Err(err).Msg("discarding malformed frame")
			continue
		}

		switch f.Type {
		case "reply":
			c.mu.Lock()
			ch := c.pending[f.ID]
			c.mu.Unlock()
			if ch == nil {
				c.log.Debug().Str("id", f.ID).Msg("reply for unknown request")
				continue
			}
			select {
			case ch <- reply{ok: f.OK, data: f.Data, msg: f.Error}:
			default:
			}
		case "event":
			c.dispatch(f.Event, f.Payload)
		default:
			c.log.Warn().Str("type", f.Type).Msg("discarding frame of unknown type")
		}
	}
}

func (c *Client) dispatch(name string, payload json.RawMessage) {
	ev, err := DecodeEvent(name, payload)
	if err != nil {
		c.log.Warn().Err(err).Str("event", name).Msg("dropping undecodable event")
		return
	}

	c.mu.Lock()
	fns := make([]Handler, 0, len(c.handlers[name]))
	for _, fn := range c.handlers[name] {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// drop forgets conn after a read failure and notifies the disconnect hook.
func (c *Client) drop(conn *websocket.Conn, cause error) {
	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.failPendingLocked(ErrDisconnected)
	notify := c.onDisconnect
	c.mu.Unlock()

	_ = conn.Close()
	if websocket.IsCloseError(cause, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		c.log.Info().Msg("backend closed the connection")
	} else {
		c.log.Warn().Err(cause).Msg("backend connection lost")
	}
	if notify != nil {
		notify(cause)
	}
}

func (c *Client) failPendingLocked(err error) {
	for id, ch := range c.pending {
		select {
		case ch <- reply{err: err}:
		default:
		}
		delete(c.pending, id)
	}
}

func parseBackendURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = defaultBackendURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "ws://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse backend url %q: %w", raw, err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return nil, fmt.Errorf("parse backend url %q: unsupported scheme %q", raw, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse backend url %q: missing host", raw)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/ws"
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
