package socketio

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultWriteTimeout bounds a single frame write when the Dialer does not
// set WriteTimeout.
const DefaultWriteTimeout = 10 * time.Second

// ErrClosed is returned when writing to a client whose connection has ended.
var ErrClosed = errors.New("socket closed")

// ConnectError is returned by Dial when the server rejects the namespace
// connection (for example because the session cookie is not valid).
type ConnectError struct {
	Message string
}

func (e *ConnectError) Error() string {
	return "server refused connection: " + e.Message
}

// Options configures a single connection.
type Options struct {
	// Header holds extra headers sent with the opening request (e.g. Cookie).
	Header http.Header
	// Namespace to connect to. Defaults to "/".
	Namespace string
	// OnEvent is called from the read goroutine for every EVENT and
	// BINARY_EVENT packet, in arrival order.
	OnEvent func(Event)
	// OnClose is called once when the read goroutine exits. err is nil
	// when the connection was closed by Close.
	OnClose func(err error)
}

// Dialer opens Socket.IO connections.
type Dialer struct {
	// TLSConfig is used for wss:// and https:// addresses.
	TLSConfig *tls.Config
	// HandshakeTimeout bounds the websocket upgrade. Zero means no limit
	// beyond the context passed to Dial.
	HandshakeTimeout time.Duration
	// WriteTimeout bounds every frame write on an established connection.
	// Zero means DefaultWriteTimeout.
	WriteTimeout time.Duration
	// Logger receives transport diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// Client is a live Socket.IO connection. It is safe for concurrent use.
type Client struct {
	conn      *websocket.Conn
	namespace string
	sid       string
	heartbeat time.Duration
	writeWait time.Duration
	opts      Options
	logger    *slog.Logger

	writeMu sync.Mutex

	closeOnce sync.Once
	closing   chan struct{}
	done      chan struct{}
}

// Endpoint converts a server address into the websocket URL of the
// Socket.IO endpoint. http(s) schemes are mapped to ws(s) and an empty path
// becomes the default "/socket.io/".
func Endpoint(address string) (string, error) {
	u, err := url.Parse(address)
	if err != nil {
		return "", fmt.Errorf("parse address: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q in %q", u.Scheme, address)
	}
	if u.Host == "" {
		return "", fmt.Errorf("missing host in %q", address)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/socket.io/"
	}
	q := u.Query()
	q.Set("EIO", "4")
	q.Set("transport", "websocket")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Dial connects to address and joins the configured namespace. It returns
// once the server has acknowledged the namespace connection. Cancelling ctx
// aborts the handshake; it has no effect on an established connection.
func (d *Dialer) Dial(ctx context.Context, address string, opts Options) (*Client, error) {
	endpoint, err := Endpoint(address)
	if err != nil {
		return nil, err
	}
	if opts.Namespace == "" {
		opts.Namespace = DefaultNamespace
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	wsDialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		TLSClientConfig:  d.TLSConfig,
		HandshakeTimeout: d.HandshakeTimeout,
	}
	conn, resp, err := wsDialer.DialContext(ctx, endpoint, opts.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket connect: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("websocket connect: %w", err)
	}

	// Abort blocking handshake reads when ctx ends.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	writeWait := d.WriteTimeout
	if writeWait <= 0 {
		writeWait = DefaultWriteTimeout
	}
	c, err := handshake(conn, opts, writeWait, logger)
	if !stop() {
		// ctx fired and the connection was closed underneath the handshake.
		conn.Close()
		if err == nil {
			err = ctx.Err()
		}
		return nil, fmt.Errorf("socket.io handshake: %w", err)
	}
	if err != nil {
		conn.Close()
		return nil, err
	}

	go c.readLoop()
	return c, nil
}

// handshake reads the Engine.IO open packet and joins the namespace.
func handshake(conn *websocket.Conn, opts Options, writeWait time.Duration, logger *slog.Logger) (*Client, error) {
	msg, err := readText(conn)
	if err != nil {
		return nil, fmt.Errorf("socket.io handshake: read open packet: %w", err)
	}
	if len(msg) == 0 || msg[0] != engineOpen {
		return nil, fmt.Errorf("socket.io handshake: expected open packet, got %q", msg)
	}
	var open openPayload
	if err := json.Unmarshal([]byte(msg[1:]), &open); err != nil {
		return nil, fmt.Errorf("socket.io handshake: decode open packet: %w", err)
	}

	c := &Client{
		conn:      conn,
		namespace: opts.Namespace,
		heartbeat: time.Duration(open.PingInterval+open.PingTimeout) * time.Millisecond,
		writeWait: writeWait,
		opts:      opts,
		logger:    logger.With("sid", open.SID),
		closing:   make(chan struct{}),
		done:      make(chan struct{}),
	}

	connect := Packet{Type: PacketConnect, Namespace: opts.Namespace, ID: -1}
	if err := c.writePacket(connect); err != nil {
		return nil, fmt.Errorf("socket.io handshake: send connect: %w", err)
	}

	for {
		msg, err := readText(conn)
		if err != nil {
			return nil, fmt.Errorf("socket.io handshake: %w", err)
		}
		if len(msg) == 0 {
			continue
		}
		switch msg[0] {
		case enginePing:
			if err := c.writeRaw(string(enginePong)); err != nil {
				return nil, fmt.Errorf("socket.io handshake: pong: %w", err)
			}
			continue
		case engineClose:
			return nil, errors.New("socket.io handshake: server closed the connection")
		case engineMessage:
		default:
			continue
		}

		p, err := DecodePacket(msg[1:])
		if err != nil {
			return nil, fmt.Errorf("socket.io handshake: %w", err)
		}
		if p.Namespace != opts.Namespace {
			continue
		}
		switch p.Type {
		case PacketConnect:
			var ack struct {
				SID string `json:"sid"`
			}
			if len(p.Data) > 0 {
				_ = json.Unmarshal(p.Data, &ack)
			}
			c.sid = ack.SID
			c.logger.Debug("Namespace connected", "namespace", opts.Namespace)
			return c, nil
		case PacketConnectError:
			return nil, &ConnectError{Message: connectErrorMessage(p.Data)}
		}
	}
}

func connectErrorMessage(data json.RawMessage) string {
	var ce connectError
	if json.Unmarshal(data, &ce) == nil && ce.Message != "" {
		return ce.Message
	}
	var s string
	if json.Unmarshal(data, &s) == nil {
		return s
	}
	return string(data)
}

// readText reads the next text frame.
func readText(conn *websocket.Conn) (string, error) {
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return "", err
		}
		if mt == websocket.TextMessage {
			return string(data), nil
		}
	}
}

// ID returns the session id assigned to the namespace connection.
func (c *Client) ID() string {
	return c.sid
}

// Done is closed when the read goroutine has exited.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Emit sends one event. See EncodeEvent for how data is encoded.
func (c *Client) Emit(event, data string) error {
	p, err := EncodeEvent(c.namespace, event, data)
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	return c.writePacket(p)
}

// Close leaves the namespace and closes the websocket. It returns an error
// if the disconnect could not be delivered, in which case the connection is
// still torn down. Closing a connection the server already dropped, or
// closing twice, returns nil.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closing)
		select {
		case <-c.done:
		default:
			err = c.writePacket(Packet{Type: PacketDisconnect, Namespace: c.namespace, ID: -1})
			if err == nil {
				c.writeMu.Lock()
				c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				c.writeMu.Unlock()
			}
		}
		if cerr := c.conn.Close(); err == nil && cerr != nil && !errors.Is(cerr, net.ErrClosed) {
			err = cerr
		}
		<-c.done
	})
	return err
}

func (c *Client) writePacket(p Packet) error {
	return c.writeRaw(string(engineMessage) + p.Encode())
}

func (c *Client) writeRaw(msg string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		// A failed write leaves the websocket unusable; end the read loop too.
		c.conn.Close()
		return err
	}
	return nil
}

// readLoop dispatches inbound packets until the connection ends.
func (c *Client) readLoop() {
	var err error
	defer func() {
		c.conn.Close()
		close(c.done)
		select {
		case <-c.closing:
			err = nil
		default:
		}
		if err != nil {
			c.logger.Info("Socket connection lost", "error", err)
		}
		if c.opts.OnClose != nil {
			c.opts.OnClose(err)
		}
	}()

	var pending *Event
	remaining := 0

	for {
		if c.heartbeat > 0 {
			c.conn.SetReadDeadline(time.Now().Add(c.heartbeat))
		}
		mt, data, rerr := c.conn.ReadMessage()
		if rerr != nil {
			err = rerr
			return
		}

		if mt == websocket.BinaryMessage {
			if pending == nil {
				continue
			}
			pending.Attachments = append(pending.Attachments, data)
			remaining--
			if remaining == 0 {
				c.deliver(*pending)
				pending = nil
			}
			continue
		}

		if len(data) == 0 {
			continue
		}
		switch data[0] {
		case enginePing:
			if werr := c.writeRaw(string(enginePong)); werr != nil {
				err = werr
				return
			}
			continue
		case engineClose:
			err = errors.New("server closed the connection")
			return
		case engineNoop, enginePong, engineUpgrade, engineOpen:
			continue
		case engineMessage:
		default:
			continue
		}

		p, perr := DecodePacket(string(data[1:]))
		if perr != nil {
			c.logger.Warn("Dropping malformed packet", "error", perr)
			continue
		}
		if p.Namespace != c.namespace {
			continue
		}

		switch p.Type {
		case PacketEvent, PacketBinaryEvent:
			ev, eerr := eventFromPacket(p)
			if eerr != nil {
				c.logger.Warn("Dropping malformed event", "error", eerr)
				continue
			}
			if p.Type == PacketBinaryEvent && p.Attachments > 0 {
				pending = &ev
				remaining = p.Attachments
				continue
			}
			c.deliver(ev)
		case PacketDisconnect:
			err = errors.New("server disconnected the namespace")
			return
		case PacketConnectError:
			err = &ConnectError{Message: connectErrorMessage(p.Data)}
			return
		}
	}
}

func (c *Client) deliver(ev Event) {
	if c.opts.OnEvent != nil {
		c.opts.OnEvent(ev)
	}
}
