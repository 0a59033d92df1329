// Package bridge owns the single socket connection of the client.
//
// A Bridge is created once by the host and injected into the command
// handlers. All access to the live socket goes through one mutex, which is
// held only for the duration of a single synchronous transport call
// (dial, close or one emit). Inbound events are delivered on the socket's
// own goroutine and never touch the bridge lock.
package bridge

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/yasskadd/scrabble/internal/logging"
	"github.com/yasskadd/scrabble/internal/socketio"
)

// Status is the result of QueryAlive.
type Status int

const (
	NotAlive Status = iota
	Alive
)

func (s Status) String() string {
	if s == Alive {
		return "alive"
	}
	return "not alive"
}

// Socket is a live transport connection.
type Socket interface {
	Emit(event, data string) error
	Close() error
}

// DialFunc opens a transport connection to address, presenting cookie when
// it is not empty, and calls onEvent for every inbound event.
type DialFunc func(ctx context.Context, address, cookie string, onEvent func(socketio.Event)) (Socket, error)

// NewSocketIODialer returns a DialFunc backed by a Socket.IO dialer.
func NewSocketIODialer(d *socketio.Dialer) DialFunc {
	return func(ctx context.Context, address, cookie string, onEvent func(socketio.Event)) (Socket, error) {
		logger := logging.Bridge()
		header := http.Header{}
		if cookie != "" {
			header.Set("Cookie", cookie)
		}
		c, err := d.Dial(ctx, address, socketio.Options{
			Header:  header,
			OnEvent: onEvent,
			OnClose: func(err error) {
				if err != nil {
					// The bridge stays Connected until Disconnect; the next
					// Send reports the failure to the UI.
					logger.Warn("Socket transport closed by remote", "address", address, "error", err)
				}
			},
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

// Bridge manages the lifecycle of the socket connection.
//
// It is safe for concurrent use.
type Bridge struct {
	mu      sync.Mutex
	socket  Socket
	address string
	connID  string
	fault   *LockError

	dial    DialFunc
	onEvent func(socketio.Event)
	logger  *slog.Logger
}

// New creates a disconnected bridge. onEvent receives every inbound event
// of every connection the bridge establishes.
func New(dial DialFunc, onEvent func(socketio.Event)) *Bridge {
	if onEvent == nil {
		onEvent = func(socketio.Event) {}
	}
	return &Bridge{
		dial:    dial,
		onEvent: onEvent,
		logger:  logging.Bridge(),
	}
}

// Establish connects to address. It fails with ErrAlreadyConnected when a
// connection is live. A transport failure is returned as an *OpError and
// leaves the bridge disconnected. ctx bounds the connection handshake.
func (b *Bridge) Establish(ctx context.Context, address, cookie string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.fault != nil {
		return b.fault
	}
	if b.socket != nil {
		b.logger.Info("Establish rejected, already connected",
			"address", address, "connected_to", b.address, "conn_id", b.connID)
		return ErrAlreadyConnected
	}

	var s Socket
	err := b.guard(OpEstablish, func() error {
		var err error
		s, err = b.dial(ctx, address, cookie, b.onEvent)
		return err
	})
	if b.fault != nil {
		return b.fault
	}
	if err == nil && s == nil {
		err = errors.New("dialer returned no connection")
	}
	if err != nil {
		b.logger.Warn("Socket connection failed", "address", address, "error", err)
		return &OpError{Op: OpEstablish, Err: err}
	}

	b.socket = s
	b.address = address
	b.connID = uuid.New().String()
	logging.WithConnection(b.logger, address, b.connID).Info("Socket connected",
		"with_cookie", cookie != "")
	return nil
}

// Disconnect closes the live connection. The bridge is disconnected when it
// returns, even if closing failed; the failure is returned as an *OpError.
// Disconnecting a disconnected bridge does nothing.
func (b *Bridge) Disconnect() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.fault != nil {
		return b.fault
	}
	if b.socket == nil {
		return nil
	}

	s := b.socket
	logger := logging.WithConnection(b.logger, b.address, b.connID)
	b.socket = nil
	b.address = ""
	b.connID = ""

	if err := b.guard(OpDisconnect, s.Close); err != nil {
		if b.fault != nil {
			return b.fault
		}
		logger.Warn("Socket disconnect failed", "error", err)
		return &OpError{Op: OpDisconnect, Err: err}
	}
	logger.Info("Socket disconnected")
	return nil
}

// Send emits one event. It does nothing when disconnected. A transport
// failure is returned as an *OpError and leaves the bridge connected.
func (b *Bridge) Send(event, data string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.fault != nil {
		return b.fault
	}
	if b.socket == nil {
		b.logger.Debug("Send ignored, not connected", "event", event)
		return nil
	}

	s := b.socket
	if err := b.guard(OpSend, func() error { return s.Emit(event, data) }); err != nil {
		if b.fault != nil {
			return b.fault
		}
		logging.WithConnection(b.logger, b.address, b.connID).Warn("Socket send failed",
			"event", event, "error", err)
		return &OpError{Op: OpSend, Err: err}
	}
	return nil
}

// QueryAlive reports whether a connection is live.
func (b *Bridge) QueryAlive() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.socket != nil && b.fault == nil {
		return Alive
	}
	return NotAlive
}

// Address returns the address of the live connection, or "".
func (b *Bridge) Address() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.address
}

// Fault returns the LockError that faulted the bridge, or nil.
func (b *Bridge) Fault() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fault == nil {
		return nil
	}
	return b.fault
}

// guard runs a transport call with the lock held. A panic marks the bridge
// faulted and drops the handle. Callers must hold b.mu.
func (b *Bridge) guard(op string, fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			b.fault = &LockError{Op: op, Value: p}
			b.socket = nil
			b.logger.Error("Transport call panicked, bridge faulted", "op", op, "panic", p)
			err = b.fault
		}
	}()
	return fn()
}
