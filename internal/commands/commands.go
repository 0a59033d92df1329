// Package commands exposes the bridge and the gateway to the UI layer.
//
// Every exported handler is safe to call from any goroutine, never panics
// and reports socket failures as window events instead of errors. Bind
// exposes them to a web view without blocking its UI thread.
package commands

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/yasskadd/scrabble/internal/bridge"
	"github.com/yasskadd/scrabble/internal/gateway"
	"github.com/yasskadd/scrabble/internal/logging"
	"github.com/yasskadd/scrabble/internal/secrets"
)

// Events emitted to the windows when a socket operation fails. The payload
// is the failure reason.
const (
	EventConnectionFailed    = "socketConnectionFailed"
	EventDisconnectionFailed = "socketDisconnectionFailed"
	EventSendFailed          = "socketSendFailed"
)

// Results of queryAlive.
const (
	StatusAlive    = "socketAlive"
	StatusNotAlive = "socketNotAlive"
)

// Binder registers a function under a name callable from the UI. It
// matches webview.WebView.Bind.
type Binder interface {
	Bind(name string, f interface{}) error
}

// Notifier delivers locally generated events to the windows.
type Notifier interface {
	Notify(event, payload string)
}

// Options configures Commands.
type Options struct {
	Bridge   *bridge.Bridge
	Gateway  *gateway.Gateway
	Notifier Notifier

	// DefaultAddress is used by establishConnection when no address is given.
	DefaultAddress string
	// DefaultCookie is used when establishConnection gets no cookie.
	DefaultCookie string
	// Secrets holds the saved session cookie. Nil disables it.
	Secrets secrets.SecretStore
	// PersistCookie saves the cookie when Secrets is unsupported
	// (settings file fallback). Nil disables the fallback.
	PersistCookie func(cookie string) error

	// ConnectTimeout bounds establishConnection. Zero means no limit.
	ConnectTimeout time.Duration

	// OnFatal is called once when the bridge reports a broken invariant.
	// The host is expected to shut the process down.
	OnFatal func(err error)
}

// Commands implements the UI commands.
type Commands struct {
	opts   Options
	logger *slog.Logger

	// address and configCookie track the settings file; cookie is the
	// cookie currently in use.
	mu           sync.RWMutex
	address      string
	configCookie string
	cookie       string

	fatalOnce sync.Once
}

// New creates the command set.
func New(opts Options) *Commands {
	return &Commands{
		opts:         opts,
		logger:       logging.Commands(),
		address:      opts.DefaultAddress,
		configCookie: opts.DefaultCookie,
		cookie:       opts.DefaultCookie,
	}
}

// UpdateDefaults applies reloaded settings. A changed settings cookie
// replaces the cookie in use; an unchanged one leaves a cookie saved
// through SaveSessionCookie alone.
func (c *Commands) UpdateDefaults(address, cookie string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.address = address
	if cookie != c.configCookie {
		c.configCookie = cookie
		c.cookie = cookie
		c.logger.Info("Session cookie updated from settings", "set", cookie != "")
	}
}

// EstablishConnection connects the socket. An empty address uses the
// configured server; an empty cookie uses the configured or saved one.
// Failures are emitted as socketConnectionFailed.
func (c *Commands) EstablishConnection(address, cookie string) {
	defer c.recoverPanic("establishConnection")

	if address == "" {
		c.mu.RLock()
		address = c.address
		c.mu.RUnlock()
	}
	if cookie == "" {
		cookie = c.resolveCookie()
	}

	ctx := context.Background()
	if c.opts.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.ConnectTimeout)
		defer cancel()
	}

	err := c.opts.Bridge.Establish(ctx, address, cookie)
	switch {
	case err == nil:
	case errors.Is(err, bridge.ErrAlreadyConnected):
		c.logger.Info("Connection already established, request ignored", "address", address)
	case c.checkFatal(err):
	default:
		c.notify(EventConnectionFailed, reason(err))
	}
}

// Disconnect closes the socket. Failures are emitted as
// socketDisconnectionFailed.
func (c *Commands) Disconnect() {
	defer c.recoverPanic("disconnect")

	if err := c.opts.Bridge.Disconnect(); err != nil && !c.checkFatal(err) {
		c.notify(EventDisconnectionFailed, reason(err))
	}
}

// Send emits one event. Failures are emitted as socketSendFailed.
func (c *Commands) Send(eventName, data string) {
	defer c.recoverPanic("send")

	if err := c.opts.Bridge.Send(eventName, data); err != nil && !c.checkFatal(err) {
		c.notify(EventSendFailed, reason(err))
	}
}

// QueryAlive returns socketAlive or socketNotAlive.
func (c *Commands) QueryAlive() (status string) {
	defer func() {
		if p := recover(); p != nil {
			c.logPanic("queryAlive", p)
			status = StatusNotAlive
		}
	}()

	if c.opts.Bridge.QueryAlive() == bridge.Alive {
		return StatusAlive
	}
	return StatusNotAlive
}

// HTTP performs a gateway call with method.
func (c *Commands) HTTP(method, url, body, filePath, fieldKey string) gateway.Result {
	return c.opts.Gateway.Do(context.Background(), method, gateway.Request{
		URL:      url,
		Body:     body,
		FilePath: filePath,
		FieldKey: fieldKey,
	})
}

// SaveSessionCookie stores the cookie used by later connections.
func (c *Commands) SaveSessionCookie(cookie string) (err error) {
	defer func() {
		if p := recover(); p != nil {
			c.logPanic("saveSessionCookie", p)
			err = errors.New("internal error")
		}
	}()

	if cookie == "" {
		return errors.New("cookie is empty")
	}
	if err := c.persist(cookie); err != nil {
		c.logger.Warn("Failed to save session cookie", "error", err)
		return err
	}
	c.mu.Lock()
	c.cookie = cookie
	c.mu.Unlock()
	c.logger.Info("Session cookie saved")
	return nil
}

// ClearSessionCookie forgets the saved cookie.
func (c *Commands) ClearSessionCookie() (err error) {
	defer func() {
		if p := recover(); p != nil {
			c.logPanic("clearSessionCookie", p)
			err = errors.New("internal error")
		}
	}()

	c.mu.Lock()
	c.cookie = ""
	c.mu.Unlock()

	if s := c.opts.Secrets; s != nil && s.IsSupported() {
		if err := secrets.DeleteSessionCookie(s); err != nil && !errors.Is(err, secrets.ErrNotFound) {
			return err
		}
		return nil
	}
	if c.opts.PersistCookie != nil {
		return c.opts.PersistCookie("")
	}
	return nil
}

func (c *Commands) persist(cookie string) error {
	if s := c.opts.Secrets; s != nil && s.IsSupported() {
		return secrets.SetSessionCookie(s, cookie)
	}
	if c.opts.PersistCookie != nil {
		return c.opts.PersistCookie(cookie)
	}
	return nil
}

// resolveCookie returns the in-memory cookie, then the saved one.
func (c *Commands) resolveCookie() string {
	c.mu.RLock()
	cookie := c.cookie
	c.mu.RUnlock()
	if cookie != "" {
		return cookie
	}

	s := c.opts.Secrets
	if s == nil || !s.IsSupported() {
		return ""
	}
	cookie, err := secrets.GetSessionCookie(s)
	if err != nil {
		if !errors.Is(err, secrets.ErrNotFound) {
			c.logger.Warn("Failed to read saved session cookie", "error", err)
		}
		return ""
	}
	return cookie
}

func (c *Commands) notify(event, payload string) {
	if c.opts.Notifier != nil {
		c.opts.Notifier.Notify(event, payload)
	}
}

// checkFatal reports whether err is a bridge fault and, if so, hands it to
// the fatal hook.
func (c *Commands) checkFatal(err error) bool {
	if !errors.Is(err, bridge.ErrBridgeFaulted) {
		return false
	}
	c.fatalOnce.Do(func() {
		c.logger.Error("Connection bridge faulted, terminating", "error", err)
		if c.opts.OnFatal != nil {
			c.opts.OnFatal(err)
		}
	})
	return true
}

// recoverPanic must be deferred directly.
func (c *Commands) recoverPanic(name string) {
	if p := recover(); p != nil {
		c.logPanic(name, p)
	}
}

func (c *Commands) logPanic(name string, p any) {
	c.logger.Error("Command panicked", "command", name, "panic", p)
}

// reason returns the transport cause of a bridge error.
func reason(err error) string {
	var opErr *bridge.OpError
	if errors.As(err, &opErr) {
		return opErr.Err.Error()
	}
	return err.Error()
}
