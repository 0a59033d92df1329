// Package app assembles the client runtime shared by the desktop host and
// the console: the window registry, the event router, the connection
// bridge, the HTTP gateway and the UI commands.
package app

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/yasskadd/scrabble/internal/bridge"
	"github.com/yasskadd/scrabble/internal/commands"
	"github.com/yasskadd/scrabble/internal/config"
	"github.com/yasskadd/scrabble/internal/events"
	"github.com/yasskadd/scrabble/internal/gateway"
	"github.com/yasskadd/scrabble/internal/logging"
	"github.com/yasskadd/scrabble/internal/secrets"
	"github.com/yasskadd/scrabble/internal/socketio"
	"github.com/yasskadd/scrabble/internal/window"
)

const (
	// DefaultConnectTimeout bounds establishConnection.
	DefaultConnectTimeout = 30 * time.Second
	// DefaultHandshakeTimeout bounds the websocket upgrade.
	DefaultHandshakeTimeout = 15 * time.Second
	// DefaultWriteTimeout bounds a single socket write.
	DefaultWriteTimeout = 10 * time.Second
)

// Options configures Build.
type Options struct {
	// SettingsPath is the settings file the session cookie falls back to
	// when the platform has no secret store. Empty disables the fallback.
	SettingsPath string
	// Secrets overrides the platform secret store.
	Secrets secrets.SecretStore
	// OnFatal is called once when the bridge faults.
	OnFatal func(err error)
	// BroadcastBuffer is the per-subscriber broadcast queue size.
	BroadcastBuffer int
}

// App is the assembled runtime.
type App struct {
	Config      *config.Config
	Windows     *window.Registry
	Broadcaster *events.Broadcaster
	Router      *events.Router
	Bridge      *bridge.Bridge
	Gateway     *gateway.Gateway
	Commands    *commands.Commands

	settingsPath string
	watcher      *config.Watcher
	logger       *slog.Logger
}

// Build loads the pinned certificate and wires every component from cfg.
// It fails when the certificate cannot be loaded, so no connection or HTTP
// call can ever run without it.
func Build(cfg *config.Config, opts Options) (*App, error) {
	logger := logging.App()

	pool, err := gateway.LoadRootCertificate(cfg.RootCertificatePath())
	if err != nil {
		return nil, fmt.Errorf("failed to load root certificate: %w", err)
	}
	tlsConfig := gateway.NewTLSConfig(pool)

	client, err := gateway.NewPinnedClient(tlsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}
	gw, err := gateway.New(client, cfg.HTTPBaseURL())
	if err != nil {
		return nil, err
	}

	registry := window.NewRegistry()
	broadcaster := events.NewBroadcaster(opts.BroadcastBuffer)
	router := events.NewRouter(registry, cfg.Windows.Primary, cfg.Windows.Secondary, broadcaster)

	dialer := &socketio.Dialer{
		TLSConfig:        tlsConfig,
		HandshakeTimeout: DefaultHandshakeTimeout,
		WriteTimeout:     DefaultWriteTimeout,
		Logger:           logging.DowngradeInfoToDebug(logging.Socket()),
	}
	b := bridge.New(bridge.NewSocketIODialer(dialer), router.HandleEvent)

	store := opts.Secrets
	if store == nil {
		store = secrets.Default()
	}
	var persist func(string) error
	if opts.SettingsPath != "" {
		path := opts.SettingsPath
		persist = func(cookie string) error {
			return config.SaveSessionCookie(path, cookie)
		}
	}

	cmds := commands.New(commands.Options{
		Bridge:         b,
		Gateway:        gw,
		Notifier:       router,
		DefaultAddress: cfg.Server.SocketURL,
		DefaultCookie:  cfg.Session.Cookie,
		Secrets:        store,
		PersistCookie:  persist,
		ConnectTimeout: DefaultConnectTimeout,
		OnFatal:        opts.OnFatal,
	})

	logger.Info("Client runtime ready",
		"socket_url", cfg.Server.SocketURL,
		"http_url", cfg.HTTPBaseURL(),
		"primary_window", cfg.Windows.Primary,
		"secondary_window", cfg.Windows.Secondary,
		"secret_store", store.IsSupported(),
	)

	return &App{
		Config:      cfg,
		Windows:     registry,
		Broadcaster: broadcaster,
		Router:      router,
		Bridge:      b,
		Gateway:     gw,
		Commands:    cmds,

		settingsPath: opts.SettingsPath,
		logger:       logger,
	}, nil
}

// WatchSettings applies later edits of the settings file: a changed server
// address or session cookie is used by the next establishConnection.
func (a *App) WatchSettings() error {
	if a.settingsPath == "" || a.watcher != nil {
		return nil
	}
	w, err := config.NewWatcher(a.settingsPath, func(c *config.Config) {
		a.Commands.UpdateDefaults(c.Server.SocketURL, c.Session.Cookie)
	}, a.logger)
	if err != nil {
		return fmt.Errorf("failed to watch settings: %w", err)
	}
	w.Start()
	a.watcher = w
	return nil
}

// Close disconnects the socket and stops the broadcaster. It is meant to
// be registered as a shutdown cleanup.
func (a *App) Close(reason string) error {
	a.logger.Debug("Closing client runtime", "reason", reason)
	var err error
	if a.watcher != nil {
		if werr := a.watcher.Close(); werr != nil {
			a.logger.Debug("Failed to stop settings watcher", "error", werr)
		}
	}
	if a.Bridge.QueryAlive() == bridge.Alive {
		err = a.Bridge.Disconnect()
	}
	a.Broadcaster.Close()
	return err
}
