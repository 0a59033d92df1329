// Package main provides the entry point for the Scrabble desktop application.
//
// The game UI is served by the game server and displayed in a WebView
// window. The page reaches the connection bridge and the HTTP gateway
// through bound functions, and receives server events through
// window.__scrabbleEmit(window, event, payload).
//
// Build requirements:
//   - CGO_ENABLED=1 (required for webview)
package main

import (
	"fmt"
	"os"

	webview "github.com/webview/webview_go"

	"github.com/yasskadd/scrabble/internal/app"
	"github.com/yasskadd/scrabble/internal/appdir"
	"github.com/yasskadd/scrabble/internal/commands"
	"github.com/yasskadd/scrabble/internal/config"
	"github.com/yasskadd/scrabble/internal/logging"
	"github.com/yasskadd/scrabble/internal/shutdown"
	"github.com/yasskadd/scrabble/internal/window"
)

const (
	appName      = "Scrabble"
	windowWidth  = 1280
	windowHeight = 860

	// uiURLEnv overrides the page loaded in the window.
	uiURLEnv = "SCRABBLE_UI_URL"
)

// bootstrapJS makes events observable before the page installs its own
// handler: they are re-dispatched as "scrabble:<event>" DOM events.
const bootstrapJS = `if (typeof window.__scrabbleEmit !== 'function') {
  window.__scrabbleEmit = function (target, name, payload) {
    window.dispatchEvent(new CustomEvent('scrabble:' + name, { detail: { target: target, payload: payload } }));
  };
}`

func main() {
	os.Exit(run())
}

func run() int {
	if err := appdir.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to create data directory: %v\n", err)
		return 1
	}

	result, err := config.LoadSettings()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load settings: %v\n", err)
		return 1
	}
	cfg := result.Config

	logPath, err := appdir.LogFilePath()
	if err != nil {
		logPath = ""
	}
	if err := logging.Initialize(cfg.Log.Logging(logPath)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize logging: %v\n", err)
		return 1
	}
	defer logging.Close()
	logger := logging.App()

	mgr := shutdown.NewManager()

	a, err := app.Build(cfg, app.Options{
		SettingsPath: result.SourcePath,
		OnFatal: func(err error) {
			// Never block the caller, which may be the UI thread.
			go mgr.Shutdown("bridge faulted: " + err.Error())
		},
	})
	if err != nil {
		logger.Error("Failed to start client", "error", err)
		return 1
	}
	mgr.AddCleanup("runtime", a.Close)
	if err := a.WatchSettings(); err != nil {
		logger.Warn("Settings changes will need a restart", "error", err)
	}

	w := webview.New(false)
	if w == nil {
		logger.Error("Failed to create webview")
		mgr.Shutdown("webview unavailable")
		return 1
	}
	defer w.Destroy()
	mgr.SetTerminateUI(w.Terminate)

	eval := func(js string) {
		w.Dispatch(func() { w.Eval(js) })
	}
	if err := a.Windows.Register(window.NewScriptTarget(cfg.Windows.Primary, "", eval)); err != nil {
		logger.Error("Failed to register primary window", "error", err)
		return 1
	}

	// Network-bound commands settle their page promises through eval, so the
	// UI thread never waits on the server.
	if err := a.Commands.Bind(w, eval); err != nil {
		logger.Error("Failed to bind commands", "error", err)
		return 1
	}
	if err := bindWindowControls(w, a, cfg, eval); err != nil {
		logger.Error("Failed to bind window controls", "error", err)
		return 1
	}

	mgr.Start()

	uiURL := os.Getenv(uiURLEnv)
	if uiURL == "" {
		uiURL = cfg.HTTPBaseURL()
	}
	logger.Info("Opening window", "url", uiURL, "primary", cfg.Windows.Primary)

	w.SetTitle(appName)
	w.SetSize(windowWidth, windowHeight, webview.HintNone)
	w.Init(bootstrapJS)
	w.Init(commands.AsyncScript())
	w.Navigate(uiURL)

	// Blocks until the window is closed or the shutdown manager terminates it.
	w.Run()

	// The event loop is gone; only the cleanups are left to run.
	mgr.SetTerminateUI(nil)
	mgr.Shutdown("window closed")
	return mgr.ExitCode()
}

// bindWindowControls lets the page declare additional event targets, such
// as a detached chat pane, under the configured window names.
func bindWindowControls(w webview.WebView, a *app.App, cfg *config.Config, eval func(string)) error {
	logger := logging.App()

	allowed := func(name string) bool {
		return name == cfg.Windows.Secondary
	}

	if err := w.Bind("openWindow", func(name string) bool {
		if !allowed(name) {
			logger.Warn("Refusing to register window", "window", name)
			return false
		}
		if err := a.Windows.Register(window.NewScriptTarget(name, "", eval)); err != nil {
			logger.Warn("Failed to register window", "window", name, "error", err)
			return false
		}
		logger.Debug("Window registered", "window", name)
		return true
	}); err != nil {
		return err
	}

	return w.Bind("closeWindow", func(name string) bool {
		if !allowed(name) {
			return false
		}
		removed := a.Windows.Unregister(name)
		logger.Debug("Window unregistered", "window", name, "removed", removed)
		return removed
	})
}
