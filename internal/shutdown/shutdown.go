// Package shutdown coordinates graceful termination of the Scrabble client.
package shutdown

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/yasskadd/scrabble/internal/logging"
)

// Func performs cleanup during shutdown. It receives the reason shutdown was
// triggered. A returned error is logged at error level and does not stop the
// remaining cleanups.
type Func func(reason string) error

// Manager runs registered cleanups exactly once, on a signal or on an
// explicit Shutdown call, then terminates the UI event loop if one was set.
//
// It is safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	once     sync.Once
	done     chan struct{}
	reason   string
	failed   bool
	cleanups []namedCleanup

	sigChan chan os.Signal

	// Optional callback to terminate the UI event loop (e.g. WebView.Terminate)
	onTerminateUI func()
}

type namedCleanup struct {
	name string
	fn   Func
}

// NewManager creates a new shutdown manager.
// It does not start signal handling until Start() is called.
func NewManager() *Manager {
	return &Manager{
		done: make(chan struct{}),
	}
}

// SetTerminateUI sets a callback called after all cleanups have run.
func (m *Manager) SetTerminateUI(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onTerminateUI = fn
}

// AddCleanup registers a named cleanup. Cleanups run in registration order.
func (m *Manager) AddCleanup(name string, fn Func) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleanups = append(m.cleanups, namedCleanup{name: name, fn: fn})
}

// Start begins listening for SIGINT and SIGTERM.
func (m *Manager) Start() {
	logger := logging.Shutdown()
	logger.Debug("Shutdown manager started, listening for signals")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	m.mu.Lock()
	m.sigChan = sigChan
	m.mu.Unlock()

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("Signal received, initiating shutdown", "signal", sig.String())
			m.Shutdown("signal:" + sig.String())
		case <-m.done:
		}
	}()
}

// Shutdown runs the shutdown sequence with the given reason. Only the first
// call does any work; every call blocks until the sequence is complete.
func (m *Manager) Shutdown(reason string) {
	m.once.Do(func() {
		m.doShutdown(reason)
	})
	<-m.done
}

func (m *Manager) doShutdown(reason string) {
	logger := logging.Shutdown()
	logger.Info("Starting shutdown sequence", "reason", reason)

	m.mu.Lock()
	m.reason = reason
	cleanups := make([]namedCleanup, len(m.cleanups))
	copy(cleanups, m.cleanups)
	terminateUI := m.onTerminateUI
	sigChan := m.sigChan
	m.mu.Unlock()

	if sigChan != nil {
		signal.Stop(sigChan)
	}

	failed := false
	for i, c := range cleanups {
		logger.Debug("Running cleanup", "name", c.name, "index", i, "total", len(cleanups))
		if err := c.fn(reason); err != nil {
			failed = true
			logger.Error("Cleanup failed", "name", c.name, "error", err)
		}
	}

	if terminateUI != nil {
		logger.Debug("Terminating UI event loop")
		terminateUI()
	}

	m.mu.Lock()
	m.failed = failed
	m.mu.Unlock()

	logger.Info("Shutdown sequence complete", "reason", reason, "failed", failed)
	close(m.done)
}

// Done returns a channel that is closed when shutdown is complete.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// Reason returns the reason for shutdown, or empty string if not yet shut down.
func (m *Manager) Reason() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reason
}

// Failed reports whether any cleanup returned an error.
func (m *Manager) Failed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failed
}

// ExitCode returns the process exit code matching the shutdown outcome.
func (m *Manager) ExitCode() int {
	if m.Failed() {
		return 1
	}
	return 0
}
