package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/yasskadd/scrabble/internal/gateway"
)

const (
	// AsyncPrefix prefixes the native bindings installed by Bind.
	AsyncPrefix = "__scrabbleAsync_"
	// SettleFunction is the page function that resolves a pending call.
	SettleFunction = "window.__scrabbleSettle"
)

// asyncNames are the commands Bind runs off the caller's thread.
var asyncNames = []string{
	"establishConnection",
	"disconnect",
	"send",
	"queryAlive",
	"httpGet",
	"httpPost",
	"httpPut",
	"httpPatch",
	"httpDelete",
}

// Bind registers every command on b. The ones that wait on the network
// return to the caller at once, so b may call them on a UI thread. Each of
// them is bound
// as AsyncPrefix+name with a call id as first argument; its result is
// handed to eval as a call of SettleFunction with that id. AsyncScript
// defines the page-side functions that restore the usual names and return
// promises.
//
// Socket commands run one at a time, in call order. HTTP calls run
// concurrently with each other and with the socket commands.
func (c *Commands) Bind(b Binder, eval func(js string)) error {
	q := &serialQueue{}
	settle := func(id string, result any) {
		js, err := SettleScript(id, result)
		if err != nil {
			c.logger.Warn("Failed to encode command result", "id", id, "error", err)
			js, _ = SettleScript(id, nil)
		}
		eval(js)
	}

	bindings := []struct {
		name string
		fn   interface{}
	}{
		{"establishConnection", func(id, address, cookie string) {
			q.push(func() {
				c.EstablishConnection(address, cookie)
				settle(id, nil)
			})
		}},
		{"disconnect", func(id string) {
			q.push(func() {
				c.Disconnect()
				settle(id, nil)
			})
		}},
		{"send", func(id, eventName, data string) {
			q.push(func() {
				c.Send(eventName, data)
				settle(id, nil)
			})
		}},
		{"queryAlive", func(id string) {
			q.push(func() { settle(id, c.QueryAlive()) })
		}},
		{"httpGet", c.asyncHTTP(http.MethodGet, settle)},
		{"httpPost", c.asyncHTTP(http.MethodPost, settle)},
		{"httpPut", c.asyncHTTP(http.MethodPut, settle)},
		{"httpPatch", c.asyncHTTP(http.MethodPatch, settle)},
		{"httpDelete", c.asyncHTTP(http.MethodDelete, settle)},
	}
	for _, bnd := range bindings {
		if err := b.Bind(AsyncPrefix+bnd.name, bnd.fn); err != nil {
			return fmt.Errorf("failed to bind %s: %w", bnd.name, err)
		}
	}

	if err := b.Bind("saveSessionCookie", c.SaveSessionCookie); err != nil {
		return fmt.Errorf("failed to bind saveSessionCookie: %w", err)
	}
	if err := b.Bind("clearSessionCookie", c.ClearSessionCookie); err != nil {
		return fmt.Errorf("failed to bind clearSessionCookie: %w", err)
	}
	return nil
}

func (c *Commands) asyncHTTP(method string, settle func(string, any)) func(id, url, body, filePath, fieldKey string) {
	return func(id, url, body, filePath, fieldKey string) {
		go func() {
			var res gateway.Result
			defer func() {
				if p := recover(); p != nil {
					c.logPanic("http "+method, p)
					res = gateway.Result{Err: "internal error"}
				}
				settle(id, res)
			}()
			res = c.HTTP(method, url, body, filePath, fieldKey)
		}()
	}
}

// SettleScript builds the guarded call of SettleFunction for one result.
func SettleScript(id string, result any) (string, error) {
	args, err := json.Marshal([]any{id, result})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("if (typeof %[1]s === 'function') %[1]s.apply(null, %[2]s);", SettleFunction, args), nil
}

// AsyncScript returns the page script pairing with Bind. It must be
// installed before the page runs (webview Init).
func AsyncScript() string {
	names, _ := json.Marshal(asyncNames)
	var sb strings.Builder
	sb.WriteString("(function () {\n")
	sb.WriteString("  var pending = {};\n")
	sb.WriteString("  var next = 0;\n")
	fmt.Fprintf(&sb, "  %s = function (id, result) {\n", SettleFunction)
	sb.WriteString("    var resolve = pending[id];\n")
	sb.WriteString("    delete pending[id];\n")
	sb.WriteString("    if (resolve) resolve(result);\n")
	sb.WriteString("  };\n")
	fmt.Fprintf(&sb, "  %s.forEach(function (name) {\n", names)
	sb.WriteString("    window[name] = function () {\n")
	sb.WriteString("      var id = String(++next);\n")
	sb.WriteString("      var args = [id].concat(Array.prototype.slice.call(arguments));\n")
	sb.WriteString("      return new Promise(function (resolve, reject) {\n")
	sb.WriteString("        pending[id] = resolve;\n")
	fmt.Fprintf(&sb, "        Promise.resolve(window[%q + name].apply(null, args)).catch(function (e) {\n", AsyncPrefix)
	sb.WriteString("          delete pending[id];\n")
	sb.WriteString("          reject(e);\n")
	sb.WriteString("        });\n")
	sb.WriteString("      });\n")
	sb.WriteString("    };\n")
	sb.WriteString("  });\n")
	sb.WriteString("})();")
	return sb.String()
}

// serialQueue runs tasks one at a time in push order on a goroutine it
// starts on demand. push never blocks.
type serialQueue struct {
	mu      sync.Mutex
	tasks   []func()
	running bool
}

func (q *serialQueue) push(fn func()) {
	q.mu.Lock()
	q.tasks = append(q.tasks, fn)
	if q.running {
		q.mu.Unlock()
		return
	}
	q.running = true
	q.mu.Unlock()
	go q.drain()
}

func (q *serialQueue) drain() {
	for {
		q.mu.Lock()
		if len(q.tasks) == 0 {
			q.running = false
			q.mu.Unlock()
			return
		}
		fn := q.tasks[0]
		q.tasks[0] = nil
		q.tasks = q.tasks[1:]
		q.mu.Unlock()
		fn()
	}
}
