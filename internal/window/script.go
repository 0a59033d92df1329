package window

import (
	"encoding/json"
	"fmt"
)

// DefaultEmitFunction is the page function a ScriptTarget calls.
const DefaultEmitFunction = "window.__scrabbleEmit"

// ScriptTarget delivers events to a web view by evaluating a call to a
// page function: fn(window, event, payload). Every argument is encoded as a
// JSON string, so payloads reach the page byte for byte.
type ScriptTarget struct {
	name string
	fn   string
	eval func(js string)
}

// NewScriptTarget returns a target named name. eval must hand the script to
// the UI thread and return without waiting for it to run. An empty fn uses
// DefaultEmitFunction.
func NewScriptTarget(name, fn string, eval func(js string)) *ScriptTarget {
	if fn == "" {
		fn = DefaultEmitFunction
	}
	return &ScriptTarget{name: name, fn: fn, eval: eval}
}

// Name returns the target label.
func (t *ScriptTarget) Name() string { return t.name }

// Emit schedules the page call.
func (t *ScriptTarget) Emit(event, payload string) error {
	js, err := EmitScript(t.fn, t.name, event, payload)
	if err != nil {
		return err
	}
	t.eval(js)
	return nil
}

// EmitScript builds the guarded call of fn for one event. The call is
// skipped when the page has not defined fn.
func EmitScript(fn, target, event, payload string) (string, error) {
	args, err := json.Marshal([]string{target, event, payload})
	if err != nil {
		return "", fmt.Errorf("failed to encode event %s: %w", event, err)
	}
	return fmt.Sprintf("if (typeof %[1]s === 'function') %[1]s.apply(null, %[2]s);", fn, args), nil
}
