package events

import (
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/yasskadd/scrabble/internal/logging"
	"github.com/yasskadd/scrabble/internal/socketio"
	"github.com/yasskadd/scrabble/internal/window"
)

// Router delivers inbound events to the primary window, then the secondary
// window when one is registered, then the broadcaster. A failing target
// never prevents delivery to the others.
//
// Router never takes the connection bridge lock; HandleEvent runs on the
// socket read goroutine.
type Router struct {
	windows   *window.Registry
	primary   string
	secondary string
	broadcast *Broadcaster
	logger    *slog.Logger

	// binaryLog throttles the debug line for dropped binary events.
	binaryLog *rate.Limiter

	now func() time.Time
}

// NewRouter creates a router delivering to the named windows of reg.
// broadcast may be nil.
func NewRouter(reg *window.Registry, primary, secondary string, broadcast *Broadcaster) *Router {
	return &Router{
		windows:   reg,
		primary:   primary,
		secondary: secondary,
		broadcast: broadcast,
		logger:    logging.Router(),
		binaryLog: rate.NewLimiter(rate.Every(10*time.Second), 3),
		now:       time.Now,
	}
}

// HandleEvent is the socket callback. Binary events are dropped.
func (r *Router) HandleEvent(ev socketio.Event) {
	if ev.Binary {
		if r.binaryLog.Allow() {
			r.logger.Debug("Dropping binary event", "event", ev.Name, "attachments", len(ev.Attachments))
		}
		return
	}
	r.Route(Decode(ev.Name, ev.Data))
}

// Route delivers a decoded message to every target.
func (r *Router) Route(msg Message) {
	d := Delivery{
		Name:    msg.DeliveryName(),
		Payload: msg.Payload(),
		At:      r.now(),
	}
	if cm, ok := msg.(ControlMessage); ok {
		d.Control = cm.Kind
		r.logger.Debug("Control message received", "kind", cm.Kind.String(), "event", cm.Event)
	}
	r.deliver(d)
}

// Notify delivers a locally generated event, such as a socket failure
// report, to every target.
func (r *Router) Notify(event, payload string) {
	r.deliver(Delivery{Name: event, Payload: payload, At: r.now()})
}

func (r *Router) deliver(d Delivery) {
	if t, ok := r.windows.Lookup(r.primary); ok {
		r.emit(t, d)
	} else {
		r.logger.Debug("Primary window not registered", "window", r.primary, "event", d.Name)
	}
	if r.secondary != "" {
		if t, ok := r.windows.Lookup(r.secondary); ok {
			r.emit(t, d)
		}
	}
	if r.broadcast != nil {
		r.broadcast.Publish(d)
	}
}

// emit delivers to one target, containing both errors and panics.
func (r *Router) emit(t window.Target, d Delivery) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Warn("Window target panicked", "window", t.Name(), "event", d.Name, "panic", fmt.Sprint(p))
		}
	}()
	if err := t.Emit(d.Name, d.Payload); err != nil {
		r.logger.Warn("Failed to emit event to window", "window", t.Name(), "event", d.Name, "error", err)
	}
}
