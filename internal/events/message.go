// Package events routes inbound server events to the registered UI windows.
package events

// ControlKind identifies a server control message.
type ControlKind int

const (
	// ControlSuccessfulConnection is sent once the server accepted the session.
	ControlSuccessfulConnection ControlKind = iota + 1
	// ControlUserAlreadyConnected is sent when the account already has a live session.
	ControlUserAlreadyConnected
)

var controlNames = map[string]ControlKind{
	"SuccessfulConnection": ControlSuccessfulConnection,
	"UserAlreadyConnected": ControlUserAlreadyConnected,
}

// String returns the wire literal of the control message.
func (k ControlKind) String() string {
	switch k {
	case ControlSuccessfulConnection:
		return "SuccessfulConnection"
	case ControlUserAlreadyConnected:
		return "UserAlreadyConnected"
	default:
		return "unknown"
	}
}

// Message is an inbound event classified for delivery. It is either a
// ControlMessage or a Passthrough.
type Message interface {
	// DeliveryName is the event name the windows receive.
	DeliveryName() string
	// Payload is the event payload, always the one received from the server.
	Payload() string
	isMessage()
}

// ControlMessage is an event whose payload is a control literal. It is
// delivered under the literal's name instead of the transport event name.
type ControlMessage struct {
	Kind ControlKind
	// Event is the transport event name the literal arrived on.
	Event string
	Data  string
}

func (m ControlMessage) DeliveryName() string { return m.Kind.String() }
func (m ControlMessage) Payload() string      { return m.Data }
func (ControlMessage) isMessage()             {}

// Passthrough is any other event, delivered unchanged.
type Passthrough struct {
	Name string
	Data string
}

func (m Passthrough) DeliveryName() string { return m.Name }
func (m Passthrough) Payload() string      { return m.Data }
func (Passthrough) isMessage()             {}

// Decode classifies an inbound string event. A payload enclosed in double
// quotes whose content equals a control literal becomes a ControlMessage.
func Decode(name, payload string) Message {
	if literal, ok := dequote(payload); ok {
		if kind, ok := controlNames[literal]; ok {
			return ControlMessage{Kind: kind, Event: name, Data: payload}
		}
	}
	return Passthrough{Name: name, Data: payload}
}

// dequote strips one pair of enclosing double quotes. It reports false when
// s is not enclosed in them.
func dequote(s string) (string, bool) {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return "", false
	}
	return s[1 : len(s)-1], true
}
