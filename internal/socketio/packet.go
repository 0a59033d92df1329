// Package socketio implements the client side of the Socket.IO v5 protocol
// (Engine.IO v4) over a single websocket transport.
//
// Only what the desktop client needs is supported: connecting to one
// namespace, emitting events without acknowledgements and receiving events,
// including binary events whose attachments arrive as separate frames.
// Long-polling and transport upgrades are not implemented; the server must
// accept websocket connections directly.
package socketio

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Engine.IO packet types, sent as the first character of a text frame.
const (
	engineOpen    byte = '0'
	engineClose   byte = '1'
	enginePing    byte = '2'
	enginePong    byte = '3'
	engineMessage byte = '4'
	engineUpgrade byte = '5'
	engineNoop    byte = '6'
)

// PacketType is a Socket.IO packet type.
type PacketType int

const (
	PacketConnect PacketType = iota
	PacketDisconnect
	PacketEvent
	PacketAck
	PacketConnectError
	PacketBinaryEvent
	PacketBinaryAck
)

func (t PacketType) String() string {
	switch t {
	case PacketConnect:
		return "CONNECT"
	case PacketDisconnect:
		return "DISCONNECT"
	case PacketEvent:
		return "EVENT"
	case PacketAck:
		return "ACK"
	case PacketConnectError:
		return "CONNECT_ERROR"
	case PacketBinaryEvent:
		return "BINARY_EVENT"
	case PacketBinaryAck:
		return "BINARY_ACK"
	default:
		return "UNKNOWN(" + strconv.Itoa(int(t)) + ")"
	}
}

// DefaultNamespace is the main namespace.
const DefaultNamespace = "/"

// ErrMalformedPacket is wrapped by every decoding failure.
var ErrMalformedPacket = errors.New("malformed packet")

// Packet is a decoded Socket.IO packet.
type Packet struct {
	Type      PacketType
	Namespace string
	// ID is the acknowledgement id, or -1 when the packet carries none.
	ID          int64
	Attachments int
	Data        json.RawMessage
}

// Encode renders the packet in its text form, without the Engine.IO prefix.
func (p Packet) Encode() string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(int(p.Type)))
	if p.Type == PacketBinaryEvent || p.Type == PacketBinaryAck {
		b.WriteString(strconv.Itoa(p.Attachments))
		b.WriteByte('-')
	}
	if p.Namespace != "" && p.Namespace != DefaultNamespace {
		b.WriteString(p.Namespace)
		b.WriteByte(',')
	}
	if p.ID >= 0 {
		b.WriteString(strconv.FormatInt(p.ID, 10))
	}
	b.Write(p.Data)
	return b.String()
}

// DecodePacket parses the text form of a Socket.IO packet.
func DecodePacket(s string) (Packet, error) {
	p := Packet{Namespace: DefaultNamespace, ID: -1}
	if s == "" {
		return p, fmt.Errorf("%w: empty", ErrMalformedPacket)
	}

	t := s[0]
	if t < '0' || t > '6' {
		return p, fmt.Errorf("%w: unknown type %q", ErrMalformedPacket, t)
	}
	p.Type = PacketType(t - '0')
	i := 1

	if p.Type == PacketBinaryEvent || p.Type == PacketBinaryAck {
		dash := strings.IndexByte(s[i:], '-')
		if dash < 0 {
			return p, fmt.Errorf("%w: missing attachment count", ErrMalformedPacket)
		}
		n, err := strconv.Atoi(s[i : i+dash])
		if err != nil || n < 0 {
			return p, fmt.Errorf("%w: bad attachment count %q", ErrMalformedPacket, s[i:i+dash])
		}
		p.Attachments = n
		i += dash + 1
	}

	if i < len(s) && s[i] == '/' {
		comma := strings.IndexByte(s[i:], ',')
		if comma < 0 {
			p.Namespace = s[i:]
			return p, nil
		}
		p.Namespace = s[i : i+comma]
		i += comma + 1
	}

	start := i
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i > start {
		id, err := strconv.ParseInt(s[start:i], 10, 64)
		if err != nil {
			return p, fmt.Errorf("%w: bad ack id: %v", ErrMalformedPacket, err)
		}
		p.ID = id
	}

	if i < len(s) {
		data := []byte(s[i:])
		if !json.Valid(data) {
			return p, fmt.Errorf("%w: invalid JSON payload", ErrMalformedPacket)
		}
		p.Data = data
	}
	return p, nil
}

// Event is an event received from the server.
type Event struct {
	// Name is the event name, the first element of the packet's data array.
	Name string
	// Data is the raw JSON of the remaining arguments: empty when there are
	// none, the argument itself when there is one, a JSON array otherwise.
	Data string
	// Binary reports a BINARY_EVENT; Attachments holds its binary frames.
	Binary      bool
	Attachments [][]byte
}

// eventFromPacket extracts the event name and arguments of an EVENT or
// BINARY_EVENT packet.
func eventFromPacket(p Packet) (Event, error) {
	var args []json.RawMessage
	if err := json.Unmarshal(p.Data, &args); err != nil {
		return Event{}, fmt.Errorf("%w: event data is not an array", ErrMalformedPacket)
	}
	if len(args) == 0 {
		return Event{}, fmt.Errorf("%w: event without name", ErrMalformedPacket)
	}

	var ev Event
	if err := json.Unmarshal(args[0], &ev.Name); err != nil {
		return Event{}, fmt.Errorf("%w: event name is not a string", ErrMalformedPacket)
	}

	switch rest := args[1:]; len(rest) {
	case 0:
	case 1:
		ev.Data = string(rest[0])
	default:
		raw, err := json.Marshal(rest)
		if err != nil {
			return Event{}, err
		}
		ev.Data = string(raw)
	}
	ev.Binary = p.Type == PacketBinaryEvent
	return ev, nil
}

// EncodeEvent builds the EVENT packet for name with one argument. Valid
// JSON is sent as-is and anything else, including empty data, is sent as a
// JSON string.
func EncodeEvent(namespace, name, data string) (Packet, error) {
	if name == "" {
		return Packet{}, errors.New("event name is required")
	}
	nameJSON, err := json.Marshal(name)
	if err != nil {
		return Packet{}, err
	}

	arg := json.RawMessage(data)
	if data == "" || !json.Valid(arg) {
		if arg, err = json.Marshal(data); err != nil {
			return Packet{}, err
		}
	}
	args := []json.RawMessage{nameJSON, arg}

	raw, err := json.Marshal(args)
	if err != nil {
		return Packet{}, err
	}
	return Packet{Type: PacketEvent, Namespace: namespace, ID: -1, Data: raw}, nil
}

// openPayload is the body of the Engine.IO open packet.
type openPayload struct {
	SID          string   `json:"sid"`
	Upgrades     []string `json:"upgrades"`
	PingInterval int      `json:"pingInterval"`
	PingTimeout  int      `json:"pingTimeout"`
	MaxPayload   int      `json:"maxPayload"`
}

// connectError is the body of a CONNECT_ERROR packet.
type connectError struct {
	Message string `json:"message"`
}
