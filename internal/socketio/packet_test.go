package socketio

import (
	"errors"
	"testing"
)

func TestDecodePacket(t *testing.T) {
	tests := []struct {
		name       string
		in         string
		wantType   PacketType
		wantNS     string
		wantID     int64
		wantAttach int
		wantData   string
		wantErr    bool
	}{
		{name: "connect", in: "0", wantType: PacketConnect, wantNS: "/", wantID: -1},
		{name: "connect with sid", in: `0{"sid":"abc"}`, wantType: PacketConnect, wantNS: "/", wantID: -1, wantData: `{"sid":"abc"}`},
		{name: "event", in: `2["msg","hello"]`, wantType: PacketEvent, wantNS: "/", wantID: -1, wantData: `["msg","hello"]`},
		{name: "event with ack id", in: `212["msg"]`, wantType: PacketEvent, wantNS: "/", wantID: 12, wantData: `["msg"]`},
		{name: "namespaced event", in: `2/game,["msg"]`, wantType: PacketEvent, wantNS: "/game", wantID: -1, wantData: `["msg"]`},
		{name: "namespace only", in: "1/game", wantType: PacketDisconnect, wantNS: "/game", wantID: -1},
		{name: "binary event", in: `51-["img",{"_placeholder":true,"num":0}]`, wantType: PacketBinaryEvent, wantNS: "/", wantID: -1, wantAttach: 1, wantData: `["img",{"_placeholder":true,"num":0}]`},
		{name: "connect error", in: `4{"message":"denied"}`, wantType: PacketConnectError, wantNS: "/", wantID: -1, wantData: `{"message":"denied"}`},
		{name: "empty", in: "", wantErr: true},
		{name: "unknown type", in: "9", wantErr: true},
		{name: "binary without count", in: `5["img"]`, wantErr: true},
		{name: "invalid json", in: `2["msg"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := DecodePacket(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("DecodePacket(%q) succeeded, want error", tt.in)
				}
				if !errors.Is(err, ErrMalformedPacket) {
					t.Errorf("error %v does not wrap ErrMalformedPacket", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodePacket(%q) failed: %v", tt.in, err)
			}
			if p.Type != tt.wantType {
				t.Errorf("Type = %v, want %v", p.Type, tt.wantType)
			}
			if p.Namespace != tt.wantNS {
				t.Errorf("Namespace = %q, want %q", p.Namespace, tt.wantNS)
			}
			if p.ID != tt.wantID {
				t.Errorf("ID = %d, want %d", p.ID, tt.wantID)
			}
			if p.Attachments != tt.wantAttach {
				t.Errorf("Attachments = %d, want %d", p.Attachments, tt.wantAttach)
			}
			if string(p.Data) != tt.wantData {
				t.Errorf("Data = %s, want %s", p.Data, tt.wantData)
			}
		})
	}
}

func TestPacketEncode(t *testing.T) {
	tests := []struct {
		p    Packet
		want string
	}{
		{Packet{Type: PacketConnect, Namespace: "/", ID: -1}, "0"},
		{Packet{Type: PacketDisconnect, Namespace: "/game", ID: -1}, "1/game,"},
		{Packet{Type: PacketEvent, Namespace: "/", ID: 7, Data: []byte(`["x"]`)}, `27["x"]`},
		{Packet{Type: PacketBinaryEvent, Namespace: "/", ID: -1, Attachments: 2, Data: []byte(`["x"]`)}, `52-["x"]`},
	}
	for _, tt := range tests {
		if got := tt.p.Encode(); got != tt.want {
			t.Errorf("Encode(%+v) = %q, want %q", tt.p, got, tt.want)
		}
	}
}

func TestEncodeEvent(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"no data", "", `2["joinRoom",""]`},
		{"json object", `{"room":"abc"}`, `2["joinRoom",{"room":"abc"}]`},
		{"json string", `"abc"`, `2["joinRoom","abc"]`},
		{"plain text", "hello world", `2["joinRoom","hello world"]`},
		{"number", "42", `2["joinRoom",42]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := EncodeEvent(DefaultNamespace, "joinRoom", tt.data)
			if err != nil {
				t.Fatalf("EncodeEvent failed: %v", err)
			}
			if got := p.Encode(); got != tt.want {
				t.Errorf("Encode() = %s, want %s", got, tt.want)
			}
		})
	}

	if _, err := EncodeEvent(DefaultNamespace, "", "x"); err == nil {
		t.Error("EncodeEvent with empty name should fail")
	}
}

func TestEventFromPacket(t *testing.T) {
	tests := []struct {
		in       string
		wantName string
		wantData string
		wantErr  bool
	}{
		{`2["msg"]`, "msg", "", false},
		{`2["msg","hello"]`, "msg", `"hello"`, false},
		{`2["msg",{"a":1}]`, "msg", `{"a":1}`, false},
		{`2["msg","a",2]`, "msg", `["a",2]`, false},
		{`2[]`, "", "", true},
		{`2{"a":1}`, "", "", true},
		{`2[1,"x"]`, "", "", true},
	}
	for _, tt := range tests {
		p, err := DecodePacket(tt.in)
		if err != nil {
			t.Fatalf("DecodePacket(%q) failed: %v", tt.in, err)
		}
		ev, err := eventFromPacket(p)
		if tt.wantErr {
			if err == nil {
				t.Errorf("eventFromPacket(%q) succeeded, want error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("eventFromPacket(%q) failed: %v", tt.in, err)
			continue
		}
		if ev.Name != tt.wantName || ev.Data != tt.wantData {
			t.Errorf("eventFromPacket(%q) = (%q, %q), want (%q, %q)", tt.in, ev.Name, ev.Data, tt.wantName, tt.wantData)
		}
		if ev.Binary {
			t.Errorf("eventFromPacket(%q) reported a binary event", tt.in)
		}
	}
}

func TestPacketTypeString(t *testing.T) {
	if got := PacketBinaryEvent.String(); got != "BINARY_EVENT" {
		t.Errorf("String() = %q", got)
	}
	if got := PacketType(9).String(); got != "UNKNOWN(9)" {
		t.Errorf("String() = %q", got)
	}
}
