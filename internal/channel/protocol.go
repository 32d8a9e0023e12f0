package channel

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Engine.IO v4 packet types.
const (
	eioOpen    = '0'
	eioClose   = '1'
	eioPing    = '2'
	eioPong    = '3'
	eioMessage = '4'
	eioUpgrade = '5'
	eioNoop    = '6'
)

// Socket.IO v5 packet types, carried inside Engine.IO message packets.
const (
	sioConnect      = '0'
	sioDisconnect   = '1'
	sioEvent        = '2'
	sioAck          = '3'
	sioConnectError = '4'
)

// frameKind classifies a decoded websocket text frame.
type frameKind int

const (
	frameOpen frameKind = iota
	frameClose
	framePing
	framePong
	frameConnect
	frameDisconnect
	frameEvent
	frameConnectError
	frameIgnored
)

func (k frameKind) String() string {
	switch k {
	case frameOpen:
		return "open"
	case frameClose:
		return "close"
	case framePing:
		return "ping"
	case framePong:
		return "pong"
	case frameConnect:
		return "connect"
	case frameDisconnect:
		return "disconnect"
	case frameEvent:
		return "event"
	case frameConnectError:
		return "connect_error"
	default:
		return "ignored"
	}
}

// frame is one decoded websocket text message.
type frame struct {
	kind frameKind
	// data is the JSON body for open, connect and connect_error frames.
	data json.RawMessage
	// name and args are set for event frames.
	name string
	args []json.RawMessage
}

// handshake is the body of the Engine.IO open packet.
type handshake struct {
	SID          string   `json:"sid"`
	Upgrades     []string `json:"upgrades"`
	PingInterval int      `json:"pingInterval"`
	PingTimeout  int      `json:"pingTimeout"`
	MaxPayload   int      `json:"maxPayload"`
}

// readTimeout is how long the client waits for the next server packet before
// declaring the connection dead. Servers ping every PingInterval and allow
// PingTimeout for the answer.
func (h handshake) readTimeout() time.Duration {
	if h.PingInterval <= 0 && h.PingTimeout <= 0 {
		return 0
	}
	return time.Duration(h.PingInterval+h.PingTimeout) * time.Millisecond
}

// decodeFrame parses one text frame.
func decodeFrame(msg []byte) (frame, error) {
	if len(msg) == 0 {
		return frame{}, fmt.Errorf("empty packet")
	}

	switch msg[0] {
	case eioOpen:
		return frame{kind: frameOpen, data: json.RawMessage(msg[1:])}, nil
	case eioClose:
		return frame{kind: frameClose}, nil
	case eioPing:
		return frame{kind: framePing, data: json.RawMessage(msg[1:])}, nil
	case eioPong:
		return frame{kind: framePong}, nil
	case eioUpgrade, eioNoop:
		return frame{kind: frameIgnored}, nil
	case eioMessage:
		return decodeSocketPacket(msg[1:])
	default:
		return frame{}, fmt.Errorf("unknown engine.io packet type %q", msg[0])
	}
}

func decodeSocketPacket(msg []byte) (frame, error) {
	if len(msg) == 0 {
		return frame{}, fmt.Errorf("empty socket.io packet")
	}
	typ, body := msg[0], skipNamespaceAndAck(msg[1:])

	switch typ {
	case sioConnect:
		return frame{kind: frameConnect, data: json.RawMessage(body)}, nil
	case sioDisconnect:
		return frame{kind: frameDisconnect}, nil
	case sioConnectError:
		return frame{kind: frameConnectError, data: json.RawMessage(body)}, nil
	case sioEvent:
		var parts []json.RawMessage
		if err := json.Unmarshal(body, &parts); err != nil {
			return frame{}, fmt.Errorf("decode event packet: %w", err)
		}
		if len(parts) == 0 {
			return frame{}, fmt.Errorf("event packet without a name")
		}
		var name string
		if err := json.Unmarshal(parts[0], &name); err != nil {
			return frame{}, fmt.Errorf("decode event name: %w", err)
		}
		return frame{kind: frameEvent, name: name, args: parts[1:]}, nil
	case sioAck:
		return frame{kind: frameIgnored}, nil
	default:
		return frame{}, fmt.Errorf("unknown socket.io packet type %q", typ)
	}
}

// skipNamespaceAndAck strips an optional "/nsp," prefix and an optional
// numeric ack id that may precede a packet's JSON body.
func skipNamespaceAndAck(b []byte) []byte {
	if len(b) > 0 && b[0] == '/' {
		if i := bytes.IndexByte(b, ','); i >= 0 {
			b = b[i+1:]
		} else {
			return nil
		}
	}
	i := 0
	for i < len(b) && b[i] >= '0' && b[i] <= '9' {
		i++
	}
	return b[i:]
}

// encodeConnect returns the Socket.IO connect packet for the default
// namespace.
func encodeConnect() []byte {
	return []byte{eioMessage, sioConnect}
}

// encodeDisconnect returns the Socket.IO disconnect packet.
func encodeDisconnect() []byte {
	return []byte{eioMessage, sioDisconnect}
}

// encodePong answers a server ping, echoing its payload if any.
func encodePong(payload []byte) []byte {
	return append([]byte{eioPong}, payload...)
}

// encodeEvent returns an event packet carrying name and args.
func encodeEvent(name string, args ...any) ([]byte, error) {
	parts := make([]any, 0, len(args)+1)
	parts = append(parts, name)
	parts = append(parts, args...)
	body, err := json.Marshal(parts)
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", name, err)
	}
	return append([]byte{eioMessage, sioEvent}, body...), nil
}

// connectErrorMessage extracts the server's reason from a connect_error body.
func connectErrorMessage(data json.RawMessage) string {
	var body struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &body) == nil && body.Message != "" {
		return body.Message
	}
	if s, err := strconv.Unquote(string(data)); err == nil {
		return s
	}
	if len(data) == 0 {
		return "connection refused"
	}
	return string(data)
}
