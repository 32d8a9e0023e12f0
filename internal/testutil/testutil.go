// Package testutil provides a fake orchestration backend for tests: the agent
// directory, the chat endpoint and a minimal Socket.IO v4 server that tests
// drive by hand.
package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// WaitTimeout bounds every wait on the fake backend.
const WaitTimeout = 5 * time.Second

// DefaultDirectory is a directory response with a manager and two
// collaborators, listed out of name order.
const DefaultDirectory = `{
	"manager": {"id": "mgr", "name": "Manager", "description": "routes requests", "type": "SUPERVISOR"},
	"collaborators": [
		{"id": "orders", "name": "Orders", "description": "order status", "type": "COLLABORATOR"},
		{"id": "catalog", "name": "Catalog", "description": "products", "type": "COLLABORATOR"}
	]
}`

// ChatRequest is one body received by the chat endpoint.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
}

// Backend is a fake backend served by an httptest.Server.
type Backend struct {
	URL string

	srv        *httptest.Server
	upgrader   websocket.Upgrader
	directory  string
	chatStatus atomic.Int32

	sockets chan *Socket
	chats   chan ChatRequest
}

// NewBackend starts a fake backend serving directory from the directory
// endpoint. It is shut down when the test ends.
func NewBackend(t *testing.T, directory string) *Backend {
	t.Helper()

	b := &Backend{
		directory: directory,
		sockets:   make(chan *Socket, 8),
		chats:     make(chan ChatRequest, 8),
	}
	b.chatStatus.Store(http.StatusOK)

	mux := http.NewServeMux()
	mux.HandleFunc("/socket.io/", b.handleSocket)
	mux.HandleFunc("/api/chat", b.handleChat)
	mux.HandleFunc("/api/collaborators", b.handleDirectory)
	b.srv = httptest.NewServer(mux)
	b.URL = b.srv.URL
	t.Cleanup(b.srv.Close)
	return b
}

// SetChatStatus makes the chat endpoint answer with code.
func (b *Backend) SetChatStatus(code int) {
	b.chatStatus.Store(int32(code))
}

func (b *Backend) handleDirectory(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, b.directory)
}

func (b *Backend) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad body", http.StatusBadRequest)
		return
	}
	b.chats <- req
	w.WriteHeader(int(b.chatStatus.Load()))
	_, _ = io.WriteString(w, `{"status":"processing"}`)
}

// handleSocket runs the Engine.IO open, the Socket.IO connect and the join,
// then hands the socket to the test.
func (b *Backend) handleSocket(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("EIO") != "4" || r.URL.Query().Get("transport") != "websocket" {
		http.Error(w, "bad transport", http.StatusBadRequest)
		return
	}
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s := &Socket{conn: conn}

	if err := s.write(`0{"sid":"eio-test","upgrades":[],"pingInterval":25000,"pingTimeout":20000,"maxPayload":1000000}`); err != nil {
		_ = conn.Close()
		return
	}
	if _, msg, err := conn.ReadMessage(); err != nil || string(msg) != "40" {
		_ = conn.Close()
		return
	}
	if err := s.write(`40{"sid":"sio-test"}`); err != nil {
		_ = conn.Close()
		return
	}

	_, msg, err := conn.ReadMessage()
	if err != nil {
		_ = conn.Close()
		return
	}
	name, arg, ok := parseEvent(string(msg))
	if !ok || name != "join" {
		_ = conn.Close()
		return
	}
	var join struct {
		SessionID string `json:"sessionId"`
	}
	_ = json.Unmarshal(arg, &join)
	s.SessionID = join.SessionID

	go s.discardInbound()
	b.sockets <- s
}

// Accept waits for the next joined socket.
func (b *Backend) Accept(t *testing.T) *Socket {
	t.Helper()
	select {
	case s := <-b.sockets:
		return s
	case <-time.After(WaitTimeout):
		t.Fatal("no socket joined the fake backend")
		return nil
	}
}

// NextChat waits for the next chat request.
func (b *Backend) NextChat(t *testing.T) ChatRequest {
	t.Helper()
	select {
	case req := <-b.chats:
		return req
	case <-time.After(WaitTimeout):
		t.Fatal("no chat request reached the fake backend")
		return ChatRequest{}
	}
}

// Socket is the backend side of one joined client.
type Socket struct {
	SessionID string

	conn    *websocket.Conn
	writeMu sync.Mutex
	closed  atomic.Bool
}

func (s *Socket) write(msg string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, []byte(msg))
}

// Emit sends a Socket.IO event with one JSON argument.
func (s *Socket) Emit(t *testing.T, name string, payload any) {
	t.Helper()
	frame, err := json.Marshal([]any{name, payload})
	if err != nil {
		t.Fatalf("encode %s: %v", name, err)
	}
	if err := s.write("42" + string(frame)); err != nil {
		t.Fatalf("emit %s: %v", name, err)
	}
}

// Close drops the connection without a Socket.IO disconnect.
func (s *Socket) Close() {
	if s.closed.CompareAndSwap(false, true) {
		_ = s.conn.Close()
	}
}

// discardInbound reads until the client goes away.
func (s *Socket) discardInbound() {
	defer s.Close()
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// parseEvent splits a "42[name,arg]" frame.
func parseEvent(frame string) (string, json.RawMessage, bool) {
	body, ok := strings.CutPrefix(frame, "42")
	if !ok {
		return "", nil, false
	}
	var parts []json.RawMessage
	if err := json.Unmarshal([]byte(body), &parts); err != nil || len(parts) == 0 {
		return "", nil, false
	}
	var name string
	if err := json.Unmarshal(parts[0], &name); err != nil {
		return "", nil, false
	}
	var arg json.RawMessage
	if len(parts) > 1 {
		arg = parts[1]
	}
	return name, arg, true
}
