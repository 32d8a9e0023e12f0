// Package channel owns the live connection between one session and the
// orchestration backend.
//
// Inbound traffic arrives over a Socket.IO (Engine.IO v4, websocket transport)
// connection and is published on an [event.Bus] from a single reader
// goroutine, so subscribers see events one at a time and in wire order.
// Outbound turns are plain HTTP POSTs whose response only acknowledges
// acceptance; the answer itself streams back over the socket.
package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/Iron-Ham/agentboard/internal/errors"
	"github.com/Iron-Ham/agentboard/internal/event"
	"github.com/Iron-Ham/agentboard/internal/logging"
	"github.com/Iron-Ham/agentboard/internal/retry"
	"github.com/Iron-Ham/agentboard/internal/session"
	"github.com/Iron-Ham/agentboard/internal/util"
	"github.com/gorilla/websocket"
)

// Config describes where and how to reach the backend.
type Config struct {
	BaseURL    string
	SocketPath string
	ChatPath   string

	FragmentEvent string
	TraceEvent    string
	JoinEvent     string

	Retry            retry.Policy
	Reconnect        bool
	HandshakeTimeout time.Duration
	SubmitTimeout    time.Duration
}

// DefaultConfig returns the settings matching the reference backend.
func DefaultConfig() Config {
	return Config{
		BaseURL:          "http://localhost:3000",
		SocketPath:       "/socket.io/",
		ChatPath:         "/api/chat",
		FragmentEvent:    "response_chunk",
		TraceEvent:       "trace_update",
		JoinEvent:        "join",
		Retry:            retry.DefaultPolicy(),
		Reconnect:        true,
		HandshakeTimeout: 10 * time.Second,
		SubmitTimeout:    30 * time.Second,
	}
}

// Option configures a Channel.
type Option func(*Channel)

// WithLogger sets the channel's logger.
func WithLogger(logger *logging.Logger) Option {
	return func(c *Channel) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHTTPClient sets the client used for turn submissions.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Channel) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithDialer sets the websocket dialer.
func WithDialer(dialer *websocket.Dialer) Option {
	return func(c *Channel) {
		if dialer != nil {
			c.dialer = dialer
		}
	}
}

// Channel is one session's connection to the backend. Open, Submit and
// Close may be called from any goroutine.
type Channel struct {
	cfg        Config
	bus        *event.Bus
	logger     *logging.Logger
	dialer     *websocket.Dialer
	httpClient *http.Client

	mu        sync.Mutex
	sessionID string
	state     session.State
	conn      *websocket.Conn
	cancel    context.CancelFunc
	done      chan struct{}
	// dialCancel stops an Open still connecting; gen counts Close calls so
	// such an Open can tell it was closed.
	dialCancel context.CancelFunc
	gen        uint64

	writeMu sync.Mutex
}

// New creates a disconnected Channel that publishes on bus.
func New(cfg Config, bus *event.Bus, opts ...Option) *Channel {
	c := &Channel{
		cfg:        cfg,
		bus:        bus,
		logger:     logging.NopLogger(),
		dialer:     &websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout, Proxy: http.ProxyFromEnvironment},
		httpClient: http.DefaultClient,
		state:      session.StateDisconnected,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithComponent("channel")
	return c
}

// SessionID returns the session this channel was last opened for.
func (c *Channel) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// State returns the current connection state.
func (c *Channel) State() session.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Open connects for sessionID and announces it with a join event. Failed
// attempts are retried per the configured policy; if they run out the
// session is left errored and a *errors.ConnectionError is returned. Opening
// an already open channel closes the previous connection first.
//
// ctx bounds the connection attempts only; the connection itself lives until
// Close. A Close while Open is still connecting makes Open give up and return
// an error wrapping errors.ErrSessionClosed.
func (c *Channel) Open(ctx context.Context, sessionID string) error {
	if err := c.Close(); err != nil {
		c.logger.Debug("closing previous connection failed", "error", err)
	}

	dialCtx, cancelDial := context.WithCancel(ctx)
	defer cancelDial()

	c.mu.Lock()
	c.sessionID = sessionID
	c.dialCancel = cancelDial
	gen := c.gen
	c.mu.Unlock()
	c.logger.Info("opening session channel", "session_id", sessionID)

	conn, hs, err := c.connectWithRetry(dialCtx)

	c.mu.Lock()
	closed := c.gen != gen
	if !closed {
		c.dialCancel = nil
	}
	if err != nil || closed {
		c.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		if closed {
			c.setState(session.StateDisconnected, nil)
			return errors.NewConnectionError("channel closed while connecting", errors.ErrSessionClosed).
				WithSessionID(sessionID).
				WithRetryable(false).
				WithSeverity(errors.SeverityInfo)
		}
		return err
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.conn, c.cancel, c.done = conn, cancel, done
	c.mu.Unlock()

	go c.readLoop(loopCtx, conn, hs, done)
	return nil
}

// connectWithRetry dials until a joined connection is established or the
// policy gives up. State transitions are published along the way.
func (c *Channel) connectWithRetry(ctx context.Context) (*websocket.Conn, handshake, error) {
	sessionID := c.SessionID()
	c.setState(session.StateConnecting, nil)

	var (
		conn *websocket.Conn
		hs   handshake
	)
	state, err := retry.Do(ctx, c.cfg.Retry, func(ctx context.Context, attempt int) error {
		var dialErr error
		conn, hs, dialErr = c.connect(ctx, sessionID)
		if dialErr != nil {
			c.logger.Warn("connection attempt failed",
				"attempt", attempt,
				"max_attempts", c.cfg.Retry.MaxAttempts,
				"error", dialErr)
		}
		return dialErr
	})
	if err != nil {
		connErr := errors.NewConnectionError("could not connect to backend", err).
			WithSessionID(sessionID).
			WithAttempts(state.Attempts).
			WithRetryable(false)
		if errors.Is(ctx.Err(), context.Canceled) {
			connErr = connErr.WithSeverity(errors.SeverityInfo)
			c.setState(session.StateDisconnected, connErr)
			return nil, handshake{}, connErr
		}
		c.setState(session.StateErrored, connErr)
		return nil, handshake{}, connErr
	}

	c.setState(session.StateConnected, nil)
	return conn, hs, nil
}

// connect performs one dial, the Engine.IO and Socket.IO handshakes and the
// join announcement.
func (c *Channel) connect(ctx context.Context, sessionID string) (*websocket.Conn, handshake, error) {
	endpoint, err := c.socketURL()
	if err != nil {
		return nil, handshake{}, errors.NewConnectionError("invalid socket url", err).WithRetryable(false)
	}

	conn, resp, err := c.dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		if resp != nil {
			return nil, handshake{}, fmt.Errorf("dial %s: %w (status %d)", endpoint, err, resp.StatusCode)
		}
		return nil, handshake{}, fmt.Errorf("dial %s: %w", endpoint, err)
	}

	hs, err := c.handshake(conn)
	if err != nil {
		_ = conn.Close()
		return nil, handshake{}, err
	}

	join, err := encodeEvent(c.cfg.JoinEvent, map[string]string{"sessionId": sessionID})
	if err != nil {
		_ = conn.Close()
		return nil, handshake{}, err
	}
	if err := c.write(conn, join); err != nil {
		_ = conn.Close()
		return nil, handshake{}, fmt.Errorf("send join: %w", err)
	}
	return conn, hs, nil
}

// handshake reads the Engine.IO open packet, requests the default namespace
// and waits for the server to accept it.
func (c *Channel) handshake(conn *websocket.Conn) (handshake, error) {
	timeout := c.cfg.HandshakeTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	defer func() { _ = conn.SetReadDeadline(time.Time{}) }()

	var hs handshake
	opened := false
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if isTimeout(err) {
				err = errors.NewTimeoutError("socket handshake", timeout).WithCause(err)
			}
			return handshake{}, fmt.Errorf("%w: %w", errors.ErrHandshakeFailed, err)
		}
		f, err := decodeFrame(msg)
		if err != nil {
			return handshake{}, fmt.Errorf("%w: %w", errors.ErrHandshakeFailed, err)
		}

		switch f.kind {
		case frameOpen:
			if err := json.Unmarshal(f.data, &hs); err != nil {
				return handshake{}, fmt.Errorf("%w: decode open packet: %w", errors.ErrHandshakeFailed, err)
			}
			opened = true
			if err := c.write(conn, encodeConnect()); err != nil {
				return handshake{}, fmt.Errorf("%w: send connect: %w", errors.ErrHandshakeFailed, err)
			}
		case framePing:
			if err := c.write(conn, encodePong(f.data)); err != nil {
				return handshake{}, fmt.Errorf("%w: send pong: %w", errors.ErrHandshakeFailed, err)
			}
		case frameConnect:
			if !opened {
				return handshake{}, fmt.Errorf("%w: connect before open", errors.ErrHandshakeFailed)
			}
			return hs, nil
		case frameConnectError:
			return handshake{}, fmt.Errorf("%w: %s", errors.ErrHandshakeFailed, connectErrorMessage(f.data))
		case frameClose, frameDisconnect:
			return handshake{}, fmt.Errorf("%w: server closed during handshake", errors.ErrHandshakeFailed)
		}
	}
}

// readLoop delivers inbound packets until the connection drops or Close is
// called. After an unexpected drop it reconnects when configured to.
func (c *Channel) readLoop(ctx context.Context, conn *websocket.Conn, hs handshake, done chan struct{}) {
	defer close(done)

	for {
		err := c.consume(ctx, conn, hs)
		_ = conn.Close()
		if ctx.Err() != nil {
			return
		}

		dropErr := errors.NewConnectionError("connection lost", err).
			WithSessionID(c.SessionID()).
			WithRetryable(c.cfg.Reconnect)
		if c.cfg.Reconnect {
			dropErr = dropErr.WithSeverity(errors.SeverityWarning)
		}
		c.logger.Log(errors.GetSeverity(dropErr).LogLevel(), "connection lost", "error", err)
		c.setState(session.StateDisconnected, dropErr)
		if !c.cfg.Reconnect {
			return
		}

		conn, hs, err = c.connectWithRetry(ctx)
		if err != nil {
			return
		}
		c.mu.Lock()
		if ctx.Err() != nil {
			c.mu.Unlock()
			_ = conn.Close()
			return
		}
		c.conn = conn
		c.mu.Unlock()
		c.logger.Info("reconnected", "session_id", c.SessionID())
	}
}

// consume reads and dispatches packets from conn until it fails.
func (c *Channel) consume(ctx context.Context, conn *websocket.Conn, hs handshake) error {
	timeout := hs.readTimeout()
	for {
		if timeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(timeout))
		}
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		f, err := decodeFrame(msg)
		if err != nil {
			c.logger.Warn("dropping malformed packet", "error", err)
			continue
		}

		switch f.kind {
		case framePing:
			if err := c.write(conn, encodePong(f.data)); err != nil {
				return fmt.Errorf("send pong: %w", err)
			}
		case frameEvent:
			c.dispatch(f)
		case frameDisconnect:
			return fmt.Errorf("server disconnected the session")
		case frameClose:
			return fmt.Errorf("server closed the transport")
		}
	}
}

// dispatch publishes one event packet. Handlers run on the reader goroutine,
// so the next packet is not read until they return.
func (c *Channel) dispatch(f frame) {
	sessionID := c.SessionID()
	var arg json.RawMessage
	if len(f.args) > 0 {
		arg = f.args[0]
	}

	switch f.name {
	case c.cfg.FragmentEvent:
		var body struct {
			Content *string `json:"content"`
		}
		if err := json.Unmarshal(arg, &body); err != nil || body.Content == nil {
			c.logger.Warn("dropping fragment without content", "payload", string(arg))
			return
		}
		c.bus.Publish(event.NewFragmentReceivedEvent(sessionID, *body.Content))
	case c.cfg.TraceEvent:
		var body struct {
			Trace json.RawMessage `json:"trace"`
		}
		if err := json.Unmarshal(arg, &body); err != nil || len(body.Trace) == 0 {
			c.logger.Warn("dropping trace without payload", "payload", string(arg))
			return
		}
		c.bus.Publish(event.NewTraceReceivedEvent(sessionID, body.Trace))
	default:
		c.logger.Debug("ignoring event", "event", f.name)
	}
}

// Submit posts one user turn. It returns nil once the backend accepts the
// request; the answer arrives later as fragment and trace events. Failures
// are returned as *errors.SubmitError and are never retried.
func (c *Channel) Submit(ctx context.Context, text string) error {
	c.mu.Lock()
	sessionID, state := c.sessionID, c.state
	c.mu.Unlock()

	if !state.AcceptsSubmissions() {
		return errors.NewSubmitError(errors.ErrSessionErrored).WithSessionID(sessionID)
	}

	endpoint, err := util.EndpointURL(c.cfg.BaseURL, c.cfg.ChatPath)
	if err != nil {
		return errors.NewSubmitError(err).WithSessionID(sessionID)
	}
	body, err := json.Marshal(struct {
		Message   string `json:"message"`
		SessionID string `json:"sessionId"`
	}{text, sessionID})
	if err != nil {
		return errors.NewSubmitError(err).WithSessionID(sessionID)
	}

	reqCtx, cancel := c.submitContext(ctx)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, endpoint, bytesReader(body))
	if err != nil {
		return errors.NewSubmitError(err).WithSessionID(sessionID)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if reqCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			err = errors.NewTimeoutError("submit", c.cfg.SubmitTimeout).WithCause(err)
		}
		return errors.NewSubmitError(err).WithSessionID(sessionID)
	}
	defer func() { _ = resp.Body.Close() }()
	drain(resp)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return errors.NewSubmitError(errors.ErrNonSuccessStatus).
			WithStatusCode(resp.StatusCode).
			WithSessionID(sessionID)
	}
	c.logger.Debug("turn accepted", "status", resp.StatusCode)
	return nil
}

// Close disconnects and stops the reader. The channel can be opened again.
func (c *Channel) Close() error {
	c.mu.Lock()
	c.gen++
	if c.dialCancel != nil {
		c.dialCancel()
		c.dialCancel = nil
	}
	conn, cancel, done := c.conn, c.cancel, c.done
	wasOpen := c.state != session.StateDisconnected
	c.conn, c.cancel, c.done = nil, nil, nil
	if cancel != nil {
		// Cancel under the lock so a concurrent reconnect cannot install a
		// connection this Close would miss.
		cancel()
	}
	c.mu.Unlock()

	if cancel == nil {
		if wasOpen {
			c.setState(session.StateDisconnected, nil)
		}
		return nil
	}

	var err error
	if conn != nil {
		_ = c.write(conn, encodeDisconnect())
		_ = c.writeControl(conn, websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		err = conn.Close()
	}
	<-done

	c.setState(session.StateDisconnected, nil)
	if err != nil && !isClosedConnErr(err) {
		return err
	}
	return nil
}

func (c *Channel) setState(state session.State, cause error) {
	c.mu.Lock()
	if c.state == state && cause == nil {
		c.mu.Unlock()
		return
	}
	c.state = state
	sessionID := c.sessionID
	c.mu.Unlock()

	c.logger.Debug("connection state changed", "state", state.String())
	c.bus.Publish(event.NewConnectionChangedEvent(sessionID, state, cause))
}

func (c *Channel) write(conn *websocket.Conn, msg []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, msg)
}

func (c *Channel) writeControl(conn *websocket.Conn, messageType int, data []byte) error {
	return conn.WriteControl(messageType, data, time.Now().Add(time.Second))
}

func (c *Channel) socketURL() (string, error) {
	path := c.cfg.SocketPath
	if path == "" {
		path = "/socket.io/"
	}
	endpoint, err := util.EndpointURL(c.cfg.BaseURL, path+"?EIO=4&transport=websocket")
	if err != nil {
		return "", err
	}
	return util.WebSocketURL(endpoint)
}

func (c *Channel) submitContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline || c.cfg.SubmitTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.cfg.SubmitTimeout)
}
