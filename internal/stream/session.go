package stream

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/marketdata-sdk/internal/transport"
)

// Control is a non-data message found in a frame.
type Control struct {
	Auth AuthStatus // Set when the frame carries an auth result
	Err  error      // Server-reported error
}

// Protocol adapts a vendor's wire format to a Session.
type Protocol interface {
	// AuthRequest returns the frame that authenticates the connection.
	AuthRequest() ([]byte, error)

	// Handle decodes one frame, delivers any data to subscribers and returns
	// the control messages it carried.
	Handle(frame []byte, receivedAt time.Time) ([]Control, error)
}

// SessionConfig configures a Session.
type SessionConfig struct {
	Name        string           // Vendor name used in logs
	Transport   transport.Config // WebSocket settings
	AuthTimeout time.Duration    // Max wait for the auth reply
}

// DefaultAuthTimeout bounds the wait for an auth reply.
const DefaultAuthTimeout = 10 * time.Second

// ConnFactory creates the transport for one connection.
type ConnFactory func(cfg transport.Config, logger *slog.Logger) transport.Conn

// Session is a streaming client driven by a Protocol. It opens a new
// transport for every connection and publishes lifecycle events.
type Session struct {
	Events

	cfg      SessionConfig
	protocol Protocol
	newConn  ConnFactory
	logger   *slog.Logger

	mu      sync.Mutex
	state   State
	current *sessionConn
	authCh  chan AuthStatus
	closed  bool
}

// sessionConn is one live transport and its pump goroutine.
type sessionConn struct {
	id   uuid.UUID
	conn transport.Conn
	stop chan struct{} // closed by Disconnect
	done chan struct{} // closed when the pump exits
}

// NewSession creates a Session. A nil factory uses transport.New.
func NewSession(cfg SessionConfig, protocol Protocol, newConn ConnFactory, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	if newConn == nil {
		newConn = transport.New
	}
	if cfg.AuthTimeout == 0 {
		cfg.AuthTimeout = DefaultAuthTimeout
	}
	return &Session{
		cfg:      cfg,
		protocol: protocol,
		newConn:  newConn,
		logger:   logger.With("component", "session", "vendor", cfg.Name),
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Connect opens the WebSocket connection. It is a no-op when already connected.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.current != nil {
		s.mu.Unlock()
		return nil
	}
	s.state = StateConnecting
	s.mu.Unlock()

	conn := s.newConn(s.cfg.Transport, s.logger)
	if err := conn.Connect(ctx); err != nil {
		s.setState(StateDisconnected)
		return fmt.Errorf("connect %s: %w", s.cfg.Name, err)
	}

	sc := &sessionConn{
		id:   uuid.New(),
		conn: conn,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	s.mu.Lock()
	if s.closed || s.current != nil {
		s.mu.Unlock()
		conn.Close()
		if s.isClosed() {
			return ErrClosed
		}
		return nil
	}
	s.current = sc
	s.state = StateConnected
	s.mu.Unlock()

	go s.pump(sc)

	s.logger.Debug("socket opened", "conn_id", sc.id)
	s.SocketOpened().Emit(struct{}{})
	return nil
}

// ConnectAndAuthenticate connects if needed, sends the auth frame and waits
// for the reply. It emits Connected with the resulting status.
func (s *Session) ConnectAndAuthenticate(ctx context.Context) (AuthStatus, error) {
	if err := s.Connect(ctx); err != nil {
		return AuthUnknown, err
	}

	s.mu.Lock()
	if s.state == StateAuthenticated {
		s.mu.Unlock()
		return AuthAuthorized, nil
	}
	sc := s.current
	if sc == nil {
		s.mu.Unlock()
		return AuthUnknown, transport.ErrNotConnected
	}
	ch := make(chan AuthStatus, 1)
	s.authCh = ch
	s.mu.Unlock()

	frame, err := s.protocol.AuthRequest()
	if err != nil {
		s.clearAuth(ch)
		return AuthUnknown, fmt.Errorf("build auth request: %w", err)
	}
	if err := sc.conn.Send(frame); err != nil {
		s.clearAuth(ch)
		return AuthUnknown, fmt.Errorf("send auth request: %w", err)
	}

	timer := time.NewTimer(s.cfg.AuthTimeout)
	defer timer.Stop()

	var status AuthStatus
	select {
	case status = <-ch:
	case <-sc.done:
		// The reply may have been read just before the connection ended.
		select {
		case status = <-ch:
		default:
			s.clearAuth(ch)
			return AuthUnknown, transport.ErrNotConnected
		}
	case <-timer.C:
		s.clearAuth(ch)
		return AuthUnknown, ErrAuthTimeout
	case <-ctx.Done():
		s.clearAuth(ch)
		return AuthUnknown, ctx.Err()
	}

	if status == AuthAuthorized {
		s.mu.Lock()
		if s.current == sc {
			s.state = StateAuthenticated
		}
		s.mu.Unlock()
	}
	s.logger.Info("authentication finished", "status", status, "conn_id", sc.id)
	s.Connected().Emit(status)
	return status, nil
}

// Disconnect closes the current connection. SocketClosed is emitted.
func (s *Session) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	sc := s.current
	if sc == nil {
		s.mu.Unlock()
		return nil
	}
	s.current = nil
	s.state = StateClosing
	s.mu.Unlock()

	// The pump is not awaited: Disconnect may be called from a handler
	// running on the pump goroutine.
	close(sc.stop)
	err := sc.conn.Close()

	s.setState(StateDisconnected)
	s.logger.Debug("socket closed", "conn_id", sc.id, "reason", "disconnect")
	s.SocketClosed().Emit(struct{}{})
	return err
}

// Close disconnects and marks the session unusable.
func (s *Session) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	return s.Disconnect(context.Background())
}

// Send writes a frame on the current connection.
func (s *Session) Send(frame []byte) error {
	s.mu.Lock()
	sc := s.current
	s.mu.Unlock()
	if sc == nil {
		return transport.ErrNotConnected
	}
	return sc.conn.Send(frame)
}

// pump moves frames from the transport to the protocol until the connection
// ends.
func (s *Session) pump(sc *sessionConn) {
	defer close(sc.done)

	for {
		select {
		case <-sc.stop:
			return
		case err := <-sc.conn.Errors():
			s.drain(sc)
			s.connectionLost(sc, err)
			return
		case msg := <-sc.conn.Messages():
			s.handle(msg)
		}
	}
}

// drain handles frames that were read before the connection failed.
func (s *Session) drain(sc *sessionConn) {
	for {
		select {
		case msg := <-sc.conn.Messages():
			s.handle(msg)
		default:
			return
		}
	}
}

func (s *Session) handle(msg transport.TimestampedMessage) {
	controls, err := s.protocol.Handle(msg.Data, msg.ReceivedAt)
	if err != nil {
		s.logger.Warn("failed to decode frame", "error", err)
		s.Errors().Emit(fmt.Errorf("decode %s frame: %w", s.cfg.Name, err))
	}

	for _, c := range controls {
		if c.Auth != AuthUnknown {
			s.mu.Lock()
			ch := s.authCh
			s.authCh = nil
			s.mu.Unlock()
			if ch != nil {
				ch <- c.Auth
			}
		}
		if c.Err != nil {
			s.Errors().Emit(c.Err)
		}
	}
}

// connectionLost handles an unexpected transport failure.
func (s *Session) connectionLost(sc *sessionConn, err error) {
	s.mu.Lock()
	if s.current != sc {
		s.mu.Unlock()
		return
	}
	s.current = nil
	s.state = StateDisconnected
	s.mu.Unlock()

	sc.conn.Close()

	s.logger.Warn("connection lost", "conn_id", sc.id, "error", err)
	s.Errors().Emit(err)
	s.SocketClosed().Emit(struct{}{})
}

func (s *Session) clearAuth(ch chan AuthStatus) {
	s.mu.Lock()
	if s.authCh == ch {
		s.authCh = nil
	}
	s.mu.Unlock()
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
