package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/marketdata-sdk/internal/transport"
)

// testFrame is the wire format spoken by testProtocol and the test servers.
type testFrame struct {
	Type   string `json:"type"`
	Key    string `json:"key,omitempty"`
	OK     bool   `json:"ok,omitempty"`
	Stream string `json:"stream,omitempty"`
	Value  string `json:"value,omitempty"`
}

type testProtocol struct {
	key string

	mu   sync.Mutex
	data []string
}

func (p *testProtocol) AuthRequest() ([]byte, error) {
	return json.Marshal(testFrame{Type: "auth", Key: p.key})
}

func (p *testProtocol) Handle(frame []byte, receivedAt time.Time) ([]Control, error) {
	var f testFrame
	if err := json.Unmarshal(frame, &f); err != nil {
		return nil, err
	}
	switch f.Type {
	case "auth":
		if f.OK {
			return []Control{{Auth: AuthAuthorized}}, nil
		}
		return []Control{{Auth: AuthUnauthorized}}, nil
	case "data":
		p.mu.Lock()
		p.data = append(p.data, f.Value)
		p.mu.Unlock()
	}
	return nil, nil
}

func (p *testProtocol) received() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.data...)
}

// testSessionClient adds subscription frames to a Session.
type testSessionClient struct {
	*Session
}

func (c testSessionClient) Subscribe(ctx context.Context, subs ...Subscription) error {
	for _, s := range subs {
		frame, _ := json.Marshal(testFrame{Type: "subscribe", Stream: s.Stream()})
		if err := c.Send(frame); err != nil {
			return err
		}
	}
	return nil
}

func (c testSessionClient) Unsubscribe(ctx context.Context, subs ...Subscription) error {
	for _, s := range subs {
		frame, _ := json.Marshal(testFrame{Type: "unsubscribe", Stream: s.Stream()})
		if err := c.Send(frame); err != nil {
			return err
		}
	}
	return nil
}

// wsTestServer serves WebSocket connections. handler receives the 1-based
// connection number.
func wsTestServer(t *testing.T, handler func(n int, conn *websocket.Conn)) *httptest.Server {
	var count atomic.Int32
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()
		handler(int(count.Add(1)), conn)
	}))
	t.Cleanup(server.Close)
	return server
}

// authenticate reads the auth frame and answers it. It reports whether the
// client sent the expected key.
func authenticate(conn *websocket.Conn, key string) bool {
	var f testFrame
	if err := conn.ReadJSON(&f); err != nil {
		return false
	}
	ok := f.Type == "auth" && f.Key == key
	conn.WriteJSON(testFrame{Type: "auth", OK: ok})
	return ok
}

func drainFrames(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func newTestSession(server *httptest.Server, key string) (*Session, *testProtocol) {
	p := &testProtocol{key: key}
	cfg := SessionConfig{
		Name: "test",
		Transport: transport.Config{
			URL:        "ws" + strings.TrimPrefix(server.URL, "http"),
			BufferSize: 100,
		},
		AuthTimeout: time.Second,
	}
	return NewSession(cfg, p, nil, nil), p
}

func TestSession_ConnectAndAuthenticate(t *testing.T) {
	server := wsTestServer(t, func(n int, conn *websocket.Conn) {
		if !authenticate(conn, "good") {
			return
		}
		conn.WriteJSON(testFrame{Type: "data", Value: "tick-1"})
		conn.WriteJSON(testFrame{Type: "data", Value: "tick-2"})
		drainFrames(conn)
	})

	s, p := newTestSession(server, "good")
	defer s.Close()

	var opened atomic.Int32
	s.SocketOpened().Add(func(struct{}) { opened.Add(1) })
	statuses := make(chan AuthStatus, 1)
	s.Connected().Add(func(st AuthStatus) { statuses <- st })

	status, err := s.ConnectAndAuthenticate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, AuthAuthorized, status)
	assert.Equal(t, StateAuthenticated, s.State())
	assert.Equal(t, int32(1), opened.Load())
	assert.Equal(t, AuthAuthorized, <-statuses)

	assert.Eventually(t, func() bool {
		return len(p.received()) == 2
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"tick-1", "tick-2"}, p.received())

	// Already authenticated.
	status, err = s.ConnectAndAuthenticate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, AuthAuthorized, status)
}

func TestSession_AuthRejected(t *testing.T) {
	server := wsTestServer(t, func(n int, conn *websocket.Conn) {
		authenticate(conn, "good")
		drainFrames(conn)
	})

	s, _ := newTestSession(server, "bad")
	defer s.Close()

	status, err := s.ConnectAndAuthenticate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, AuthUnauthorized, status)
	assert.Equal(t, StateConnected, s.State())
}

func TestSession_AuthTimeout(t *testing.T) {
	server := wsTestServer(t, func(n int, conn *websocket.Conn) {
		drainFrames(conn)
	})

	s, _ := newTestSession(server, "good")
	s.cfg.AuthTimeout = 50 * time.Millisecond
	defer s.Close()

	_, err := s.ConnectAndAuthenticate(context.Background())
	assert.ErrorIs(t, err, ErrAuthTimeout)
}

func TestSession_ConnectFails(t *testing.T) {
	s := NewSession(SessionConfig{
		Name:      "test",
		Transport: transport.Config{URL: "ws://127.0.0.1:1", HandshakeTimeout: 200 * time.Millisecond},
	}, &testProtocol{}, nil, nil)

	_, err := s.ConnectAndAuthenticate(context.Background())
	assert.Error(t, err)
	assert.Equal(t, StateDisconnected, s.State())
}

func TestSession_ServerDrop(t *testing.T) {
	server := wsTestServer(t, func(n int, conn *websocket.Conn) {
		authenticate(conn, "good")
	})

	s, _ := newTestSession(server, "good")
	defer s.Close()

	closed := make(chan struct{}, 1)
	s.SocketClosed().Add(func(struct{}) { closed <- struct{}{} })
	errs := make(chan error, 4)
	s.Errors().Add(func(err error) { errs <- err })

	_, err := s.ConnectAndAuthenticate(context.Background())
	require.NoError(t, err)

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("SocketClosed not emitted after server drop")
	}
	select {
	case err := <-errs:
		assert.Error(t, err)
	default:
		t.Fatal("connection error not emitted")
	}
	assert.Equal(t, StateDisconnected, s.State())
	assert.ErrorIs(t, s.Send([]byte("{}")), transport.ErrNotConnected)
}

func TestSession_DecodeErrorEmitted(t *testing.T) {
	server := wsTestServer(t, func(n int, conn *websocket.Conn) {
		authenticate(conn, "good")
		conn.WriteMessage(websocket.TextMessage, []byte("not json"))
		drainFrames(conn)
	})

	s, _ := newTestSession(server, "good")
	defer s.Close()

	errs := make(chan error, 1)
	s.Errors().Add(func(err error) {
		select {
		case errs <- err:
		default:
		}
	})

	_, err := s.ConnectAndAuthenticate(context.Background())
	require.NoError(t, err)

	select {
	case err := <-errs:
		assert.Contains(t, err.Error(), "decode test frame")
	case <-time.After(time.Second):
		t.Fatal("decode error not emitted")
	}
}

func TestSession_Disconnect(t *testing.T) {
	server := wsTestServer(t, func(n int, conn *websocket.Conn) {
		drainFrames(conn)
	})

	s, _ := newTestSession(server, "good")

	var closed atomic.Int32
	s.SocketClosed().Add(func(struct{}) { closed.Add(1) })

	require.NoError(t, s.Connect(context.Background()))
	assert.Equal(t, StateConnected, s.State())

	require.NoError(t, s.Disconnect(context.Background()))
	require.NoError(t, s.Disconnect(context.Background()))
	assert.Equal(t, int32(1), closed.Load())
	assert.Equal(t, StateDisconnected, s.State())
	assert.ErrorIs(t, s.Send([]byte("{}")), transport.ErrNotConnected)

	// A disconnected session can connect again.
	require.NoError(t, s.Connect(context.Background()))
	require.NoError(t, s.Close())
}

func TestSession_ConnectAfterClose(t *testing.T) {
	server := wsTestServer(t, func(n int, conn *websocket.Conn) {
		drainFrames(conn)
	})

	s, _ := newTestSession(server, "good")
	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Connect(context.Background()), ErrClosed)
}

func TestReconnectingClient_OverSession(t *testing.T) {
	replayed := make(chan string, 4)
	server := wsTestServer(t, func(n int, conn *websocket.Conn) {
		if !authenticate(conn, "good") {
			return
		}
		var f testFrame
		if err := conn.ReadJSON(&f); err != nil {
			return
		}
		if n == 1 {
			// Drop the first connection after the initial subscribe.
			return
		}
		replayed <- f.Stream
		drainFrames(conn)
	})

	s, _ := newTestSession(server, "good")
	c, err := NewReconnectingClient(testSessionClient{s},
		WithParameters(ReconnectionParameters{MaxAttempts: 3}),
		WithDelayGenerator(FixedDelay(10*time.Millisecond)),
	)
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	status, err := c.ConnectAndAuthenticate(ctx)
	require.NoError(t, err)
	require.Equal(t, AuthAuthorized, status)
	require.NoError(t, c.Subscribe(ctx, testSub("trades.AAPL")))

	select {
	case stream := <-replayed:
		assert.Equal(t, "trades.AAPL", stream)
	case <-time.After(3 * time.Second):
		t.Fatal("subscription was not replayed on the new connection")
	}
	assert.Eventually(t, func() bool {
		return s.State() == StateAuthenticated
	}, time.Second, 10*time.Millisecond)
}
