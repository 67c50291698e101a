package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockWSServer creates a test WebSocket server.
func mockWSServer(t *testing.T, handler func(*websocket.Conn)) *httptest.Server {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func testConfig(url string) Config {
	return Config{
		URL:          url,
		PingTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Second,
		BufferSize:   100,
	}
}

func drain(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func TestConn_Connect(t *testing.T) {
	server := mockWSServer(t, drain)
	defer server.Close()

	c := New(testConfig(wsURL(server)), nil)
	require.NoError(t, c.Connect(context.Background()))
	assert.True(t, c.IsConnected())

	require.NoError(t, c.Close())
	assert.False(t, c.IsConnected())
}

func TestConn_ConnectSendsHeaders(t *testing.T) {
	var got http.Header
	var mu sync.Mutex
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		got = r.Header.Clone()
		mu.Unlock()
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		drain(conn)
	}))
	defer server.Close()

	cfg := testConfig(wsURL(server))
	cfg.Header = http.Header{"X-Test": []string{"abc"}}

	c := New(cfg, nil)
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "abc", got.Get("X-Test"))
}

func TestConn_Send(t *testing.T) {
	received := make(chan []byte, 1)
	server := mockWSServer(t, func(conn *websocket.Conn) {
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			received <- msg
		}
	})
	defer server.Close()

	c := New(testConfig(wsURL(server)), nil)
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()

	testMsg := []byte(`{"action":"subscribe"}`)
	require.NoError(t, c.Send(testMsg))

	select {
	case msg := <-received:
		assert.Equal(t, testMsg, msg)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestConn_Messages(t *testing.T) {
	testMessages := []string{
		`[{"T":"success","msg":"connected"}]`,
		`[{"T":"t","S":"AAPL"}]`,
		`[{"T":"q","S":"AAPL"}]`,
	}

	server := mockWSServer(t, func(conn *websocket.Conn) {
		for _, msg := range testMessages {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		}
		time.Sleep(time.Second)
	})
	defer server.Close()

	c := New(testConfig(wsURL(server)), nil)
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()

	var received []string
	timeout := time.After(time.Second)
	for range testMessages {
		select {
		case msg := <-c.Messages():
			received = append(received, string(msg.Data))
			assert.False(t, msg.ReceivedAt.IsZero())
		case <-timeout:
			t.Fatalf("timeout waiting for messages, received %d of %d", len(received), len(testMessages))
		}
	}
	assert.Equal(t, testMessages, received)
}

func TestConn_ServerCloseReportsError(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "bye"))
	})
	defer server.Close()

	c := New(testConfig(wsURL(server)), nil)
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()

	select {
	case err := <-c.Errors():
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("expected error after server close")
	}
	assert.Eventually(t, func() bool { return !c.IsConnected() }, time.Second, 10*time.Millisecond)
}

func TestConn_CloseDoesNotReportError(t *testing.T) {
	server := mockWSServer(t, drain)
	defer server.Close()

	c := New(testConfig(wsURL(server)), nil)
	require.NoError(t, c.Connect(context.Background()))
	require.NoError(t, c.Close())

	select {
	case err := <-c.Errors():
		t.Fatalf("unexpected error after Close: %v", err)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestConn_SendNotConnected(t *testing.T) {
	c := New(testConfig("ws://localhost:12345"), nil)
	assert.ErrorIs(t, c.Send([]byte("test")), ErrNotConnected)
}

func TestConn_ConnectAfterClose(t *testing.T) {
	c := New(testConfig("ws://localhost:12345"), nil)
	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.Connect(context.Background()), ErrAlreadyClosed)
}

func TestConn_DoubleClose(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		time.Sleep(time.Second)
	})
	defer server.Close()

	c := New(testConfig(wsURL(server)), nil)
	require.NoError(t, c.Connect(context.Background()))

	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}

func TestConn_PingHandler(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		if err := conn.WriteControl(websocket.PingMessage, []byte("heartbeat"), time.Now().Add(time.Second)); err != nil {
			t.Logf("ping error: %v", err)
			return
		}
		// Pongs are only processed while reading.
		drain(conn)
	})
	defer server.Close()

	c := New(testConfig(wsURL(server)), nil)
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()

	time.Sleep(200 * time.Millisecond)
	assert.True(t, c.IsConnected())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 10*time.Second, cfg.HandshakeTimeout)
	assert.Equal(t, 30*time.Second, cfg.PingInterval)
	assert.Equal(t, 90*time.Second, cfg.PingTimeout)
	assert.Equal(t, 5*time.Second, cfg.WriteTimeout)
	assert.Equal(t, 10000, cfg.BufferSize)

	filled := withDefaults(Config{BufferSize: 5})
	assert.Equal(t, 5, filled.BufferSize)
	assert.Equal(t, cfg.PingInterval, filled.PingInterval)
}
