package extension

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/noodlevault/noodlevault/internal/logging"
)

func newTestServer(t *testing.T) (*Hub, *websocket.Conn) {
	t.Helper()

	hub := NewHub()
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	srv := NewServer("", hub, log)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/", srv.serve)
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return hub, conn
}

func TestServerRegistersAndReceives(t *testing.T) {
	hub, conn := newTestServer(t)

	require.Eventually(t, func() bool {
		return len(hub.Clients()) == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"url":"https://example.com"}`)))

	cli := hub.Clients()[0]
	require.NotEmpty(t, cli.ID())
	require.Eventually(t, func() bool {
		msg, ok := cli.Receive()
		return ok && string(msg) == `{"url":"https://example.com"}`
	}, time.Second, 5*time.Millisecond)

	_, ok := cli.Receive()
	require.False(t, ok)
}

func TestServerSendsToClient(t *testing.T) {
	hub, conn := newTestServer(t)

	require.Eventually(t, func() bool {
		return len(hub.Clients()) == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, hub.Clients()[0].Send([]byte(`{"username":"u","password":"p"}`)))
	require.NoError(t, hub.Clients()[0].Send(Terminator))

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, first, err := conn.ReadMessage()
	require.NoError(t, err)
	require.JSONEq(t, `{"username":"u","password":"p"}`, string(first))

	_, second, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, Terminator, second)
}

func TestServerUnregistersOnDisconnect(t *testing.T) {
	hub, conn := newTestServer(t)

	require.Eventually(t, func() bool {
		return len(hub.Clients()) == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool {
		return len(hub.Clients()) == 0
	}, time.Second, 5*time.Millisecond)
}
