package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/ascension/config"
	"github.com/wfunc/ascension/monitor"
	"github.com/wfunc/ascension/protocol"
	"github.com/wfunc/ascension/protocol/client"
	servermsg "github.com/wfunc/ascension/protocol/server"
	"github.com/wfunc/ascension/room"
)

func newTestServer(t *testing.T) (*GameServer, *room.Room) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	mon, err := monitor.NewMonitor("test")
	require.NoError(t, err)
	r := room.New(ctx, room.WithObserver(mon))

	cfg := config.Default().Server
	cfg.TCPAddress = "127.0.0.1:0"
	cfg.HTTPAddress = ""
	cfg.RPCAddress = ""
	return NewGameServer(cfg, r, mon), r
}

func encodeLine(t *testing.T, msg protocol.Msg) []byte {
	t.Helper()
	line, err := protocol.Encode(msg)
	require.NoError(t, err)
	return line
}

func TestGameServer_TCPSession(t *testing.T) {
	s, _ := newTestServer(t)
	require.NoError(t, s.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()

	conn, err := net.Dial("tcp", s.TCPAddr().String())
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(2 * time.Second))

	_, err = conn.Write(append(encodeLine(t, client.Ping{}), '\n'))
	require.NoError(t, err)
	_, err = conn.Write(append(encodeLine(t, client.AddPlayer{Username: "alice"}), '\n'))
	require.NoError(t, err)

	scanner := bufio.NewScanner(conn)
	require.True(t, scanner.Scan())
	msg, err := servermsg.Decode(scanner.Bytes())
	require.NoError(t, err)
	assert.Equal(t, servermsg.Pong{}, msg)

	require.True(t, scanner.Scan())
	msg, err = servermsg.Decode(scanner.Bytes())
	require.NoError(t, err)
	assert.Equal(t, servermsg.LoginStatus{Status: protocol.LoginLogged}, msg)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
	assert.False(t, scanner.Scan())
}

func TestGameServer_WebSocket(t *testing.T) {
	s, _ := newTestServer(t)
	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer ws.Close()
	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, encodeLine(t, client.AddPlayer{Username: "bob"})))
	_, data, err := ws.ReadMessage()
	require.NoError(t, err)
	msg, err := servermsg.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, servermsg.LoginStatus{Status: protocol.LoginLogged}, msg)
}

func TestGameServer_AdminRoutes(t *testing.T) {
	s, r := newTestServer(t)
	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/room")
	require.NoError(t, err)
	var st room.Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	resp.Body.Close()
	assert.Equal(t, protocol.MaxPlayerCount, st.Capacity)
	assert.Empty(t, st.Players)

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	r.Shutdown()
	<-r.Done()
	resp, err = http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
