// Package testhelpers provides common utilities for testing the lobby server.
//
// It wraps test server setup, HTTP requests, and the CBOR event exchange over
// WebSocket connections so individual tests stay focused on behavior.
package testhelpers

import (
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// TestOrigin is the Origin header sent by ConnectWebSocket.
const TestOrigin = "http://localhost:8080"

// eventDecoder decodes nested maps with string keys so roster entries can be
// inspected directly.
var eventDecoder = func() cbor.DecMode {
	dm, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic(err)
	}
	return dm
}()

// CreateTestServer creates a test HTTP server with the given handler.
// The server is closed when the test finishes.
func CreateTestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return ts
}

// WebSocketURL rewrites an http:// test server URL to ws:// and appends path.
func WebSocketURL(serverURL, path string) string {
	return "ws" + strings.TrimPrefix(serverURL, "http") + path
}

// MakeRequest creates and executes an HTTP request, returning the response.
func MakeRequest(t *testing.T, method, url string) *http.Response {
	t.Helper()

	client := &http.Client{Timeout: 5 * time.Second}

	req, err := http.NewRequest(method, url, http.NoBody)
	require.NoError(t, err, "create request")

	resp, err := client.Do(req)
	require.NoError(t, err, "make request")
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// ConnectWebSocket dials url with TestOrigin and closes the connection when
// the test finishes.
func ConnectWebSocket(t *testing.T, url string) *websocket.Conn {
	t.Helper()

	conn, err := DialWebSocket(url)
	require.NoError(t, err, "dial %s", url)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// DialWebSocket creates a WebSocket connection to url, returning the
// handshake error when the server refuses it.
func DialWebSocket(url string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}

	headers := http.Header{}
	headers.Set("Origin", TestOrigin)

	conn, resp, err := dialer.Dial(url, headers)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

// SendEvent encodes event as CBOR and sends it in a binary frame.
func SendEvent(t *testing.T, conn *websocket.Conn, event map[string]any) {
	t.Helper()

	data, err := cbor.Marshal(event)
	require.NoError(t, err, "encode event")
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, data), "send event")
}

// ReceiveEvent reads the next frame, which must be binary CBOR, and decodes
// it into a generic map.
func ReceiveEvent(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	messageType, data, err := conn.ReadMessage()
	require.NoError(t, err, "read event")
	require.Equal(t, websocket.BinaryMessage, messageType, "event frame type")

	var event map[string]any
	require.NoError(t, eventDecoder.Unmarshal(data, &event), "decode event")
	return event
}

// ReceiveRoster reads the next event, requires it to be PlayersInLobby, and
// returns its players.
func ReceiveRoster(t *testing.T, conn *websocket.Conn) []map[string]any {
	t.Helper()

	event := ReceiveEvent(t, conn)
	require.Equal(t, "PlayersInLobby", event["event_type"])

	raw, ok := event["players"].([]any)
	require.True(t, ok, "players is not an array: %T", event["players"])

	players := make([]map[string]any, 0, len(raw))
	for _, entry := range raw {
		player, ok := entry.(map[string]any)
		require.True(t, ok, "player entry is not a map: %T", entry)
		players = append(players, player)
	}
	return players
}

// ExpectClose reads until the connection closes and returns the close code.
func ExpectClose(t *testing.T, conn *websocket.Conn) int {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		_, _, err := conn.ReadMessage()
		if err == nil {
			continue
		}
		var closeErr *websocket.CloseError
		require.ErrorAs(t, err, &closeErr, "expected a close frame")
		return closeErr.Code
	}
}

// CloseWebSocket sends a normal close frame and closes the connection.
func CloseWebSocket(conn *websocket.Conn) error {
	err := conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		return err
	}
	return conn.Close()
}
