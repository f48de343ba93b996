package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startFeed(t *testing.T, events <-chan []byte) (*websocket.Conn, <-chan error) {
	t.Helper()

	done := make(chan error, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			done <- err
			return
		}
		conn := NewConn(ws)
		defer conn.Close()
		done <- ServeFeed(context.Background(), conn, events, zerolog.Nop())
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	client.SetReadDeadline(time.Now().Add(5 * time.Second))
	return client, done
}

func TestServeFeed_PingPong(t *testing.T) {
	client, _ := startFeed(t, make(chan []byte))

	require.NoError(t, client.WriteJSON(RequestEnvelope{Action: ActionPing}))

	var pong PongResponse
	require.NoError(t, client.ReadJSON(&pong))
	assert.Equal(t, EventPong, pong.Event)
}

func TestServeFeed_UnknownAction(t *testing.T) {
	client, _ := startFeed(t, make(chan []byte))

	require.NoError(t, client.WriteJSON(map[string]string{"action": "dance"}))

	var resp ErrorResponse
	require.NoError(t, client.ReadJSON(&resp))
	assert.Equal(t, EventError, resp.Event)
	assert.Contains(t, resp.Error, "dance")

	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, client.ReadJSON(&resp))
	assert.Equal(t, "malformed message", resp.Error)

	require.NoError(t, client.WriteJSON(RequestEnvelope{Action: ActionPing}))
	var pong PongResponse
	require.NoError(t, client.ReadJSON(&pong))
	assert.Equal(t, EventPong, pong.Event)
}

func TestServeFeed_ForwardsEvents(t *testing.T) {
	events := make(chan []byte, 2)
	client, done := startFeed(t, events)

	events <- []byte(`{"type":"score.created","score_id":3}`)
	events <- []byte(`{"score_id":4}`)

	var first, second ActivityMessage
	require.NoError(t, client.ReadJSON(&first))
	require.NoError(t, client.ReadJSON(&second))

	assert.Equal(t, Event("score.created"), first.Event)
	assert.JSONEq(t, `{"type":"score.created","score_id":3}`, string(first.Data))
	assert.Equal(t, EventActivity, second.Event)

	close(events)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("feed did not stop after the event channel closed")
	}
}

func TestServeFeed_ClientClose(t *testing.T) {
	client, done := startFeed(t, make(chan []byte))

	require.NoError(t, client.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("feed did not stop after the client closed")
	}
}

func TestActivityMessage(t *testing.T) {
	msg := activityMessage([]byte(`plain text`))
	assert.Equal(t, EventActivity, msg.Event)
	assert.JSONEq(t, `"plain text"`, string(msg.Data))

	msg = activityMessage([]byte(`{"type": 5}`))
	assert.Equal(t, EventActivity, msg.Event)
}
