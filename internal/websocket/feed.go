package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// KeepAliveInterval is how often an idle feed sends a ping frame.
var KeepAliveInterval = 30 * time.Second

// ServeFeed forwards every payload received on events to conn until ctx is
// done, events is closed, or the client goes away. Client messages are
// answered in place: ping gets pong and anything else gets an error event.
func ServeFeed(ctx context.Context, conn *Conn, events <-chan []byte, log zerolog.Logger) error {
	readErr := make(chan error, 1)
	go func() {
		readErr <- readLoop(conn, log)
	}()

	keepAlive := time.NewTicker(KeepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case err := <-readErr:
			if isNormalClose(err) {
				return nil
			}
			return err

		case payload, ok := <-events:
			if !ok {
				return nil
			}
			if err := conn.WriteTyped(activityMessage(payload)); err != nil {
				return fmt.Errorf("write event: %w", err)
			}

		case <-keepAlive.C:
			if err := conn.WritePing(); err != nil {
				return fmt.Errorf("write ping: %w", err)
			}
		}
	}
}

func readLoop(conn *Conn, log zerolog.Logger) error {
	for {
		var msg RequestEnvelope
		if err := conn.ReadJSON(&msg); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				if werr := conn.WriteError("malformed message"); werr != nil {
					return werr
				}
				continue
			}
			return err
		}

		switch msg.Action {
		case ActionPing:
			if err := conn.WriteTyped(PongResponse{Event: EventPong}); err != nil {
				return err
			}
		default:
			log.Debug().Str("action", string(msg.Action)).Msg("Unknown action")
			if err := conn.WriteError(fmt.Sprintf("unknown action %q", msg.Action)); err != nil {
				return err
			}
		}
	}
}

// activityMessage names the outgoing event after the payload's "type" field.
func activityMessage(payload []byte) ActivityMessage {
	event := EventActivity
	if !gjson.ValidBytes(payload) {
		quoted, _ := json.Marshal(string(payload))
		return ActivityMessage{Event: event, Data: quoted}
	}
	if t := gjson.GetBytes(payload, "type"); t.Type == gjson.String && t.Str != "" {
		event = Event(t.Str)
	}
	return ActivityMessage{Event: event, Data: payload}
}

func isNormalClose(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived)
}
