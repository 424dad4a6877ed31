package bridge

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/idlekeeper/idlekeeper/internal/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{}

type bridgeScript func(t *testing.T, conn *websocket.Conn)

func startBridge(t *testing.T, script bridgeScript) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		script(t, conn)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	return NewClient(url, 2*time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func sendEvent(conn *websocket.Conn, name string, payload any) error {
	msg := Message{Type: TypeEvent, Event: name}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		msg.Payload = raw
	}
	return conn.WriteJSON(msg)
}

func nextEvent(t *testing.T, s game.Session) game.Event {
	t.Helper()
	select {
	case ev, ok := <-s.Events():
		require.True(t, ok, "event channel closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func drainUntilClosed(t *testing.T, s game.Session) []game.Event {
	t.Helper()
	var events []game.Event
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-s.Events():
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatal("event channel never closed")
		}
	}
}

func opts() game.ConnectOptions {
	return game.ConnectOptions{Host: "mc.example.org", Port: 25565, Username: "keeper", Auth: game.AuthOffline}
}

func TestSessionDecodesEventsAndActions(t *testing.T) {
	requests := make(chan Message, 8)
	client := startBridge(t, func(t *testing.T, conn *websocket.Conn) {
		var connect Message
		if conn.ReadJSON(&connect) != nil {
			return
		}
		requests <- connect

		_ = sendEvent(conn, EventLogin, nil)
		_ = sendEvent(conn, EventRegistry, RegistryPayload{Foods: []string{"bread", "cooked_beef"}})
		_ = sendEvent(conn, EventInventory, InventoryPayload{Items: []game.Item{{Name: "bread", Slot: 36, Count: 3}}})
		_ = sendEvent(conn, EventHealth, HealthPayload{Health: 18, Food: 13, Saturation: 1.5})
		_ = sendEvent(conn, EventChat, MessageEvent{Username: "alex", Message: "hi"})
		_ = sendEvent(conn, EventWhisper, MessageEvent{Username: "sam", Message: "psst"})

		for {
			var req Message
			if conn.ReadJSON(&req) != nil {
				return
			}
			requests <- req
			switch req.Type {
			case TypeChat:
				_ = conn.WriteJSON(Message{Type: TypeResult, ID: req.ID})
			case TypeEquip:
				_ = conn.WriteJSON(Message{Type: TypeResult, ID: req.ID, Error: "item not in inventory"})
			}
		}
	})

	s, err := client.Connect(context.Background(), opts())
	require.NoError(t, err)

	connect := <-requests
	assert.Equal(t, TypeConnect, connect.Type)
	var cp ConnectPayload
	require.NoError(t, json.Unmarshal(connect.Payload, &cp))
	assert.Equal(t, "mc.example.org", cp.Host)
	assert.Equal(t, "keeper", cp.Username)
	assert.True(t, cp.HideErrors)

	assert.IsType(t, game.LoginEvent{}, nextEvent(t, s))
	assert.Equal(t, game.HealthEvent{Health: 18, Food: 13, Saturation: 1.5}, nextEvent(t, s))
	assert.Equal(t, game.ChatEvent{Username: "alex", Message: "hi"}, nextEvent(t, s))
	assert.Equal(t, game.WhisperEvent{Username: "sam", Message: "psst"}, nextEvent(t, s))

	assert.Equal(t, 13, s.Player().Food)
	require.Len(t, s.Inventory(), 1)
	foods, err := s.Foods()
	require.NoError(t, err)
	assert.True(t, foods.IsFood("cooked_beef"))
	assert.False(t, foods.IsFood("rotten_flesh"))

	require.NoError(t, s.Chat(context.Background(), "hello world"))
	chatReq := <-requests
	assert.Equal(t, TypeChat, chatReq.Type)
	assert.JSONEq(t, `{"text":"hello world"}`, string(chatReq.Payload))

	err = s.Equip(context.Background(), game.Item{Name: "bread", Slot: 36}, game.SlotHand)
	assert.ErrorIs(t, err, game.ErrActionFailed)

	require.NoError(t, s.Disconnect())
	require.NoError(t, s.Disconnect())

	events := drainUntilClosed(t, s)
	require.NotEmpty(t, events)
	assert.Equal(t, game.EndEvent{Reason: game.ReasonSocketClosed}, events[len(events)-1])

	assert.ErrorIs(t, s.Chat(context.Background(), "late"), game.ErrSessionUnavailable)
}

func TestActionsBeforeLoginAreUnavailable(t *testing.T) {
	client := startBridge(t, func(t *testing.T, conn *websocket.Conn) {
		var connect Message
		_ = conn.ReadJSON(&connect)
		time.Sleep(200 * time.Millisecond)
	})

	s, err := client.Connect(context.Background(), opts())
	require.NoError(t, err)
	defer s.Disconnect()

	assert.ErrorIs(t, s.SetJumping(context.Background(), true), game.ErrSessionUnavailable)
	_, err = s.Foods()
	assert.ErrorIs(t, err, game.ErrRegistryUnavailable)
}

func TestBridgeEndEventCarriesReason(t *testing.T) {
	client := startBridge(t, func(t *testing.T, conn *websocket.Conn) {
		var connect Message
		_ = conn.ReadJSON(&connect)
		_ = sendEvent(conn, EventLogin, nil)
		_ = sendEvent(conn, EventKicked, KickedPayload{Reason: "idle for too long", LoggedIn: true})
		_ = sendEvent(conn, EventEnd, EndPayload{Reason: "disconnect.timeout"})
		time.Sleep(200 * time.Millisecond)
	})

	s, err := client.Connect(context.Background(), opts())
	require.NoError(t, err)

	events := drainUntilClosed(t, s)
	require.Len(t, events, 3)
	assert.Equal(t, game.KickedEvent{Reason: "idle for too long", LoggedIn: true}, events[1])
	assert.Equal(t, game.EndEvent{Reason: "disconnect.timeout"}, events[2])
	require.NoError(t, s.Disconnect())
}

func TestLostBridgeReportsErrorThenEnd(t *testing.T) {
	client := startBridge(t, func(t *testing.T, conn *websocket.Conn) {
		var connect Message
		_ = conn.ReadJSON(&connect)
		_ = sendEvent(conn, EventLogin, nil)
	})

	s, err := client.Connect(context.Background(), opts())
	require.NoError(t, err)

	events := drainUntilClosed(t, s)
	require.Len(t, events, 3)
	assert.IsType(t, game.ErrorEvent{}, events[1])
	assert.Equal(t, game.EndEvent{Reason: reasonBridge}, events[2])
}

func TestConnectFailsWhenBridgeIsDown(t *testing.T) {
	client := NewClient("ws://127.0.0.1:1/ws", time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err := client.Connect(context.Background(), opts())
	assert.Error(t, err)
}
