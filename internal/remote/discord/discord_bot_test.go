package discord

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

	"github.com/idlekeeper/idlekeeper/internal/event"
	"github.com/idlekeeper/idlekeeper/internal/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandLine(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{in: "!status", want: "/status", ok: true},
		{in: "  !interval 5000 ", want: "/interval 5000", ok: true},
		{in: "!", ok: false},
		{in: "!! hey", ok: false},
		{in: "! status", ok: false},
		{in: "status", ok: false},
	}
	for _, tt := range tests {
		got, ok := commandLine(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestCodeBlockTruncates(t *testing.T) {
	block := codeBlock(strings.Repeat("x", 3000))
	assert.LessOrEqual(t, len(block), maxMessageLength+20)
	assert.True(t, strings.HasPrefix(block, "```\n"))
}

func TestWebhookReceivesEvents(t *testing.T) {
	received := make(chan string, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Content string `json:"content"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		received <- body.Content
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	b, err := NewBot(Options{WebhookURL: srv.URL}, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, b.Handle(ctx, event.SessionEnded(event.Text("Keeper", ""), game.ReasonSocketClosed)))
	require.NoError(t, b.Handle(ctx, event.Chat(event.Text("Keeper", ""), "Steve", "hi", false)))
	require.NoError(t, b.Handle(ctx, event.Kicked(event.Text("Keeper", ""), "idle")))

	select {
	case got := <-received:
		assert.Equal(t, "**[Keeper]** kicked: idle", got)
	case <-time.After(time.Second):
		t.Fatal("webhook was not called")
	}
	assert.Empty(t, received, "socket close and unrelayed chat are not published")
}

func TestNewBotNeedsTokenOrWebhook(t *testing.T) {
	_, err := NewBot(Options{}, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
}
