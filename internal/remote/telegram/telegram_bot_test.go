package telegram

import (
	"testing"
	"time"

	"github.com/idlekeeper/idlekeeper/internal/event"
	"github.com/idlekeeper/idlekeeper/internal/game"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeCommand(t *testing.T) {
	assert.Equal(t, "/status", normalizeCommand("/status@IdleKeeperBot"))
	assert.Equal(t, "/interval 5000", normalizeCommand(" /interval@IdleKeeperBot 5000 "))
	assert.Equal(t, "//weather clear", normalizeCommand("//weather clear"))
	assert.Equal(t, "hello", normalizeCommand("hello"))
	assert.Equal(t, "", normalizeCommand("   "))
}

func TestFormat(t *testing.T) {
	msg, ok := format(event.ReconnectScheduled(event.Text("Keeper", ""), "kicked", 10*time.Second))
	assert.True(t, ok)
	assert.Equal(t, "[Keeper] reconnecting in 10s", msg)

	_, ok = format(event.SessionEnded(event.Text("Keeper", ""), game.ReasonSocketClosed))
	assert.False(t, ok)

	_, ok = format(event.Chat(event.Text("Keeper", ""), "Steve", "hi", false))
	assert.False(t, ok, "chat is not forwarded to telegram")
}
