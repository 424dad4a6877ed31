package console

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatFormats(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf, false)

	c.Chat("Steve", "hi there")
	c.Whisper("Alex", "psst")

	assert.Equal(t, "<Steve> hi there\n[Whisper] <Alex> psst\n", buf.String())
}

func TestTaggedLines(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf, false)

	c.Info(TagReconnect, "Reconnecting in %s", "10s")
	c.Error(TagAutoEat, errors.New("no edible food in inventory"))

	assert.Equal(t, "[Reconnect] Reconnecting in 10s\n[AutoEat] no edible food in inventory\n", buf.String())
}

func TestPromptSuppressedWhileExiting(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf, true)

	c.Info(TagSession, "Connected")
	assert.True(t, strings.HasSuffix(buf.String(), promptText))

	buf.Reset()
	c.SetExiting()
	c.Info(TagSession, "Disconnected")
	c.Prompt()
	assert.NotContains(t, buf.String(), promptText)
	assert.True(t, c.Exiting())
}

func TestBatchDrawsSinglePrompt(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf, true)

	c.Batch(func() {
		fmt.Fprintln(c.Writer(), "Anti-idle interval is 1000ms")
		c.Error(TagCommand, errors.New("unknown command"))
	})

	assert.Equal(t, "\r\x1b[KAnti-idle interval is 1000ms\n\r\x1b[K[Command] unknown command\n> ", buf.String())

	buf.Reset()
	c.Batch(func() {})
	assert.Equal(t, promptText, buf.String(), "a silent command still gets its prompt")

	buf.Reset()
	c.Info(TagSession, "Connected")
	assert.Equal(t, 1, strings.Count(buf.String(), promptText))
}

func TestWriterPrintsThroughConsole(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf, false)

	fmt.Fprintf(c.Writer(), "Interval set to %dms\n", 5000)
	assert.Equal(t, "Interval set to 5000ms\n", buf.String())
}

func TestReadLines(t *testing.T) {
	var got []string
	err := ReadLines(context.Background(), strings.NewReader("hello\n/status\n\n//time set day\n"), func(line string) {
		got = append(got, line)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"hello", "/status", "", "//time set day"}, got)
}
