package command

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Line
	}{
		{in: "", want: Line{Kind: KindEmpty}},
		{in: "   \t", want: Line{Kind: KindEmpty}},
		{in: "hello world", want: Line{Kind: KindChat, Text: "hello world"}},
		{in: "  padded  ", want: Line{Kind: KindChat, Text: "padded"}},
		{in: "//gamemode creative", want: Line{Kind: KindPassthrough, Text: "/gamemode creative"}},
		{in: "///x", want: Line{Kind: KindPassthrough, Text: "//x"}},
		{in: "/Interval 5000", want: Line{Kind: KindCommand, Name: "interval", Args: []string{"5000"}}},
		{in: "/status", want: Line{Kind: KindCommand, Name: "status", Args: []string{}}},
		{in: "/", want: Line{Kind: KindCommand}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.in))
		})
	}
}

type recorder struct {
	chats []string
	calls []string
}

func newTestRouter(t *testing.T, rec *recorder) *Router {
	t.Helper()
	r := NewRouter(func(_ context.Context, text string) error {
		rec.chats = append(rec.chats, text)
		return nil
	})
	require.NoError(t, r.Register(
		Command{Name: "status", Aliases: []string{"s", "info"}, Help: "Show status", Run: func(_ context.Context, args []string, _ io.Writer) error {
			rec.calls = append(rec.calls, "status")
			return nil
		}},
		Command{Name: "jump", Aliases: []string{"j"}, Help: "Jump once", Run: func(context.Context, []string, io.Writer) error {
			rec.calls = append(rec.calls, "jump")
			return nil
		}},
	))
	return r
}

func TestHandleRoutesLines(t *testing.T) {
	rec := &recorder{}
	r := newTestRouter(t, rec)
	ctx := context.Background()
	var out bytes.Buffer

	require.NoError(t, r.Handle(ctx, "hello world", &out))
	require.NoError(t, r.Handle(ctx, "//gamemode creative", &out))
	require.NoError(t, r.Handle(ctx, "", &out))
	require.NoError(t, r.Handle(ctx, "/INFO", &out))
	require.NoError(t, r.Handle(ctx, "/j", &out))

	assert.Equal(t, []string{"hello world", "/gamemode creative"}, rec.chats)
	assert.Equal(t, []string{"status", "jump"}, rec.calls)
}

func TestUnknownCommandHasNoSideEffect(t *testing.T) {
	rec := &recorder{}
	r := newTestRouter(t, rec)

	err := r.Handle(context.Background(), "/fly high", io.Discard)
	assert.ErrorIs(t, err, ErrUnknownCommand)
	assert.Empty(t, rec.chats)
	assert.Empty(t, rec.calls)

	assert.ErrorIs(t, r.Handle(context.Background(), "/", io.Discard), ErrInvalidInput)
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := newTestRouter(t, &recorder{})
	noop := func(context.Context, []string, io.Writer) error { return nil }

	assert.Error(t, r.Register(Command{Name: "Status", Run: noop}))
	assert.Error(t, r.Register(Command{Name: "scan", Aliases: []string{"s"}, Run: noop}))
	assert.Error(t, r.Register(Command{Name: "noop"}))
}

func TestWriteHelp(t *testing.T) {
	r := newTestRouter(t, &recorder{})

	var all bytes.Buffer
	require.NoError(t, r.WriteHelp(&all, ""))
	assert.Contains(t, all.String(), "/status (/s, /info)")
	assert.Contains(t, all.String(), "/jump (/j)")

	var one bytes.Buffer
	require.NoError(t, r.WriteHelp(&one, "j"))
	assert.Contains(t, one.String(), "Jump once")

	assert.ErrorIs(t, r.WriteHelp(io.Discard, "nope"), ErrUnknownCommand)
}
