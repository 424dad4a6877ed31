package event

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListenerDeliversToEveryHandler(t *testing.T) {
	l := NewListener(slog.New(slog.NewTextHandler(io.Discard, nil)))

	var mu sync.Mutex
	var got []string
	record := func(prefix string) Handler {
		return func(_ context.Context, e Event) error {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, prefix+":"+e.Message())
			return nil
		}
	}
	l.Register(record("a"))
	l.Register(func(context.Context, Event) error { panic("broken handler") })
	l.Register(func(context.Context, Event) error { return errors.New("failed") })
	l.Register(record("b"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Listen(ctx) }()

	l.Send(Kicked(Text("Keeper", "Kicked from server"), "idle"))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"a:Kicked from server", "b:Kicked from server"}, got)

	cancel()
	assert.NoError(t, <-done)
}

func TestSendNeverBlocks(t *testing.T) {
	l := NewListener(slog.New(slog.NewTextHandler(io.Discard, nil)))

	finished := make(chan struct{})
	go func() {
		for i := 0; i < queueSize*2; i++ {
			l.Send(FoodEaten(Text("Keeper", "Ate"), "bread"))
		}
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("Send blocked on a full queue")
	}
}
