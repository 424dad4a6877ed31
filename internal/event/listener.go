package event

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
)

const queueSize = 100

type Handler func(ctx context.Context, e Event) error

// Listener fans events out to the registered handlers from a single goroutine.
type Listener struct {
	logger *slog.Logger
	events chan Event

	mu       sync.RWMutex
	handlers []Handler
}

func NewListener(logger *slog.Logger) *Listener {
	return &Listener{
		logger: logger,
		events: make(chan Event, queueSize),
	}
}

func (l *Listener) Register(h Handler) {
	l.mu.Lock()
	l.handlers = append(l.handlers, h)
	l.mu.Unlock()
}

// Send queues an event. It never blocks; when the queue is full the event is dropped.
func (l *Listener) Send(e Event) {
	select {
	case l.events <- e:
	default:
		l.logger.Warn("Event queue full, dropping event", slog.String("message", e.Message()))
	}
}

func (l *Listener) Listen(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-l.events:
			l.dispatch(ctx, e)
		}
	}
}

func (l *Listener) dispatch(ctx context.Context, e Event) {
	l.mu.RLock()
	handlers := append([]Handler(nil), l.handlers...)
	l.mu.RUnlock()

	for _, h := range handlers {
		if err := l.safeHandle(ctx, h, e); err != nil {
			l.logger.Error("Error running event handler", slog.String("event", fmt.Sprintf("%T", e)), slog.Any("error", err))
		}
	}
}

func (l *Listener) safeHandle(ctx context.Context, h Handler, e Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v\n%s", r, debug.Stack())
		}
	}()
	return h(ctx, e)
}
