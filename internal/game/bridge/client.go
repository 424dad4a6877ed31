package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/idlekeeper/idlekeeper/internal/game"
)

const (
	writeTimeout          = 10 * time.Second
	pongTimeout           = 60 * time.Second
	pingInterval          = 30 * time.Second
	eventBuffer           = 64
	reasonBridge          = "bridgeLost"
	defaultRequestTimeout = 15 * time.Second
)

// Client connects to a protocol bridge over a WebSocket. The bridge speaks the
// game protocol and exposes it as JSON events and requests.
type Client struct {
	url            string
	header         http.Header
	dialer         *websocket.Dialer
	requestTimeout time.Duration
	logger         *slog.Logger
}

func NewClient(url string, requestTimeout time.Duration, logger *slog.Logger) *Client {
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}
	return &Client{
		url:            url,
		header:         http.Header{},
		dialer:         websocket.DefaultDialer,
		requestTimeout: requestTimeout,
		logger:         logger,
	}
}

func (c *Client) Connect(ctx context.Context, opts game.ConnectOptions) (game.Session, error) {
	conn, _, err := c.dialer.DialContext(ctx, c.url, c.header)
	if err != nil {
		return nil, fmt.Errorf("dialing bridge %s: %w", c.url, err)
	}

	s := newSession(conn, opts, c.requestTimeout, c.logger)
	payload, err := json.Marshal(ConnectPayload{
		Host:       opts.Host,
		Port:       opts.Port,
		Username:   opts.Username,
		Auth:       opts.Auth,
		Version:    opts.Version,
		HideErrors: !opts.Verbose,
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("encoding connect request: %w", err)
	}
	if err := s.write(Message{Type: TypeConnect, ID: s.id, Payload: payload}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("requesting connect to %s: %w", opts.Address(), err)
	}

	go s.readLoop()
	go s.pingLoop()

	return s, nil
}

type Session struct {
	id             string
	opts           game.ConnectOptions
	conn           *websocket.Conn
	requestTimeout time.Duration
	logger         *slog.Logger

	writeMu sync.Mutex // serialises all conn writes

	mu        sync.Mutex
	pending   map[string]chan Message
	player    game.PlayerState
	inventory []game.Item
	foods     game.FoodSet
	live      bool
	closed    bool

	events chan game.Event
	done   chan struct{}
}

func newSession(conn *websocket.Conn, opts game.ConnectOptions, requestTimeout time.Duration, logger *slog.Logger) *Session {
	id := uuid.NewString()
	return &Session{
		id:             id,
		opts:           opts,
		conn:           conn,
		requestTimeout: requestTimeout,
		logger:         logger.With(slog.String("session", id)),
		pending:        make(map[string]chan Message),
		events:         make(chan game.Event, eventBuffer),
		done:           make(chan struct{}),
	}
}

func (s *Session) ID() string                { return s.id }
func (s *Session) Username() string          { return s.opts.Username }
func (s *Session) Events() <-chan game.Event { return s.events }

func (s *Session) Player() game.PlayerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.player
}

func (s *Session) Inventory() []game.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]game.Item, len(s.inventory))
	copy(items, s.inventory)
	return items
}

func (s *Session) Foods() (game.FoodRegistry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.foods == nil {
		return nil, game.ErrRegistryUnavailable
	}
	return s.foods, nil
}

func (s *Session) Disconnect() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.live = false
	s.mu.Unlock()

	// Best effort: ask the bridge to leave the server before the socket goes away.
	_ = s.write(Message{Type: TypeQuit, ID: uuid.NewString()})

	s.writeMu.Lock()
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeTimeout))
	s.writeMu.Unlock()

	if err := s.conn.Close(); err != nil {
		s.logger.Debug("Closing bridge connection", slog.Any("error", err))
	}
	return nil
}

func (s *Session) Chat(ctx context.Context, text string) error {
	return s.call(ctx, TypeChat, ChatPayload{Text: text})
}

func (s *Session) SetJumping(ctx context.Context, jumping bool) error {
	return s.call(ctx, TypeControl, ControlPayload{Control: "jump", State: jumping})
}

func (s *Session) Equip(ctx context.Context, item game.Item, slot game.Slot) error {
	return s.call(ctx, TypeEquip, EquipPayload{Item: item.Name, Slot: item.Slot, Destination: string(slot)})
}

func (s *Session) Consume(ctx context.Context) error {
	return s.call(ctx, TypeConsume, struct{}{})
}

func (s *Session) Respawn(ctx context.Context) error {
	return s.call(ctx, TypeRespawn, struct{}{})
}

func (s *Session) call(ctx context.Context, typ string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: encoding %s: %w", game.ErrActionFailed, typ, err)
	}

	s.mu.Lock()
	if !s.live || s.closed {
		s.mu.Unlock()
		return game.ErrSessionUnavailable
	}
	id := uuid.NewString()
	reply := make(chan Message, 1)
	s.pending[id] = reply
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
	}()

	if err := s.write(Message{Type: typ, ID: id, Payload: raw}); err != nil {
		return fmt.Errorf("%w: %s: %w", game.ErrActionFailed, typ, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()

	select {
	case resp, ok := <-reply:
		if !ok {
			return game.ErrSessionUnavailable
		}
		if resp.Error != "" {
			return fmt.Errorf("%w: %s: %s", game.ErrActionFailed, typ, resp.Error)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %s: %w", game.ErrActionFailed, typ, ctx.Err())
	}
}

func (s *Session) write(msg Message) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteJSON(msg)
}

func (s *Session) readLoop() {
	s.finish(s.read())
}

// read consumes bridge messages until the session ends and returns the end reason.
func (s *Session) read() string {
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})
	s.conn.SetReadDeadline(time.Now().Add(pongTimeout))

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			local := s.closed
			s.mu.Unlock()
			if local {
				return game.ReasonSocketClosed
			}
			s.emit(game.ErrorEvent{Err: fmt.Errorf("bridge connection lost: %w", err)})
			return reasonBridge
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Debug("Discarding malformed bridge message", slog.Any("error", err))
			continue
		}

		switch msg.Type {
		case TypeResult:
			s.resolve(msg)
		case TypeEvent:
			if reason, ended := s.handleEvent(msg); ended {
				return reason
			}
		default:
			s.logger.Debug("Unknown bridge message type", slog.String("type", msg.Type))
		}
	}
}

func (s *Session) resolve(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if reply, ok := s.pending[msg.ID]; ok {
		reply <- msg
		delete(s.pending, msg.ID)
	}
}

func (s *Session) handleEvent(msg Message) (string, bool) {
	switch msg.Event {
	case EventLogin:
		s.mu.Lock()
		s.live = !s.closed
		s.mu.Unlock()
		s.emit(game.LoginEvent{})
	case EventSpawn:
		var p MovePayload
		if decode(msg.Payload, &p) == nil {
			s.mu.Lock()
			s.player.Position = p.Position
			s.mu.Unlock()
		}
		s.emit(game.SpawnEvent{})
	case EventChat, EventWhisper:
		var p MessageEvent
		if err := decode(msg.Payload, &p); err != nil {
			s.logger.Debug("Malformed chat event", slog.Any("error", err))
			return "", false
		}
		if msg.Event == EventWhisper {
			s.emit(game.WhisperEvent{Username: p.Username, Message: p.Message})
		} else {
			s.emit(game.ChatEvent{Username: p.Username, Message: p.Message})
		}
	case EventKicked:
		var p KickedPayload
		_ = decode(msg.Payload, &p)
		s.emit(game.KickedEvent{Reason: p.Reason, LoggedIn: p.LoggedIn})
	case EventError:
		var p ErrorPayload
		_ = decode(msg.Payload, &p)
		s.emit(game.ErrorEvent{Err: errors.New(p.Message)})
	case EventEnd:
		var p EndPayload
		_ = decode(msg.Payload, &p)
		return p.Reason, true
	case EventDeath:
		s.emit(game.DeathEvent{})
	case EventHealth:
		var p HealthPayload
		if err := decode(msg.Payload, &p); err != nil {
			s.logger.Debug("Malformed health event", slog.Any("error", err))
			return "", false
		}
		s.mu.Lock()
		s.player.Health = p.Health
		s.player.Food = p.Food
		s.player.Saturation = p.Saturation
		s.mu.Unlock()
		s.emit(game.HealthEvent{Health: p.Health, Food: p.Food, Saturation: p.Saturation})
	case EventMove:
		var p MovePayload
		if decode(msg.Payload, &p) == nil {
			s.mu.Lock()
			s.player.Position = p.Position
			if p.Dimension != "" {
				s.player.Dimension = p.Dimension
			}
			s.mu.Unlock()
		}
	case EventInventory:
		var p InventoryPayload
		if decode(msg.Payload, &p) == nil {
			s.mu.Lock()
			s.inventory = p.Items
			s.mu.Unlock()
		}
	case EventRegistry:
		var p RegistryPayload
		if decode(msg.Payload, &p) == nil && len(p.Foods) > 0 {
			s.mu.Lock()
			s.foods = game.NewFoodSet(p.Foods...)
			s.mu.Unlock()
		}
	default:
		s.logger.Debug("Unknown bridge event", slog.String("event", msg.Event))
	}
	return "", false
}

// finish tears the session down exactly once: pending requests fail, the End
// event is emitted and the event channel is closed.
func (s *Session) finish(reason string) {
	s.mu.Lock()
	s.closed = true
	s.live = false
	for id, reply := range s.pending {
		close(reply)
		delete(s.pending, id)
	}
	s.mu.Unlock()

	close(s.done)
	s.conn.Close()

	s.emit(game.EndEvent{Reason: reason})
	close(s.events)
}

func (s *Session) emit(ev game.Event) {
	s.events <- ev
}

func (s *Session) pingLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.writeMu.Lock()
			err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
			s.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return errors.New("empty payload")
	}
	return json.Unmarshal(raw, v)
}
