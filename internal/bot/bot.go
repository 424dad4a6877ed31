package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/idlekeeper/idlekeeper/internal/antiidle"
	"github.com/idlekeeper/idlekeeper/internal/command"
	"github.com/idlekeeper/idlekeeper/internal/config"
	"github.com/idlekeeper/idlekeeper/internal/console"
	"github.com/idlekeeper/idlekeeper/internal/event"
	"github.com/idlekeeper/idlekeeper/internal/game"
	"github.com/idlekeeper/idlekeeper/internal/health"
	"github.com/idlekeeper/idlekeeper/internal/reconnect"
)

const (
	defaultExitGrace = 500 * time.Millisecond
	actionTimeout    = 10 * time.Second

	reasonManual        = "manual"
	reasonConnectFailed = "connectFailed"
)

var ErrConnectFailed = errors.New("connect failed")

// Bot owns the game session and everything that reacts to it. Game events,
// timers and operator lines arrive on different goroutines; shared state is
// kept behind mu and no other component is called while mu is held.
type Bot struct {
	ctx     context.Context
	cfg     *config.Config
	runtime *config.Runtime
	client  game.Client
	console *console.Console
	events  *event.Listener
	logger  *slog.Logger

	driver    *antiidle.Driver
	eater     *health.FoodManager
	reconnect *reconnect.Machine
	router    *command.Router
	stats     Stats

	// idleMu keeps the anti-idle setting and the driver in step.
	idleMu sync.Mutex

	mu        sync.RWMutex
	session   game.Session
	status    Status
	startedAt time.Time

	exiting   atomic.Bool
	exitOnce  sync.Once
	exitGrace time.Duration
	done      chan struct{}
}

func New(ctx context.Context, cfg *config.Config, client game.Client, con *console.Console, listener *event.Listener, logger *slog.Logger) (*Bot, error) {
	b := &Bot{
		ctx:       ctx,
		cfg:       cfg,
		runtime:   config.NewRuntime(cfg),
		client:    client,
		console:   con,
		events:    listener,
		logger:    logger,
		status:    Disconnected,
		exitGrace: defaultExitGrace,
		done:      make(chan struct{}),
	}

	b.driver = antiidle.NewDriver(func() (antiidle.Jumper, bool) {
		return b.liveSession()
	}, logger)

	b.eater = health.NewFoodManager(b.runtime, func() (health.Eater, bool) {
		return b.liveSession()
	}, logger)
	b.eater.OnEaten = b.onEaten
	b.eater.OnFailed = func(err error) { b.console.Error(console.TagAutoEat, err) }

	b.reconnect = reconnect.New(ctx, b.connect, b.runtime, logger, reconnect.Options{
		Delay:       cfg.Reconnect.Delay,
		ManualDelay: cfg.Reconnect.ManualDelay,
		OnScheduled: b.onReconnectScheduled,
		OnFailure:   func(err error) { b.console.Error(console.TagReconnect, err) },
	})

	b.router = command.NewRouter(b.sendChat)
	if err := b.router.Register(b.commands()...); err != nil {
		return nil, fmt.Errorf("registering commands: %w", err)
	}

	return b, nil
}

// Start prints the banner and opens the first session. A failed first
// connect is retried like any other lost session.
func (b *Bot) Start() {
	b.banner()
	activate, err := b.connect(b.ctx)
	if err != nil {
		b.console.Error(console.TagSession, err)
		b.reconnect.Trigger(reasonConnectFailed)
		return
	}
	if activate != nil {
		activate()
	}
}

func (b *Bot) Done() <-chan struct{} {
	return b.done
}

func (b *Bot) Stats() StatsSnapshot {
	return b.stats.Snapshot()
}

func (b *Bot) Runtime() *config.Runtime {
	return b.runtime
}

func (b *Bot) Info() SessionInfo {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return SessionInfo{
		Status:    b.status,
		Address:   b.cfg.ConnectOptions().Address(),
		Username:  b.cfg.Server.Username,
		StartedAt: b.startedAt,
	}
}

// HandleLine runs one operator console line and redraws the prompt once.
func (b *Bot) HandleLine(line string) {
	b.console.Batch(func() {
		defer b.recoverPanic("console line")
		if err := b.router.Handle(b.ctx, line, b.console.Writer()); err != nil {
			b.console.Error(console.TagCommand, err)
		}
	})
}

// Execute runs a line on behalf of a remote surface, writing replies to out.
func (b *Bot) Execute(ctx context.Context, line string, out io.Writer) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("command panicked: %v", r)
			b.logger.Error("Remote command panicked", slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
		}
	}()
	if p := command.Parse(line); p.Kind == command.KindCommand && !remoteAllowed(p.Name) {
		return fmt.Errorf("%w: /%s is only available on the console", command.ErrInvalidInput, p.Name)
	}
	return b.router.Handle(ctx, line, out)
}

// Exit stops everything and closes Done after a short grace period so
// pending output can flush. Further calls are no-ops.
func (b *Bot) Exit() {
	b.exitOnce.Do(func() {
		b.exiting.Store(true)
		b.console.SetExiting()
		b.console.Info(console.TagSession, "Exiting...")

		b.reconnect.Disable()
		s := b.detach(nil)
		b.stopAntiIdle()
		if s != nil {
			if err := s.Disconnect(); err != nil {
				b.logger.Warn("Error disconnecting", slog.Any("error", err))
			}
		}
		b.setStatus(Disconnected)

		b.logger.Info("Exit sequence started", slog.Duration("grace", b.exitGrace))
		time.AfterFunc(b.exitGrace, func() { close(b.done) })
	})
}

func (b *Bot) Exiting() bool {
	return b.exiting.Load()
}

// connect opens a new session. It is the reconnect machine's Connector; the
// returned func starts delivering the session's events.
func (b *Bot) connect(ctx context.Context) (func(), error) {
	if b.Exiting() {
		return nil, nil
	}

	opts := b.cfg.ConnectOptions()
	b.setStatus(Connecting)
	b.console.Info(console.TagSession, "Connecting to %s as %s (%s)", opts.Address(), opts.Username, opts.Auth)

	s, err := b.client.Connect(ctx, opts)
	if err != nil {
		b.setStatus(Disconnected)
		return nil, fmt.Errorf("%w: %s: %w", ErrConnectFailed, opts.Address(), err)
	}

	b.mu.Lock()
	if b.exiting.Load() {
		b.mu.Unlock()
		_ = s.Disconnect()
		return nil, nil
	}
	previous := b.session
	b.session = s
	b.startedAt = time.Time{}
	b.mu.Unlock()

	if previous != nil {
		_ = previous.Disconnect()
	}

	b.logger.Info("Session requested", slog.String("session", s.ID()), slog.String("address", opts.Address()))
	return func() { go b.pump(s) }, nil
}

// pump feeds one session's events to handle, in order, until the session ends.
func (b *Bot) pump(s game.Session) {
	for ev := range s.Events() {
		b.dispatch(s, ev)
	}
	b.logger.Debug("Session event stream closed", slog.String("session", s.ID()))
}

func (b *Bot) dispatch(s game.Session, ev game.Event) {
	defer b.recoverPanic("session event " + ev.Kind())

	if !b.isCurrent(s) {
		b.logger.Debug("Ignoring event from stale session", slog.String("session", s.ID()), slog.String("event", ev.Kind()))
		return
	}

	switch e := ev.(type) {
	case game.LoginEvent:
		b.onLogin(s)
	case game.SpawnEvent:
		b.onSpawn()
	case game.ChatEvent:
		b.onChat(s, e.Username, e.Message, false)
	case game.WhisperEvent:
		b.onChat(s, e.Username, e.Message, true)
	case game.KickedEvent:
		b.onKicked(s, e)
	case game.ErrorEvent:
		b.logger.Warn("Session error", slog.Any("error", e.Err))
		b.console.Error(console.TagSession, e.Err)
	case game.EndEvent:
		b.onEnd(s, e.Reason)
	case game.DeathEvent:
		b.onDeath(s)
	case game.HealthEvent:
		b.logger.Debug("Health changed", slog.String("state", e.String()))
		b.eater.HandleFoodChange(e.Food)
	}
}

func (b *Bot) onLogin(s game.Session) {
	b.mu.Lock()
	b.status = Connected
	b.startedAt = time.Now()
	b.mu.Unlock()

	addr := b.cfg.ConnectOptions().Address()
	b.console.Info(console.TagSession, "Logged in to %s as %s", addr, s.Username())
	b.publish(event.SessionStarted(event.Text(s.Username(), "Logged in"), addr))
}

func (b *Bot) onSpawn() {
	b.console.Info(console.TagSession, "Spawned in world")

	b.idleMu.Lock()
	interval := b.runtime.JumpInterval()
	var err error
	enabled := b.runtime.AntiIdle()
	if enabled {
		err = b.driver.Start(interval)
	}
	b.idleMu.Unlock()

	switch {
	case err != nil:
		b.console.Error(console.TagAntiIdle, err)
	case enabled:
		b.console.Info(console.TagAntiIdle, "Jumping every %dms", interval.Milliseconds())
	}
}

// toggleAntiIdle flips the anti-idle setting and starts or stops the driver
// to match, as one step.
func (b *Bot) toggleAntiIdle() (bool, error) {
	b.idleMu.Lock()
	defer b.idleMu.Unlock()

	enabled := b.runtime.ToggleAntiIdle()
	if !enabled {
		b.driver.Stop()
		return false, nil
	}
	if _, live := b.liveSession(); live {
		return true, b.driver.Start(b.runtime.JumpInterval())
	}
	return true, nil
}

// stopAntiIdle stops the driver; callers detach the session first so a
// concurrent toggle cannot start it again.
func (b *Bot) stopAntiIdle() {
	b.idleMu.Lock()
	b.driver.Stop()
	b.idleMu.Unlock()
}

// setJumpInterval stores a new interval and restarts a running driver with it.
func (b *Bot) setJumpInterval(interval time.Duration) (bool, error) {
	b.idleMu.Lock()
	defer b.idleMu.Unlock()

	b.runtime.SetJumpInterval(interval)
	return b.driver.Restart(interval)
}

func (b *Bot) onChat(s game.Session, username, message string, whisper bool) {
	if username == s.Username() {
		return
	}
	b.stats.received.Add(1)
	if whisper {
		b.console.Whisper(username, message)
	} else {
		b.console.Chat(username, message)
	}
	b.publish(event.Chat(event.Text(s.Username(), message), username, message, whisper))
}

func (b *Bot) onKicked(s game.Session, e game.KickedEvent) {
	b.detach(s)
	b.stopAntiIdle()

	b.console.Info(console.TagSession, "Kicked: %s", e.Reason)
	b.publish(event.Kicked(event.Text(s.Username(), "Kicked from server"), e.Reason))
	b.reconnect.Trigger("kicked")
}

func (b *Bot) onEnd(s game.Session, reason string) {
	b.detach(s)
	b.stopAntiIdle()

	b.console.Info(console.TagSession, "Disconnected (%s)", reason)
	b.publish(event.SessionEnded(event.Text(s.Username(), "Session ended"), reason))
	if reason == game.ReasonSocketClosed {
		return
	}
	b.reconnect.Trigger(reason)
}

func (b *Bot) onDeath(s game.Session) {
	deaths := b.stats.deaths.Add(1)
	b.console.Info(console.TagDeath, "Died (%d deaths so far)", deaths)
	b.publish(event.Death(event.Text(s.Username(), "Character died"), deaths))

	if !b.cfg.AutoRespawn {
		return
	}
	go func() {
		defer b.recoverPanic("respawn")
		ctx, cancel := context.WithTimeout(b.ctx, actionTimeout)
		defer cancel()
		if err := s.Respawn(ctx); err != nil {
			b.console.Error(console.TagDeath, fmt.Errorf("respawn failed: %w", err))
			return
		}
		b.console.Info(console.TagDeath, "Respawned")
	}()
}

func (b *Bot) onEaten(item game.Item) {
	b.stats.eaten.Add(1)
	b.console.Info(console.TagAutoEat, "Ate %s", item.Name)
	b.publish(event.FoodEaten(event.Text(b.cfg.Server.Username, "Ate food"), item.Name))
}

func (b *Bot) onReconnectScheduled(reason string, delay time.Duration) {
	b.stats.reconnects.Add(1)
	b.setStatus(Reconnecting)
	b.console.Info(console.TagReconnect, "Reconnecting in %s (%s)", delay, reason)
	b.publish(event.ReconnectScheduled(event.Text(b.cfg.Server.Username, "Reconnect scheduled"), reason, delay))
}

// sendChat is the router's chat path for both plain chat and server passthrough.
func (b *Bot) sendChat(ctx context.Context, text string) error {
	s, ok := b.liveSession()
	if !ok {
		return fmt.Errorf("cannot send chat: %w", game.ErrSessionUnavailable)
	}
	ctx, cancel := context.WithTimeout(ctx, actionTimeout)
	defer cancel()
	if err := s.Chat(ctx, text); err != nil {
		return fmt.Errorf("cannot send chat: %w", err)
	}
	b.stats.sent.Add(1)
	return nil
}

// disconnect drops the session on operator request and keeps it dropped.
func (b *Bot) disconnect() bool {
	b.reconnect.Disable()
	s := b.detach(nil)
	b.stopAntiIdle()
	b.setStatus(Disconnected)
	if s == nil {
		return false
	}
	if err := s.Disconnect(); err != nil {
		b.logger.Warn("Error disconnecting", slog.Any("error", err))
	}
	return true
}

// forceReconnect drops the current session and schedules a fresh one.
func (b *Bot) forceReconnect() bool {
	s := b.detach(nil)
	b.stopAntiIdle()
	if s != nil {
		if err := s.Disconnect(); err != nil {
			b.logger.Warn("Error disconnecting", slog.Any("error", err))
		}
	}
	return b.reconnect.Force(reasonManual)
}

// liveSession returns the current session once it has logged in.
func (b *Bot) liveSession() (game.Session, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.session == nil || b.status != Connected {
		return nil, false
	}
	return b.session, true
}

func (b *Bot) isCurrent(s game.Session) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.session == s
}

// detach forgets s, or whatever session is current when s is nil, and
// returns the session that was dropped.
func (b *Bot) detach(s game.Session) game.Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session == nil || (s != nil && b.session != s) {
		return nil
	}
	dropped := b.session
	b.session = nil
	b.startedAt = time.Time{}
	if b.status != Reconnecting {
		b.status = Disconnected
	}
	return dropped
}

func (b *Bot) setStatus(st Status) {
	b.mu.Lock()
	b.status = st
	b.mu.Unlock()
}

func (b *Bot) publish(e event.Event) {
	if b.events != nil {
		b.events.Send(e)
	}
}

func (b *Bot) banner() {
	b.console.Banner("idlekeeper "+config.Version,
		fmt.Sprintf("Server: %s  Account: %s", b.cfg.ConnectOptions().Address(), b.cfg.Server.Username),
		"Type /help for commands. Plain text is sent as chat.",
	)
}

func (b *Bot) recoverPanic(where string) {
	if r := recover(); r != nil {
		b.logger.Error("Recovered from panic", slog.String("in", where), slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
		b.console.Error(console.TagSession, fmt.Errorf("internal error in %s: %v", where, r))
	}
}
