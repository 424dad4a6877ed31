package reconnect

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

const (
	DefaultDelay       = 10 * time.Second
	DefaultManualDelay = 2 * time.Second
)

type State int

const (
	Idle State = iota
	Reconnecting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Reconnecting:
		return "reconnecting"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Connector starts a fresh session. It is called without any lock held. The
// returned activate func, when not nil, is run once the machine is back in
// Idle, so events of the new session are free to schedule another attempt.
type Connector func(ctx context.Context) (activate func(), err error)

type Settings interface {
	AutoReconnect() bool
}

type Options struct {
	Delay       time.Duration
	ManualDelay time.Duration

	// OnScheduled runs every time the machine enters Reconnecting.
	OnScheduled func(reason string, delay time.Duration)
	// OnFailure runs when a connect attempt returns an error, before the retry.
	OnFailure func(err error)
}

// Machine schedules reconnect attempts. At most one attempt is pending at any
// time; triggers that arrive while one is pending are dropped.
type Machine struct {
	ctx      context.Context
	connect  Connector
	settings Settings
	logger   *slog.Logger
	opts     Options

	mu     sync.Mutex
	state  State
	should bool
	forced bool
	gen    uint64
	timer  *time.Timer
}

func New(ctx context.Context, connect Connector, settings Settings, logger *slog.Logger, opts Options) *Machine {
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	if opts.ManualDelay <= 0 {
		opts.ManualDelay = DefaultManualDelay
	}
	return &Machine{
		ctx:      ctx,
		connect:  connect,
		settings: settings,
		logger:   logger,
		opts:     opts,
		should:   true,
	}
}

// Trigger schedules a reconnect after a session ended remotely. It reports
// whether an attempt was scheduled.
func (m *Machine) Trigger(reason string) bool {
	if !m.settings.AutoReconnect() {
		m.logger.Info("Auto-reconnect disabled, not reconnecting", slog.String("reason", reason))
		return false
	}
	return m.schedule(reason, m.opts.Delay, false)
}

// Force schedules a reconnect requested by the operator. It ignores the
// auto-reconnect setting and turns should-reconnect back on.
func (m *Machine) Force(reason string) bool {
	m.Enable()
	return m.schedule(reason, m.opts.ManualDelay, true)
}

func (m *Machine) schedule(reason string, delay time.Duration, forced bool) bool {
	m.mu.Lock()
	if !m.should {
		m.mu.Unlock()
		m.logger.Debug("Reconnect suppressed", slog.String("reason", reason))
		return false
	}
	if m.state == Reconnecting {
		m.mu.Unlock()
		m.logger.Info("Reconnect already pending", slog.String("reason", reason))
		return false
	}

	m.state = Reconnecting
	m.forced = forced
	m.gen++
	gen := m.gen
	m.timer = time.AfterFunc(delay, func() { m.fire(gen, reason) })
	m.mu.Unlock()

	m.logger.Info("Reconnect scheduled", slog.String("reason", reason), slog.Duration("delay", delay))
	if m.opts.OnScheduled != nil {
		m.opts.OnScheduled(reason, delay)
	}
	return true
}

func (m *Machine) fire(gen uint64, reason string) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("Reconnect attempt panicked", slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
			m.settle(gen)
		}
	}()

	m.mu.Lock()
	if gen != m.gen || m.state != Reconnecting {
		m.mu.Unlock()
		return
	}
	m.timer = nil
	if !m.should || m.ctx.Err() != nil {
		m.state = Idle
		m.mu.Unlock()
		m.logger.Info("Reconnect cancelled before connecting")
		return
	}
	forced := m.forced
	m.mu.Unlock()

	activate, err := m.connect(m.ctx)
	current := m.settle(gen)
	if activate != nil {
		activate()
	}
	if !current {
		return
	}
	if err == nil {
		m.logger.Info("Reconnected")
		return
	}

	m.logger.Warn("Reconnect attempt failed", slog.Any("error", err))
	if m.opts.OnFailure != nil {
		m.opts.OnFailure(err)
	}
	if forced {
		m.schedule(reason, m.opts.Delay, true)
		return
	}
	m.Trigger(reason)
}

// settle returns to Idle if the attempt identified by gen is still current.
func (m *Machine) settle(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return false
	}
	m.state = Idle
	return true
}

// Disable stops further reconnects and cancels a pending one.
func (m *Machine) Disable() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.should = false
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	if m.state == Reconnecting {
		m.gen++
		m.state = Idle
	}
}

func (m *Machine) Enable() {
	m.mu.Lock()
	m.should = true
	m.mu.Unlock()
}

func (m *Machine) ShouldReconnect() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.should
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}
