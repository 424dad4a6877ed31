package antiidle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	MinInterval  = 100 * time.Millisecond
	ReleaseDelay = 300 * time.Millisecond

	actionTimeout = 5 * time.Second
)

var (
	ErrIntervalTooShort = fmt.Errorf("interval must be at least %dms", MinInterval.Milliseconds())
	ErrNoSession        = errors.New("no active session")
)

// Jumper is the part of a game session the driver needs.
type Jumper interface {
	SetJumping(ctx context.Context, jumping bool) error
}

// SessionSource returns the live session, if any.
type SessionSource func() (Jumper, bool)

// Driver periodically presses and releases jump so the server does not kick
// the bot for idling. At most one ticker is alive at any time.
type Driver struct {
	sessions     SessionSource
	logger       *slog.Logger
	releaseDelay time.Duration

	mu       sync.Mutex
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

func NewDriver(sessions SessionSource, logger *slog.Logger) *Driver {
	return &Driver{
		sessions:     sessions,
		logger:       logger,
		releaseDelay: ReleaseDelay,
	}
}

func ValidateInterval(interval time.Duration) error {
	if interval < MinInterval {
		return ErrIntervalTooShort
	}
	return nil
}

// Start begins ticking every interval, replacing any running ticker.
func (d *Driver) Start(interval time.Duration) error {
	if err := ValidateInterval(interval); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.startLocked(interval)
	return nil
}

func (d *Driver) startLocked(interval time.Duration) {
	d.stopLocked()

	stop := make(chan struct{})
	done := make(chan struct{})
	d.stop = stop
	d.done = done
	d.interval = interval

	go d.loop(interval, stop, done)

	d.logger.Debug("Anti-idle started", slog.Duration("interval", interval))
}

// Stop cancels the ticker and waits for it to exit. Safe to call when stopped.
func (d *Driver) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopLocked() {
		d.logger.Debug("Anti-idle stopped")
	}
}

// Restart replaces the running ticker with one at the new interval. When the
// driver is stopped it stays stopped.
func (d *Driver) Restart(interval time.Duration) (bool, error) {
	if err := ValidateInterval(interval); err != nil {
		return false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop == nil {
		return false, nil
	}
	d.startLocked(interval)
	return true, nil
}

func (d *Driver) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stop != nil
}

func (d *Driver) Interval() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.interval
}

func (d *Driver) stopLocked() bool {
	if d.stop == nil {
		return false
	}
	close(d.stop)
	<-d.done
	d.stop = nil
	d.done = nil
	return true
}

func (d *Driver) loop(interval time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := d.Pulse(); err != nil && !errors.Is(err, ErrNoSession) {
				d.logger.Debug("Anti-idle jump failed", slog.Any("error", err))
			}
		}
	}
}

// Pulse presses jump now and releases it after the release delay without
// waiting for the release. A missing session is reported as an error so
// one-shot callers can tell the operator.
func (d *Driver) Pulse() error {
	j, ok := d.sessions()
	if !ok {
		return ErrNoSession
	}

	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()
	if err := j.SetJumping(ctx, true); err != nil {
		return fmt.Errorf("pressing jump: %w", err)
	}

	time.AfterFunc(d.releaseDelay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		if err := j.SetJumping(ctx, false); err != nil {
			d.logger.Debug("Releasing jump failed", slog.Any("error", err))
		}
	})
	return nil
}
