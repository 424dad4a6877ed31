package config

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/idlekeeper/idlekeeper/internal/game"
)

// Runtime holds the settings operators may change while the bot is running.
// Everything else in Config is fixed at startup.
type Runtime struct {
	mu            sync.RWMutex
	autoReconnect bool
	antiIdle      bool
	jumpInterval  time.Duration
	autoEat       bool
	foodThreshold int
	bannedFood    map[string]struct{}
}

func NewRuntime(cfg *Config) *Runtime {
	banned := make(map[string]struct{}, len(cfg.AutoEat.BannedFood))
	for _, name := range cfg.AutoEat.BannedFood {
		banned[game.ItemName(name)] = struct{}{}
	}
	return &Runtime{
		autoReconnect: cfg.Reconnect.Enabled,
		antiIdle:      cfg.AntiIdle.Enabled,
		jumpInterval:  cfg.JumpInterval(),
		autoEat:       cfg.AutoEat.Enabled,
		foodThreshold: cfg.AutoEat.Threshold,
		bannedFood:    banned,
	}
}

func (r *Runtime) AutoReconnect() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.autoReconnect
}

func (r *Runtime) ToggleAutoReconnect() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.autoReconnect = !r.autoReconnect
	return r.autoReconnect
}

func (r *Runtime) AntiIdle() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.antiIdle
}

func (r *Runtime) ToggleAntiIdle() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.antiIdle = !r.antiIdle
	return r.antiIdle
}

func (r *Runtime) JumpInterval() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.jumpInterval
}

func (r *Runtime) SetJumpInterval(d time.Duration) {
	r.mu.Lock()
	r.jumpInterval = d
	r.mu.Unlock()
}

func (r *Runtime) AutoEat() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.autoEat
}

func (r *Runtime) ToggleAutoEat() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.autoEat = !r.autoEat
	return r.autoEat
}

func (r *Runtime) FoodThreshold() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.foodThreshold
}

func (r *Runtime) SetFoodThreshold(threshold int) error {
	if threshold < 0 || threshold > MaxFoodThreshold {
		return fmt.Errorf("threshold must be between 0 and %d", MaxFoodThreshold)
	}
	r.mu.Lock()
	r.foodThreshold = threshold
	r.mu.Unlock()
	return nil
}

func (r *Runtime) IsBanned(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.bannedFood[game.ItemName(name)]
	return ok
}

func (r *Runtime) BannedFood() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.bannedFood))
	for name := range r.bannedFood {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
