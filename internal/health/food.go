package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync/atomic"
	"time"

	"github.com/idlekeeper/idlekeeper/internal/game"
)

const eatTimeout = 10 * time.Second

var ErrNoFood = errors.New("no edible food in inventory")

// FallbackFoods is matched by substring against item identifiers when the
// session has no food registry (older game data).
var FallbackFoods = []string{
	"apple", "bread", "cooked_beef", "cooked_chicken", "cooked_cod", "cooked_mutton",
	"cooked_porkchop", "cooked_rabbit", "cooked_salmon", "cookie", "golden_apple",
	"enchanted_golden_apple", "golden_carrot", "melon_slice", "mushroom_stew",
	"beetroot_soup", "rabbit_stew", "baked_potato", "beef", "carrot", "chicken", "cod",
	"mutton", "porkchop", "potato", "rabbit", "salmon", "dried_kelp", "sweet_berries",
}

// Eater is the part of a game session auto-eat needs.
type Eater interface {
	Inventory() []game.Item
	Foods() (game.FoodRegistry, error)
	Equip(ctx context.Context, item game.Item, slot game.Slot) error
	Consume(ctx context.Context) error
}

type Settings interface {
	AutoEat() bool
	FoodThreshold() int
	IsBanned(name string) bool
}

type EaterSource func() (Eater, bool)

// FoodManager eats when the food bar drops below the configured threshold.
// Only one eat sequence runs at a time; triggers arriving while one is in
// flight are dropped.
type FoodManager struct {
	settings Settings
	sessions EaterSource
	logger   *slog.Logger
	eating   atomic.Bool

	OnEaten  func(item game.Item) // called after a successful sequence
	OnFailed func(err error)      // called when a started sequence fails
}

func NewFoodManager(settings Settings, sessions EaterSource, logger *slog.Logger) *FoodManager {
	return &FoodManager{
		settings: settings,
		sessions: sessions,
		logger:   logger,
	}
}

// HandleFoodChange is fed every health update. It reports whether an eat
// sequence was started.
func (m *FoodManager) HandleFoodChange(food int) bool {
	if !m.settings.AutoEat() {
		return false
	}
	if m.eating.Load() {
		return false
	}
	if food >= m.settings.FoodThreshold() {
		return false
	}
	return m.Eat()
}

// Eat starts an eat sequence regardless of the threshold.
func (m *FoodManager) Eat() bool {
	s, ok := m.sessions()
	if !ok {
		return false
	}
	if !m.eating.CompareAndSwap(false, true) {
		m.logger.Debug("Eat already in progress, dropping trigger")
		return false
	}

	go m.eat(s)
	return true
}

func (m *FoodManager) Eating() bool {
	return m.eating.Load()
}

func (m *FoodManager) eat(s Eater) {
	released := false
	release := func() {
		if !released {
			released = true
			m.eating.Store(false)
		}
	}
	defer release()
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("Eat sequence panicked", slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
			release()
			m.failed(fmt.Errorf("eat sequence panicked: %v", r))
		}
	}()

	item, err := m.pick(s)
	if err != nil {
		release()
		m.failed(err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), eatTimeout)
	defer cancel()

	if err := s.Equip(ctx, item, game.SlotHand); err != nil {
		release()
		m.failed(fmt.Errorf("equipping %s: %w", item.Name, err))
		return
	}
	if err := s.Consume(ctx); err != nil {
		release()
		m.failed(fmt.Errorf("eating %s: %w", item.Name, err))
		return
	}

	release()
	m.logger.Info("Ate food", slog.String("item", item.Name))
	if m.OnEaten != nil {
		m.OnEaten(item)
	}
}

func (m *FoodManager) pick(s Eater) (game.Item, error) {
	registry, err := s.Foods()
	if err != nil {
		m.logger.Debug("Food registry unavailable, using fallback list", slog.Any("error", err))
		registry = nil
	}
	item, ok := SelectFood(s.Inventory(), registry, m.settings.IsBanned)
	if !ok {
		return game.Item{}, ErrNoFood
	}
	return item, nil
}

func (m *FoodManager) failed(err error) {
	m.logger.Warn("Auto-eat failed", slog.Any("error", err))
	if m.OnFailed != nil {
		m.OnFailed(err)
	}
}

// SelectFood returns the first edible, non-banned item in inventory order.
// A nil registry falls back to FallbackFoods.
func SelectFood(items []game.Item, registry game.FoodRegistry, banned func(string) bool) (game.Item, bool) {
	for _, it := range items {
		name := game.ItemName(it.Name)
		if name == "" || (banned != nil && banned(name)) {
			continue
		}
		if isEdible(name, registry) {
			return it, true
		}
	}
	return game.Item{}, false
}

func isEdible(name string, registry game.FoodRegistry) bool {
	if registry != nil {
		return registry.IsFood(name)
	}
	for _, food := range FallbackFoods {
		if strings.Contains(name, food) {
			return true
		}
	}
	return false
}
