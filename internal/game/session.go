package game

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	DefaultPort = 25565

	AuthOffline   = "offline"
	AuthMicrosoft = "microsoft"
)

var (
	ErrSessionUnavailable  = errors.New("session unavailable")
	ErrActionFailed        = errors.New("action failed")
	ErrRegistryUnavailable = errors.New("food registry unavailable")
)

// ConnectOptions identifies the account and server for a new session.
type ConnectOptions struct {
	Host     string
	Port     int
	Username string
	Auth     string
	Version  string
	// Verbose asks the bridge to forward low-level transport warnings
	// instead of swallowing them.
	Verbose bool
}

func (o ConnectOptions) Address() string {
	return fmt.Sprintf("%s:%d", o.Host, o.Port)
}

// Client opens sessions against a game server.
type Client interface {
	// Connect starts a session and returns as soon as the connection has been
	// requested. Login and spawn are reported later through Session.Events.
	Connect(ctx context.Context, opts ConnectOptions) (Session, error)
}

// Session is one connection lifetime. All action methods fail with
// ErrSessionUnavailable once the session is gone.
type Session interface {
	ID() string
	Username() string
	Events() <-chan Event

	// Disconnect requests a clean close. Calling it on a closed session is a no-op.
	Disconnect() error

	Chat(ctx context.Context, text string) error
	SetJumping(ctx context.Context, jumping bool) error
	Equip(ctx context.Context, item Item, slot Slot) error
	Consume(ctx context.Context) error
	Respawn(ctx context.Context) error

	Player() PlayerState
	Inventory() []Item
	Foods() (FoodRegistry, error)
}

type Slot string

const (
	SlotHand    Slot = "hand"
	SlotOffHand Slot = "off-hand"
)

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (p Position) String() string {
	return fmt.Sprintf("%.1f, %.1f, %.1f", p.X, p.Y, p.Z)
}

type PlayerState struct {
	Health     float64  `json:"health"`
	Food       int      `json:"food"`
	Saturation float64  `json:"saturation"`
	Position   Position `json:"position"`
	Dimension  string   `json:"dimension,omitempty"`
}

type Item struct {
	Name  string `json:"name"`
	Slot  int    `json:"slot"`
	Count int    `json:"count"`
}

// ItemName drops the default "minecraft:" namespace from an item identifier.
func ItemName(name string) string {
	return strings.TrimPrefix(strings.TrimSpace(name), "minecraft:")
}

// FoodRegistry tells edible item identifiers apart, as reported by the game data.
type FoodRegistry interface {
	IsFood(name string) bool
}

// FoodSet is a FoodRegistry backed by a set of identifiers.
type FoodSet map[string]struct{}

func NewFoodSet(names ...string) FoodSet {
	s := make(FoodSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

func (s FoodSet) IsFood(name string) bool {
	_, ok := s[name]
	return ok
}
