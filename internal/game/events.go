package game

import "fmt"

// ReasonSocketClosed is the end reason for a locally closed connection. It
// never triggers a reconnect.
const ReasonSocketClosed = "socketClosed"

// Event is one of the typed notifications a Session emits.
type Event interface {
	Kind() string
}

type LoginEvent struct{}

type SpawnEvent struct{}

type ChatEvent struct {
	Username string
	Message  string
}

type WhisperEvent struct {
	Username string
	Message  string
}

type KickedEvent struct {
	Reason   string
	LoggedIn bool
}

type ErrorEvent struct {
	Err error
}

type EndEvent struct {
	Reason string
}

type DeathEvent struct{}

type HealthEvent struct {
	Health     float64
	Food       int
	Saturation float64
}

func (LoginEvent) Kind() string   { return "login" }
func (SpawnEvent) Kind() string   { return "spawn" }
func (ChatEvent) Kind() string    { return "chat" }
func (WhisperEvent) Kind() string { return "whisper" }
func (KickedEvent) Kind() string  { return "kicked" }
func (ErrorEvent) Kind() string   { return "error" }
func (EndEvent) Kind() string     { return "end" }
func (DeathEvent) Kind() string   { return "death" }
func (HealthEvent) Kind() string  { return "health" }

func (e HealthEvent) String() string {
	return fmt.Sprintf("health=%.1f food=%d saturation=%.1f", e.Health, e.Food, e.Saturation)
}
