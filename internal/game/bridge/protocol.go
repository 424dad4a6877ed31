package bridge

import (
	"encoding/json"

	"github.com/idlekeeper/idlekeeper/internal/game"
)

// Message types exchanged with the protocol bridge. Requests carry an ID that
// the bridge echoes back in a "result" message; events are unsolicited.
const (
	TypeConnect    = "connect"
	TypeQuit       = "quit"
	TypeChat       = "chat"
	TypeControl    = "setControlState"
	TypeEquip      = "equip"
	TypeConsume    = "consume"
	TypeRespawn    = "respawn"
	TypeResult     = "result"
	TypeEvent      = "event"
	EventLogin     = "login"
	EventSpawn     = "spawn"
	EventChat      = "chat"
	EventWhisper   = "whisper"
	EventKicked    = "kicked"
	EventError     = "error"
	EventEnd       = "end"
	EventDeath     = "death"
	EventHealth    = "health"
	EventMove      = "move"
	EventInventory = "inventory"
	EventRegistry  = "registry"
)

type Message struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Event   string          `json:"event,omitempty"`
	Error   string          `json:"error,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type ConnectPayload struct {
	Host       string `json:"host"`
	Port       int    `json:"port"`
	Username   string `json:"username"`
	Auth       string `json:"auth"`
	Version    string `json:"version,omitempty"`
	HideErrors bool   `json:"hideErrors"`
}

type ChatPayload struct {
	Text string `json:"text"`
}

type ControlPayload struct {
	Control string `json:"control"`
	State   bool   `json:"state"`
}

type EquipPayload struct {
	Item        string `json:"item"`
	Slot        int    `json:"slot"`
	Destination string `json:"destination"`
}

type MessageEvent struct {
	Username string `json:"username"`
	Message  string `json:"message"`
}

type KickedPayload struct {
	Reason   string `json:"reason"`
	LoggedIn bool   `json:"loggedIn"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type EndPayload struct {
	Reason string `json:"reason"`
}

type HealthPayload struct {
	Health     float64 `json:"health"`
	Food       int     `json:"food"`
	Saturation float64 `json:"foodSaturation"`
}

type MovePayload struct {
	Position  game.Position `json:"position"`
	Dimension string        `json:"dimension,omitempty"`
}

type InventoryPayload struct {
	Items []game.Item `json:"items"`
}

type RegistryPayload struct {
	Foods []string `json:"foods"`
}
