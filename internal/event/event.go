// Package event carries bot notifications to remote surfaces.
package event

import "time"

type Event interface {
	Message() string
	Account() string
	OccurredAt() time.Time
}

type BaseEvent struct {
	message    string
	account    string
	occurredAt time.Time
}

// Text builds the common part of every event.
func Text(account, message string) BaseEvent {
	return BaseEvent{
		message:    message,
		account:    account,
		occurredAt: time.Now(),
	}
}

func (b BaseEvent) Message() string       { return b.message }
func (b BaseEvent) Account() string       { return b.account }
func (b BaseEvent) OccurredAt() time.Time { return b.occurredAt }

type SessionStartedEvent struct {
	BaseEvent
	Address string
}

func SessionStarted(be BaseEvent, address string) SessionStartedEvent {
	return SessionStartedEvent{BaseEvent: be, Address: address}
}

type SessionEndedEvent struct {
	BaseEvent
	Reason string
}

func SessionEnded(be BaseEvent, reason string) SessionEndedEvent {
	return SessionEndedEvent{BaseEvent: be, Reason: reason}
}

type KickedEvent struct {
	BaseEvent
	Reason string
}

func Kicked(be BaseEvent, reason string) KickedEvent {
	return KickedEvent{BaseEvent: be, Reason: reason}
}

type DeathEvent struct {
	BaseEvent
	Deaths int64
}

func Death(be BaseEvent, deaths int64) DeathEvent {
	return DeathEvent{BaseEvent: be, Deaths: deaths}
}

type ReconnectScheduledEvent struct {
	BaseEvent
	Reason string
	Delay  time.Duration
}

func ReconnectScheduled(be BaseEvent, reason string, delay time.Duration) ReconnectScheduledEvent {
	return ReconnectScheduledEvent{BaseEvent: be, Reason: reason, Delay: delay}
}

type FoodEatenEvent struct {
	BaseEvent
	Item string
}

func FoodEaten(be BaseEvent, item string) FoodEatenEvent {
	return FoodEatenEvent{BaseEvent: be, Item: item}
}

type ChatEvent struct {
	BaseEvent
	Username string
	Text     string
	Whisper  bool
}

func Chat(be BaseEvent, username, text string, whisper bool) ChatEvent {
	return ChatEvent{BaseEvent: be, Username: username, Text: text, Whisper: whisper}
}
