package bot

import (
	"sync/atomic"
	"time"
)

type Status string

const (
	Disconnected Status = "Disconnected"
	Connecting   Status = "Connecting"
	Connected    Status = "Connected"
	Reconnecting Status = "Reconnecting"
)

// Stats counters only ever grow; they live for the whole process.
type Stats struct {
	received   atomic.Int64
	sent       atomic.Int64
	deaths     atomic.Int64
	reconnects atomic.Int64
	eaten      atomic.Int64
}

type StatsSnapshot struct {
	Received   int64
	Sent       int64
	Deaths     int64
	Reconnects int64
	Eaten      int64
}

func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Received:   s.received.Load(),
		Sent:       s.sent.Load(),
		Deaths:     s.deaths.Load(),
		Reconnects: s.reconnects.Load(),
		Eaten:      s.eaten.Load(),
	}
}

// SessionInfo is what the status command reports about the current session.
type SessionInfo struct {
	Status    Status
	Address   string
	Username  string
	StartedAt time.Time
}

func (i SessionInfo) Uptime() time.Duration {
	if i.StartedAt.IsZero() {
		return 0
	}
	return time.Since(i.StartedAt).Truncate(time.Second)
}
