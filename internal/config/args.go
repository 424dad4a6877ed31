package config

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/idlekeeper/idlekeeper/internal/game"
)

var ErrUsage = errors.New("missing host or username")

// Target is the server and account given on the command line.
type Target struct {
	Host     string
	Port     int
	Username string
	Auth     string
}

// ParseArgs reads the positional arguments <host> <port> <username> <auth>.
// The port falls back to the default when omitted or not numeric, and the
// auth mode falls back to offline.
func ParseArgs(args []string) (Target, error) {
	arg := func(i int) string {
		if i < len(args) {
			return strings.TrimSpace(args[i])
		}
		return ""
	}

	t := Target{
		Host:     arg(0),
		Port:     ParsePort(arg(1)),
		Username: arg(2),
		Auth:     strings.ToLower(arg(3)),
	}
	if t.Auth == "" {
		t.Auth = game.AuthOffline
	}
	if t.Host == "" || t.Username == "" {
		return Target{}, ErrUsage
	}
	return t, nil
}

// Apply copies the target into the server section.
func (t Target) Apply(cfg *Config) {
	cfg.Server.Host = t.Host
	cfg.Server.Port = t.Port
	cfg.Server.Username = t.Username
	cfg.Server.Auth = t.Auth
}

func PrintUsage(w io.Writer, program string) {
	fmt.Fprintf(w, "Usage: %s [flags] <host> <port> <username-or-email> <auth-mode>\n\n", program)
	fmt.Fprintln(w, "Examples:")
	fmt.Fprintf(w, "  %s play.example.org 25565 Keeper offline\n", program)
	fmt.Fprintf(w, "  %s mc.example.net 25565 you@example.com microsoft\n", program)
}
