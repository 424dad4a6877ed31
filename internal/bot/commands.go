package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/idlekeeper/idlekeeper/internal/antiidle"
	"github.com/idlekeeper/idlekeeper/internal/command"
	"github.com/idlekeeper/idlekeeper/internal/config"
	"github.com/idlekeeper/idlekeeper/internal/game"
)

// Commands that only make sense on the local terminal.
var consoleOnly = map[string]bool{"clear": true, "cls": true}

func remoteAllowed(name string) bool {
	return !consoleOnly[strings.ToLower(name)]
}

func (b *Bot) commands() []command.Command {
	return []command.Command{
		{Name: "help", Usage: "[command]", Help: "List commands or describe one", Run: b.cmdHelp},
		{Name: "status", Aliases: []string{"s", "info"}, Help: "Show connection, player and statistics", Run: b.cmdStatus},
		{Name: "jump", Aliases: []string{"j"}, Help: "Jump once", Run: b.cmdJump},
		{Name: "toggle", Aliases: []string{"t"}, Usage: "<afk|eat|reconnect>", Help: "Flip anti-idle, auto-eat or auto-reconnect", Run: b.cmdToggle},
		{Name: "interval", Usage: "[ms]", Help: "Show or set the anti-idle interval", Run: b.cmdInterval},
		{Name: "disconnect", Aliases: []string{"dc"}, Help: "Leave the server and stay offline", Run: b.cmdDisconnect},
		{Name: "reconnect", Aliases: []string{"rc"}, Help: "Drop the session and connect again", Run: b.cmdReconnect},
		{Name: "clear", Aliases: []string{"cls"}, Help: "Clear the screen", Run: b.cmdClear},
		{Name: "exit", Help: "Disconnect and quit", Run: b.cmdExit},
		{Name: "eat", Help: "Eat now, ignoring the threshold", Run: b.cmdEat},
		{Name: "threshold", Usage: "[0-20]", Help: "Show or set the auto-eat food threshold", Run: b.cmdThreshold},
		{Name: "respawn", Help: "Respawn after death", Run: b.cmdRespawn},
		{Name: "say", Usage: "<text>", Help: "Send text as chat", Run: b.cmdSay},
	}
}

func (b *Bot) cmdHelp(_ context.Context, args []string, out io.Writer) error {
	name := ""
	if len(args) > 0 {
		name = args[0]
	}
	return b.router.WriteHelp(out, name)
}

func (b *Bot) cmdStatus(_ context.Context, _ []string, out io.Writer) error {
	info := b.Info()
	stats := b.Stats()
	rt := b.runtime

	var sb strings.Builder
	fmt.Fprintf(&sb, "Status:     %s\n", info.Status)
	fmt.Fprintf(&sb, "Server:     %s\n", info.Address)
	fmt.Fprintf(&sb, "Account:    %s\n", info.Username)
	if s, ok := b.liveSession(); ok {
		p := s.Player()
		fmt.Fprintf(&sb, "Uptime:     %s\n", info.Uptime())
		fmt.Fprintf(&sb, "Health:     %.1f/20\n", p.Health)
		fmt.Fprintf(&sb, "Food:       %d/20 (saturation %.1f)\n", p.Food, p.Saturation)
		fmt.Fprintf(&sb, "Position:   %s\n", p.Position)
	}
	fmt.Fprintf(&sb, "Anti-idle:  %s every %dms\n", onOff(rt.AntiIdle()), rt.JumpInterval().Milliseconds())
	fmt.Fprintf(&sb, "Auto-eat:   %s below %d\n", onOff(rt.AutoEat()), rt.FoodThreshold())
	fmt.Fprintf(&sb, "Reconnect:  %s (%s)\n", onOff(rt.AutoReconnect()), b.reconnect.State())
	fmt.Fprintf(&sb, "Messages:   %d received, %d sent\n", stats.Received, stats.Sent)
	fmt.Fprintf(&sb, "Deaths:     %d\n", stats.Deaths)
	fmt.Fprintf(&sb, "Reconnects: %d\n", stats.Reconnects)
	fmt.Fprintf(&sb, "Food eaten: %d\n", stats.Eaten)

	_, err := io.WriteString(out, sb.String())
	return err
}

func (b *Bot) cmdJump(_ context.Context, _ []string, out io.Writer) error {
	if err := b.driver.Pulse(); err != nil {
		if errors.Is(err, antiidle.ErrNoSession) {
			return fmt.Errorf("cannot jump: %w", game.ErrSessionUnavailable)
		}
		return err
	}
	fmt.Fprintln(out, "Jumped")
	return nil
}

func (b *Bot) cmdToggle(_ context.Context, args []string, out io.Writer) error {
	if len(args) != 1 {
		return command.Usage("toggle", "<afk|eat|reconnect>")
	}

	switch strings.ToLower(args[0]) {
	case "afk", "antiidle", "jump":
		enabled, err := b.toggleAntiIdle()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Anti-idle %s\n", onOff(enabled))
	case "eat", "autoeat", "food":
		fmt.Fprintf(out, "Auto-eat %s\n", onOff(b.runtime.ToggleAutoEat()))
	case "reconnect", "rc", "autoreconnect":
		fmt.Fprintf(out, "Auto-reconnect %s\n", onOff(b.runtime.ToggleAutoReconnect()))
	default:
		return command.Usage("toggle", "<afk|eat|reconnect>")
	}
	return nil
}

func (b *Bot) cmdInterval(_ context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		fmt.Fprintf(out, "Anti-idle interval is %dms\n", b.runtime.JumpInterval().Milliseconds())
		return nil
	}

	ms, err := strconv.Atoi(args[0])
	if err != nil {
		return command.Usage("interval", "[ms]")
	}
	interval := time.Duration(ms) * time.Millisecond
	if err := antiidle.ValidateInterval(interval); err != nil {
		return fmt.Errorf("%w: %w", command.ErrInvalidInput, err)
	}

	restarted, err := b.setJumpInterval(interval)
	if err != nil {
		return err
	}
	if restarted {
		fmt.Fprintf(out, "Anti-idle interval set to %dms, restarted\n", ms)
	} else {
		fmt.Fprintf(out, "Anti-idle interval set to %dms\n", ms)
	}
	return nil
}

func (b *Bot) cmdDisconnect(_ context.Context, _ []string, out io.Writer) error {
	if b.disconnect() {
		fmt.Fprintln(out, "Disconnected, auto-reconnect suspended until /reconnect")
	} else {
		fmt.Fprintln(out, "Not connected")
	}
	return nil
}

func (b *Bot) cmdReconnect(_ context.Context, _ []string, out io.Writer) error {
	if !b.forceReconnect() {
		fmt.Fprintln(out, "Reconnect already pending")
		return nil
	}
	fmt.Fprintln(out, "Reconnecting")
	return nil
}

func (b *Bot) cmdClear(context.Context, []string, io.Writer) error {
	b.console.Clear()
	b.banner()
	return nil
}

func (b *Bot) cmdExit(context.Context, []string, io.Writer) error {
	b.Exit()
	return nil
}

func (b *Bot) cmdEat(_ context.Context, _ []string, out io.Writer) error {
	if _, ok := b.liveSession(); !ok {
		return fmt.Errorf("cannot eat: %w", game.ErrSessionUnavailable)
	}
	if !b.eater.Eat() {
		fmt.Fprintln(out, "Already eating")
		return nil
	}
	fmt.Fprintln(out, "Looking for food")
	return nil
}

func (b *Bot) cmdThreshold(_ context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		fmt.Fprintf(out, "Auto-eat threshold is %d\n", b.runtime.FoodThreshold())
		return nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return command.Usage("threshold", fmt.Sprintf("[0-%d]", config.MaxFoodThreshold))
	}
	if err := b.runtime.SetFoodThreshold(n); err != nil {
		return fmt.Errorf("%w: %w", command.ErrInvalidInput, err)
	}
	fmt.Fprintf(out, "Auto-eat threshold set to %d\n", n)
	return nil
}

func (b *Bot) cmdRespawn(ctx context.Context, _ []string, out io.Writer) error {
	s, ok := b.liveSession()
	if !ok {
		return fmt.Errorf("cannot respawn: %w", game.ErrSessionUnavailable)
	}
	ctx, cancel := context.WithTimeout(ctx, actionTimeout)
	defer cancel()
	if err := s.Respawn(ctx); err != nil {
		return fmt.Errorf("respawn failed: %w", err)
	}
	fmt.Fprintln(out, "Respawned")
	return nil
}

func (b *Bot) cmdSay(ctx context.Context, args []string, _ io.Writer) error {
	if len(args) == 0 {
		return command.Usage("say", "<text>")
	}
	return b.sendChat(ctx, strings.Join(args, " "))
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
