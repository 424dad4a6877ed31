// Package command turns operator console lines into bot commands or chat.
package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrInvalidInput   = errors.New("invalid input")
)

type Kind int

const (
	KindEmpty Kind = iota
	KindCommand
	KindPassthrough
	KindChat
)

// Line is a classified console line. Name and Args are set for commands,
// Text for chat and passthrough.
type Line struct {
	Kind Kind
	Name string
	Args []string
	Text string
}

// Parse classifies a raw console line. "//x" is sent to the server as "/x",
// "/x" is a bot command and anything else non-blank is chat.
func Parse(raw string) Line {
	line := strings.TrimSpace(raw)
	switch {
	case line == "":
		return Line{Kind: KindEmpty}
	case strings.HasPrefix(line, "//"):
		return Line{Kind: KindPassthrough, Text: line[1:]}
	case strings.HasPrefix(line, "/"):
		fields := strings.Fields(line[1:])
		if len(fields) == 0 {
			return Line{Kind: KindCommand}
		}
		return Line{Kind: KindCommand, Name: strings.ToLower(fields[0]), Args: fields[1:]}
	default:
		return Line{Kind: KindChat, Text: line}
	}
}

// Handler runs a command. Replies go to out.
type Handler func(ctx context.Context, args []string, out io.Writer) error

type Command struct {
	Name    string
	Aliases []string
	Usage   string
	Help    string
	Run     Handler
}

// ChatSender delivers chat and server passthrough text.
type ChatSender func(ctx context.Context, text string) error

type Router struct {
	chat     ChatSender
	commands []Command
	index    map[string]int
}

func NewRouter(chat ChatSender) *Router {
	return &Router{
		chat:  chat,
		index: make(map[string]int),
	}
}

// Register adds commands. Names and aliases must be unique.
func (r *Router) Register(cmds ...Command) error {
	for _, c := range cmds {
		name := strings.ToLower(c.Name)
		if name == "" || c.Run == nil {
			return fmt.Errorf("command %q: name and handler are required", c.Name)
		}
		if _, dup := r.index[name]; dup {
			return fmt.Errorf("command %q registered twice", name)
		}
		for _, a := range c.Aliases {
			if _, dup := r.index[strings.ToLower(a)]; dup {
				return fmt.Errorf("alias %q of %q already in use", a, name)
			}
		}

		c.Name = name
		r.commands = append(r.commands, c)
		pos := len(r.commands) - 1
		r.index[name] = pos
		for _, a := range c.Aliases {
			r.index[strings.ToLower(a)] = pos
		}
	}
	return nil
}

// Lookup resolves a name or alias, case-insensitively.
func (r *Router) Lookup(name string) (Command, bool) {
	pos, ok := r.index[strings.ToLower(name)]
	if !ok {
		return Command{}, false
	}
	return r.commands[pos], true
}

func (r *Router) Commands() []Command {
	return append([]Command(nil), r.commands...)
}

// Handle parses and executes one console line.
func (r *Router) Handle(ctx context.Context, raw string, out io.Writer) error {
	line := Parse(raw)
	switch line.Kind {
	case KindEmpty:
		return nil
	case KindChat, KindPassthrough:
		return r.chat(ctx, line.Text)
	}

	if line.Name == "" {
		return fmt.Errorf("%w: missing command name", ErrInvalidInput)
	}
	cmd, ok := r.Lookup(line.Name)
	if !ok {
		return fmt.Errorf("%w: /%s (try /help)", ErrUnknownCommand, line.Name)
	}
	return cmd.Run(ctx, line.Args, out)
}

// WriteHelp prints the command list, or the details of one command.
func (r *Router) WriteHelp(out io.Writer, name string) error {
	if name != "" {
		cmd, ok := r.Lookup(strings.TrimPrefix(name, "/"))
		if !ok {
			return fmt.Errorf("%w: /%s", ErrUnknownCommand, name)
		}
		fmt.Fprintf(out, "/%s %s\n  %s\n", cmd.Name, cmd.Usage, cmd.Help)
		if len(cmd.Aliases) > 0 {
			fmt.Fprintf(out, "  aliases: /%s\n", strings.Join(cmd.Aliases, ", /"))
		}
		return nil
	}

	fmt.Fprintln(out, "Commands:")
	for _, cmd := range r.commands {
		label := "/" + cmd.Name
		if len(cmd.Aliases) > 0 {
			label += " (/" + strings.Join(cmd.Aliases, ", /") + ")"
		}
		fmt.Fprintf(out, "  %-28s %s\n", label, cmd.Help)
	}
	fmt.Fprintln(out, "Lines without a slash are sent as chat; start with // to send a server command.")
	return nil
}

// Usage formats an ErrInvalidInput for a command's usage line.
func Usage(cmd, usage string) error {
	return fmt.Errorf("%w: usage /%s %s", ErrInvalidInput, cmd, usage)
}
