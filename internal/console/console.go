// Package console renders operator-facing output and reads operator input.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/lipgloss"
)

const (
	TagSession   = "Session"
	TagReconnect = "Reconnect"
	TagAntiIdle  = "AntiIdle"
	TagAutoEat   = "AutoEat"
	TagCommand   = "Command"
	TagChat      = "Chat"
	TagDeath     = "Death"
	TagRemote    = "Remote"

	promptText = "> "
	clearCodes = "\033[H\033[2J"
)

// Console serialises output from event goroutines and the input loop so lines
// never interleave. The prompt is redrawn after each line unless the process
// is exiting or a Batch is running.
type Console struct {
	mu       sync.Mutex
	out      io.Writer
	renderer *lipgloss.Renderer
	styles   map[string]lipgloss.Style
	errStyle lipgloss.Style
	dim      lipgloss.Style
	title    lipgloss.Style

	prompt  bool
	exiting atomic.Bool
	held    atomic.Int32
}

func New(out io.Writer, prompt bool) *Console {
	r := lipgloss.NewRenderer(out)
	tag := func(color string) lipgloss.Style {
		return r.NewStyle().Bold(true).Foreground(lipgloss.Color(color))
	}
	return &Console{
		out:      out,
		renderer: r,
		prompt:   prompt,
		styles: map[string]lipgloss.Style{
			TagSession:   tag("#5fafff"),
			TagReconnect: tag("#ffaf00"),
			TagAntiIdle:  tag("#87d787"),
			TagAutoEat:   tag("#d7af5f"),
			TagCommand:   tag("#af87ff"),
			TagChat:      tag("#d0d0d0"),
			TagDeath:     tag("#ff5f5f"),
			TagRemote:    tag("#5fd7d7"),
		},
		errStyle: r.NewStyle().Foreground(lipgloss.Color("#ff5f5f")),
		dim:      r.NewStyle().Foreground(lipgloss.Color("#808080")),
		title:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("#5fafff")),
	}
}

func (c *Console) tag(name string) string {
	style, ok := c.styles[name]
	if !ok {
		style = c.renderer.NewStyle().Bold(true)
	}
	return style.Render("[" + name + "]")
}

// Info prints a tagged line.
func (c *Console) Info(tag, format string, args ...any) {
	c.line(c.tag(tag) + " " + fmt.Sprintf(format, args...))
}

// Error prints a tagged failure.
func (c *Console) Error(tag string, err error) {
	c.line(c.tag(tag) + " " + c.errStyle.Render(err.Error()))
}

func (c *Console) Chat(username, message string) {
	c.line(fmt.Sprintf("<%s> %s", username, message))
}

func (c *Console) Whisper(username, message string) {
	c.line(fmt.Sprintf("%s <%s> %s", c.dim.Render("[Whisper]"), username, message))
}

// Print writes pre-formatted text, one console line per text line.
func (c *Console) Print(text string) {
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return
	}
	c.line(text)
}

func (c *Console) line(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.prompt {
		// Wipe the pending prompt before printing over it.
		fmt.Fprint(c.out, "\r\033[K")
	}
	fmt.Fprintln(c.out, s)
	c.promptLocked()
}

// Prompt redraws the input prompt.
func (c *Console) Prompt() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.promptLocked()
}

// Batch runs fn with the per-line prompt held back, then draws one prompt.
func (c *Console) Batch(fn func()) {
	c.held.Add(1)
	defer func() {
		c.held.Add(-1)
		c.Prompt()
	}()
	fn()
}

func (c *Console) promptLocked() {
	if c.prompt && c.held.Load() == 0 && !c.exiting.Load() {
		fmt.Fprint(c.out, promptText)
	}
}

// SetExiting suppresses every further prompt.
func (c *Console) SetExiting() {
	c.exiting.Store(true)
}

func (c *Console) Exiting() bool {
	return c.exiting.Load()
}

func (c *Console) Clear() {
	c.mu.Lock()
	fmt.Fprint(c.out, clearCodes)
	c.mu.Unlock()
}

// Banner prints the title block shown on start and after /clear.
func (c *Console) Banner(title string, lines ...string) {
	var b strings.Builder
	b.WriteString(c.title.Render(title))
	for _, l := range lines {
		b.WriteString("\n")
		b.WriteString(c.dim.Render(l))
	}
	c.line(b.String())
}

// Writer returns an io.Writer whose output is printed through the console.
func (c *Console) Writer() io.Writer {
	return writerFunc(func(p []byte) (int, error) {
		c.Print(string(p))
		return len(p), nil
	})
}

type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }

// ReadLines calls handle for every line read from r until r is exhausted or
// ctx is cancelled. Lines are handled one at a time, in order.
func ReadLines(ctx context.Context, r io.Reader, handle func(string)) error {
	lines := make(chan string)
	errs := make(chan error, 1)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		errs <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-errs:
					return err
				default:
					return nil
				}
			}
			handle(line)
		}
	}
}
