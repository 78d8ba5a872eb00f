package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
)

// Console is the input and output surface shared by a shell and all of
// its modes. Informational output goes to out, errors go to errOut.
type Console struct {
	in     LineReader
	out    io.Writer
	errOut io.Writer
	yes    bool
	closed bool
	theme  theme
	errs   theme
	logger *zap.Logger
}

type ConsoleOption func(*Console)

// WithYes turns on yes-to-all: every Approve succeeds without asking.
func WithYes(yes bool) ConsoleOption {
	return func(c *Console) { c.yes = yes }
}

func WithLogger(l *zap.Logger) ConsoleOption {
	return func(c *Console) { c.logger = l }
}

func NewConsole(in LineReader, out, errOut io.Writer, opts ...ConsoleOption) *Console {
	c := &Console{
		in:     in,
		out:    out,
		errOut: errOut,
		theme:  newTheme(lipgloss.NewRenderer(out)),
		errs:   newTheme(lipgloss.NewRenderer(errOut)),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Console) Out() io.Writer { return c.out }
func (c *Console) YesToAll() bool { return c.yes }

func (c *Console) Println(a ...any) {
	fmt.Fprintln(c.out, a...)
}

func (c *Console) Printf(format string, a ...any) {
	fmt.Fprintf(c.out, format, a...)
}

// Errorf writes one styled line to the error stream.
func (c *Console) Errorf(format string, a ...any) {
	fmt.Fprintln(c.errOut, c.errs.Error.Render(fmt.Sprintf(format, a...)))
}

// Eprintln writes to the error stream without styling.
func (c *Console) Eprintln(a ...any) {
	fmt.Fprintln(c.errOut, a...)
}

type completer interface {
	SetCompletions(words []string)
}

// ReadLine reads one line from the underlying reader. completions are
// offered to readers that support completion.
func (c *Console) ReadLine(ctx context.Context, prompt string, completions ...string) (string, error) {
	if cr, ok := c.in.(completer); ok {
		cr.SetCompletions(completions)
	}
	line, err := c.in.ReadLine(ctx, prompt)
	c.closed = errors.Is(err, io.EOF)
	return line, err
}

// Closed reports whether the last read hit the end of input.
// answerReader is implemented by readers that can take a reply without
// recording it in the command history.
type answerReader interface {
	ReadAnswer(ctx context.Context, prompt string) (string, error)
}

func (c *Console) readAnswer(ctx context.Context, prompt string) (string, error) {
	ar, ok := c.in.(answerReader)
	if !ok {
		return c.ReadLine(ctx, prompt)
	}
	if cr, ok := c.in.(completer); ok {
		cr.SetCompletions(nil)
	}
	line, err := ar.ReadAnswer(ctx, prompt)
	c.closed = errors.Is(err, io.EOF)
	return line, err
}

func (c *Console) Closed() bool { return c.closed }

// Confirm asks a yes/no question. An empty answer, end of input or an
// interrupt yields def; unrecognized answers ask again.
func (c *Console) Confirm(ctx context.Context, question string, def bool) bool {
	prompt := question + " [y/n] "
	for {
		answer, err := c.readAnswer(ctx, prompt)
		if errors.Is(err, ErrLineTooLong) {
			continue
		}
		if err != nil {
			if errors.Is(err, ErrInterrupt) {
				c.Println("^C")
			}
			c.logger.Debug("confirmation defaulted", zap.String("question", question), zap.Bool("answer", def), zap.Error(err))
			return def
		}
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "y", "yes":
			c.logger.Debug("confirmed", zap.String("question", question))
			return true
		case "n", "no":
			c.logger.Debug("declined", zap.String("question", question))
			return false
		case "":
			return def
		}
	}
}

// Approve gates a destructive operation. It succeeds without asking when
// yes-to-all is on or force is set, otherwise it asks with a "no" default.
func (c *Console) Approve(ctx context.Context, question string, force bool) bool {
	if c.yes || force {
		return true
	}
	return c.Confirm(ctx, question, false)
}
