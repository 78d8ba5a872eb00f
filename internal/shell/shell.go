// Package shell implements a modal, line-oriented command shell.
//
// A Shell owns a table of commands, each with its own argument grammar,
// and may mount other shells as named modes. A line naming a mode with
// trailing text is handed to that mode as a single command; a line naming
// only the mode enters the mode's own loop until it exits. Shells share
// one Console, which carries the input reader, the output streams and the
// session-wide yes-to-all flag.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/jeanpaul/assistant/internal/grammar"
)

// Command is one registered command. A nil Spec accepts no arguments.
type Command struct {
	Name    string
	Summary string
	Spec    *grammar.Spec
	Run     func(ctx context.Context, args grammar.Args) error
}

type mode struct {
	summary string
	shell   *Shell
}

const exitQuestion = "Exit the application?"

var builtins = map[string]string{
	"help": `List available commands with "help" or detailed help with "help cmd"`,
	"exit": "Exit the application",
}

type Shell struct {
	name        string
	console     *Console
	prompt      string
	intro       string
	confirmExit bool
	sayGoodbye  bool
	commands    map[string]Command
	modes       map[string]mode
	logger      *zap.Logger
}

type Option func(*Shell)

func WithPrompt(prompt string) Option {
	return func(s *Shell) { s.prompt = prompt }
}

// WithIntro sets the text printed when the loop starts.
func WithIntro(intro string) Option {
	return func(s *Shell) { s.intro = intro }
}

// ConfirmExit controls whether leaving the loop must be confirmed.
func ConfirmExit(confirm bool) Option {
	return func(s *Shell) { s.confirmExit = confirm }
}

// SayGoodbye controls whether leaving prints "Goodbye!" or a blank line.
func SayGoodbye(say bool) Option {
	return func(s *Shell) { s.sayGoodbye = say }
}

func New(name string, console *Console, opts ...Option) *Shell {
	s := &Shell{
		name:        name,
		console:     console,
		prompt:      "(" + name + ") ",
		confirmExit: true,
		sayGoodbye:  true,
		commands:    make(map[string]Command),
		modes:       make(map[string]mode),
		logger:      console.logger.Named(name),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Shell) Name() string      { return s.name }
func (s *Shell) Prompt() string    { return s.prompt }
func (s *Shell) Console() *Console { return s.console }

func (s *Shell) taken(name string) bool {
	_, cmd := s.commands[name]
	_, mod := s.modes[name]
	_, builtin := builtins[name]
	return cmd || mod || builtin || name == "EOF" || name == "?"
}

// Register adds cmd to the shell. It panics if the name is already used.
func (s *Shell) Register(cmd Command) {
	if s.taken(cmd.Name) {
		panic(fmt.Sprintf("shell: %s: command %q registered twice", s.name, cmd.Name))
	}
	if cmd.Spec == nil {
		cmd.Spec = grammar.New(cmd.Name, cmd.Summary)
	}
	s.commands[cmd.Name] = cmd
}

// Mount registers child as a nested mode reachable under name.
func (s *Shell) Mount(name, summary string, child *Shell) {
	if s.taken(name) {
		panic(fmt.Sprintf("shell: %s: mode %q registered twice", s.name, name))
	}
	s.modes[name] = mode{summary: summary, shell: child}
}

// Names returns every name the shell answers to, sorted.
func (s *Shell) Names() []string {
	names := make([]string, 0, len(s.commands)+len(s.modes)+len(builtins))
	for name := range s.commands {
		names = append(names, name)
	}
	for name := range s.modes {
		names = append(names, name)
	}
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func splitLine(line string) (string, string) {
	if strings.HasPrefix(line, "?") {
		return "?", strings.TrimSpace(line[1:])
	}
	i := strings.IndexFunc(line, unicode.IsSpace)
	if i < 0 {
		return line, ""
	}
	return line[:i], strings.TrimSpace(line[i:])
}

// Dispatch runs a single line. stop reports that the shell asked to
// terminate. Errors returned by commands are passed through unchanged;
// grammar failures and unknown commands are reported on the console.
func (s *Shell) Dispatch(ctx context.Context, line string) (stop bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}
	name, rest := splitLine(line)
	s.logger.Debug("dispatch", zap.String("command", name))

	switch name {
	case "help", "?":
		s.help(rest)
		return false, nil
	case "exit", "EOF":
		return s.exit(ctx), nil
	}
	if cmd, ok := s.commands[name]; ok {
		return false, s.run(ctx, cmd, rest)
	}
	if m, ok := s.modes[name]; ok {
		m.shell.prompt = s.prompt + name + "> "
		if rest != "" {
			_, err := m.shell.Dispatch(ctx, rest)
			return false, err
		}
		return false, m.shell.Loop(ctx)
	}

	if suggestion, ok := Suggest(name, s.Names()); ok {
		s.console.Errorf("*** Unknown command: %s. Did you mean %q?", name, suggestion)
	} else {
		s.console.Errorf("*** Unknown command: %s", name)
	}
	return false, nil
}

func (s *Shell) run(ctx context.Context, cmd Command, rest string) error {
	args, err := cmd.Spec.Parse(rest)
	if err != nil {
		var aerr *grammar.ArgumentError
		if !errors.As(err, &aerr) {
			return err
		}
		s.logger.Debug("argument error", zap.String("command", cmd.Name), zap.Error(err))
		s.console.Errorf("%s", aerr.Message)
		s.console.Eprintln(aerr.Usage)
		return nil
	}
	if err := cmd.Run(ctx, args); err != nil {
		return fmt.Errorf("%s: %w", cmd.Name, err)
	}
	return nil
}

func (s *Shell) exit(ctx context.Context) bool {
	if s.confirmExit && !s.console.Confirm(ctx, exitQuestion, false) {
		return false
	}
	if s.sayGoodbye {
		s.console.Println("Goodbye!")
	} else {
		s.console.Println()
	}
	return true
}

// Loop prints the intro and the command listing, then reads and
// dispatches lines until the shell exits, the input ends, the context is
// cancelled or a command fails.
func (s *Shell) Loop(ctx context.Context) error {
	if s.intro != "" {
		s.console.Println(s.console.theme.Intro.Render(s.intro))
	}
	s.help("")
	s.logger.Debug("loop started", zap.String("prompt", s.prompt))
	defer s.logger.Debug("loop finished")

	for {
		line, err := s.console.ReadLine(ctx, s.prompt, s.Names()...)
		eof := errors.Is(err, io.EOF)
		switch {
		case errors.Is(err, ErrInterrupt):
			s.console.Println("^C")
			var ierr *InterruptError
			if errors.As(err, &ierr) && ierr.Pending == "" && s.console.Confirm(ctx, exitQuestion, false) {
				return nil
			}
			continue
		case errors.Is(err, ErrLineTooLong):
			s.console.Errorf("*** Line too long, the limit is %d bytes", MaxLineLength)
			continue
		case eof:
			line = "EOF"
		case err != nil:
			return err
		}

		stop, err := s.Dispatch(ctx, line)
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
		// The input ended and the exit could not be confirmed.
		if eof && s.console.Closed() {
			s.console.Println()
			return nil
		}
	}
}

func (s *Shell) help(topic string) {
	if topic == "" {
		s.directory()
		return
	}
	if cmd, ok := s.commands[topic]; ok {
		s.console.Println(cmd.Spec.Usage())
		return
	}
	if m, ok := s.modes[topic]; ok {
		s.console.Println(m.summary)
		m.shell.directory()
		return
	}
	if text, ok := builtins[topic]; ok {
		s.console.Println(text)
		return
	}
	s.console.Errorf("*** No help on %s", topic)
}

func (s *Shell) summary(name string) string {
	if cmd, ok := s.commands[name]; ok {
		return cmd.Summary
	}
	if m, ok := s.modes[name]; ok {
		return m.summary
	}
	return builtins[name]
}

func (s *Shell) directory() {
	const heading = "Documented commands (type help <topic>):"
	t := s.console.theme
	s.console.Println()
	s.console.Println(t.Heading.Render(heading))
	s.console.Println(t.Muted.Render(strings.Repeat("=", len(heading))))

	names := s.Names()
	width := 0
	for _, name := range names {
		width = max(width, len(name))
	}
	for _, name := range names {
		s.console.Printf("  %s  %s\n", t.Command.Render(fmt.Sprintf("%-*s", width, name)), s.summary(name))
	}
	s.console.Println()
}
