// Package grammar declares per-command argument specifications and parses
// shell-quoted argument strings against them.
//
// A Spec is built once with New and never changes. Parse tokenizes the raw
// argument string with shell quoting rules, matches options anywhere in the
// line and binds the remaining tokens to positionals in order. Every
// failure, including validation errors raised by parse functions, comes
// back as an *ArgumentError carrying the formatted usage text.
package grammar

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/spf13/pflag"
)

// ParseFunc converts one raw token into a typed value.
type ParseFunc func(string) (any, error)

// Of adapts a typed constructor to a ParseFunc.
func Of[T any](fn func(string) (T, error)) ParseFunc {
	return func(s string) (any, error) { return fn(s) }
}

// String accepts any token unchanged.
var String ParseFunc = func(s string) (any, error) { return s, nil }

// Int accepts base-10 integers.
var Int = Of(func(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid int value: %q", s)
	}
	return n, nil
})

type positional struct {
	name  string
	help  string
	parse ParseFunc
}

type option struct {
	name   string
	short  string
	help   string
	parse  ParseFunc
	def    any
	toggle bool
}

// Param is a positional or option declaration passed to New.
type Param func(*Spec)

// Arg declares a required positional argument.
func Arg(name, help string, parse ParseFunc) Param {
	return func(s *Spec) {
		s.positionals = append(s.positionals, positional{name: name, help: help, parse: parse})
	}
}

// Option declares a value option. A nil def leaves the option absent from
// Args unless given on the command line.
func Option(name, short, help string, parse ParseFunc, def any) Param {
	return func(s *Spec) {
		s.options = append(s.options, option{name: name, short: short, help: help, parse: parse, def: def})
	}
}

// Switch declares a boolean option that defaults to false.
func Switch(name, short, help string) Param {
	return func(s *Spec) {
		s.options = append(s.options, option{name: name, short: short, help: help, toggle: true, def: false})
	}
}

type Spec struct {
	name        string
	summary     string
	positionals []positional
	options     []option
}

func New(name, summary string, params ...Param) *Spec {
	s := &Spec{name: name, summary: summary}
	for _, p := range params {
		p(s)
	}
	return s
}

func (s *Spec) Name() string    { return s.name }
func (s *Spec) Summary() string { return s.summary }

// ArgumentError reports a grammar or validation failure for one command.
type ArgumentError struct {
	Message string
	Usage   string
	Err     error
}

func (e *ArgumentError) Error() string { return e.Message }
func (e *ArgumentError) Unwrap() error { return e.Err }

func (s *Spec) fail(err error, format string, args ...any) *ArgumentError {
	return &ArgumentError{
		Message: fmt.Sprintf("%s: error: %s", s.name, fmt.Sprintf(format, args...)),
		Usage:   s.Usage(),
		Err:     err,
	}
}

// Parse tokenizes raw and binds the tokens to the declared parameters.
func (s *Spec) Parse(raw string) (Args, error) {
	tokens, err := shellquote.Split(raw)
	if err != nil {
		return Args{}, s.fail(err, "%v", err)
	}
	return s.ParseTokens(tokens)
}

// negativeNumber matches tokens that are values even though they start with
// a dash. No option has a digit as its short name.
var negativeNumber = regexp.MustCompile(`^-[0-9]+$`)

// numberMark hides the dash of a negative number from pflag.
const numberMark = "\x00"

func unmark(s string) string { return strings.TrimPrefix(s, numberMark) }

// ParseTokens is Parse for input that is already split.
func (s *Spec) ParseTokens(tokens []string) (Args, error) {
	st := &parseState{values: make(map[string]any, len(s.positionals)+len(s.options))}
	fs := s.flagSet(st)
	marked := make([]string, len(tokens))
	for i, t := range tokens {
		if negativeNumber.MatchString(t) {
			t = numberMark + t
		}
		marked[i] = t
	}
	if err := fs.Parse(marked); err != nil {
		if st.failure != nil {
			return Args{}, s.fail(st.failure.err, "argument --%s: %v", st.failure.name, st.failure.err)
		}
		return Args{}, s.fail(err, "%v", err)
	}

	rest := fs.Args()
	for i := range rest {
		rest[i] = unmark(rest[i])
	}
	if len(rest) < len(s.positionals) {
		missing := make([]string, 0, len(s.positionals)-len(rest))
		for _, p := range s.positionals[len(rest):] {
			missing = append(missing, p.name)
		}
		return Args{}, s.fail(nil, "the following arguments are required: %s", strings.Join(missing, ", "))
	}
	if len(rest) > len(s.positionals) {
		return Args{}, s.fail(nil, "unrecognized arguments: %s", strings.Join(rest[len(s.positionals):], " "))
	}
	for i, p := range s.positionals {
		v, err := p.parse(rest[i])
		if err != nil {
			return Args{}, s.fail(err, "argument %s: %v", p.name, err)
		}
		st.values[p.name] = v
	}
	return Args{values: st.values}, nil
}

// parseState collects option values while pflag walks the tokens. pflag
// reports Set failures as plain strings, so the typed cause is kept here.
type parseState struct {
	values  map[string]any
	failure *valueError
}

func (s *Spec) flagSet(st *parseState) *pflag.FlagSet {
	fs := pflag.NewFlagSet(s.name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.SetInterspersed(true)
	fs.Usage = func() {}
	for _, o := range s.options {
		if o.def != nil {
			st.values[o.name] = o.def
		}
		if o.toggle {
			fs.VarPF(&switchValue{name: o.name, st: st}, o.name, o.short, o.help).NoOptDefVal = "true"
			continue
		}
		fs.VarP(&optionValue{opt: o, st: st}, o.name, o.short, o.help)
	}
	return fs
}

// Usage renders the help text shown with every parse failure.
func (s *Spec) Usage() string {
	var b strings.Builder
	b.WriteString("usage: ")
	b.WriteString(s.name)
	for _, o := range s.options {
		if o.toggle {
			fmt.Fprintf(&b, " [--%s]", o.name)
		} else {
			fmt.Fprintf(&b, " [--%s %s]", o.name, strings.ToUpper(o.name))
		}
	}
	for _, p := range s.positionals {
		b.WriteString(" ")
		b.WriteString(p.name)
	}
	b.WriteString("\n")

	if s.summary != "" {
		b.WriteString("\n")
		b.WriteString(s.summary)
		b.WriteString("\n")
	}

	if len(s.positionals) > 0 {
		width := 0
		for _, p := range s.positionals {
			width = max(width, len(p.name))
		}
		b.WriteString("\npositional arguments:\n")
		for _, p := range s.positionals {
			fmt.Fprintf(&b, "  %-*s  %s\n", width, p.name, p.help)
		}
	}

	if len(s.options) > 0 {
		b.WriteString("\noptions:\n")
		b.WriteString(s.flagSet(&parseState{values: make(map[string]any)}).FlagUsages())
	}
	return strings.TrimRight(b.String(), "\n")
}

type valueError struct {
	name string
	err  error
}

type optionValue struct {
	opt option
	st  *parseState
}

func (v *optionValue) Set(s string) error {
	parsed, err := v.opt.parse(unmark(s))
	if err != nil {
		v.st.failure = &valueError{name: v.opt.name, err: err}
		return err
	}
	v.st.values[v.opt.name] = parsed
	return nil
}

func (v *optionValue) String() string {
	if v.opt.def == nil {
		return ""
	}
	return fmt.Sprint(v.opt.def)
}

// Type is printed by pflag as the option's metavar.
func (v *optionValue) Type() string { return strings.ToUpper(v.opt.name) }

type switchValue struct {
	name string
	st   *parseState
}

func (v *switchValue) Set(s string) error {
	b, err := strconv.ParseBool(s)
	if err != nil {
		err = fmt.Errorf("invalid boolean value: %q", s)
		v.st.failure = &valueError{name: v.name, err: err}
		return err
	}
	v.st.values[v.name] = b
	return nil
}

func (v *switchValue) String() string { return "false" }
func (v *switchValue) Type() string   { return "bool" }
