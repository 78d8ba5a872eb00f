package shell

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jeanpaul/assistant/internal/grammar"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type step struct {
	line string
	err  error
}

// scriptReader replays canned answers and records every prompt it shows.
// Once the script runs out it reports end of input.
type scriptReader struct {
	steps   []step
	prompts []string
}

func script(lines ...string) *scriptReader {
	r := &scriptReader{}
	for _, l := range lines {
		r.steps = append(r.steps, step{line: l})
	}
	return r
}

func (r *scriptReader) then(err error) *scriptReader {
	r.steps = append(r.steps, step{err: err})
	return r
}

func (r *scriptReader) lines(lines ...string) *scriptReader {
	for _, l := range lines {
		r.steps = append(r.steps, step{line: l})
	}
	return r
}

func (r *scriptReader) ReadLine(_ context.Context, prompt string) (string, error) {
	r.prompts = append(r.prompts, prompt)
	if len(r.steps) == 0 {
		return "", io.EOF
	}
	s := r.steps[0]
	r.steps = r.steps[1:]
	return s.line, s.err
}

type fixture struct {
	reader  *scriptReader
	out     bytes.Buffer
	errOut  bytes.Buffer
	console *Console
	top     *Shell
	child   *Shell
	calls   []string
}

func newFixture(r LineReader, opts ...ConsoleOption) *fixture {
	f := &fixture{}
	f.reader, _ = r.(*scriptReader)
	f.console = NewConsole(r, &f.out, &f.errOut, opts...)
	f.top = New("top", f.console, WithPrompt("top> "), WithIntro("Welcome!"))
	f.child = New("phones", f.console, ConfirmExit(false), SayGoodbye(false))

	f.top.Register(Command{
		Name:    "list",
		Summary: "List all records",
		Run: func(context.Context, grammar.Args) error {
			f.calls = append(f.calls, "list")
			return nil
		},
	})
	f.top.Mount("phones", "Manage phone numbers", f.child)
	f.child.Register(Command{
		Name:    "add",
		Summary: "Add a new phone number",
		Spec: grammar.New("add", "Add a new phone number",
			grammar.Arg("name", "Name of the record", grammar.String),
			grammar.Option("type", "t", "Type of the phone number", grammar.String, "mobile"),
		),
		Run: func(_ context.Context, args grammar.Args) error {
			f.calls = append(f.calls, "add "+grammar.Get[string](args, "name")+" "+grammar.Get[string](args, "type"))
			return nil
		},
	})
	f.child.Register(Command{
		Name:    "delete",
		Summary: "Delete a phone number",
		Run: func(context.Context, grammar.Args) error {
			f.calls = append(f.calls, "delete")
			return nil
		},
	})
	return f
}

func TestSuggest(t *testing.T) {
	names := []string{"list", "add", "delete"}

	got, ok := Suggest("adn", names)
	assert.True(t, ok)
	assert.Equal(t, "add", got)

	got, ok = Suggest("lsit", names)
	assert.True(t, ok)
	assert.Equal(t, "list", got)

	_, ok = Suggest("zzz", names)
	assert.False(t, ok)

	_, ok = Suggest("anything", nil)
	assert.False(t, ok)
}

func TestDispatch_RunsCommand(t *testing.T) {
	f := newFixture(script())
	stop, err := f.top.Dispatch(context.Background(), "  list  ")
	require.NoError(t, err)
	assert.False(t, stop)
	assert.Equal(t, []string{"list"}, f.calls)
}

func TestDispatch_EmptyLineDoesNothing(t *testing.T) {
	f := newFixture(script())
	stop, err := f.top.Dispatch(context.Background(), "   ")
	require.NoError(t, err)
	assert.False(t, stop)
	assert.Empty(t, f.calls)
	assert.Empty(t, f.out.String())
	assert.Empty(t, f.errOut.String())
}

func TestDispatch_UnknownCommand(t *testing.T) {
	f := newFixture(script())
	ctx := context.Background()

	_, err := f.top.Dispatch(ctx, "lst")
	require.NoError(t, err)
	assert.Contains(t, f.errOut.String(), `*** Unknown command: lst. Did you mean "list"?`)

	f.errOut.Reset()
	_, err = f.child.Dispatch(ctx, "adn Alice")
	require.NoError(t, err)
	assert.Contains(t, f.errOut.String(), `Did you mean "add"?`)

	f.errOut.Reset()
	_, err = f.top.Dispatch(ctx, "zzz")
	require.NoError(t, err)
	assert.Equal(t, "*** Unknown command: zzz\n", f.errOut.String())
	assert.Empty(t, f.calls)
}

func TestDispatch_ArgumentErrorPrintsUsage(t *testing.T) {
	f := newFixture(script())
	_, err := f.child.Dispatch(context.Background(), "add")
	require.NoError(t, err)
	assert.Empty(t, f.calls)
	assert.Contains(t, f.errOut.String(), "add: error: the following arguments are required: name")
	assert.Contains(t, f.errOut.String(), "usage: add [--type TYPE] name")
	assert.Empty(t, f.out.String())

	f.errOut.Reset()
	_, err = f.top.Dispatch(context.Background(), "list extra")
	require.NoError(t, err)
	assert.Contains(t, f.errOut.String(), "unrecognized arguments: extra")
}

func TestDispatch_CommandErrorPropagates(t *testing.T) {
	boom := errors.New("disk on fire")
	f := newFixture(script())
	f.top.Register(Command{
		Name: "fail",
		Run:  func(context.Context, grammar.Args) error { return boom },
	})
	_, err := f.top.Dispatch(context.Background(), "fail")
	assert.ErrorIs(t, err, boom)
}

func TestDispatch_ModeOneShot(t *testing.T) {
	f := newFixture(script())
	stop, err := f.top.Dispatch(context.Background(), `phones add "Alice Smith" --type work`)
	require.NoError(t, err)
	assert.False(t, stop)
	assert.Equal(t, []string{"add Alice Smith work"}, f.calls)
	assert.Empty(t, f.reader.prompts)
	assert.NotContains(t, f.out.String(), "Documented commands")
}

func TestLoop_NestedModeAndPromptComposition(t *testing.T) {
	f := newFixture(script("phones", "add Bob", "exit", "list", "exit", "y"))
	require.NoError(t, f.top.Loop(context.Background()))

	assert.Equal(t, []string{"add Bob mobile", "list"}, f.calls)
	assert.Equal(t, []string{
		"top> ",
		"top> phones> ",
		"top> phones> ",
		"top> ",
		"top> ",
		"Exit the application? [y/n] ",
	}, f.reader.prompts)

	out := f.out.String()
	assert.True(t, strings.HasPrefix(out, "Welcome!\n"))
	assert.Equal(t, 2, strings.Count(out, "Documented commands (type help <topic>):"))
	assert.True(t, strings.HasSuffix(out, "Goodbye!\n"))
}

func TestLoop_ExitDeclinedStaysIdle(t *testing.T) {
	f := newFixture(script("exit", "n", "list", "exit", "yes"))
	require.NoError(t, f.top.Loop(context.Background()))
	assert.Equal(t, []string{"list"}, f.calls)
	assert.Equal(t, 1, strings.Count(f.out.String(), "Goodbye!"))
}

func TestLoop_EndOfInputTerminates(t *testing.T) {
	f := newFixture(script("list"))
	require.NoError(t, f.top.Loop(context.Background()))
	assert.Equal(t, []string{"list"}, f.calls)
	// the exit question was asked but could not be answered
	assert.Equal(t, "Exit the application? [y/n] ", f.reader.prompts[len(f.reader.prompts)-1])
	assert.NotContains(t, f.out.String(), "Goodbye!")
}

func TestLoop_EndOfInputInModeReturnsToParent(t *testing.T) {
	f := newFixture(script("phones").then(io.EOF).lines("list", "exit", "y"))
	require.NoError(t, f.top.Loop(context.Background()))
	assert.Equal(t, []string{"list"}, f.calls)
	assert.Equal(t, []string{"top> ", "top> phones> ", "top> ", "top> ", "Exit the application? [y/n] "}, f.reader.prompts)
}

func TestLoop_InterruptWithEmptyLineAsksToExit(t *testing.T) {
	f := newFixture(script().then(&InterruptError{}).lines("y"))
	require.NoError(t, f.top.Loop(context.Background()))
	assert.Contains(t, f.out.String(), "^C\n")
	assert.Equal(t, []string{"top> ", "Exit the application? [y/n] "}, f.reader.prompts)
	assert.NotContains(t, f.out.String(), "Goodbye!")
}

func TestLoop_InterruptWithPendingTextRedrawsPrompt(t *testing.T) {
	f := newFixture(script().then(&InterruptError{Pending: "lis"}).lines("list", "exit", "y"))
	require.NoError(t, f.top.Loop(context.Background()))
	assert.Equal(t, []string{"list"}, f.calls)
	assert.Equal(t, []string{"top> ", "top> ", "top> ", "Exit the application? [y/n] "}, f.reader.prompts)
}

func TestLoop_InterruptDeclinedKeepsLooping(t *testing.T) {
	f := newFixture(script().then(&InterruptError{}).lines("n", "list").then(&InterruptError{}).lines("y"))
	require.NoError(t, f.top.Loop(context.Background()))
	assert.Equal(t, []string{"list"}, f.calls)
}

func TestLoop_ReaderErrorEndsLoop(t *testing.T) {
	broken := errors.New("tty gone")
	f := newFixture(script().then(broken))
	assert.ErrorIs(t, f.top.Loop(context.Background()), broken)
}

func TestHelp(t *testing.T) {
	f := newFixture(script())
	ctx := context.Background()

	_, err := f.child.Dispatch(ctx, "help add")
	require.NoError(t, err)
	assert.Contains(t, f.out.String(), "usage: add [--type TYPE] name")

	f.out.Reset()
	_, err = f.top.Dispatch(ctx, "help phones")
	require.NoError(t, err)
	assert.Contains(t, f.out.String(), "Manage phone numbers")
	assert.Contains(t, f.out.String(), "Add a new phone number")

	f.out.Reset()
	_, err = f.top.Dispatch(ctx, "?")
	require.NoError(t, err)
	assert.Contains(t, f.out.String(), "phones")
	assert.Contains(t, f.out.String(), "List all records")

	_, err = f.top.Dispatch(ctx, "help nothing")
	require.NoError(t, err)
	assert.Contains(t, f.errOut.String(), "*** No help on nothing")
}

func TestRegisterTwicePanics(t *testing.T) {
	f := newFixture(script())
	assert.Panics(t, func() { f.top.Register(Command{Name: "list"}) })
	assert.Panics(t, func() { f.top.Register(Command{Name: "phones"}) })
	assert.Panics(t, func() { f.top.Register(Command{Name: "help"}) })
}

func TestConfirm(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name   string
		reader *scriptReader
		def    bool
		want   bool
	}{
		{"yes", script("y"), false, true},
		{"long yes", script("YES"), false, true},
		{"no", script("n"), true, false},
		{"empty takes default", script(""), false, false},
		{"empty takes true default", script(""), true, true},
		{"end of input takes default", script(), false, false},
		{"interrupt takes default", script().then(&InterruptError{}), false, false},
		{"asks again", script("maybe", "y"), false, true},
		{"asks again after an over-long line", script().then(ErrLineTooLong).lines("y"), false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			c := NewConsole(tt.reader, &out, io.Discard)
			assert.Equal(t, tt.want, c.Confirm(ctx, "Delete?", tt.def))
		})
	}
}

func TestApprove(t *testing.T) {
	ctx := context.Background()

	r := script()
	c := NewConsole(r, io.Discard, io.Discard, WithYes(true))
	assert.True(t, c.Approve(ctx, "Delete?", false))
	assert.Empty(t, r.prompts)

	r = script()
	c = NewConsole(r, io.Discard, io.Discard)
	assert.True(t, c.Approve(ctx, "Delete?", true))
	assert.Empty(t, r.prompts)

	r = script()
	c = NewConsole(r, io.Discard, io.Discard)
	assert.False(t, c.Approve(ctx, "Delete?", false))
	assert.Equal(t, []string{"Delete? [y/n] "}, r.prompts)
}

func TestScanReader(t *testing.T) {
	var prompts bytes.Buffer
	r := NewScanReader(strings.NewReader("first\r\nsecond\n"), &prompts)
	ctx := context.Background()

	line, err := r.ReadLine(ctx, "> ")
	require.NoError(t, err)
	assert.Equal(t, "first", line)
	line, err = r.ReadLine(ctx, "> ")
	require.NoError(t, err)
	assert.Equal(t, "second", line)
	_, err = r.ReadLine(ctx, "> ")
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, "> > > ", prompts.String())

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = r.ReadLine(cancelled, "> ")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDispatch_SplitsOnAnyWhitespace(t *testing.T) {
	f := newFixture(script())
	_, err := f.top.Dispatch(context.Background(), "phones\tadd Alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"add Alice mobile"}, f.calls)
	assert.Empty(t, f.errOut.String())

	_, err = f.top.Dispatch(context.Background(), "list\t")
	require.NoError(t, err)
	assert.Equal(t, []string{"add Alice mobile", "list"}, f.calls)
}

func TestLoop_OverLongLineKeepsLooping(t *testing.T) {
	input := "list\n" + strings.Repeat("x", 70*1024) + "\nlist\nexit\ny\n"
	f := newFixture(NewScanReader(strings.NewReader(input), nil))

	require.NoError(t, f.top.Loop(context.Background()))
	assert.Equal(t, []string{"list", "list"}, f.calls)
	assert.Contains(t, f.errOut.String(), "*** Line too long")
	assert.Contains(t, f.out.String(), "Goodbye!")
}

// answerScript records which lines were read as replies to questions.
type answerScript struct {
	*scriptReader
	answers []string
}

func (r *answerScript) ReadAnswer(ctx context.Context, prompt string) (string, error) {
	line, err := r.ReadLine(ctx, prompt)
	r.answers = append(r.answers, line)
	return line, err
}

func TestConfirm_ReadsAnswersApartFromCommands(t *testing.T) {
	r := &answerScript{scriptReader: script("list", "exit", "y")}
	f := newFixture(r)

	require.NoError(t, f.top.Loop(context.Background()))
	assert.Equal(t, []string{"y"}, r.answers)
	assert.Equal(t, []string{"list"}, f.calls)
}

func TestScanReader_LongLines(t *testing.T) {
	ctx := context.Background()
	fits := strings.Repeat("a", MaxLineLength)
	r := NewScanReader(strings.NewReader(fits+"\n"+fits+"b\nnext\nlast"), nil)

	line, err := r.ReadLine(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, fits, line)

	_, err = r.ReadLine(ctx, "")
	assert.ErrorIs(t, err, ErrLineTooLong)

	line, err = r.ReadLine(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "next", line)

	line, err = r.ReadLine(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "last", line)

	_, err = r.ReadLine(ctx, "")
	assert.ErrorIs(t, err, io.EOF)
}

// cancelOnRead cancels its context the moment a read starts, as a signal
// arriving while the reader is blocked would.
type cancelOnRead struct {
	r      io.Reader
	cancel context.CancelFunc
}

func (c *cancelOnRead) Read(p []byte) (int, error) {
	c.cancel()
	return c.r.Read(p)
}

func TestScanReader_CancelWhileBlockedDropsLine(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := NewScanReader(&cancelOnRead{r: strings.NewReader("wipe\n"), cancel: cancel}, nil)

	line, err := r.ReadLine(ctx, "> ")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, line)
}
