package shell

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Terminal reads lines from an interactive terminal with line editing,
// history recall on up/down and tab completion of command names.
type Terminal struct {
	in          io.Reader
	out         io.Writer
	history     *History
	prompt      lipgloss.Style
	completions []string
}

func NewTerminal(in io.Reader, out io.Writer, history *History) *Terminal {
	if history == nil {
		history = &History{}
	}
	return &Terminal{
		in:      in,
		out:     out,
		history: history,
		prompt:  newTheme(lipgloss.NewRenderer(out)).Prompt,
	}
}

// SetCompletions replaces the words offered on tab.
func (t *Terminal) SetCompletions(words []string) { t.completions = words }

func (t *Terminal) ReadLine(ctx context.Context, prompt string) (string, error) {
	return t.read(ctx, prompt, true)
}

// ReadAnswer reads a reply to a question. Replies are kept out of the
// history.
func (t *Terminal) ReadAnswer(ctx context.Context, prompt string) (string, error) {
	return t.read(ctx, prompt, false)
}

func (t *Terminal) read(ctx context.Context, prompt string, remember bool) (string, error) {
	m := newLineModel(prompt, t.history.Lines(), t.completions)
	m.input.PromptStyle = t.prompt

	p := tea.NewProgram(m, tea.WithContext(ctx), tea.WithInput(t.in), tea.WithOutput(t.out))
	final, err := p.Run()
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("shell: read line: %w", err)
	}

	res := final.(lineModel)
	line := res.input.Value()
	echo := t.prompt.Render(prompt) + line
	switch res.outcome {
	case outcomeInterrupt:
		fmt.Fprint(t.out, echo)
		return "", &InterruptError{Pending: line}
	case outcomeEOF:
		fmt.Fprintln(t.out, echo)
		return "", io.EOF
	}
	fmt.Fprintln(t.out, echo)
	if remember {
		t.history.Add(line)
	}
	return line, nil
}

type outcome int

const (
	outcomePending outcome = iota
	outcomeSubmit
	outcomeInterrupt
	outcomeEOF
)

// lineModel is the bubbletea model behind one Terminal.ReadLine call.
type lineModel struct {
	input   textinput.Model
	history []string
	recall  int // index into history; len(history) is the line being typed
	draft   string
	outcome outcome
}

func newLineModel(prompt string, history, completions []string) lineModel {
	ti := textinput.New()
	ti.Prompt = prompt
	if len(completions) > 0 {
		ti.ShowSuggestions = true
		ti.SetSuggestions(completions)
	}
	ti.Focus()
	return lineModel{input: ti, history: history, recall: len(history)}
}

func (m lineModel) Init() tea.Cmd { return textinput.Blink }

func (m lineModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			m.outcome = outcomeSubmit
			return m, tea.Quit
		case tea.KeyCtrlC:
			m.outcome = outcomeInterrupt
			return m, tea.Quit
		case tea.KeyCtrlD:
			if m.input.Value() == "" {
				m.outcome = outcomeEOF
				return m, tea.Quit
			}
		case tea.KeyUp:
			m.step(-1)
			return m, nil
		case tea.KeyDown:
			m.step(1)
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *lineModel) step(delta int) {
	next := m.recall + delta
	if next < 0 || next > len(m.history) {
		return
	}
	if m.recall == len(m.history) {
		m.draft = m.input.Value()
	}
	m.recall = next
	if next == len(m.history) {
		m.input.SetValue(m.draft)
	} else {
		m.input.SetValue(m.history[next])
	}
	m.input.CursorEnd()
}

// View renders nothing once the line is finished; ReadLine echoes the
// final line itself so it stays on screen.
func (m lineModel) View() string {
	if m.outcome != outcomePending {
		return ""
	}
	return m.input.View()
}
