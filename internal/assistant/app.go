// Package assistant wires the address book commands onto the shell: the
// top-level commands plus the "phones" and "birthdays" modes.
package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jeanpaul/assistant/internal/grammar"
	"github.com/jeanpaul/assistant/internal/model"
	"github.com/jeanpaul/assistant/internal/shell"
	"github.com/jeanpaul/assistant/internal/store"
)

// Book is the address book: records keyed by their name.
type Book = store.Store[model.Record]

const Intro = "Welcome to the assistant app!"

// Prompt is the top-level prompt for user.
func Prompt(user string) string {
	if user == "" {
		user = "user"
	}
	return fmt.Sprintf("hello, %s > ", user)
}

type App struct {
	book    Book
	console *shell.Console
	root    *shell.Shell
	now     func() time.Time
	logger  *zap.Logger
}

type Option func(*App)

// WithClock replaces time.Now for date-relative commands.
func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

func WithLogger(l *zap.Logger) Option {
	return func(a *App) { a.logger = l }
}

func New(book Book, console *shell.Console, user string, opts ...Option) *App {
	a := &App{
		book:    book,
		console: console,
		now:     time.Now,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}

	a.root = shell.New("assistant", console, shell.WithPrompt(Prompt(user)), shell.WithIntro(Intro))
	for _, cmd := range a.rootCommands() {
		a.root.Register(cmd)
	}
	a.root.Mount("phones", "Manage phone numbers", a.phones())
	a.root.Mount("birthdays", "Manage birthdays", a.birthdays())
	return a
}

func (a *App) Shell() *shell.Shell { return a.root }

// Run dispatches line as a single command, or enters the interactive loop
// when line is blank.
func (a *App) Run(ctx context.Context, line string) error {
	if strings.TrimSpace(line) != "" {
		_, err := a.root.Dispatch(ctx, line)
		return err
	}
	return a.root.Loop(ctx)
}

func nameArg(help string) grammar.Param {
	return grammar.Arg("name", help, grammar.Of(model.ParseName))
}

func forceSwitch() grammar.Param {
	return grammar.Switch("force", "f", "Do not ask for confirmation")
}

// load returns the record stored under name. A missing record is reported
// on the console and yields nil.
func (a *App) load(ctx context.Context, name model.Name) (*model.Record, error) {
	r, ok, err := a.book.Get(ctx, string(name))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	if !ok {
		a.console.Errorf("Record %s does not exist", name)
		return nil, nil
	}
	return &r, nil
}

// loadOrNew returns the record stored under name or a fresh one.
func (a *App) loadOrNew(ctx context.Context, name model.Name) (*model.Record, error) {
	r, ok, err := a.book.Get(ctx, string(name))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	if !ok {
		return model.NewRecord(name), nil
	}
	return &r, nil
}

func (a *App) save(ctx context.Context, r *model.Record) error {
	if err := a.book.Set(ctx, string(r.Name), *r); err != nil {
		return fmt.Errorf("save %s: %w", r.Name, err)
	}
	a.logger.Debug("record saved", zap.String("name", string(r.Name)), zap.Int("phones", len(r.Phones)))
	return nil
}

func (a *App) remove(ctx context.Context, name model.Name) error {
	if err := a.book.Delete(ctx, string(name)); err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	a.logger.Info("record deleted", zap.String("name", string(name)))
	return nil
}

func (a *App) rootCommands() []shell.Command {
	return []shell.Command{
		{
			Name:    "hello",
			Summary: "Say hello",
			Run: func(context.Context, grammar.Args) error {
				a.console.Println("Hello!")
				return nil
			},
		},
		{
			Name:    "list",
			Summary: "List all records",
			Run:     a.list,
		},
		{
			Name:    "show",
			Summary: "Show a record",
			Spec: grammar.New("show", "Show a record",
				nameArg("Name of the record"),
			),
			Run: a.show,
		},
		{
			Name:    "delete",
			Summary: "Delete a record",
			Spec: grammar.New("delete", "Delete a record",
				nameArg("Name of the record to delete"),
				forceSwitch(),
			),
			Run: a.deleteRecord,
		},
		{
			Name:    "wipe",
			Summary: "Delete all records",
			Spec: grammar.New("wipe", "Delete all records",
				forceSwitch(),
			),
			Run: a.wipe,
		},
		{
			Name:    "export",
			Summary: "Export all records to a .yaml or .xlsx file",
			Spec: grammar.New("export", "Export all records to a .yaml or .xlsx file",
				grammar.Arg("file", "Destination file (.yaml, .yml or .xlsx)", grammar.String),
			),
			Run: a.export,
		},
		{
			Name:    "import",
			Summary: "Import records from a .yaml or .xlsx file",
			Spec: grammar.New("import", "Import records from a .yaml or .xlsx file",
				grammar.Arg("file", "Source file (.yaml, .yml or .xlsx)", grammar.String),
				forceSwitch(),
			),
			Run: a.importRecords,
		},
	}
}

func (a *App) list(ctx context.Context, _ grammar.Args) error {
	items, err := a.book.Items(ctx)
	if err != nil {
		return fmt.Errorf("list records: %w", err)
	}
	for _, it := range items {
		a.console.Println(it.Value.Name)
	}
	return nil
}

func (a *App) show(ctx context.Context, args grammar.Args) error {
	r, err := a.load(ctx, grammar.Get[model.Name](args, "name"))
	if r == nil {
		return err
	}
	a.console.Println(r.String())
	if r.Birthday != nil {
		a.console.Printf("Birthday: %s\n", r.Birthday.Long())
	}
	return nil
}

func (a *App) deleteRecord(ctx context.Context, args grammar.Args) error {
	name := grammar.Get[model.Name](args, "name")
	r, err := a.load(ctx, name)
	if r == nil {
		return err
	}
	question := fmt.Sprintf("Are you sure you want to delete record %s?", name)
	if !a.console.Approve(ctx, question, grammar.Get[bool](args, "force")) {
		return nil
	}
	if err := a.remove(ctx, name); err != nil {
		return err
	}
	a.console.Printf("Record %s has been deleted\n", name)
	return nil
}

func (a *App) wipe(ctx context.Context, args grammar.Args) error {
	if !a.console.Approve(ctx, "Are you sure you want to delete all records?", grammar.Get[bool](args, "force")) {
		return nil
	}
	if err := a.book.Clear(ctx); err != nil {
		return fmt.Errorf("wipe: %w", err)
	}
	a.logger.Info("all records deleted")
	a.console.Println("All records have been deleted")
	return nil
}
