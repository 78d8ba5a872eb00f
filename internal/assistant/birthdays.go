package assistant

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/jeanpaul/assistant/internal/grammar"
	"github.com/jeanpaul/assistant/internal/model"
	"github.com/jeanpaul/assistant/internal/shell"
)

var errNegativeDays = errors.New("days must not be negative")

func parseDays(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid int value: %q", s)
	}
	if n < 0 {
		return 0, errNegativeDays
	}
	return n, nil
}

func (a *App) birthdays() *shell.Shell {
	s := shell.New("birthdays", a.console, shell.ConfirmExit(false), shell.SayGoodbye(false))
	s.Register(shell.Command{
		Name:    "set",
		Summary: "Set birthday to a record, create one if it doesn't exist",
		Spec: grammar.New("set", "Set birthday to a record, create one if it doesn't exist",
			nameArg("Name of the record"),
			grammar.Arg("birthday", "Birthday of the record (YYYY.MM.DD)", grammar.Of(model.ParseBirthday)),
		),
		Run: a.setBirthday,
	})
	s.Register(shell.Command{
		Name:    "show",
		Summary: "Show birthday of a record",
		Spec: grammar.New("show", "Show birthday of a record",
			nameArg("Name of the record"),
		),
		Run: a.showBirthday,
	})
	s.Register(shell.Command{
		Name:    "clear",
		Summary: "Clear birthday from a record",
		Spec: grammar.New("clear", "Clear birthday from a record",
			nameArg("Name of the record to clear birthday"),
			forceSwitch(),
		),
		Run: a.clearBirthday,
	})
	s.Register(shell.Command{
		Name:    "upcoming",
		Summary: "Show upcoming birthdays",
		Spec: grammar.New("upcoming", "Show upcoming birthdays",
			grammar.Option("days", "d", "Only show birthdays celebrated within this many days", grammar.Of(parseDays), nil),
		),
		Run: a.upcoming,
	})
	return s
}

func (a *App) setBirthday(ctx context.Context, args grammar.Args) error {
	name := grammar.Get[model.Name](args, "name")
	r, err := a.loadOrNew(ctx, name)
	if err != nil {
		return err
	}
	r.SetBirthday(grammar.Get[model.Birthday](args, "birthday"))
	if err := a.save(ctx, r); err != nil {
		return err
	}
	a.console.Printf("Birthday has been added to record %s\n", name)
	return nil
}

func (a *App) showBirthday(ctx context.Context, args grammar.Args) error {
	name := grammar.Get[model.Name](args, "name")
	r, err := a.load(ctx, name)
	if r == nil {
		return err
	}
	if r.Birthday == nil {
		a.console.Printf("%s has no birthday\n", name)
		return nil
	}
	a.console.Printf("%s was born on %s\n", name, r.Birthday.Long())
	return nil
}

func (a *App) clearBirthday(ctx context.Context, args grammar.Args) error {
	name := grammar.Get[model.Name](args, "name")
	r, err := a.load(ctx, name)
	if r == nil {
		return err
	}
	question := fmt.Sprintf("Are you sure you want to clear birthday from %s?", name)
	if !a.console.Approve(ctx, question, grammar.Get[bool](args, "force")) {
		return nil
	}
	r.ClearBirthday()
	if err := a.save(ctx, r); err != nil {
		return err
	}
	a.console.Printf("Birthday has been cleared from record %s\n", name)
	return nil
}

// Celebration is one birthday and the day it is congratulated on.
type Celebration struct {
	Name     model.Name
	Birthday model.Birthday
	On       time.Time
}

// CongratulationDate returns the day a birthday falling in year is
// celebrated: the date itself on weekdays, the following Monday when it
// falls on a weekend. February 29 moves to March 1 in common years.
func CongratulationDate(b model.Birthday, year int) time.Time {
	d := time.Date(year, b.Month, b.Day, 0, 0, 0, 0, time.UTC)
	switch d.Weekday() {
	case time.Saturday:
		return d.AddDate(0, 0, 2)
	case time.Sunday:
		return d.AddDate(0, 0, 1)
	}
	return d
}

// Upcoming lists celebrations on or after today, ordered by date then
// name. Without a window only this year's celebrations are considered;
// with one, birthdays late in the year roll over into the next and only
// celebrations within days of today are kept.
func Upcoming(records []model.Record, today time.Time, days *int) []Celebration {
	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	var out []Celebration
	for _, r := range records {
		if r.Birthday == nil {
			continue
		}
		on := CongratulationDate(*r.Birthday, today.Year())
		if on.Before(today) {
			if days == nil {
				continue
			}
			on = CongratulationDate(*r.Birthday, today.Year()+1)
		}
		if days != nil && on.After(today.AddDate(0, 0, *days)) {
			continue
		}
		out = append(out, Celebration{Name: r.Name, Birthday: *r.Birthday, On: on})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].On.Equal(out[j].On) {
			return out[i].On.Before(out[j].On)
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func (a *App) upcoming(ctx context.Context, args grammar.Args) error {
	items, err := a.book.Items(ctx)
	if err != nil {
		return fmt.Errorf("list records: %w", err)
	}
	records := make([]model.Record, len(items))
	for i, it := range items {
		records[i] = it.Value
	}

	var window *int
	if d, ok := grammar.Lookup[int](args, "days"); ok {
		window = &d
	}
	celebrations := Upcoming(records, a.now(), window)
	if len(celebrations) == 0 {
		a.console.Println("No upcoming birthdays")
		return nil
	}
	for _, c := range celebrations {
		a.console.Printf("%s was born on %s, congratulations on %s (%s)\n",
			c.Name, c.Birthday.Long(), c.On.Format(model.BirthdayLayout), c.On.Weekday())
	}
	return nil
}
