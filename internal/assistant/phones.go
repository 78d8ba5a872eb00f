package assistant

import (
	"context"
	"fmt"

	"github.com/jeanpaul/assistant/internal/grammar"
	"github.com/jeanpaul/assistant/internal/model"
	"github.com/jeanpaul/assistant/internal/shell"
)

var (
	phoneArg = grammar.Of(model.ParsePhoneValue)
	typeArg  = grammar.Of(model.ParsePhoneType)
)

const (
	phoneHelp = "Phone number of the record (XXXXXXXXXX)"
	typeHelp  = "Type of the phone number (home, mobile, work)"
)

func (a *App) phones() *shell.Shell {
	s := shell.New("phones", a.console, shell.ConfirmExit(false), shell.SayGoodbye(false))
	s.Register(shell.Command{
		Name:    "add",
		Summary: "Add a new phone number",
		Spec: grammar.New("add", "Add a new phone number",
			nameArg("Name of the record"),
			grammar.Arg("phone", phoneHelp, phoneArg),
			grammar.Option("type", "t", typeHelp, typeArg, model.PhoneMobile),
		),
		Run: a.addPhone,
	})
	s.Register(shell.Command{
		Name:    "edit",
		Summary: "Edit an existing phone number",
		Spec: grammar.New("edit", "Edit an existing phone number",
			nameArg("Name of the record"),
			grammar.Arg("index", "Index of the phone number to edit", grammar.Int),
			grammar.Option("phone", "p", phoneHelp, phoneArg, nil),
			grammar.Option("type", "t", typeHelp, typeArg, nil),
		),
		Run: a.editPhone,
	})
	s.Register(shell.Command{
		Name:    "show",
		Summary: "Show all phone numbers for a record",
		Spec: grammar.New("show", "Show all phone numbers for a record",
			nameArg("Name of the record"),
		),
		Run: a.showPhones,
	})
	s.Register(shell.Command{
		Name:    "delete",
		Summary: "Delete a phone number",
		Spec: grammar.New("delete", "Delete a phone number",
			nameArg("Name of the record to delete a phone number from"),
			grammar.Arg("index", "Index of the phone number to delete", grammar.Int),
			forceSwitch(),
		),
		Run: a.deletePhone,
	})
	return s
}

func (a *App) addPhone(ctx context.Context, args grammar.Args) error {
	name := grammar.Get[model.Name](args, "name")
	phone := model.Phone{
		Value: grammar.Get[model.PhoneValue](args, "phone"),
		Type:  grammar.Get[model.PhoneType](args, "type"),
	}
	r, err := a.loadOrNew(ctx, name)
	if err != nil {
		return err
	}
	r.AddPhone(phone)
	if err := a.save(ctx, r); err != nil {
		return err
	}
	a.console.Printf("New phone number %s has been added to %s\n", phone.Value, name)
	return nil
}

func (a *App) editPhone(ctx context.Context, args grammar.Args) error {
	name := grammar.Get[model.Name](args, "name")
	index := grammar.Get[int](args, "index")
	r, err := a.load(ctx, name)
	if r == nil {
		return err
	}
	if !r.HasPhone(index) {
		a.console.Errorf("Phone number index %d out of range", index)
		return nil
	}

	phone := r.Phones[index]
	updated := false
	if v, ok := grammar.Lookup[model.PhoneValue](args, "phone"); ok {
		phone.Value = v
		updated = true
	}
	if t, ok := grammar.Lookup[model.PhoneType](args, "type"); ok {
		phone.Type = t
		updated = true
	}
	if !updated {
		a.console.Printf("Nothing to update for %s\n", name)
		return nil
	}
	r.EditPhone(index, phone)
	if err := a.save(ctx, r); err != nil {
		return err
	}
	a.console.Printf("Record %s has been updated\n", name)
	return nil
}

func (a *App) showPhones(ctx context.Context, args grammar.Args) error {
	name := grammar.Get[model.Name](args, "name")
	r, err := a.load(ctx, name)
	if r == nil {
		return err
	}
	if len(r.Phones) == 0 {
		a.console.Printf("No phone numbers found for %s\n", name)
		return nil
	}
	for i, p := range r.Phones {
		a.console.Printf("%d: %s\n", i, p)
	}
	return nil
}

// deletePhone removes one phone. A record left with neither phones nor a
// birthday is offered for deletion as well.
func (a *App) deletePhone(ctx context.Context, args grammar.Args) error {
	name := grammar.Get[model.Name](args, "name")
	index := grammar.Get[int](args, "index")
	force := grammar.Get[bool](args, "force")
	r, err := a.load(ctx, name)
	if r == nil {
		return err
	}
	if !r.HasPhone(index) {
		a.console.Errorf("Phone number index %d out of range", index)
		return nil
	}
	question := fmt.Sprintf("Are you sure you want to delete a phone number from %s?", name)
	if !a.console.Approve(ctx, question, force) {
		return nil
	}

	phone := r.Phones[index]
	r.DeletePhone(index)
	if err := a.save(ctx, r); err != nil {
		return err
	}
	a.console.Printf("Deleted phone number %s from %s\n", phone.Value, name)

	if !r.Empty() {
		return nil
	}
	question = fmt.Sprintf("%s has no phone numbers left. Delete the record?", name)
	if !a.console.Approve(ctx, question, force) {
		return nil
	}
	if err := a.remove(ctx, name); err != nil {
		return err
	}
	a.console.Printf("Record %s has been deleted\n", name)
	return nil
}
