package assistant

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/jeanpaul/assistant/internal/grammar"
	"github.com/jeanpaul/assistant/internal/model"
)

var errFormat = errors.New("unsupported file format, expected .yaml, .yml or .xlsx")

const sheet = "Contacts"

var header = []any{"Name", "Phone", "Type", "Birthday"}

// entry is the file representation of a record.
type entry struct {
	Name     string       `yaml:"name"`
	Phones   []phoneEntry `yaml:"phones,omitempty"`
	Birthday string       `yaml:"birthday,omitempty"`
}

type phoneEntry struct {
	Value string `yaml:"value"`
	Type  string `yaml:"type"`
}

func toEntry(r model.Record) entry {
	e := entry{Name: string(r.Name)}
	for _, p := range r.Phones {
		e.Phones = append(e.Phones, phoneEntry{Value: string(p.Value), Type: string(p.Type)})
	}
	if r.Birthday != nil {
		e.Birthday = r.Birthday.String()
	}
	return e
}

// record validates e with the same rules the commands apply.
func (e entry) record() (model.Record, error) {
	name, err := model.ParseName(e.Name)
	if err != nil {
		return model.Record{}, err
	}
	r := model.NewRecord(name)
	for _, p := range e.Phones {
		value, err := model.ParsePhoneValue(p.Value)
		if err != nil {
			return model.Record{}, fmt.Errorf("%s: %w", name, err)
		}
		typ := model.PhoneMobile
		if p.Type != "" {
			if typ, err = model.ParsePhoneType(p.Type); err != nil {
				return model.Record{}, fmt.Errorf("%s: %w", name, err)
			}
		}
		r.AddPhone(model.Phone{Value: value, Type: typ})
	}
	if e.Birthday != "" {
		b, err := model.ParseBirthday(e.Birthday)
		if err != nil {
			return model.Record{}, fmt.Errorf("%s: %w", name, err)
		}
		r.SetBirthday(b)
	}
	return *r, nil
}

func format(path string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return "yaml", nil
	case ".xlsx":
		return "xlsx", nil
	}
	return "", errFormat
}

// WriteFile writes records to path in the format chosen by its extension.
func WriteFile(path string, records []model.Record) error {
	kind, err := format(path)
	if err != nil {
		return err
	}
	entries := make([]entry, len(records))
	for i, r := range records {
		entries[i] = toEntry(r)
	}
	if kind == "yaml" {
		data, err := yaml.Marshal(entries)
		if err != nil {
			return err
		}
		return os.WriteFile(path, data, 0o644)
	}
	return writeSheet(path, entries)
}

func writeSheet(path string, entries []entry) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	row := 2
	put := func(values []any) error {
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		row++
		return f.SetSheetRow(sheet, cell, &values)
	}
	for _, e := range entries {
		if len(e.Phones) == 0 {
			if err := put([]any{e.Name, "", "", e.Birthday}); err != nil {
				return err
			}
			continue
		}
		for _, p := range e.Phones {
			if err := put([]any{e.Name, p.Value, p.Type, e.Birthday}); err != nil {
				return err
			}
		}
	}
	return f.SaveAs(path)
}

// ReadFile reads and validates the records stored at path.
func ReadFile(path string) ([]model.Record, error) {
	kind, err := format(path)
	if err != nil {
		return nil, err
	}
	var entries []entry
	if kind == "yaml" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &entries); err != nil {
			return nil, err
		}
	} else if entries, err = readSheet(path); err != nil {
		return nil, err
	}

	records := make([]model.Record, 0, len(entries))
	for _, e := range entries {
		r, err := e.record()
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, nil
}

// readSheet groups rows by name, keeping the order names first appear in.
func readSheet(path string) ([]entry, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, err
	}
	if len(rows) > 0 {
		rows = rows[1:]
	}

	var entries []entry
	index := make(map[string]int)
	for _, row := range rows {
		if blank(row) {
			continue
		}
		row = append(row, make([]string, len(header))...)[:len(header)]
		name := strings.TrimSpace(row[0])
		i, ok := index[name]
		if !ok {
			i = len(entries)
			index[name] = i
			entries = append(entries, entry{Name: name})
		}
		if row[1] != "" {
			entries[i].Phones = append(entries[i].Phones, phoneEntry{Value: row[1], Type: row[2]})
		}
		if row[3] != "" {
			entries[i].Birthday = row[3]
		}
	}
	return entries, nil
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func (a *App) export(ctx context.Context, args grammar.Args) error {
	path := grammar.Get[string](args, "file")
	items, err := a.book.Items(ctx)
	if err != nil {
		return fmt.Errorf("list records: %w", err)
	}
	records := make([]model.Record, len(items))
	for i, it := range items {
		records[i] = it.Value
	}
	if err := WriteFile(path, records); err != nil {
		a.console.Errorf("Cannot export to %s: %v", path, err)
		return nil
	}
	a.logger.Info("records exported", zap.String("file", path), zap.Int("records", len(records)))
	a.console.Printf("Exported %d records to %s\n", len(records), path)
	return nil
}

// importRecords replaces same-named records with the ones read from the
// file, asking first when any would be overwritten.
func (a *App) importRecords(ctx context.Context, args grammar.Args) error {
	path := grammar.Get[string](args, "file")
	records, err := ReadFile(path)
	if err != nil {
		a.console.Errorf("Cannot import from %s: %v", path, err)
		return nil
	}

	existing := 0
	for _, r := range records {
		_, ok, err := a.book.Get(ctx, string(r.Name))
		if err != nil {
			return fmt.Errorf("load %s: %w", r.Name, err)
		}
		if ok {
			existing++
		}
	}
	if existing > 0 {
		question := fmt.Sprintf("%d existing records will be replaced. Continue?", existing)
		if !a.console.Approve(ctx, question, grammar.Get[bool](args, "force")) {
			return nil
		}
	}
	for i := range records {
		if err := a.save(ctx, &records[i]); err != nil {
			return err
		}
	}
	a.logger.Info("records imported", zap.String("file", path), zap.Int("records", len(records)))
	a.console.Printf("Imported %d records from %s\n", len(records), path)
	return nil
}
