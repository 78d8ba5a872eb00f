package assistant

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/jeanpaul/assistant/internal/model"
)

func sampleRecords(t *testing.T) []model.Record {
	return []model.Record{
		{
			Name: "Alice Smith",
			Phones: []model.Phone{
				{Value: "1234567890", Type: model.PhoneMobile},
				{Value: "0987654321", Type: model.PhoneWork},
			},
			Birthday: birthday(t, "1990.05.17"),
		},
		{Name: "Bob", Phones: []model.Phone{{Value: "0000000001", Type: model.PhoneHome}}},
		{Name: "Carol", Birthday: birthday(t, "2000.02.29")},
	}
}

func TestWriteThenReadFile(t *testing.T) {
	for _, ext := range []string{".yaml", ".yml", ".xlsx"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "book"+ext)
			want := sampleRecords(t)
			require.NoError(t, WriteFile(path, want))

			got, err := ReadFile(path)
			require.NoError(t, err)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("records mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReadFileValidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- name: Alice\n  phones:\n    - value: \"123\"\n      type: mobile\n"), 0o600))
	_, err := ReadFile(path)
	assert.ErrorIs(t, err, model.ErrInvalidPhone)

	require.NoError(t, os.WriteFile(path, []byte("- name: \"\"\n"), 0o600))
	_, err = ReadFile(path)
	assert.ErrorIs(t, err, model.ErrInvalidName)
}

func TestReadSheetSkipsBlankRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName(f.GetSheetName(0), sheet))
	require.NoError(t, f.SetSheetRow(sheet, "A1", &header))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"Alice", "1234567890", "mobile", ""}))
	require.NoError(t, f.SetSheetRow(sheet, "A4", &[]any{"Bob", "0987654321", "work", "1985.01.02"}))
	require.NoError(t, f.SetSheetRow(sheet, "A6", &[]any{"  ", "", "", ""}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	got, err := ReadFile(path)
	require.NoError(t, err)
	want := []model.Record{
		{Name: "Alice", Phones: []model.Phone{{Value: "1234567890", Type: model.PhoneMobile}}},
		{Name: "Bob", Phones: []model.Phone{{Value: "0987654321", Type: model.PhoneWork}}, Birthday: birthday(t, "1985.01.02")},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestUnsupportedFormat(t *testing.T) {
	assert.ErrorIs(t, WriteFile("book.csv", nil), errFormat)
	_, err := ReadFile("book.txt")
	assert.ErrorIs(t, err, errFormat)
}

func TestExportImportCommands(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "book.yaml")

	h := newHarness(t, "")
	h.run(t, "phones add Alice 1234567890", "birthdays set Alice 1990.05.17", "export "+path)
	assert.Contains(t, h.out.String(), "Exported 1 records to "+path)

	other := newHarness(t, "n\n")
	other.run(t, "phones add Alice 5555555555", "import "+path)
	r, _ := other.record(t, "Alice")
	assert.Equal(t, model.PhoneValue("5555555555"), r.Phones[0].Value, "declined import must not overwrite")

	other.run(t, "import --force "+path)
	assert.Contains(t, other.out.String(), "Imported 1 records from "+path)
	r, _ = other.record(t, "Alice")
	assert.Equal(t, []model.Phone{{Value: "1234567890", Type: model.PhoneMobile}}, r.Phones)
	require.NotNil(t, r.Birthday)
	assert.Equal(t, "1990.05.17", r.Birthday.String())

	other.run(t, "export "+filepath.Join(dir, "book.csv"), "import "+filepath.Join(dir, "missing.yaml"))
	assert.Contains(t, other.errOut.String(), "Cannot export to")
	assert.Contains(t, other.errOut.String(), "Cannot import from")
}
