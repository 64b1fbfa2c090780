package importer

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"umrah-backoffice/internal/domain"
)

type recordingWriter struct {
	calls int
	got   []domain.Client
	err   error
}

func (w *recordingWriter) BulkCreate(_ context.Context, in []domain.Client) ([]domain.Client, error) {
	w.calls++
	if w.err != nil {
		return nil, w.err
	}
	w.got = append(w.got, in...)
	out := make([]domain.Client, len(in))
	for i, c := range in {
		c.ID = string(rune('a' + i))
		out[i] = c
	}
	return out, nil
}

func names(clients []domain.Client) []string {
	out := make([]string, 0, len(clients))
	for _, c := range clients {
		out = append(out, c.Name)
	}
	return out
}

func TestScan_SkipsStructuralCells(t *testing.T) {
	rows := [][]string{{"Room 101", "Ahmed Ali"}, {"مكة", "فاطمة الزهراء"}}
	got := Scan(rows, NewDenylistClassifier())
	assert.Equal(t, []string{"Ahmed Ali", "فاطمة الزهراء"}, names(got))
	assert.Equal(t, "ahmed.ali@example.com", got[0].Email)
}

func TestScan_Deduplicates(t *testing.T) {
	rows := [][]string{
		{"Ahmed Ali", " Ahmed Ali ", ""},
		{"ahmed ali", "Ahmed Ali"},
	}
	got := Scan(rows, NewDenylistClassifier())
	assert.Equal(t, []string{"Ahmed Ali", "ahmed ali"}, names(got))
}

func TestDenylistClassifier(t *testing.T) {
	c := NewDenylistClassifier()
	cases := map[string]bool{
		"Ahmed Ali":            true,
		"فاطمة الزهراء":        true,
		"Omar  El   Farouk":    true,
		"Ali":                  false,
		"Abdallah":             false,
		"Ahmed A":              false,
		"Ahmed 2 Ali":          false,
		"Hotel Swissotel":      false,
		"Makkah Towers":        false,
		"غرفة رباعي":           false,
		"Beausejour Voyage":    false,
		"Client Name":          false,
		"    ":                 false,
		"A B C D E":            false,
		"Mohamed Amine Alaoui": true,
	}
	for cell, want := range cases {
		assert.Equal(t, want, c.LooksLikeName(cell), cell)
	}
}

func TestReadRows_CSV(t *testing.T) {
	data := "\xef\xbb\xbfRoom,Name\n101,Ahmed Ali,extra\n102\n"
	rows, err := ReadRows(strings.NewReader(data), "list.csv")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Room", "Name"}, rows[0])
	assert.Equal(t, []string{"101", "Ahmed Ali", "extra"}, rows[1])
}

func TestReadRows_XLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetCellValue(sheet, "A1", "تسكين مكة"))
	require.NoError(t, f.SetCellValue(sheet, "A2", "Room 101"))
	require.NoError(t, f.SetCellValue(sheet, "B2", "Ahmed Ali"))
	require.NoError(t, f.SetCellValue(sheet, "C3", "Fatima Zahra"))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	rows, err := ReadRows(bytes.NewReader(buf.Bytes()), "Rooming.XLSX")
	require.NoError(t, err)
	assert.Equal(t, []string{"Ahmed Ali", "Fatima Zahra"}, names(Scan(rows, NewDenylistClassifier())))
}

func TestReadRows_Errors(t *testing.T) {
	_, err := ReadRows(strings.NewReader(""), "empty.csv")
	assert.ErrorIs(t, err, domain.ErrImportParse)

	_, err = ReadRows(strings.NewReader("not a zip archive"), "broken.xlsx")
	assert.ErrorIs(t, err, domain.ErrImportParse)
}

func TestImporter_StageThenCommit(t *testing.T) {
	w := &recordingWriter{}
	imp := New(w, nil, nil)

	batch, err := imp.Stage(context.Background(), strings.NewReader("Ahmed Ali,Room 12\nFatima Zahra\n"), "list.csv")
	require.NoError(t, err)
	assert.Equal(t, 2, batch.Rows)
	assert.Equal(t, []string{"Ahmed Ali", "Fatima Zahra"}, names(batch.Clients))
	assert.Zero(t, w.calls)

	created, err := imp.Commit(context.Background(), batch)
	require.NoError(t, err)
	assert.Len(t, created, 2)
	assert.Equal(t, 1, w.calls)
}

func TestImporter_RunWritesNothingOnParseError(t *testing.T) {
	w := &recordingWriter{}
	imp := New(w, nil, nil)

	_, err := imp.Run(context.Background(), strings.NewReader("garbage"), "list.xlsx")
	assert.ErrorIs(t, err, domain.ErrImportParse)
	assert.Zero(t, w.calls)
}

func TestImporter_RunPropagatesWriteErrors(t *testing.T) {
	w := &recordingWriter{err: errors.New("boom")}
	imp := New(w, nil, nil)

	_, err := imp.Run(context.Background(), strings.NewReader("Ahmed Ali\n"), "list.csv")
	assert.EqualError(t, err, "boom")

	created, err := imp.Run(context.Background(), strings.NewReader("Room 1\n"), "list.csv")
	require.NoError(t, err)
	assert.Empty(t, created)
	assert.Equal(t, 1, w.calls)
}
