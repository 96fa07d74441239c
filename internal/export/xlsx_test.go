package export

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"worklog-summary/internal/period"
	"worklog-summary/internal/storage"
)

func sampleSummaries(t *testing.T) []*storage.Summary {
	t.Helper()
	week, err := period.FromIndex(period.Weekly, 1, 2024)
	require.NoError(t, err)
	month, err := period.FromIndex(period.Monthly, 2, 2024)
	require.NoError(t, err)

	w := storage.NewSummary("acme", week, "weekly body")
	w.Provider = "gemini/gemini-1.5-flash"
	w.GeneratedAt = time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)

	m := storage.NewSummary("acme", month, "monthly body")
	m.Provider = "fallback"
	m.Degraded = true
	m.GeneratedAt = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return []*storage.Summary{m, w}
}

func TestSummaries(t *testing.T) {
	buf, name, err := Summaries("acme corp", sampleSummaries(t))
	require.NoError(t, err)
	assert.Equal(t, "summaries_acme_corp_all.xlsx", name)

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, headers, rows[0])

	assert.Equal(t, "monthly", rows[1][0])
	assert.Equal(t, "February 2024", rows[1][1])
	assert.Equal(t, "2024-02-01", rows[1][2])
	assert.Equal(t, "2024-02-29", rows[1][3])
	assert.Equal(t, "TRUE", rows[1][5])
	assert.Equal(t, "monthly body", rows[1][7])

	assert.Equal(t, "weekly", rows[2][0])
	assert.Equal(t, "Week 1, 2024", rows[2][1])
	assert.Equal(t, "gemini/gemini-1.5-flash", rows[2][4])
	assert.Equal(t, "2024-01-08 09:00:00", rows[2][6])
}

func TestSummaries_Empty(t *testing.T) {
	_, _, err := Summaries("acme", nil)
	assert.ErrorIs(t, err, ErrNothingToExport)
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "acme.xlsx")
	require.NoError(t, WriteFile(path, "acme", sampleSummaries(t)[1:]))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{sheetName}, f.GetSheetList())
}
